// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chunk

import (
	"errors"
	"fmt"
)

// Structural parse errors. These are always fatal: they are never recovered
// by the stream, only reported to the caller.
var (
	ErrTruncatedHeader = errors.New("truncated chunk header")
	ErrSizeMismatch    = errors.New("chunk size mismatch")
	ErrInvalidTag      = errors.New("invalid chunk tag")
	ErrPayloadTooLarge = errors.New("chunk payload too large")
	ErrInvalidConfig   = errors.New("invalid chunk stream configuration")
)

// TruncatedHeaderError indicates fewer bytes remain than a header needs
type TruncatedHeaderError struct {
	Offset int
	Need   int
	Have   int
}

func (e *TruncatedHeaderError) Error() string {
	return fmt.Sprintf(
		"truncated chunk header at offset %d: need %d bytes, have %d",
		e.Offset,
		e.Need,
		e.Have,
	)
}

func (*TruncatedHeaderError) Is(target error) bool {
	return target == ErrTruncatedHeader
}

// SizeMismatchError indicates a declared chunk size that does not fit the
// enclosing buffer or the dialect's size convention
type SizeMismatchError struct {
	Offset    int
	Tag       Tag
	Declared  uint32
	Available int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf(
		"chunk size mismatch for %q at offset %d: declared %d, available %d",
		e.Tag.Display(),
		e.Offset,
		e.Declared,
		e.Available,
	)
}

func (*SizeMismatchError) Is(target error) bool {
	return target == ErrSizeMismatch
}

// InvalidTagError indicates tag bytes that are not ASCII or have the wrong
// length for the dialect. Offset is -1 when encoding.
type InvalidTagError struct {
	Offset int
	Raw    []byte
}

func (e *InvalidTagError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("invalid chunk tag %q", e.Raw)
	}
	return fmt.Sprintf("invalid chunk tag %q at offset %d", e.Raw, e.Offset)
}

func (*InvalidTagError) Is(target error) bool {
	return target == ErrInvalidTag
}
