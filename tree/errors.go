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

package tree

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/gochunk/chunk"
)

var (
	ErrRawLengthMismatch = errors.New("raw payload length mismatch")
	ErrInvalidPath       = errors.New("invalid element path")
)

// RawLengthError is returned by SetRaw when the new payload does not have the
// same length as the current one
type RawLengthError struct {
	Tag  chunk.Tag
	Want int
	Got  int
}

func (e *RawLengthError) Error() string {
	return fmt.Sprintf(
		"cannot replace %s payload of %d bytes with %d bytes",
		e.Tag.Display(),
		e.Want,
		e.Got,
	)
}

func (*RawLengthError) Is(target error) bool {
	return target == ErrRawLengthMismatch
}

// Diagnostic records a schema violation tolerated in lenient mode
type Diagnostic struct {
	// Offset is the absolute offset of the offending chunk header
	Offset int
	Parent chunk.Tag
	Tag    chunk.Tag
	Err    error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("offset %d: %v", d.Offset, d.Err)
}
