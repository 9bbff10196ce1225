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

package smap

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedMethod = errors.New("unsupported strip method")
	ErrBitstreamUnderrun = errors.New("bitstream underrun")
	ErrDirectionMismatch = errors.New("strip direction mismatch")
	ErrRoundTripMismatch = errors.New("encoded image does not decode to the source")
	ErrInvalidOffset     = errors.New("invalid strip offset")
	ErrInvalidWidth      = errors.New("image width is not a multiple of the strip width")

	// returned by strip encoders that cannot express the pixels with the
	// requested method
	errUnrepresentable = errors.New("pixels not representable")
)

// DecodeError reports the strip that failed to decode
type DecodeError struct {
	Strip int
	Code  byte
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("strip %d (method %d): %v", e.Strip, e.Code, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// RoundTripError reports an encoding that failed self-verification. Strip is
// -1 when the assembled image failed as a whole.
type RoundTripError struct {
	Strip int
}

func (e *RoundTripError) Error() string {
	if e.Strip < 0 {
		return ErrRoundTripMismatch.Error()
	}
	return fmt.Sprintf("strip %d: %s", e.Strip, ErrRoundTripMismatch)
}

func (e *RoundTripError) Is(target error) bool {
	return target == ErrRoundTripMismatch
}
