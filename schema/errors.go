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

package schema

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/gochunk/chunk"
)

var (
	ErrUnknownTag            = errors.New("unknown chunk tag")
	ErrDisallowedChild       = errors.New("disallowed child chunk")
	ErrSchemaInferenceFailed = errors.New("schema inference failed")
	ErrIterationLimit        = errors.New("iteration limit reached")
)

// UnknownTagError indicates a tag absent from the schema
type UnknownTagError struct {
	Tag chunk.Tag
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("missing key in schema: %s", e.Tag.Display())
}

func (*UnknownTagError) Is(target error) bool {
	return target == ErrUnknownTag
}

// DisallowedChildError indicates a child tag not listed for its parent
type DisallowedChildError struct {
	Parent chunk.Tag
	Child  chunk.Tag
}

func (e *DisallowedChildError) Error() string {
	return fmt.Sprintf(
		"missing entry for %s in %s schema",
		e.Child.Display(),
		e.Parent.Display(),
	)
}

func (*DisallowedChildError) Is(target error) bool {
	return target == ErrDisallowedChild
}

// InferenceError reports why a schema could not be discovered. Tag is the
// container being speculated on when the failure occurred, empty for the top
// level.
type InferenceError struct {
	Tag        chunk.Tag
	Iterations int
	Err        error
}

func (e *InferenceError) Error() string {
	if e.Tag == NoParent {
		return fmt.Sprintf(
			"cannot create schema after %d iterations: %v",
			e.Iterations,
			e.Err,
		)
	}
	return fmt.Sprintf(
		"cannot create schema after %d iterations (in %s): %v",
		e.Iterations,
		e.Tag.Display(),
		e.Err,
	)
}

func (e *InferenceError) Unwrap() error { return e.Err }

func (*InferenceError) Is(target error) bool {
	return target == ErrSchemaInferenceFailed
}
