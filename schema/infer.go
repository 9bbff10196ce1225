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
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/gochunk/chunk"
)

// InferConfig holds the settings used by Infer
type InferConfig struct {
	// MaxIterations caps the number of parse attempts. Zero derives the cap
	// from the number of distinct tags seen so far.
	MaxIterations int
	// MaxDepth limits how many levels of nesting are explored. Chunks at the
	// last level are never descended into. Zero means unlimited.
	MaxDepth int
	Logger   *slog.Logger
}

// InferOptionFunc is a type that represents functions that modify the inference config
type InferOptionFunc func(*InferConfig)

// WithMaxIterations specifies a fixed cap on the number of parse attempts
func WithMaxIterations(n int) InferOptionFunc {
	return func(c *InferConfig) {
		c.MaxIterations = n
	}
}

// WithMaxDepth specifies how many levels of nesting to explore
func WithMaxDepth(depth int) InferOptionFunc {
	return func(c *InferConfig) {
		c.MaxDepth = depth
	}
}

// WithInferLogger specifies the logger to use. If none is provided, slog.Default() is used
func WithInferLogger(logger *slog.Logger) InferOptionFunc {
	return func(c *InferConfig) {
		c.Logger = logger
	}
}

// hypothesis is the working schema threaded through inference attempts
type hypothesis map[chunk.Tag]*hypothesisEntry

type hypothesisEntry struct {
	// pending tags have been seen but have not yet been shown to either
	// contain children or hold an opaque payload
	pending  bool
	leaf     bool
	children TagSet
}

func (h hypothesis) addPending(tag chunk.Tag) {
	h[tag] = &hypothesisEntry{pending: true, children: TagSet{}}
}

func (h hypothesis) allow(parent chunk.Tag, child chunk.Tag) {
	entry := h[parent]
	entry.pending = false
	entry.children[child] = struct{}{}
}

func (h hypothesis) markLeaf(tag chunk.Tag) {
	entry := h[tag]
	entry.pending = false
	entry.leaf = true
	entry.children = TagSet{}
}

// descentError is a structural failure found while reading the chunks
// nested inside Tag
type descentError struct {
	Tag chunk.Tag
	Err error
}

func (e *descentError) Error() string {
	return fmt.Sprintf("reading chunks in %s: %v", e.Tag.Display(), e.Err)
}

func (e *descentError) Unwrap() error { return e.Err }

// speculation is a single strict parse attempt against a hypothesis
type speculation struct {
	stream   *chunk.Stream
	hyp      hypothesis
	maxDepth int
	visited  Schema
}

func (s *speculation) walk(buf []byte, parent chunk.Tag, depth int) error {
	it := s.stream.ReadChunks(buf, 0)
	for it.Next() {
		c := it.Chunk()
		if c.Header.Sentinel {
			continue
		}
		tag := c.Tag()
		entry, ok := s.hyp[tag]
		if !ok {
			return &UnknownTagError{Tag: tag}
		}
		if parent != NoParent && !s.hyp[parent].children.Has(tag) {
			return &DisallowedChildError{Parent: parent, Child: tag}
		}
		s.visited.AddLeaf(tag)
		if parent != NoParent {
			s.visited.Add(parent, tag)
		}
		if entry.leaf {
			continue
		}
		if s.maxDepth > 0 && depth+1 >= s.maxDepth {
			continue
		}
		if err := s.walk(c.Data, tag, depth+1); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return &descentError{Tag: parent, Err: err}
	}
	return nil
}

func iterationLimit(cfg InferConfig, hyp hypothesis) int {
	if cfg.MaxIterations > 0 {
		return cfg.MaxIterations
	}
	// Each attempt adds a key, an edge or a leaf marking
	n := len(hyp)
	return n*n + 2*n + 16
}

// Infer discovers a schema for buf by repeatedly parsing it in strict mode
// and refining a working hypothesis from each failure:
//
//   - an unknown tag is added as pending
//   - a disallowed child is added to its parent's allowed set
//   - a structural error while reading the payload of a tag marks that tag
//     as a leaf
//
// A structural error at the top level, or one attributed to a tag that is
// already a leaf, ends inference with ErrSchemaInferenceFailed. Pending tags
// left after the final successful parse become leaves, and tags that the
// final parse never visited are dropped.
func Infer(stream *chunk.Stream, buf []byte, opts ...InferOptionFunc) (Schema, error) {
	var cfg InferConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "schema")
	hyp := make(hypothesis)
	for iteration := 1; ; iteration++ {
		if limit := iterationLimit(cfg, hyp); iteration > limit {
			return nil, &InferenceError{
				Iterations: iteration - 1,
				Err:        fmt.Errorf("%w: no convergence after %d attempts", ErrIterationLimit, limit),
			}
		}
		attempt := &speculation{
			stream:   stream,
			hyp:      hyp,
			maxDepth: cfg.MaxDepth,
			visited:  New(),
		}
		err := attempt.walk(buf, NoParent, 0)
		if err == nil {
			logger.Debug(
				"schema inference converged",
				"iteration", iteration,
				"tags", len(attempt.visited),
			)
			return attempt.visited, nil
		}
		switch e := err.(type) {
		case *UnknownTagError:
			hyp.addPending(e.Tag)
		case *DisallowedChildError:
			hyp.allow(e.Parent, e.Child)
		case *descentError:
			if e.Tag == NoParent || hyp[e.Tag].leaf {
				return nil, &InferenceError{
					Tag:        e.Tag,
					Iterations: iteration,
					Err:        e.Err,
				}
			}
			hyp.markLeaf(e.Tag)
		default:
			return nil, &InferenceError{Iterations: iteration, Err: err}
		}
		logger.Debug(
			"schema inference step",
			"iteration", iteration,
			"tags", len(hyp),
			"error", err.Error(),
		)
	}
}
