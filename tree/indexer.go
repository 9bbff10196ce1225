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
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/blinklabs-io/gochunk/chunk"
	"github.com/blinklabs-io/gochunk/schema"
)

const (
	AttrOffset = "offset"
	AttrSize   = "size"
	AttrPath   = "path"
	AttrGID    = "gid"
)

// Indexer maps chunk buffers into element trees
type Indexer struct {
	stream      *chunk.Stream
	schema      schema.Schema
	mode        schema.Mode
	maxDepth    int
	resolver    Resolver
	logger      *slog.Logger
	diagMutex   sync.Mutex
	diagnostics []Diagnostic
}

// IndexerOptionFunc is a type that represents functions that modify the indexer config
type IndexerOptionFunc func(*Indexer)

// NewIndexer returns an indexer that reads chunks with stream and nests
// them according to s
func NewIndexer(stream *chunk.Stream, s schema.Schema, opts ...IndexerOptionFunc) *Indexer {
	idx := &Indexer{
		stream: stream,
		schema: s,
		mode:   schema.Strict,
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.logger == nil {
		idx.logger = slog.Default()
	}
	idx.logger = idx.logger.With("component", "tree")
	if idx.schema == nil {
		idx.schema = schema.New()
	}
	return idx
}

// WithMode specifies how schema violations are handled
func WithMode(mode schema.Mode) IndexerOptionFunc {
	return func(i *Indexer) {
		i.mode = mode
	}
}

// WithMaxDepth limits how many levels of nesting are mapped. Elements at the
// last level are leaves regardless of the schema. Zero means unlimited.
func WithMaxDepth(depth int) IndexerOptionFunc {
	return func(i *Indexer) {
		i.maxDepth = depth
	}
}

// WithResolver specifies the resolution context used to attach attributes
// to elements as they are created
func WithResolver(r Resolver) IndexerOptionFunc {
	return func(i *Indexer) {
		i.resolver = r
	}
}

// WithLogger specifies the logger to use. If none is provided, slog.Default() is used
func WithLogger(logger *slog.Logger) IndexerOptionFunc {
	return func(i *Indexer) {
		i.logger = logger
	}
}

// Stream returns the chunk stream used by the indexer
func (i *Indexer) Stream() *chunk.Stream {
	return i.stream
}

// Schema returns the schema used by the indexer
func (i *Indexer) Schema() schema.Schema {
	return i.schema
}

// Mode returns the validation mode
func (i *Indexer) Mode() schema.Mode {
	return i.mode
}

// Map returns the top-level elements of buf. Nested elements are mapped
// lazily when Children is first called.
func (i *Indexer) Map(buf []byte) ([]*Element, error) {
	return i.MapAt(buf, 0)
}

// MapAt returns the top-level elements of buf starting at offset
func (i *Indexer) MapAt(buf []byte, offset int) ([]*Element, error) {
	return i.mapChunks(buf, offset, nil, 0, 0)
}

// NewElement builds a synthetic element that is not backed by a parsed
// buffer, for example a wrapper chunk assembled with AddChild
func (i *Indexer) NewElement(tag chunk.Tag, data []byte) (*Element, error) {
	c, err := i.stream.Mktag(tag, data)
	if err != nil {
		return nil, err
	}
	return &Element{
		indexer:    i,
		chunk:      c,
		offset:     -1,
		dataOffset: -1,
		attribs: map[string]any{
			AttrSize: len(data),
		},
	}, nil
}

// Diagnostics returns the schema violations tolerated in lenient mode
func (i *Indexer) Diagnostics() []Diagnostic {
	i.diagMutex.Lock()
	defer i.diagMutex.Unlock()
	return slices.Clone(i.diagnostics)
}

func (i *Indexer) record(d Diagnostic) {
	i.diagMutex.Lock()
	i.diagnostics = append(i.diagnostics, d)
	i.diagMutex.Unlock()
}

// descends reports whether an element at depth may have children mapped
func (i *Indexer) descends(depth int) bool {
	return i.maxDepth <= 0 || depth+1 < i.maxDepth
}

// mapChunks reads the chunks in buf starting at start. base is the absolute
// offset of buf[0] in the root buffer, or -1 when unknown.
func (i *Indexer) mapChunks(
	buf []byte,
	start int,
	parent *Element,
	base int,
	depth int,
) ([]*Element, error) {
	var ret []*Element
	it := i.stream.ReadChunks(buf, start)
	for it.Next() {
		elem, err := i.newElement(parent, it.Chunk(), it.Offset(), base, depth)
		if err != nil {
			return nil, err
		}
		ret = append(ret, elem)
	}
	if err := it.Err(); err != nil {
		if parent != nil {
			return nil, fmt.Errorf("map chunks in %s: %w", parent.Tag().Display(), err)
		}
		return nil, err
	}
	return ret, nil
}

func (i *Indexer) newElement(
	parent *Element,
	c chunk.Chunk,
	local int,
	base int,
	depth int,
) (*Element, error) {
	offset := -1
	dataOffset := -1
	if base >= 0 {
		offset = base + local
		dataOffset = offset + i.stream.Codec().HeaderSize()
	}
	elem := &Element{
		indexer:    i,
		chunk:      c,
		offset:     offset,
		dataOffset: dataOffset,
		depth:      depth,
		attribs: map[string]any{
			AttrOffset: offset,
			AttrSize:   c.Len(),
		},
	}
	if i.resolver != nil {
		res, err := i.resolver.Resolve(parent, c, local)
		if err != nil {
			return nil, fmt.Errorf("resolve %s at offset %d: %w", c.Tag().Display(), offset, err)
		}
		maps.Copy(elem.attribs, res.Attribs)
		if len(res.Updates) > 0 {
			if updater, ok := i.resolver.(Updater); ok {
				if err := updater.Apply(res.Updates); err != nil {
					return nil, err
				}
			}
		}
	}
	if c.Header.Sentinel {
		return elem, nil
	}
	parentTag := schema.NoParent
	if parent != nil {
		parentTag = parent.Tag()
	}
	if err := i.schema.Validate(parentTag, c.Tag()); err != nil {
		if i.mode == schema.Strict {
			return nil, fmt.Errorf("chunk at offset %d: %w", offset, err)
		}
		i.logger.Warn(
			"schema violation",
			"offset", offset,
			"error", err.Error(),
		)
		i.record(Diagnostic{
			Offset: offset,
			Parent: parentTag,
			Tag:    c.Tag(),
			Err:    err,
		})
	}
	return elem, nil
}
