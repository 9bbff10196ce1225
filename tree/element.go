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

// Package tree provides a lazy, mutable element tree over chunk archives.
//
// An Indexer maps a buffer into top-level Elements. The children of an
// element are mapped on first access and cached. Edits are made bottom-up:
// change a leaf with SetRaw or ReplaceChildren, then call ReplaceChildren on
// each ancestor in turn so that the new payload lengths propagate upwards.
// Elements borrow the buffer they were mapped from and must not outlive it.
package tree

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/blinklabs-io/gochunk/chunk"
)

type childState int

const (
	childrenUnparsed childState = iota
	childrenParsed
)

// Element is a node in a chunk tree
type Element struct {
	indexer *Indexer
	chunk   chunk.Chunk
	// offset is the absolute offset of the chunk header in the root buffer,
	// or -1 for synthetic elements
	offset     int
	dataOffset int
	depth      int
	attribs    map[string]any
	state      childState
	children   []*Element
	// raw overrides the borrowed chunk payload after a mutation
	raw []byte
}

// Tag returns the element tag
func (e *Element) Tag() chunk.Tag {
	return e.chunk.Tag()
}

// Header returns the header the element was parsed with
func (e *Element) Header() chunk.Header {
	return e.chunk.Header
}

// Offset returns the absolute offset of the element header in the buffer it
// was mapped from, or -1 for synthetic elements
func (e *Element) Offset() int {
	return e.offset
}

// DataOffset returns the absolute offset of the element payload, or -1 for
// synthetic elements
func (e *Element) DataOffset() int {
	return e.dataOffset
}

// Depth returns the nesting level of the element. Top-level elements have
// depth 0.
func (e *Element) Depth() int {
	return e.depth
}

// Data returns the current payload
func (e *Element) Data() []byte {
	if e.raw != nil {
		return e.raw
	}
	return e.chunk.Data
}

// Len returns the current payload length
func (e *Element) Len() int {
	return len(e.Data())
}

// Modified reports whether the payload has been replaced
func (e *Element) Modified() bool {
	return e.raw != nil
}

// Attr returns a single attribute
func (e *Element) Attr(key string) (any, bool) {
	v, ok := e.attribs[key]
	return v, ok
}

// Attribs returns the attribute map. The map is owned by the element.
func (e *Element) Attribs() map[string]any {
	return e.attribs
}

// SetAttr sets a single attribute
func (e *Element) SetAttr(key string, value any) {
	if e.attribs == nil {
		e.attribs = make(map[string]any)
	}
	e.attribs[key] = value
}

// Path returns the path attribute, falling back to the tag
func (e *Element) Path() string {
	if p, ok := e.attribs[AttrPath].(string); ok && p != "" {
		return p
	}
	return e.Tag().Display()
}

// GID returns the numeric id attribute assigned by a resolver
func (e *Element) GID() (int, bool) {
	gid, ok := e.attribs[AttrGID].(int)
	return gid, ok
}

// IsContainer reports whether the element's children are mapped from its
// payload
func (e *Element) IsContainer() bool {
	if e.chunk.Header.Sentinel {
		return false
	}
	return e.indexer.schema.IsContainer(e.Tag()) && e.indexer.descends(e.depth)
}

// Parsed reports whether the children have been materialized
func (e *Element) Parsed() bool {
	return e.state == childrenParsed
}

// Children returns the child elements, mapping them from the payload on
// first access. Leaves have no children.
func (e *Element) Children() ([]*Element, error) {
	if e.state == childrenParsed {
		return e.children, nil
	}
	children, err := e.mapChildren(e.Data())
	if err != nil {
		return nil, err
	}
	e.children = children
	e.state = childrenParsed
	return e.children, nil
}

func (e *Element) mapChildren(data []byte) ([]*Element, error) {
	if !e.IsContainer() {
		return nil, nil
	}
	return e.indexer.mapChunks(data, 0, e, e.dataOffset, e.depth+1)
}

// AddChild appends a child, materializing the existing children first. The
// payload is not rebuilt until ReplaceChildren or Rebuild is called.
func (e *Element) AddChild(child *Element) error {
	if _, err := e.Children(); err != nil {
		return err
	}
	e.children = append(e.children, child)
	return nil
}

// ReplaceChildren sets the children of the element and rebuilds its payload
// by encoding each child as a full chunk with alignment padding. The payload
// length may change.
func (e *Element) ReplaceChildren(children []*Element) error {
	chunks := make([]chunk.Chunk, 0, len(children))
	for _, child := range children {
		c, err := child.Chunk()
		if err != nil {
			return err
		}
		chunks = append(chunks, c)
	}
	data, err := e.indexer.stream.WriteChunks(chunks)
	if err != nil {
		return err
	}
	// WriteChunks returns nil for no chunks
	if data == nil {
		data = []byte{}
	}
	e.children = children
	e.state = childrenParsed
	e.raw = data
	e.attribs[AttrSize] = len(data)
	return nil
}

// Rebuild re-encodes the payload from the current children
func (e *Element) Rebuild() error {
	children, err := e.Children()
	if err != nil {
		return err
	}
	return e.ReplaceChildren(children)
}

// SetRaw overrides the payload directly. The new payload must have the same
// length as the current one. If the children were already materialized they
// are mapped again from the new payload.
func (e *Element) SetRaw(data []byte) error {
	if len(data) != e.Len() {
		return &RawLengthError{Tag: e.Tag(), Want: e.Len(), Got: len(data)}
	}
	raw := bytes.Clone(data)
	if raw == nil {
		raw = []byte{}
	}
	if e.state == childrenParsed {
		children, err := e.mapChildren(raw)
		if err != nil {
			return err
		}
		e.children = children
	}
	e.raw = raw
	return nil
}

// Chunk returns the element as a chunk with a header computed from the
// current payload
func (e *Element) Chunk() (chunk.Chunk, error) {
	if !e.Modified() {
		return e.chunk, nil
	}
	return e.indexer.stream.Mktag(e.Tag(), e.Data())
}

// Bytes encodes the element as header followed by payload
func (e *Element) Bytes() ([]byte, error) {
	c, err := e.Chunk()
	if err != nil {
		return nil, err
	}
	return e.indexer.stream.Bytes(c)
}

func (e *Element) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Element<%s>[offset=%d size=%d", e.Tag().Display(), e.offset, e.Len())
	if e.state == childrenParsed {
		sb.WriteString(", children={")
		sb.WriteString(formatChildren(e.children, 4))
		sb.WriteString("}")
	}
	sb.WriteString("]")
	return sb.String()
}

// formatChildren summarizes child tags in order of first appearance
func formatChildren(children []*Element, maxShow int) string {
	var order []chunk.Tag
	counts := make(map[chunk.Tag]int)
	for _, child := range children {
		if counts[child.Tag()] == 0 {
			order = append(order, child.Tag())
		}
		counts[child.Tag()]++
	}
	parts := make([]string, 0, len(order))
	for idx, tag := range order {
		if idx >= maxShow {
			parts = append(parts, "...")
			break
		}
		if counts[tag] > 1 {
			parts = append(parts, fmt.Sprintf("%s*%d", tag.Display(), counts[tag]))
		} else {
			parts = append(parts, tag.Display())
		}
	}
	return strings.Join(parts, ",")
}
