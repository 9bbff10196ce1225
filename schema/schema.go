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

// Package schema describes which chunk tags may be nested inside which.
//
// A Schema maps every known tag to the set of tags allowed as its immediate
// children. A tag mapping to an empty set is a leaf: its payload is opaque.
// Schemas can be written by hand, loaded from YAML/CBOR files, or discovered
// from an archive with Infer.
package schema

import (
	"fmt"
	"slices"

	"github.com/blinklabs-io/gochunk/chunk"
	"github.com/jinzhu/copier"
)

// NoParent is passed to Validate for top-level chunks
const NoParent chunk.Tag = ""

// TagSet is a set of chunk tags
type TagSet map[chunk.Tag]struct{}

// NewTagSet returns a set containing the given tags
func NewTagSet(tags ...chunk.Tag) TagSet {
	ret := make(TagSet, len(tags))
	for _, tag := range tags {
		ret[tag] = struct{}{}
	}
	return ret
}

// Has reports whether the tag is a member of the set
func (s TagSet) Has(tag chunk.Tag) bool {
	_, ok := s[tag]
	return ok
}

// Sorted returns the members of the set in lexical order
func (s TagSet) Sorted() []chunk.Tag {
	ret := make([]chunk.Tag, 0, len(s))
	for tag := range s {
		ret = append(ret, tag)
	}
	slices.Sort(ret)
	return ret
}

// Schema maps a tag to the set of its legal immediate children
type Schema map[chunk.Tag]TagSet

// New returns an empty schema
func New() Schema {
	return make(Schema)
}

// Add registers parent and allows the given children inside it. Children are
// not registered as keys themselves.
func (s Schema) Add(parent chunk.Tag, children ...chunk.Tag) Schema {
	set, ok := s[parent]
	if !ok || set == nil {
		set = make(TagSet, len(children))
		s[parent] = set
	}
	for _, child := range children {
		set[child] = struct{}{}
	}
	return s
}

// AddLeaf registers tags with no legal children
func (s Schema) AddLeaf(tags ...chunk.Tag) Schema {
	for _, tag := range tags {
		if _, ok := s[tag]; !ok {
			s[tag] = TagSet{}
		}
	}
	return s
}

// Has reports whether the tag is known to the schema
func (s Schema) Has(tag chunk.Tag) bool {
	_, ok := s[tag]
	return ok
}

// IsContainer reports whether chunks with this tag contain nested chunks
func (s Schema) IsContainer(tag chunk.Tag) bool {
	return len(s[tag]) > 0
}

// Allows reports whether child is listed as a legal child of parent
func (s Schema) Allows(parent chunk.Tag, child chunk.Tag) bool {
	return s[parent].Has(child)
}

// Children returns the legal children of tag in lexical order
func (s Schema) Children(tag chunk.Tag) []chunk.Tag {
	return s[tag].Sorted()
}

// Tags returns all known tags in lexical order
func (s Schema) Tags() []chunk.Tag {
	ret := make([]chunk.Tag, 0, len(s))
	for tag := range s {
		ret = append(ret, tag)
	}
	slices.Sort(ret)
	return ret
}

// Validate checks that child may appear under parent. Use NoParent for
// top-level chunks.
func (s Schema) Validate(parent chunk.Tag, child chunk.Tag) error {
	if !s.Has(child) {
		return &UnknownTagError{Tag: child}
	}
	if parent != NoParent && s.Has(parent) && !s.Allows(parent, child) {
		return &DisallowedChildError{Parent: parent, Child: child}
	}
	return nil
}

// Clone returns a deep copy of the schema
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	ret := make(Schema, len(s))
	if err := copier.CopyWithOption(&ret, &s, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched types, which cannot happen here
		panic(fmt.Sprintf("unexpected error cloning schema: %s", err))
	}
	return ret
}

// Merge adds all keys and allowed children of other into s
func (s Schema) Merge(other Schema) Schema {
	for parent, children := range other {
		s.Add(parent, children.Sorted()...)
	}
	return s
}

// Narrow returns a copy of the schema where only the listed containers keep
// their children. Every other tag becomes a leaf.
func Narrow(s Schema, trail ...chunk.Tag) Schema {
	keep := NewTagSet(trail...)
	ret := s.Clone()
	for tag := range ret {
		if !keep.Has(tag) {
			ret[tag] = TagSet{}
		}
	}
	return ret
}
