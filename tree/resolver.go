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
	"encoding/binary"
	"fmt"
	"path"

	"github.com/blinklabs-io/gochunk/chunk"
)

// Resolution is the result of resolving a chunk as it is mapped
type Resolution struct {
	// Attribs are merged into the element attributes
	Attribs map[string]any
	// Updates are handed back to the resolver through Updater before the
	// next sibling is resolved
	Updates []DirectoryUpdate
}

// Resolver attaches domain attributes to elements as they are created.
// parent is nil for top-level chunks, and offset is relative to the start of
// the parent payload.
type Resolver interface {
	Resolve(parent *Element, c chunk.Chunk, offset int) (Resolution, error)
}

// Updater is implemented by resolvers that accept directory updates
type Updater interface {
	Apply(updates []DirectoryUpdate) error
}

// ResolverFunc adapts a function to the Resolver interface
type ResolverFunc func(parent *Element, c chunk.Chunk, offset int) (Resolution, error)

func (f ResolverFunc) Resolve(parent *Element, c chunk.Chunk, offset int) (Resolution, error) {
	return f(parent, c, offset)
}

// Location identifies a chunk by the id of its container and its offset
type Location struct {
	Container int
	Offset    int
}

// Directory maps numeric ids to chunk locations. Base is added to a chunk's
// offset before looking it up.
type Directory struct {
	Base    int
	Entries map[int]Location
}

// FieldID reads an id from a little-endian unsigned field in the payload
type FieldID struct {
	Offset int
	Width  int
}

func (f FieldID) read(data []byte) (int, bool) {
	if f.Offset < 0 || f.Offset+f.Width > len(data) {
		return 0, false
	}
	field := data[f.Offset : f.Offset+f.Width]
	switch f.Width {
	case 1:
		return int(field[0]), true
	case 2:
		return int(binary.LittleEndian.Uint16(field)), true
	case 4:
		return int(binary.LittleEndian.Uint32(field)), true
	default:
		return 0, false
	}
}

// DirectorySource reads a directory from the payload of a chunk found during
// traversal. The entries are placed in the container of the source chunk's
// parent.
type DirectorySource struct {
	// Target is the tag identified by the directory
	Target chunk.Tag
	Base   int
	// Read returns id to offset pairs
	Read func(data []byte) (map[int]int, error)
}

// DirectoryUpdate replaces the directory used to identify Target chunks
type DirectoryUpdate struct {
	Target    chunk.Tag
	Directory Directory
}

// DirectoryResolver assigns gid and path attributes. Top-level chunks get
// Root as their id. Other chunks are identified by a payload field or by
// looking up (parent gid, offset) in a directory. A DirectoryResolver keeps
// track of the paths it has handed out and should be used for a single tree.
type DirectoryResolver struct {
	Root        int
	Directories map[chunk.Tag]Directory
	Fields      map[chunk.Tag]FieldID
	Sources     map[chunk.Tag]DirectorySource

	index map[chunk.Tag]map[Location]int
	paths map[string]struct{}
}

// NewDirectoryResolver returns a resolver for the top-level id root
func NewDirectoryResolver(root int) *DirectoryResolver {
	return &DirectoryResolver{
		Root:        root,
		Directories: make(map[chunk.Tag]Directory),
		Fields:      make(map[chunk.Tag]FieldID),
		Sources:     make(map[chunk.Tag]DirectorySource),
	}
}

func (r *DirectoryResolver) lookup(tag chunk.Tag, loc Location) (int, bool) {
	if r.index == nil {
		r.index = make(map[chunk.Tag]map[Location]int)
	}
	idx, ok := r.index[tag]
	if !ok {
		idx = make(map[Location]int)
		for gid, entry := range r.Directories[tag].Entries {
			// lowest id wins when entries collide
			if prev, exists := idx[entry]; exists && prev < gid {
				continue
			}
			idx[entry] = gid
		}
		r.index[tag] = idx
	}
	gid, ok := idx[loc]
	return gid, ok
}

func (r *DirectoryResolver) hasSource(tag chunk.Tag) bool {
	if _, ok := r.Fields[tag]; ok {
		return true
	}
	_, ok := r.Directories[tag]
	return ok
}

func (r *DirectoryResolver) resolveID(parent *Element, c chunk.Chunk, offset int) (int, bool) {
	if parent == nil {
		return r.Root, true
	}
	if field, ok := r.Fields[c.Tag()]; ok {
		return field.read(c.Data)
	}
	dir, ok := r.Directories[c.Tag()]
	if !ok {
		return 0, false
	}
	pid, ok := parent.GID()
	if !ok {
		return 0, false
	}
	return r.lookup(c.Tag(), Location{Container: pid, Offset: offset + dir.Base})
}

func (r *DirectoryResolver) Resolve(parent *Element, c chunk.Chunk, offset int) (Resolution, error) {
	var res Resolution
	gid, found := r.resolveID(parent, c, offset)
	base := c.Tag().Display()
	switch {
	case found:
		base = fmt.Sprintf("%s_%04d", base, gid)
	case r.hasSource(c.Tag()):
		base = fmt.Sprintf("%s_o_%04X", base, offset)
	}
	dir := ""
	if parent != nil {
		dir = parent.Path()
	}
	p := path.Join(dir, base)
	if r.paths == nil {
		r.paths = make(map[string]struct{})
	}
	for {
		if _, dup := r.paths[p]; !dup {
			break
		}
		p += "d"
	}
	r.paths[p] = struct{}{}
	res.Attribs = map[string]any{AttrPath: p}
	if found {
		res.Attribs[AttrGID] = gid
	}
	if src, ok := r.Sources[c.Tag()]; ok {
		offsets, err := src.Read(c.Data)
		if err != nil {
			return res, fmt.Errorf("read %s directory: %w", c.Tag().Display(), err)
		}
		container := r.Root
		if parent != nil {
			if pid, ok := parent.GID(); ok {
				container = pid
			}
		}
		entries := make(map[int]Location, len(offsets))
		for id, off := range offsets {
			entries[id] = Location{Container: container, Offset: off}
		}
		res.Updates = append(res.Updates, DirectoryUpdate{
			Target:    src.Target,
			Directory: Directory{Base: src.Base, Entries: entries},
		})
	}
	return res, nil
}

func (r *DirectoryResolver) Apply(updates []DirectoryUpdate) error {
	for _, u := range updates {
		if r.Directories == nil {
			r.Directories = make(map[chunk.Tag]Directory)
		}
		r.Directories[u.Target] = u.Directory
		delete(r.index, u.Target)
	}
	return nil
}
