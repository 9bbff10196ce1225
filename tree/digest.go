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
	"encoding/hex"
	"fmt"
	"path"

	"golang.org/x/crypto/blake2b"
)

const DigestSize = blake2b.Size256

// Digest is a fingerprint of an element's tag and payload
type Digest [DigestSize]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// DigestOf returns the fingerprint of e. The header size field is not
// included, so equal tags and payloads give equal digests in any dialect.
func DigestOf(e *Element) Digest {
	data := e.Data()
	buf := make([]byte, 0, len(e.Tag())+1+len(data))
	buf = append(buf, e.Tag()...)
	buf = append(buf, 0)
	buf = append(buf, data...)
	return Digest(blake2b.Sum256(buf))
}

type ChangeKind int

const (
	ChangeModified ChangeKind = iota
	ChangeAdded
	ChangeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeModified:
		return "modified"
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Change is a difference between two trees. Path names the element by tag and
// sibling index, for example "LECF#0/LFLF#2".
type Change struct {
	Kind ChangeKind
	Path string
	Old  *Element
	New  *Element
}

func (c Change) String() string {
	return fmt.Sprintf("%s %s", c.Kind, c.Path)
}

// Diff compares two trees and reports the deepest elements that differ.
// Containers with identical digests are not descended.
func Diff(a []*Element, b []*Element) ([]Change, error) {
	return diff(a, b, "")
}

func diff(a []*Element, b []*Element, prefix string) ([]Change, error) {
	var ret []Change
	for i := 0; i < max(len(a), len(b)); i++ {
		switch {
		case i >= len(a):
			ret = append(ret, Change{Kind: ChangeAdded, Path: label(prefix, b[i], i), New: b[i]})
			continue
		case i >= len(b):
			ret = append(ret, Change{Kind: ChangeRemoved, Path: label(prefix, a[i], i), Old: a[i]})
			continue
		}
		oldElem, newElem := a[i], b[i]
		p := label(prefix, oldElem, i)
		if oldElem.Tag() != newElem.Tag() {
			ret = append(ret, Change{Kind: ChangeModified, Path: p, Old: oldElem, New: newElem})
			continue
		}
		if DigestOf(oldElem) == DigestOf(newElem) {
			continue
		}
		oldChildren, err := oldElem.Children()
		if err != nil {
			return nil, err
		}
		newChildren, err := newElem.Children()
		if err != nil {
			return nil, err
		}
		if len(oldChildren) == 0 || len(newChildren) == 0 {
			ret = append(ret, Change{Kind: ChangeModified, Path: p, Old: oldElem, New: newElem})
			continue
		}
		nested, err := diff(oldChildren, newChildren, p)
		if err != nil {
			return nil, err
		}
		if len(nested) == 0 {
			// children are identical but the payload differs, e.g. padding
			nested = []Change{{Kind: ChangeModified, Path: p, Old: oldElem, New: newElem}}
		}
		ret = append(ret, nested...)
	}
	return ret, nil
}

func label(prefix string, e *Element, idx int) string {
	return path.Join(prefix, fmt.Sprintf("%s#%d", e.Tag().Display(), idx))
}
