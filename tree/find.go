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
	"path"
	"strings"
)

// FindAll returns the elements of root whose tag matches pattern. Patterns
// use path.Match syntax, so "RM??" and "*" work as expected.
func FindAll(pattern string, root []*Element) ([]*Element, error) {
	var ret []*Element
	for _, elem := range root {
		ok, err := path.Match(pattern, string(elem.Tag()))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
		}
		if ok {
			ret = append(ret, elem)
		}
	}
	return ret, nil
}

// Find returns the first element of root whose tag matches pattern, or nil
func Find(pattern string, root []*Element) (*Element, error) {
	for _, elem := range root {
		ok, err := path.Match(pattern, string(elem.Tag()))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
		}
		if ok {
			return elem, nil
		}
	}
	return nil, nil
}

// FindPath follows a slash-separated list of tag patterns from root, taking
// the first match at each level. It returns nil if any level has no match.
func FindPath(p string, root []*Element) (*Element, error) {
	p = path.Clean(p)
	if p == "." || p == "/" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	var cur *Element
	level := root
	for _, part := range strings.Split(strings.TrimPrefix(p, "/"), "/") {
		if cur != nil {
			children, err := cur.Children()
			if err != nil {
				return nil, err
			}
			level = children
		}
		found, err := Find(part, level)
		if err != nil || found == nil {
			return nil, err
		}
		cur = found
	}
	return cur, nil
}

// FindAll returns the children of e whose tag matches pattern
func (e *Element) FindAll(pattern string) ([]*Element, error) {
	children, err := e.Children()
	if err != nil {
		return nil, err
	}
	return FindAll(pattern, children)
}

// Find returns the first child of e whose tag matches pattern, or nil
func (e *Element) Find(pattern string) (*Element, error) {
	children, err := e.Children()
	if err != nil {
		return nil, err
	}
	return Find(pattern, children)
}

// FindPath follows a path of tag patterns starting from the children of e
func (e *Element) FindPath(p string) (*Element, error) {
	children, err := e.Children()
	if err != nil {
		return nil, err
	}
	return FindPath(p, children)
}

// WalkFunc is called for each element visited by Walk
type WalkFunc func(e *Element, depth int) error

// Walk visits the elements of root and all of their descendants in
// document order
func Walk(root []*Element, fn WalkFunc) error {
	return walk(root, 0, fn)
}

func walk(elems []*Element, depth int, fn WalkFunc) error {
	for _, elem := range elems {
		if err := fn(elem, depth); err != nil {
			return err
		}
		children, err := elem.Children()
		if err != nil {
			return err
		}
		if err := walk(children, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}
