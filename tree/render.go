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
	"io"
	"slices"
	"strings"
)

const renderIndent = "    "

// Render writes an XML-like outline of e and its descendants to w
func Render(w io.Writer, e *Element) error {
	return render(w, e, 0)
}

// Renders returns the outline produced by Render
func Renders(e *Element) (string, error) {
	var sb strings.Builder
	if err := Render(&sb, e); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func render(w io.Writer, e *Element, level int) error {
	children, err := e.Children()
	if err != nil {
		return err
	}
	indent := strings.Repeat(renderIndent, level)
	closing := ""
	if len(children) == 0 {
		closing = " /"
	}
	if _, err := fmt.Fprintf(w, "%s<%s%s%s>\n", indent, e.Tag().Display(), formatAttribs(e.attribs), closing); err != nil {
		return err
	}
	if len(children) == 0 {
		return nil
	}
	for _, child := range children {
		if err := render(w, child, level+1); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "%s</%s>\n", indent, e.Tag().Display())
	return err
}

// formatAttribs lists offset and size first, followed by the remaining
// attributes in key order. Nil values are omitted.
func formatAttribs(attribs map[string]any) string {
	keys := make([]string, 0, len(attribs))
	for key := range attribs {
		if key != AttrOffset && key != AttrSize {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	keys = append([]string{AttrOffset, AttrSize}, keys...)
	var sb strings.Builder
	for _, key := range keys {
		value, ok := attribs[key]
		if !ok || value == nil {
			continue
		}
		fmt.Fprintf(&sb, " %s=\"%v\"", key, value)
	}
	return sb.String()
}
