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
	"os"
	"path"
	"path/filepath"

	"github.com/blinklabs-io/gochunk/fileio"
)

// Save writes e below basedir. Containers become directories and leaves are
// written as complete chunks (header and payload). Element paths come from
// the path attribute set by a DirectoryResolver. Elements without one are
// nested by tag, so same-tag leaves without a path overwrite each other.
func Save(basedir string, e *Element) error {
	return save(basedir, e, "")
}

func save(basedir string, e *Element, parentPath string) error {
	p, ok := e.attribs[AttrPath].(string)
	if !ok || p == "" {
		p = path.Join(parentPath, e.Tag().Display())
	}
	rel := filepath.FromSlash(p)
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("%w: %q escapes the output directory", ErrInvalidPath, p)
	}
	children, err := e.Children()
	if err != nil {
		return err
	}
	target := filepath.Join(basedir, rel)
	if len(children) > 0 {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return err
		}
		for _, child := range children {
			if err := save(basedir, child, p); err != nil {
				return err
			}
		}
		return nil
	}
	data, err := e.Bytes()
	if err != nil {
		return err
	}
	return fileio.WriteFile(target, data)
}
