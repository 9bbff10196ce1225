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

// Package fileio provides read-only archive buffers backed by memory maps
// and the file writes used when saving rebuilt archives.
package fileio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// Resource is a read-only view of a file. Buffers returned by Bytes borrow
// the mapping and must not be used after Close.
type Resource struct {
	mu   sync.RWMutex
	name string
	file *os.File
	data mmap.MMap
	// empty files cannot be mapped
	empty  bool
	closed bool
}

// Open maps the named file read-only
func Open(name string) (*Resource, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	r := &Resource{
		name: name,
		file: file,
	}
	if st.Size() == 0 {
		r.empty = true
		return r, nil
	}
	r.data, err = mmap.MapRegion(file, int(st.Size()), mmap.RDONLY, 0, 0)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("map %s: %w", name, err)
	}
	return r, nil
}

// Name returns the path the resource was opened from
func (r *Resource) Name() string {
	return r.name
}

// Bytes returns the mapped contents
func (r *Resource) Bytes() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.empty || r.closed {
		return nil
	}
	return r.data
}

// Len returns the size of the mapped contents
func (r *Resource) Len() int {
	return len(r.Bytes())
}

// Close unmaps the file. It is safe to call more than once.
func (r *Resource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	var errs []error
	if r.data != nil {
		errs = append(errs, r.data.Unmap())
	}
	errs = append(errs, r.file.Close())
	r.data = nil
	r.file = nil
	r.closed = true
	return errors.Join(errs...)
}

// ReadFile returns a private copy of the named file's contents
func ReadFile(name string) ([]byte, error) {
	r, err := Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	ret := make([]byte, r.Len())
	copy(ret, r.Bytes())
	return ret, nil
}

// WriteFile writes data to the named file, creating parent directories as
// needed. The data is written to a temporary file first and renamed into
// place, so readers never observe a partially written archive.
func WriteFile(name string, data []byte) error {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, name); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
