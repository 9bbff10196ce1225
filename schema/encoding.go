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
	"path/filepath"

	"github.com/blinklabs-io/gochunk/cbor"
	"github.com/blinklabs-io/gochunk/chunk"
	"github.com/blinklabs-io/gochunk/fileio"
	"gopkg.in/yaml.v3"
)

// schemaFileVersion is bumped when the binary schema layout changes
const schemaFileVersion = 1

type schemaFile struct {
	cbor.StructAsArray
	Version uint
	Tags    map[string][]string
}

func (s Schema) toMap() map[string][]string {
	ret := make(map[string][]string, len(s))
	for tag, children := range s {
		list := make([]string, 0, len(children))
		for _, child := range children.Sorted() {
			list = append(list, string(child))
		}
		ret[string(tag)] = list
	}
	return ret
}

func fromMap(m map[string][]string) Schema {
	ret := make(Schema, len(m))
	for tag, children := range m {
		set := make(TagSet, len(children))
		for _, child := range children {
			set[chunk.Tag(child)] = struct{}{}
		}
		ret[chunk.Tag(tag)] = set
	}
	return ret
}

func (s Schema) MarshalCBOR() ([]byte, error) {
	tmp := schemaFile{
		Version: schemaFileVersion,
		Tags:    s.toMap(),
	}
	return cbor.Encode(&tmp)
}

func (s *Schema) UnmarshalCBOR(data []byte) error {
	var tmp schemaFile
	if _, err := cbor.Decode(data, &tmp); err != nil {
		return err
	}
	if tmp.Version != schemaFileVersion {
		return fmt.Errorf("unsupported schema file version %d", tmp.Version)
	}
	*s = fromMap(tmp.Tags)
	return nil
}

func (s Schema) MarshalYAML() (any, error) {
	return s.toMap(), nil
}

func (s *Schema) UnmarshalYAML(value *yaml.Node) error {
	var tmp map[string][]string
	if err := value.Decode(&tmp); err != nil {
		return err
	}
	*s = fromMap(tmp)
	return nil
}

// LoadYAML parses a schema written as a YAML mapping of tag to child list
func LoadYAML(data []byte) (Schema, error) {
	var ret Schema
	if err := yaml.Unmarshal(data, &ret); err != nil {
		return nil, err
	}
	if ret == nil {
		ret = New()
	}
	return ret, nil
}

// LoadFile reads a schema from a .yaml/.yml or .cbor file. Files with any
// other extension are accepted if they hold a binary schema.
func LoadFile(name string) (Schema, error) {
	data, err := fileio.ReadFile(name)
	if err != nil {
		return nil, err
	}
	switch ext := filepath.Ext(name); ext {
	case ".yaml", ".yml":
		return LoadYAML(data)
	case ".cbor":
		return loadCBOR(name, data)
	default:
		// Binary schemas are always a CBOR array
		if major, ok := cbor.MajorType(data); ok && major == cbor.CBOR_TYPE_ARRAY {
			return loadCBOR(name, data)
		}
		return nil, fmt.Errorf("unknown schema file type %s", ext)
	}
}

func loadCBOR(name string, data []byte) (Schema, error) {
	var ret Schema
	if err := cbor.DecodeExact(data, &ret); err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", name, err)
	}
	return ret, nil
}

// SaveFile writes a schema to a .yaml/.yml or .cbor file
func SaveFile(name string, s Schema) error {
	var data []byte
	var err error
	switch ext := filepath.Ext(name); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(s)
	case ".cbor":
		data, err = cbor.Encode(s)
	default:
		return fmt.Errorf("unknown schema file type %s", ext)
	}
	if err != nil {
		return err
	}
	return fileio.WriteFile(name, data)
}
