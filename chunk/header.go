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

package chunk

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// IFFHeaderSize is the size of a tag-first, big-endian chunk header
	IFFHeaderSize = 8
	// LegacyHeaderSize is the size of a size-first, little-endian chunk header
	LegacyHeaderSize = 6

	iffTagSize    = 4
	legacyTagSize = 2
)

// Tag names a chunk type. Tags are short ASCII identifiers (4 bytes for
// DialectIFF, 2 bytes for DialectLegacy). The empty tag identifies a
// sentinel (all-zero) header.
type Tag string

// NullTag is the tag of a sentinel chunk
const NullTag Tag = ""

// NullTagName is used when a sentinel chunk has to be displayed
const NullTagName = "____"

// IsNull reports whether the tag is the sentinel tag
func (t Tag) IsNull() bool {
	return t == NullTag
}

// Display returns a printable form of the tag
func (t Tag) Display() string {
	if t.IsNull() {
		return NullTagName
	}
	return string(t)
}

// Dialect identifies a chunk header layout
type Dialect int

const (
	// DialectIFF is the modern layout: 4-byte ASCII tag followed by a 4-byte
	// big-endian size
	DialectIFF Dialect = iota
	// DialectLegacy is the older layout: 4-byte little-endian size followed by
	// a 2-byte ASCII tag
	DialectLegacy
)

func (d Dialect) String() string {
	switch d {
	case DialectIFF:
		return "iff"
	case DialectLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// ParseDialect maps a configuration value to a Dialect. Both the descriptive
// names and the short letters A/B are accepted.
func ParseDialect(s string) (Dialect, error) {
	switch s {
	case "iff", "A", "a":
		return DialectIFF, nil
	case "legacy", "B", "b":
		return DialectLegacy, nil
	default:
		return 0, fmt.Errorf("unknown header dialect: %q", s)
	}
}

// Header is a decoded chunk header
type Header struct {
	Tag Tag
	// Size is the raw value of the size field, as declared in the header
	Size uint32
	// Sentinel is set for an all-zero header, which spans the remainder of
	// the enclosing buffer
	Sentinel bool
}

// HeaderCodec encodes and decodes a single header dialect
type HeaderCodec interface {
	Dialect() Dialect
	// HeaderSize returns the fixed encoded size of a header
	HeaderSize() int
	// SizeIncludesHeader reports whether the size field counts the header bytes
	SizeIncludesHeader() bool
	// Decode reads a header at offset and returns the offset just past it
	Decode(buf []byte, offset int) (int, Header, error)
	// Encode builds a header for a payload of the given length. An empty tag
	// produces the all-zero sentinel header.
	Encode(tag Tag, payloadLen int) ([]byte, error)
}

// NewHeaderCodec returns the codec for the specified dialect
func NewHeaderCodec(dialect Dialect, sizeIncludesHeader bool) (HeaderCodec, error) {
	switch dialect {
	case DialectIFF:
		return &iffHeaderCodec{inclusive: sizeIncludesHeader}, nil
	case DialectLegacy:
		return &legacyHeaderCodec{inclusive: sizeIncludesHeader}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported header dialect %d", ErrInvalidConfig, int(dialect))
	}
}

type iffHeaderCodec struct {
	inclusive bool
}

func (c *iffHeaderCodec) Dialect() Dialect {
	return DialectIFF
}

func (c *iffHeaderCodec) HeaderSize() int {
	return IFFHeaderSize
}

func (c *iffHeaderCodec) SizeIncludesHeader() bool {
	return c.inclusive
}

func (c *iffHeaderCodec) Decode(buf []byte, offset int) (int, Header, error) {
	raw, err := headerBytes(buf, offset, IFFHeaderSize)
	if err != nil {
		return offset, Header{}, err
	}
	next := offset + IFFHeaderSize
	if isZero(raw) {
		return next, Header{Sentinel: true}, nil
	}
	tag, err := decodeTag(raw[:iffTagSize], offset)
	if err != nil {
		return offset, Header{}, err
	}
	return next, Header{
		Tag:  tag,
		Size: binary.BigEndian.Uint32(raw[iffTagSize:]),
	}, nil
}

func (c *iffHeaderCodec) Encode(tag Tag, payloadLen int) ([]byte, error) {
	ret := make([]byte, IFFHeaderSize)
	if tag.IsNull() {
		return ret, nil
	}
	if err := checkTag(tag, iffTagSize); err != nil {
		return nil, err
	}
	size, err := encodedSize(payloadLen, IFFHeaderSize, c.inclusive)
	if err != nil {
		return nil, err
	}
	copy(ret, tag)
	binary.BigEndian.PutUint32(ret[iffTagSize:], size)
	return ret, nil
}

type legacyHeaderCodec struct {
	inclusive bool
}

func (c *legacyHeaderCodec) Dialect() Dialect {
	return DialectLegacy
}

func (c *legacyHeaderCodec) HeaderSize() int {
	return LegacyHeaderSize
}

func (c *legacyHeaderCodec) SizeIncludesHeader() bool {
	return c.inclusive
}

func (c *legacyHeaderCodec) Decode(buf []byte, offset int) (int, Header, error) {
	raw, err := headerBytes(buf, offset, LegacyHeaderSize)
	if err != nil {
		return offset, Header{}, err
	}
	next := offset + LegacyHeaderSize
	if isZero(raw) {
		return next, Header{Sentinel: true}, nil
	}
	tag, err := decodeTag(raw[4:], offset)
	if err != nil {
		return offset, Header{}, err
	}
	return next, Header{
		Tag:  tag,
		Size: binary.LittleEndian.Uint32(raw[:4]),
	}, nil
}

func (c *legacyHeaderCodec) Encode(tag Tag, payloadLen int) ([]byte, error) {
	ret := make([]byte, LegacyHeaderSize)
	if tag.IsNull() {
		return ret, nil
	}
	if err := checkTag(tag, legacyTagSize); err != nil {
		return nil, err
	}
	size, err := encodedSize(payloadLen, LegacyHeaderSize, c.inclusive)
	if err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint32(ret[:4], size)
	copy(ret[4:], tag)
	return ret, nil
}

func headerBytes(buf []byte, offset int, size int) ([]byte, error) {
	if offset < 0 || len(buf)-offset < size {
		have := len(buf) - offset
		if have < 0 {
			have = 0
		}
		return nil, &TruncatedHeaderError{Offset: offset, Need: size, Have: have}
	}
	return buf[offset : offset+size], nil
}

func isZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

func decodeTag(raw []byte, offset int) (Tag, error) {
	for _, b := range raw {
		if b >= 0x80 {
			return NullTag, &InvalidTagError{Offset: offset, Raw: append([]byte(nil), raw...)}
		}
	}
	return Tag(raw), nil
}

func checkTag(tag Tag, size int) error {
	if len(tag) != size {
		return &InvalidTagError{Offset: -1, Raw: []byte(tag)}
	}
	for i := 0; i < len(tag); i++ {
		if tag[i] >= 0x80 {
			return &InvalidTagError{Offset: -1, Raw: []byte(tag)}
		}
	}
	return nil
}

func encodedSize(payloadLen int, headerSize int, inclusive bool) (uint32, error) {
	size := uint64(payloadLen) // #nosec G115 -- negative lengths are rejected below
	if payloadLen < 0 {
		return 0, fmt.Errorf("%w: negative payload length %d", ErrPayloadTooLarge, payloadLen)
	}
	if inclusive {
		size += uint64(headerSize) // #nosec G115 -- header sizes are small constants
	}
	if size > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, payloadLen)
	}
	return uint32(size), nil
}
