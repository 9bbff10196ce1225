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
	"bytes"
	"fmt"
	"log/slog"
)

// Chunk is a single tag-prefixed, length-delimited record. Data borrows from
// the buffer the chunk was read from.
type Chunk struct {
	Header Header
	Data   []byte
}

// Tag returns the chunk tag
func (c Chunk) Tag() Tag {
	return c.Header.Tag
}

// Len returns the payload length
func (c Chunk) Len() int {
	return len(c.Data)
}

func (c Chunk) String() string {
	return fmt.Sprintf("Chunk<%s>[%d]", c.Tag().Display(), len(c.Data))
}

// Located pairs a chunk with the offset of its header in the enclosing buffer
type Located struct {
	Offset int
	Chunk  Chunk
}

// Stream reads and writes sequences of chunks using a single header codec
type Stream struct {
	config Config
	codec  HeaderCodec
	logger *slog.Logger
}

// NewStream returns a stream for the default (IFF) dialect, modified by the
// provided options
func NewStream(opts ...StreamOptionFunc) (*Stream, error) {
	cfg := DefaultConfig(DialectIFF)
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewStreamFromConfig(cfg)
}

// NewStreamFromConfig returns a stream using the provided config as-is
func NewStreamFromConfig(cfg Config) (*Stream, error) {
	if cfg.Alignment < 1 {
		return nil, fmt.Errorf("%w: alignment must be at least 1, got %d", ErrInvalidConfig, cfg.Alignment)
	}
	codec, err := NewHeaderCodec(cfg.Dialect, cfg.SizeIncludesHeader)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		config: cfg,
		codec:  codec,
		logger: logger.With("component", "chunk"),
	}, nil
}

// Config returns the stream settings
func (s *Stream) Config() Config {
	return s.config
}

// Codec returns the header codec used by the stream
func (s *Stream) Codec() HeaderCodec {
	return s.codec
}

// Logger returns the stream logger
func (s *Stream) Logger() *slog.Logger {
	return s.logger
}

// Untag reads a single chunk at offset. It returns the offset just past the
// chunk payload, before any alignment padding.
func (s *Stream) Untag(buf []byte, offset int) (int, Chunk, error) {
	start, header, err := s.codec.Decode(buf, offset)
	if err != nil {
		return offset, Chunk{}, err
	}
	if header.Sentinel {
		return len(buf), Chunk{Header: header, Data: buf[start:]}, nil
	}
	size := int64(header.Size)
	if s.codec.SizeIncludesHeader() {
		size -= int64(s.codec.HeaderSize())
	}
	available := len(buf) - start
	if size < 0 || size > int64(available) {
		return offset, Chunk{}, &SizeMismatchError{
			Offset:    offset,
			Tag:       header.Tag,
			Declared:  header.Size,
			Available: available,
		}
	}
	end := start + int(size)
	return end, Chunk{Header: header, Data: buf[start:end]}, nil
}

// Mktag builds a chunk for the payload, computing the size field
func (s *Stream) Mktag(tag Tag, data []byte) (Chunk, error) {
	raw, err := s.codec.Encode(tag, len(data))
	if err != nil {
		return Chunk{}, err
	}
	header, err := s.decodeOwnHeader(raw)
	if err != nil {
		return Chunk{}, err
	}
	return Chunk{Header: header, Data: data}, nil
}

func (s *Stream) decodeOwnHeader(raw []byte) (Header, error) {
	_, header, err := s.codec.Decode(raw, 0)
	return header, err
}

// Bytes encodes a chunk as header followed by payload. The size field is
// recomputed from the payload length.
func (s *Stream) Bytes(c Chunk) ([]byte, error) {
	raw, err := s.codec.Encode(c.Header.Tag, len(c.Data))
	if err != nil {
		return nil, err
	}
	ret := make([]byte, 0, len(raw)+len(c.Data))
	ret = append(ret, raw...)
	ret = append(ret, c.Data...)
	return ret, nil
}

// ReadChunks returns an iterator over the chunks in buf, starting at offset
func (s *Stream) ReadChunks(buf []byte, offset int) *Iterator {
	return &Iterator{
		stream: s,
		buf:    buf,
		offset: offset,
	}
}

// ReadAll reads every chunk in buf starting at offset
func (s *Stream) ReadAll(buf []byte, offset int) ([]Located, error) {
	var ret []Located
	it := s.ReadChunks(buf, offset)
	for it.Next() {
		ret = append(ret, Located{Offset: it.Offset(), Chunk: it.Chunk()})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// WriteChunks encodes the chunks back to back, padding each to the stream
// alignment
func (s *Stream) WriteChunks(chunks []Chunk) ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range chunks {
		content, err := s.Bytes(c)
		if err != nil {
			return nil, err
		}
		buf.Write(content)
		buf.Write(make([]byte, calcAlign(len(content), s.config.Alignment)))
	}
	return buf.Bytes(), nil
}

// resync applies the desync workaround: a single skip byte where a header
// should start is skipped
func (s *Stream) resync(buf []byte, offset int) (int, bool) {
	if !s.config.DesyncSkip || offset < 0 || offset >= len(buf) {
		return offset, false
	}
	if buf[offset] != s.config.DesyncSkipByte {
		return offset, false
	}
	s.logger.Warn(
		"found desync byte between chunks, skipping 1 byte",
		"offset",
		offset,
		"byte",
		fmt.Sprintf("0x%02x", s.config.DesyncSkipByte),
	)
	return offset + 1, true
}

// calcAlign returns the distance from offset to the next multiple of align
func calcAlign(offset int, align int) int {
	if align <= 1 {
		return 0
	}
	return (align - offset%align) % align
}

// Iterator walks the chunks of a buffer. It is finite and cannot be
// restarted once consumed.
type Iterator struct {
	stream    *Stream
	buf       []byte
	offset    int
	cur       Chunk
	curOffset int
	skipped   []int
	err       error
	done      bool
}

// Next advances to the next chunk. It returns false at the end of the buffer
// or on error.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	if it.offset >= len(it.buf) {
		it.done = true
		return false
	}
	offset, skipped := it.stream.resync(it.buf, it.offset)
	if skipped {
		it.skipped = append(it.skipped, it.offset)
	}
	end, c, err := it.stream.Untag(it.buf, offset)
	if err != nil {
		it.err = err
		it.done = true
		return false
	}
	it.cur = c
	it.curOffset = offset
	it.offset = end + calcAlign(end, it.stream.config.Alignment)
	return true
}

// Chunk returns the current chunk
func (it *Iterator) Chunk() Chunk {
	return it.cur
}

// Offset returns the offset of the current chunk's header
func (it *Iterator) Offset() int {
	return it.curOffset
}

// Err returns the error that stopped the iteration, if any
func (it *Iterator) Err() error {
	return it.err
}

// Skipped returns the offsets of desync bytes skipped so far
func (it *Iterator) Skipped() []int {
	return it.skipped
}
