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

package chunk_test

import (
	"bytes"
	"testing"

	"github.com/blinklabs-io/gochunk/chunk"
	"github.com/blinklabs-io/gochunk/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStream(t *testing.T, opts ...chunk.StreamOptionFunc) *chunk.Stream {
	t.Helper()
	s, err := chunk.NewStream(opts...)
	require.NoError(t, err)
	return s
}

func tagsOf(located []chunk.Located) []chunk.Tag {
	ret := make([]chunk.Tag, 0, len(located))
	for _, l := range located {
		ret = append(ret, l.Chunk.Tag())
	}
	return ret
}

func TestReadChunksIFF(t *testing.T) {
	s := newStream(t)
	buf := test.Concat(
		test.IFF("AAAA", []byte{1, 2, 3}),
		[]byte{0}, // alignment padding
		test.IFF("BBBB", []byte{4, 5}),
	)
	located, err := s.ReadAll(buf, 0)
	require.NoError(t, err)
	require.Len(t, located, 2)
	assert.Equal(t, []chunk.Tag{"AAAA", "BBBB"}, tagsOf(located))
	assert.Equal(t, 0, located[0].Offset)
	assert.Equal(t, 12, located[1].Offset)
	assert.Equal(t, []byte{1, 2, 3}, located[0].Chunk.Data)
	assert.Equal(t, []byte{4, 5}, located[1].Chunk.Data)
	assert.Equal(t, uint32(11), located[0].Chunk.Header.Size)
}

func TestReadChunksLegacy(t *testing.T) {
	s := newStream(t, chunk.WithDialect(chunk.DialectLegacy))
	buf := test.Concat(
		test.Legacy("RO", []byte{1, 2, 3}),
		test.Legacy("LF", []byte{4}),
	)
	located, err := s.ReadAll(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []chunk.Tag{"RO", "LF"}, tagsOf(located))
	assert.Equal(t, 9, located[1].Offset)
	assert.Equal(t, []byte{4}, located[1].Chunk.Data)
}

func TestReadChunksSentinelConsumesRemainder(t *testing.T) {
	s := newStream(t, chunk.WithDialect(chunk.DialectLegacy))
	buf := test.Concat(
		test.Legacy("RO", []byte{1}),
		make([]byte, 6),
		[]byte{0xde, 0xad, 0xbe, 0xef},
	)
	located, err := s.ReadAll(buf, 0)
	require.NoError(t, err)
	require.Len(t, located, 2)
	assert.True(t, located[1].Chunk.Header.Sentinel)
	assert.True(t, located[1].Chunk.Tag().IsNull())
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, located[1].Chunk.Data)

	out, err := s.WriteChunks([]chunk.Chunk{located[0].Chunk, located[1].Chunk})
	require.NoError(t, err)
	assert.Equal(t, buf, out)
}

func TestReadChunksDesyncRecovery(t *testing.T) {
	s := newStream(t, chunk.WithAlignment(1))
	first := test.IFF("AAAA", []byte{1, 2})
	second := test.IFF("BBBB", []byte{3})
	buf := test.Concat(first, []byte{0x80}, second)
	it := s.ReadChunks(buf, 0)
	var located []chunk.Located
	for it.Next() {
		located = append(located, chunk.Located{Offset: it.Offset(), Chunk: it.Chunk()})
	}
	require.NoError(t, it.Err())
	require.Len(t, located, 2)
	assert.Equal(t, len(first)+1, located[1].Offset)
	assert.Equal(t, []int{len(first)}, it.Skipped())
	assert.Equal(t, []byte{3}, located[1].Chunk.Data)
}

func TestReadChunksDesyncDisabled(t *testing.T) {
	s := newStream(t, chunk.WithAlignment(1), chunk.WithoutDesyncSkip())
	buf := test.Concat(test.IFF("AAAA"), []byte{0x80}, test.IFF("BBBB"))
	_, err := s.ReadAll(buf, 0)
	assert.ErrorIs(t, err, chunk.ErrInvalidTag)
}

func TestReadChunksTruncated(t *testing.T) {
	s := newStream(t)
	buf := test.Concat(test.IFF("AAAA", []byte{1, 2}), []byte("BB"))
	_, err := s.ReadAll(buf, 0)
	assert.ErrorIs(t, err, chunk.ErrTruncatedHeader)
}

func TestReadChunksNegativeOffset(t *testing.T) {
	buf := test.IFF("AAAA", []byte{1, 2})
	for _, s := range []*chunk.Stream{
		newStream(t),
		newStream(t, chunk.WithoutDesyncSkip()),
		newStream(t, chunk.WithDialect(chunk.DialectLegacy)),
	} {
		_, err := s.ReadAll(buf, -1)
		assert.ErrorIs(t, err, chunk.ErrTruncatedHeader)
	}
}

func TestReadChunksSizeMismatch(t *testing.T) {
	s := newStream(t)
	// Declared size runs past the end of the buffer
	buf := test.DecodeHexString("41414141 00000020 0102")
	_, err := s.ReadAll(buf, 0)
	require.ErrorIs(t, err, chunk.ErrSizeMismatch)
	var mismatch *chunk.SizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, chunk.Tag("AAAA"), mismatch.Tag)
	assert.Equal(t, uint32(0x20), mismatch.Declared)

	// Inclusive size smaller than the header itself
	buf = test.DecodeHexString("41414141 00000004")
	_, err = s.ReadAll(buf, 0)
	assert.ErrorIs(t, err, chunk.ErrSizeMismatch)
}

func TestReadChunksStartOffset(t *testing.T) {
	s := newStream(t)
	buf := test.Concat([]byte{0xaa, 0xbb}, test.IFF("CCCC", []byte{9, 9}))
	located, err := s.ReadAll(buf, 2)
	require.NoError(t, err)
	require.Len(t, located, 1)
	assert.Equal(t, 2, located[0].Offset)
}

func TestIteratorNotRestartable(t *testing.T) {
	s := newStream(t)
	it := s.ReadChunks(test.IFF("AAAA", []byte{1, 2}), 0)
	assert.True(t, it.Next())
	assert.False(t, it.Next())
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestWriteChunksRoundTrip(t *testing.T) {
	for _, align := range []int{1, 2, 4} {
		s := newStream(t, chunk.WithAlignment(align))
		var buf []byte
		for i, tag := range []string{"AAAA", "BBBB", "CCCC"} {
			buf = append(buf, test.Pad(test.IFF(tag, bytes.Repeat([]byte{byte(i)}, i+1)), align)...)
		}
		located, err := s.ReadAll(buf, 0)
		require.NoError(t, err)
		chunks := make([]chunk.Chunk, 0, len(located))
		for _, l := range located {
			chunks = append(chunks, l.Chunk)
		}
		out, err := s.WriteChunks(chunks)
		require.NoError(t, err)
		assert.Equal(t, buf, out, "alignment %d", align)

		again, err := s.ReadAll(out, 0)
		require.NoError(t, err)
		require.Len(t, again, len(located))
		for i := range again {
			assert.Equal(t, located[i].Chunk.Tag(), again[i].Chunk.Tag())
			assert.Equal(t, located[i].Chunk.Data, again[i].Chunk.Data)
		}
	}
}

func TestMktagRecomputesSize(t *testing.T) {
	s := newStream(t, chunk.WithSizeIncludesHeader(false))
	c, err := s.Mktag("FOBJ", []byte{1, 2, 3, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, uint32(5), c.Header.Size)
	raw, err := s.Bytes(c)
	require.NoError(t, err)
	assert.Equal(t, test.DecodeHexString("464f424a 00000005 0102030405"), raw)
}

func TestNewStreamInvalidAlignment(t *testing.T) {
	_, err := chunk.NewStream(chunk.WithAlignment(0))
	assert.ErrorIs(t, err, chunk.ErrInvalidConfig)
}

func FuzzReadChunks(f *testing.F) {
	f.Add(test.IFF("AAAA", []byte{1, 2, 3}))
	f.Add(test.Concat(test.IFF("AAAA"), []byte{0x80}, test.IFF("BBBB", []byte{1})))
	f.Add([]byte{0, 0, 0, 0, 0, 0, 0, 0, 1})
	f.Add([]byte{0x80})
	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := chunk.NewStream()
		if err != nil {
			t.Fatal(err)
		}
		located, err := s.ReadAll(data, 0)
		if err != nil {
			return
		}
		chunks := make([]chunk.Chunk, 0, len(located))
		for _, l := range located {
			chunks = append(chunks, l.Chunk)
		}
		out, err := s.WriteChunks(chunks)
		if err != nil {
			t.Fatalf("failed to write parsed chunks: %s", err)
		}
		again, err := s.ReadAll(out, 0)
		if err != nil {
			t.Fatalf("failed to re-read written chunks: %s", err)
		}
		if len(again) != len(located) {
			t.Fatalf("chunk count changed: %d != %d", len(again), len(located))
		}
		for i := range again {
			if again[i].Chunk.Tag() != located[i].Chunk.Tag() ||
				!bytes.Equal(again[i].Chunk.Data, located[i].Chunk.Data) {
				t.Fatalf("chunk %d differs after round trip", i)
			}
		}
	})
}
