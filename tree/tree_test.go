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

package tree_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/blinklabs-io/gochunk/chunk"
	"github.com/blinklabs-io/gochunk/internal/test"
	"github.com/blinklabs-io/gochunk/schema"
	"github.com/blinklabs-io/gochunk/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

// nestedArchive has odd-sized leaves so that alignment padding is exercised
func nestedArchive() []byte {
	return test.IFF("LECF",
		test.Pad(test.IFF("LOFF", []byte{1, 2, 3}), 2),
		test.IFF("LFLF",
			test.IFF("ROOM",
				test.Pad(test.IFF("RMHD", []byte{0x40, 0x01, 0xc8}), 2),
				test.IFF("BOXD", []byte{0x11, 0x22}),
			),
			test.Pad(test.IFF("SCRP", []byte{0x14}), 2),
		),
	)
}

func nestedSchema() schema.Schema {
	return schema.New().
		Add("LECF", "LOFF", "LFLF").
		Add("LFLF", "ROOM", "SCRP").
		Add("ROOM", "RMHD", "BOXD").
		AddLeaf("LOFF", "RMHD", "BOXD", "SCRP")
}

func countElements(t *testing.T, root []*tree.Element) int {
	t.Helper()
	count := 0
	require.NoError(t, tree.Walk(root, func(e *tree.Element, depth int) error {
		count++
		return nil
	}))
	return count
}

func TestRebuildRoundTrip(t *testing.T) {
	stream := newStream(t)
	buf := nestedArchive()
	idx := tree.NewIndexer(stream, nestedSchema())
	root, err := idx.Map(buf)
	require.NoError(t, err)
	for _, e := range root {
		rebuild(t, e)
	}
	chunks := make([]chunk.Chunk, 0, len(root))
	for _, e := range root {
		c, err := e.Chunk()
		require.NoError(t, err)
		chunks = append(chunks, c)
	}
	out, err := stream.WriteChunks(chunks)
	require.NoError(t, err)
	assert.Equal(t, buf, out)
}

func TestRewriteIsIdempotent(t *testing.T) {
	stream := newStream(t)
	buf := nestedArchive()
	first, err := tree.NewIndexer(stream, nestedSchema()).Map(buf)
	require.NoError(t, err)
	chunks := make([]chunk.Chunk, 0, len(first))
	for _, e := range first {
		c, err := e.Chunk()
		require.NoError(t, err)
		chunks = append(chunks, c)
	}
	out, err := stream.WriteChunks(chunks)
	require.NoError(t, err)
	second, err := tree.NewIndexer(stream, nestedSchema()).Map(out)
	require.NoError(t, err)

	changes, err := tree.Diff(first, second)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, countElements(t, first), countElements(t, second))
}

func TestInferredSchemaParsesStrictly(t *testing.T) {
	stream := newStream(t)
	buf := nestedArchive()
	inferred, err := schema.Infer(stream, buf)
	require.NoError(t, err)

	strict, err := tree.NewIndexer(stream, inferred).Map(buf)
	require.NoError(t, err)
	assert.Equal(t, 7, countElements(t, strict))

	lenient, err := tree.NewIndexer(stream, nil, tree.WithMode(schema.Lenient)).Map(buf)
	require.NoError(t, err)
	require.Len(t, lenient, len(strict))
	for i := range strict {
		assert.Equal(t, strict[i].Tag(), lenient[i].Tag())
		assert.Equal(t, strict[i].Offset(), lenient[i].Offset())
	}
}

func TestFind(t *testing.T) {
	idx := tree.NewIndexer(newStream(t), nestedSchema())
	root, err := idx.Map(nestedArchive())
	require.NoError(t, err)

	lecf, err := tree.Find("LECF", root)
	require.NoError(t, err)
	require.NotNil(t, lecf)

	missing, err := lecf.Find("ROOM")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := lecf.FindAll("L*")
	require.NoError(t, err)
	assert.Equal(t, []chunk.Tag{"LOFF", "LFLF"}, tagsOf(all))

	boxd, err := tree.FindPath("LECF/LFLF/ROOM/BOX?", root)
	require.NoError(t, err)
	require.NotNil(t, boxd)
	assert.Equal(t, []byte{0x11, 0x22}, boxd.Data())

	rmhd, err := lecf.FindPath("LFLF/ROOM/RMHD")
	require.NoError(t, err)
	require.NotNil(t, rmhd)
	assert.Equal(t, 3, rmhd.Len())

	none, err := tree.FindPath("LECF/NOPE/ROOM", root)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = tree.FindAll("[", root)
	assert.ErrorIs(t, err, tree.ErrInvalidPath)
	_, err = tree.FindPath("", root)
	assert.ErrorIs(t, err, tree.ErrInvalidPath)
}

func TestRender(t *testing.T) {
	idx := tree.NewIndexer(newStream(t), exampleSchema())
	root := mapOne(t, idx, exampleBuffer())
	root.SetAttr("note", "x")
	out, err := tree.Renders(root)
	require.NoError(t, err)
	expected := `<TAG1 offset="0" size="20" note="x">
    <TAG2 offset="8" size="0" />
    <TAG3 offset="16" size="4" />
</TAG1>
`
	assert.Equal(t, expected, out)
}

func TestDiffReportsChangedLeaf(t *testing.T) {
	stream := newStream(t)
	s := exampleSchema()
	before, err := tree.NewIndexer(stream, s).Map(exampleBuffer())
	require.NoError(t, err)
	patched := test.IFF("TAG1",
		test.IFF("TAG2"),
		test.IFF("TAG3", []byte{1, 2, 3, 5}),
		test.IFF("TAG2"),
	)
	after, err := tree.NewIndexer(stream, s).Map(patched)
	require.NoError(t, err)

	changes, err := tree.Diff(before, after)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, tree.ChangeModified, changes[0].Kind)
	assert.Equal(t, "TAG1#0/TAG3#1", changes[0].Path)
	assert.Equal(t, tree.ChangeAdded, changes[1].Kind)
	assert.Equal(t, "TAG1#0/TAG2#2", changes[1].Path)
	assert.Equal(t, "added TAG1#0/TAG2#2", changes[1].String())

	assert.NotEqual(t, tree.DigestOf(before[0]), tree.DigestOf(after[0]))
	assert.Len(t, tree.DigestOf(before[0]).String(), 2*tree.DigestSize)
}

func TestDigestOf(t *testing.T) {
	root, err := tree.NewIndexer(newStream(t), exampleSchema()).Map(exampleBuffer())
	require.NoError(t, err)
	require.Len(t, root, 1)
	expected := blake2b.Sum256(test.Concat([]byte("TAG1\x00"), root[0].Data()))
	assert.Equal(t, tree.Digest(expected), tree.DigestOf(root[0]))

	// The header is not part of the digest
	legacy, err := chunk.NewStream(chunk.WithDialect(chunk.DialectLegacy))
	require.NoError(t, err)
	leaf, err := tree.NewIndexer(legacy, schema.New().AddLeaf("RO")).Map(test.Legacy("RO", []byte{9}))
	require.NoError(t, err)
	require.Len(t, leaf, 1)
	assert.Equal(t, tree.Digest(blake2b.Sum256([]byte("RO\x00\x09"))), tree.DigestOf(leaf[0]))
}

// directoryArchive lays out a root with a directory chunk followed by three
// containers, two of which are listed in the directory
func directoryArchive() []byte {
	loff := []byte{2}
	loff = append(loff, 1)
	loff = binary.LittleEndian.AppendUint32(loff, 28)
	loff = append(loff, 2)
	loff = binary.LittleEndian.AppendUint32(loff, 48)
	return test.IFF("LECF",
		test.Pad(test.IFF("LOFF", loff), 2),
		test.IFF("LFLF", test.IFF("OBCD", []byte{0x07, 0x00, 0xaa, 0xbb})),
		test.IFF("LFLF", test.IFF("OBCD", []byte{0x09, 0x00, 0xcc, 0xdd})),
		test.IFF("LFLF",
			test.IFF("OBCD", []byte{0x07, 0x00, 0x01, 0x02}),
			test.IFF("OBCD", []byte{0x07, 0x00, 0x03, 0x04}),
		),
	)
}

func readRoomOffsets(data []byte) (map[int]int, error) {
	if len(data) < 1 {
		return nil, errors.New("empty directory")
	}
	num := int(data[0])
	if len(data) < 1+num*5 {
		return nil, errors.New("short directory")
	}
	ret := make(map[int]int, num)
	for i := 0; i < num; i++ {
		entry := data[1+i*5:]
		ret[int(entry[0])] = int(binary.LittleEndian.Uint32(entry[1:5]))
	}
	return ret, nil
}

func directoryResolver() *tree.DirectoryResolver {
	r := tree.NewDirectoryResolver(1)
	r.Sources["LOFF"] = tree.DirectorySource{Target: "LFLF", Base: 8, Read: readRoomOffsets}
	r.Fields["OBCD"] = tree.FieldID{Offset: 0, Width: 2}
	return r
}

func directorySchema() schema.Schema {
	return schema.New().
		Add("LECF", "LOFF", "LFLF").
		Add("LFLF", "OBCD").
		AddLeaf("LOFF", "OBCD")
}

func TestDirectoryResolver(t *testing.T) {
	idx := tree.NewIndexer(newStream(t), directorySchema(), tree.WithResolver(directoryResolver()))
	root := mapOne(t, idx, directoryArchive())
	gid, ok := root.GID()
	require.True(t, ok)
	assert.Equal(t, 1, gid)

	var paths []string
	require.NoError(t, tree.Walk([]*tree.Element{root}, func(e *tree.Element, depth int) error {
		paths = append(paths, e.Path())
		return nil
	}))
	assert.Equal(t, []string{
		"LECF_0001",
		"LECF_0001/LOFF",
		"LECF_0001/LFLF_0001",
		"LECF_0001/LFLF_0001/OBCD_0007",
		"LECF_0001/LFLF_0002",
		"LECF_0001/LFLF_0002/OBCD_0009",
		"LECF_0001/LFLF_o_003C",
		"LECF_0001/LFLF_o_003C/OBCD_0007",
		"LECF_0001/LFLF_o_003C/OBCD_0007d",
	}, paths)

	lflf, err := root.FindAll("LFLF")
	require.NoError(t, err)
	require.Len(t, lflf, 3)
	_, ok = lflf[2].GID()
	assert.False(t, ok)
}

func TestResolverFunc(t *testing.T) {
	var seen []int
	resolver := tree.ResolverFunc(func(parent *tree.Element, c chunk.Chunk, offset int) (tree.Resolution, error) {
		seen = append(seen, offset)
		return tree.Resolution{Attribs: map[string]any{"label": string(c.Tag()) + "!"}}, nil
	})
	idx := tree.NewIndexer(newStream(t), exampleSchema(), tree.WithResolver(resolver))
	root := mapOne(t, idx, exampleBuffer())
	kids := children(t, root)
	label, _ := kids[1].Attr("label")
	assert.Equal(t, "TAG3!", label)
	// Offsets handed to the resolver are relative to the parent payload
	assert.Equal(t, []int{0, 0, 8}, seen)
}

func TestSave(t *testing.T) {
	idx := tree.NewIndexer(newStream(t), directorySchema(), tree.WithResolver(directoryResolver()))
	root := mapOne(t, idx, directoryArchive())
	dir := t.TempDir()
	require.NoError(t, tree.Save(dir, root))

	data, err := os.ReadFile(filepath.Join(dir, "LECF_0001", "LFLF_0002", "OBCD_0009"))
	require.NoError(t, err)
	assert.Equal(t, test.IFF("OBCD", []byte{0x09, 0x00, 0xcc, 0xdd}), data)

	dupe, err := os.ReadFile(filepath.Join(dir, "LECF_0001", "LFLF_o_003C", "OBCD_0007d"))
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(dupe, []byte{0x03, 0x04}))

	info, err := os.Stat(filepath.Join(dir, "LECF_0001", "LOFF"))
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestSaveRejectsEscapingPath(t *testing.T) {
	idx := tree.NewIndexer(newStream(t), exampleSchema())
	root := mapOne(t, idx, exampleBuffer())
	root.SetAttr(tree.AttrPath, "../outside")
	err := tree.Save(t.TempDir(), root)
	assert.ErrorIs(t, err, tree.ErrInvalidPath)
}
