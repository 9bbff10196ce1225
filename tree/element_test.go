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
	"errors"
	"testing"

	"github.com/blinklabs-io/gochunk/chunk"
	"github.com/blinklabs-io/gochunk/internal/test"
	"github.com/blinklabs-io/gochunk/schema"
	"github.com/blinklabs-io/gochunk/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStream(t *testing.T, opts ...chunk.StreamOptionFunc) *chunk.Stream {
	t.Helper()
	s, err := chunk.NewStream(opts...)
	require.NoError(t, err)
	return s
}

func exampleSchema() schema.Schema {
	return schema.New().
		Add("TAG1", "TAG2", "TAG3").
		AddLeaf("TAG2", "TAG3")
}

func exampleBuffer() []byte {
	return test.IFF("TAG1",
		test.IFF("TAG2"),
		test.IFF("TAG3", []byte{1, 2, 3, 4}),
	)
}

func mapOne(t *testing.T, idx *tree.Indexer, buf []byte) *tree.Element {
	t.Helper()
	root, err := idx.Map(buf)
	require.NoError(t, err)
	require.Len(t, root, 1)
	return root[0]
}

func children(t *testing.T, e *tree.Element) []*tree.Element {
	t.Helper()
	ret, err := e.Children()
	require.NoError(t, err)
	return ret
}

func tagsOf(elems []*tree.Element) []chunk.Tag {
	ret := make([]chunk.Tag, 0, len(elems))
	for _, e := range elems {
		ret = append(ret, e.Tag())
	}
	return ret
}

// rebuild re-encodes every container below and including e, bottom-up
func rebuild(t *testing.T, e *tree.Element) {
	t.Helper()
	if !e.IsContainer() {
		return
	}
	for _, child := range children(t, e) {
		rebuild(t, child)
	}
	require.NoError(t, e.Rebuild())
}

func TestMapExample(t *testing.T) {
	idx := tree.NewIndexer(newStream(t), exampleSchema())
	root := mapOne(t, idx, exampleBuffer())
	assert.Equal(t, chunk.Tag("TAG1"), root.Tag())
	assert.Equal(t, 0, root.Offset())
	assert.Equal(t, 8, root.DataOffset())
	assert.False(t, root.Parsed())

	kids := children(t, root)
	assert.True(t, root.Parsed())
	assert.Equal(t, []chunk.Tag{"TAG2", "TAG3"}, tagsOf(kids))
	assert.Equal(t, 8, kids[0].Offset())
	assert.Equal(t, 16, kids[1].Offset())
	assert.Equal(t, []byte{1, 2, 3, 4}, kids[1].Data())
	assert.Equal(t, 1, kids[1].Depth())

	offset, ok := kids[1].Attr(tree.AttrOffset)
	require.True(t, ok)
	assert.Equal(t, 16, offset)
	size, ok := kids[1].Attr(tree.AttrSize)
	require.True(t, ok)
	assert.Equal(t, 4, size)

	assert.Equal(t, "Element<TAG1>[offset=0 size=20, children={TAG2,TAG3}]", root.String())
}

func TestChildrenAreCached(t *testing.T) {
	idx := tree.NewIndexer(newStream(t), exampleSchema())
	root := mapOne(t, idx, exampleBuffer())
	first := children(t, root)
	second := children(t, root)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Same(t, first[i], second[i])
	}
}

func TestReplaceChildrenUpdatesSize(t *testing.T) {
	idx := tree.NewIndexer(newStream(t), exampleSchema())
	root := mapOne(t, idx, exampleBuffer())
	kids := children(t, root)

	grown, err := idx.NewElement("TAG3", []byte{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	require.NoError(t, root.ReplaceChildren([]*tree.Element{kids[0], grown}))

	assert.Equal(t, 22, root.Len())
	assert.True(t, root.Modified())
	c, err := root.Chunk()
	require.NoError(t, err)
	assert.Equal(t, uint32(30), c.Header.Size)

	raw, err := root.Bytes()
	require.NoError(t, err)
	expected := test.IFF("TAG1",
		test.IFF("TAG2"),
		test.IFF("TAG3", []byte{1, 2, 3, 4, 5, 6}),
	)
	assert.Equal(t, expected, raw)
	size, _ := root.Attr(tree.AttrSize)
	assert.Equal(t, 22, size)
}

func TestSetRaw(t *testing.T) {
	idx := tree.NewIndexer(newStream(t), exampleSchema())
	root := mapOne(t, idx, exampleBuffer())
	tag3 := children(t, root)[1]

	err := tag3.SetRaw([]byte{1, 2})
	require.ErrorIs(t, err, tree.ErrRawLengthMismatch)
	var lengthErr *tree.RawLengthError
	require.True(t, errors.As(err, &lengthErr))
	assert.Equal(t, 4, lengthErr.Want)
	assert.Equal(t, 2, lengthErr.Got)
	assert.False(t, tag3.Modified())

	patch := []byte{9, 8, 7, 6}
	require.NoError(t, tag3.SetRaw(patch))
	// The element keeps its own copy
	patch[0] = 0
	assert.Equal(t, []byte{9, 8, 7, 6}, tag3.Data())

	require.NoError(t, root.Rebuild())
	raw, err := root.Bytes()
	require.NoError(t, err)
	assert.Equal(t, test.IFF("TAG1", test.IFF("TAG2"), test.IFF("TAG3", []byte{9, 8, 7, 6})), raw)
}

func TestSetRawRemapsParsedChildren(t *testing.T) {
	idx := tree.NewIndexer(newStream(t), exampleSchema())
	root := mapOne(t, idx, exampleBuffer())
	require.Len(t, children(t, root), 2)

	replacement := test.Concat(test.IFF("TAG3", []byte{5, 5, 5, 5}), test.IFF("TAG2"))
	require.NoError(t, root.SetRaw(replacement))
	kids := children(t, root)
	assert.Equal(t, []chunk.Tag{"TAG3", "TAG2"}, tagsOf(kids))
	assert.Equal(t, []byte{5, 5, 5, 5}, kids[0].Data())

	// A payload that no longer parses is rejected and leaves the element untouched
	bad := make([]byte, root.Len())
	copy(bad, "TAG2\x00\x00\x00\xff")
	require.Error(t, root.SetRaw(bad))
	assert.Equal(t, replacement, root.Data())
}

func TestAddChildToSyntheticElement(t *testing.T) {
	idx := tree.NewIndexer(newStream(t), exampleSchema())
	wrapper, err := idx.NewElement("TAG1", nil)
	require.NoError(t, err)
	assert.Equal(t, -1, wrapper.Offset())

	tag2, err := idx.NewElement("TAG2", nil)
	require.NoError(t, err)
	tag3, err := idx.NewElement("TAG3", []byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, wrapper.AddChild(tag2))
	require.NoError(t, wrapper.AddChild(tag3))
	require.NoError(t, wrapper.Rebuild())

	raw, err := wrapper.Bytes()
	require.NoError(t, err)
	assert.Equal(t, exampleBuffer(), raw)
}

func TestStrictModeErrors(t *testing.T) {
	idx := tree.NewIndexer(newStream(t), exampleSchema())
	_, err := idx.Map(test.IFF("XXXX"))
	assert.ErrorIs(t, err, schema.ErrUnknownTag)

	root := mapOne(t, idx, test.IFF("TAG1", test.IFF("TAG1")))
	_, err = root.Children()
	assert.ErrorIs(t, err, schema.ErrDisallowedChild)
	assert.False(t, root.Parsed())
}

func TestLenientModeRecordsViolations(t *testing.T) {
	idx := tree.NewIndexer(newStream(t), exampleSchema(), tree.WithMode(schema.Lenient))
	buf := test.IFF("TAG1",
		test.IFF("XXXX", []byte{1, 2}),
		test.IFF("TAG1", test.IFF("TAG2")),
	)
	root := mapOne(t, idx, buf)
	kids := children(t, root)
	require.Equal(t, []chunk.Tag{"XXXX", "TAG1"}, tagsOf(kids))
	// Unknown tags are kept as leaves
	assert.False(t, kids[0].IsContainer())
	assert.Empty(t, children(t, kids[0]))
	// Disallowed children are still descended by their own schema entry
	assert.Equal(t, []chunk.Tag{"TAG2"}, tagsOf(children(t, kids[1])))

	diags := idx.Diagnostics()
	require.Len(t, diags, 2)
	assert.ErrorIs(t, diags[0].Err, schema.ErrUnknownTag)
	assert.Equal(t, 8, diags[0].Offset)
	assert.ErrorIs(t, diags[1].Err, schema.ErrDisallowedChild)
	assert.Equal(t, chunk.Tag("TAG1"), diags[1].Parent)
}

func TestStructuralErrorsAreFatalInLenientMode(t *testing.T) {
	idx := tree.NewIndexer(newStream(t), exampleSchema(), tree.WithMode(schema.Lenient))
	// TAG1 claims a child larger than its payload
	buf := test.IFF("TAG1", test.DecodeHexString("54414732 00000040"))
	root := mapOne(t, idx, buf)
	_, err := root.Children()
	assert.ErrorIs(t, err, chunk.ErrSizeMismatch)
}

func TestMaxDepth(t *testing.T) {
	idx := tree.NewIndexer(newStream(t), exampleSchema(), tree.WithMaxDepth(1))
	root := mapOne(t, idx, exampleBuffer())
	assert.False(t, root.IsContainer())
	assert.Empty(t, children(t, root))
}

func TestSentinelElement(t *testing.T) {
	stream := newStream(t, chunk.WithDialect(chunk.DialectLegacy))
	s := schema.New().Add("RO", "HD").AddLeaf("HD")
	idx := tree.NewIndexer(stream, s)
	buf := test.Concat(
		test.Legacy("RO", test.Legacy("HD", []byte{1, 2})),
		make([]byte, chunk.LegacyHeaderSize),
		[]byte{9, 9},
	)
	root, err := idx.Map(buf)
	require.NoError(t, err)
	require.Len(t, root, 2)
	sentinel := root[1]
	assert.True(t, sentinel.Tag().IsNull())
	assert.True(t, sentinel.Header().Sentinel)
	assert.False(t, sentinel.IsContainer())
	assert.Equal(t, []byte{9, 9}, sentinel.Data())
	assert.Empty(t, idx.Diagnostics())
}
