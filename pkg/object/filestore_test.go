// Test Type: Unit Test
// Description: Tests for the object package - native store round trips,
// commit peeling, and ref handling.

package object_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castorvcs/castor/pkg/errors"
	"github.com/castorvcs/castor/pkg/filesystem"
	"github.com/castorvcs/castor/pkg/object"
	"github.com/castorvcs/castor/pkg/types"
)

func newStore(t *testing.T) *object.FileStore {
	t.Helper()
	s, err := object.NewFileStore(filesystem.NewAfero(afero.NewMemMapFs()), "/state")
	require.NoError(t, err)
	return s
}

func TestBlobRoundTrip(t *testing.T) {
	s := newStore(t)

	id, err := s.WriteBlob([]byte("hello castor\n"))
	require.NoError(t, err)
	assert.Len(t, string(id), 64)

	data, err := s.ReadBlob(id)
	require.NoError(t, err)
	assert.Equal(t, "hello castor\n", string(data))

	// Hashing without writing agrees with the written id.
	assert.Equal(t, id, s.HashBlob([]byte("hello castor\n")))
}

func TestWrite_Deduplicates(t *testing.T) {
	s := newStore(t)
	a, err := s.WriteBlob([]byte("same"))
	require.NoError(t, err)
	b, err := s.WriteBlob([]byte("same"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBlobIDsDifferByContentAndKind(t *testing.T) {
	s := newStore(t)
	a, err := s.WriteBlob([]byte("one"))
	require.NoError(t, err)
	b, err := s.WriteBlob([]byte("two"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	// A tree with the same payload bytes as a blob hashes differently.
	tree := types.NewTree()
	treeID, err := s.WriteTree(tree)
	require.NoError(t, err)
	assert.NotEqual(t, a, treeID)
}

func TestTreeRoundTrip(t *testing.T) {
	s := newStore(t)
	blob, err := s.WriteBlob([]byte("content"))
	require.NoError(t, err)

	tree := types.NewTree()
	require.NoError(t, tree.Insert(types.Entry{Path: "bin/tool", Kind: types.KindExecutable, ID: blob, Mode: 0755}))
	require.NoError(t, tree.Insert(types.Entry{Path: "docs/readme.txt", Kind: types.KindFile, ID: blob, Mode: 0644}))
	require.NoError(t, tree.Insert(types.Entry{Path: "link", Kind: types.KindSymlink, ID: blob, Mode: 0777}))

	id, err := s.WriteTree(tree)
	require.NoError(t, err)

	got, err := s.PeelToTree(id)
	require.NoError(t, err)
	require.Equal(t, 3, got.Len())

	entry, ok := got.Get("bin/tool")
	require.True(t, ok)
	assert.Equal(t, types.KindExecutable, entry.Kind)
	assert.Equal(t, blob, entry.ID)

	entry, ok = got.Get("link")
	require.True(t, ok)
	assert.Equal(t, types.KindSymlink, entry.Kind)
}

func TestPeelToTree_ThroughCommit(t *testing.T) {
	s := newStore(t)
	blob, err := s.WriteBlob([]byte("x"))
	require.NoError(t, err)
	tree := types.NewTree()
	require.NoError(t, tree.Insert(types.Entry{Path: "x.txt", Kind: types.KindFile, ID: blob, Mode: 0644}))
	treeID, err := s.WriteTree(tree)
	require.NoError(t, err)

	commitID, err := s.WriteCommit(object.Commit{Tree: treeID, Message: "first"})
	require.NoError(t, err)

	got, err := s.PeelToTree(commitID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
}

func TestPeelToTree_BlobFails(t *testing.T) {
	s := newStore(t)
	blob, err := s.WriteBlob([]byte("not a tree"))
	require.NoError(t, err)

	_, err = s.PeelToTree(blob)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotATree))
}

func TestReadBlob_MissingObject(t *testing.T) {
	s := newStore(t)
	_, err := s.ReadBlob("deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrObjectRead))
}

func TestHead(t *testing.T) {
	s := newStore(t)

	_, err := s.Head()
	require.Error(t, err)

	blob, err := s.WriteBlob([]byte("y"))
	require.NoError(t, err)
	require.NoError(t, s.SetHead(blob))

	head, err := s.Head()
	require.NoError(t, err)
	assert.Equal(t, blob, head)
}
