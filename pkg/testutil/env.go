// Package testutil provides in-memory repository fixtures for engine tests.
// An Env wires a MemMapFs-backed filesystem, a native object store, and a
// repository handle together so tests can build trees, seed workdirs, and
// run checkouts without touching the real filesystem.
package testutil

import (
	"io/fs"
	"path"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/castorvcs/castor/pkg/checkout"
	"github.com/castorvcs/castor/pkg/config"
	"github.com/castorvcs/castor/pkg/filesystem"
	"github.com/castorvcs/castor/pkg/index"
	"github.com/castorvcs/castor/pkg/object"
	"github.com/castorvcs/castor/pkg/repo"
	"github.com/castorvcs/castor/pkg/types"
)

// FileSpec describes one tree entry for fixtures that need more than plain
// files. Zero Kind means a regular file; symlink content is the link target.
type FileSpec struct {
	Content string
	Kind    types.EntryKind
	Mode    fs.FileMode
}

// Env is a fully wired in-memory repository.
type Env struct {
	T     *testing.T
	FS    types.FS
	Repo  *repo.Repository
	Store *object.FileStore
	Root  string
}

// NewEnv builds a case-sensitive in-memory repository rooted at /work.
func NewEnv(t *testing.T) *Env { return newEnv(t, false) }

// NewCaseInsensitiveEnv builds an Env whose path comparisons fold case,
// for rename and collision scenarios.
func NewCaseInsensitiveEnv(t *testing.T) *Env { return newEnv(t, true) }

func newEnv(t *testing.T, ignoreCase bool) *Env {
	t.Helper()
	fsys := filesystem.NewAfero(afero.NewMemMapFs())
	root := "/work"
	stateDir := path.Join(root, repo.StateDirName)
	require.NoError(t, fsys.MkdirAll(root, 0755))

	store, err := object.NewFileStore(fsys, stateDir)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Core.IgnoreCase = "false"
	if ignoreCase {
		cfg.Core.IgnoreCase = "true"
	}

	r, err := repo.New(repo.Params{
		FS:       fsys,
		Workdir:  root,
		StateDir: stateDir,
		Store:    store,
		Refs:     store,
		Config:   cfg,
	})
	require.NoError(t, err)

	return &Env{T: t, FS: fsys, Repo: r, Store: store, Root: root}
}

// Write places a file in the working directory, creating parents.
func (e *Env) Write(rel, content string) {
	e.T.Helper()
	full := path.Join(e.Root, rel)
	require.NoError(e.T, e.FS.MkdirAll(path.Dir(full), 0755))
	require.NoError(e.T, e.FS.WriteFile(full, []byte(content), 0644))
}

// Symlink places a symbolic link in the working directory.
func (e *Env) Symlink(target, rel string) {
	e.T.Helper()
	full := path.Join(e.Root, rel)
	require.NoError(e.T, e.FS.MkdirAll(path.Dir(full), 0755))
	require.NoError(e.T, e.FS.Symlink(target, full))
}

// Remove deletes a workdir path (recursively for directories).
func (e *Env) Remove(rel string) {
	e.T.Helper()
	require.NoError(e.T, e.FS.RemoveAll(path.Join(e.Root, rel)))
}

// Read returns a workdir file's content, failing the test if it is missing.
func (e *Env) Read(rel string) string {
	e.T.Helper()
	data, err := e.FS.ReadFile(path.Join(e.Root, rel))
	require.NoError(e.T, err)
	return string(data)
}

// Exists reports whether a workdir path exists.
func (e *Env) Exists(rel string) bool {
	_, err := e.FS.Lstat(path.Join(e.Root, rel))
	return err == nil
}

// Tree writes the given files as blobs plus a tree object and returns the
// tree id. Values are plain file content.
func (e *Env) Tree(files map[string]string) types.ObjectID {
	e.T.Helper()
	specs := make(map[string]FileSpec, len(files))
	for p, content := range files {
		specs[p] = FileSpec{Content: content}
	}
	return e.TreeSpec(specs)
}

// TreeSpec writes a tree with explicit entry kinds and modes.
func (e *Env) TreeSpec(files map[string]FileSpec) types.ObjectID {
	e.T.Helper()
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	tree := types.NewTree()
	for _, p := range paths {
		spec := files[p]
		id, err := e.Store.WriteBlob([]byte(spec.Content))
		require.NoError(e.T, err)
		kind := spec.Kind
		if kind == types.KindAbsent {
			kind = types.KindFile
		}
		mode := spec.Mode
		if mode == 0 {
			switch kind {
			case types.KindExecutable:
				mode = 0755
			case types.KindSymlink:
				mode = 0777
			default:
				mode = 0644
			}
		}
		require.NoError(e.T, tree.Insert(types.Entry{Path: p, Kind: kind, ID: id, Mode: mode}))
	}
	id, err := e.Store.WriteTree(tree)
	require.NoError(e.T, err)
	return id
}

// Commit wraps a tree in a commit, points HEAD at it, and returns the
// commit id.
func (e *Env) Commit(tree types.ObjectID) types.ObjectID {
	e.T.Helper()
	id, err := e.Store.WriteCommit(object.Commit{Tree: tree, Message: "test"})
	require.NoError(e.T, err)
	require.NoError(e.T, e.Store.SetHead(id))
	return id
}

// Checkout runs a checkout that must succeed.
func (e *Env) Checkout(id types.ObjectID, opts checkout.Options) *checkout.Summary {
	e.T.Helper()
	summary, err := checkout.Tree(e.Repo, id, opts)
	require.NoError(e.T, err)
	return summary
}

// CheckoutErr runs a checkout expected to fail and returns its error.
func (e *Env) CheckoutErr(id types.ObjectID, opts checkout.Options) error {
	e.T.Helper()
	_, err := checkout.Tree(e.Repo, id, opts)
	require.Error(e.T, err)
	return err
}

// Populate checks the given files out as the current baseline: it writes a
// tree, force-checks it out into the (assumed fresh) workdir, and returns
// the tree id.
func (e *Env) Populate(files map[string]string) types.ObjectID {
	e.T.Helper()
	id := e.Tree(files)
	e.Checkout(id, checkout.Options{Strategy: types.Force})
	return id
}

// StageConflict records unresolved conflict stages for a path. Empty sides
// are omitted, matching deletion conflicts.
func (e *Env) StageConflict(rel, ancestor, ours, theirs string) {
	e.T.Helper()
	ix := e.Repo.Index
	ix.Remove(rel)
	add := func(content string, stage int) {
		if content == "" {
			return
		}
		id, err := e.Store.WriteBlob([]byte(content))
		require.NoError(e.T, err)
		ix.SetStage(index.Entry{
			Path: rel, ID: id, Kind: types.KindFile, Mode: 0644, Stage: stage,
		})
	}
	add(ancestor, index.StageAncestor)
	add(ours, index.StageOurs)
	add(theirs, index.StageTheirs)
}
