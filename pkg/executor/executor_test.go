// Test Type: Unit Test
// Description: Tests for the executor package - plan application, index
// bookkeeping, dry-run, progress, and cancellation.

package executor_test

import (
	"os"
	"syscall"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castorvcs/castor/pkg/errors"
	"github.com/castorvcs/castor/pkg/executor"
	"github.com/castorvcs/castor/pkg/filesystem"
	"github.com/castorvcs/castor/pkg/index"
	"github.com/castorvcs/castor/pkg/object"
	"github.com/castorvcs/castor/pkg/pathcmp"
	"github.com/castorvcs/castor/pkg/types"
)

type execEnv struct {
	fs    types.FS
	store *object.FileStore
	idx   *index.Index
}

func newExecEnv(t *testing.T) *execEnv {
	t.Helper()
	fsys := filesystem.NewAfero(afero.NewMemMapFs())
	require.NoError(t, fsys.MkdirAll("/w", 0755))
	store, err := object.NewFileStore(fsys, "/state")
	require.NoError(t, err)
	return &execEnv{fs: fsys, store: store, idx: index.New(fsys, "/state/index.yaml")}
}

func (e *execEnv) executor(strategy types.Strategy) *executor.Executor {
	return &executor.Executor{
		FS:       e.fs,
		Root:     "/w",
		Cmp:      pathcmp.NewComparer(false),
		Store:    e.store,
		Index:    e.idx,
		Strategy: strategy,
	}
}

func (e *execEnv) blob(t *testing.T, content string) types.ObjectID {
	t.Helper()
	id, err := e.store.WriteBlob([]byte(content))
	require.NoError(t, err)
	return id
}

func writeItem(path string, id types.ObjectID, delta *types.Delta) types.PlanItem {
	return types.PlanItem{
		Op: types.OpWrite, Path: path, ID: id,
		Kind: types.KindFile, Mode: 0644, Delta: delta,
	}
}

func createDelta(path string) *types.Delta {
	return &types.Delta{
		Path:   path,
		Action: types.ActionCreate,
		Notify: types.NotifyUpdated,
		Target: &types.Entry{Path: path, Kind: types.KindFile, Mode: 0644},
	}
}

func TestApply_WriteCreatesFileAndIndexEntry(t *testing.T) {
	env := newExecEnv(t)
	id := env.blob(t, "payload")

	counts, err := env.executor(0).Apply([]types.PlanItem{
		{Op: types.OpMkdir, Path: "dir"},
		writeItem("dir/a.txt", id, createDelta("dir/a.txt")),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Created)

	data, err := env.fs.ReadFile("/w/dir/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	entry, ok := env.idx.Get("dir/a.txt")
	require.True(t, ok)
	assert.Equal(t, id, entry.ID)
	assert.Equal(t, int64(len("payload")), entry.Size)
}

func TestApply_UpdateCountsAgainstBaseline(t *testing.T) {
	env := newExecEnv(t)
	id := env.blob(t, "v2")
	d := createDelta("a.txt")
	d.Action = types.ActionUpdate
	d.Baseline = &types.Entry{Path: "a.txt", Kind: types.KindFile, ID: "old", Mode: 0644}

	counts, err := env.executor(0).Apply([]types.PlanItem{writeItem("a.txt", id, d)})
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Updated)
	assert.Zero(t, counts.Created)
}

func TestApply_RemoveDeletesFileAndIndexEntry(t *testing.T) {
	env := newExecEnv(t)
	require.NoError(t, env.fs.WriteFile("/w/gone.txt", []byte("x"), 0644))
	env.idx.Set(index.Entry{Path: "gone.txt", ID: "x", Kind: types.KindFile})

	d := &types.Delta{
		Path:     "gone.txt",
		Action:   types.ActionDelete,
		Notify:   types.NotifyRemoved,
		Baseline: &types.Entry{Path: "gone.txt", Kind: types.KindFile, ID: "x"},
	}
	counts, err := env.executor(0).Apply([]types.PlanItem{
		{Op: types.OpRemove, Path: "gone.txt", Delta: d},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Removed)

	_, err = env.fs.Lstat("/w/gone.txt")
	assert.Error(t, err)
	_, ok := env.idx.Get("gone.txt")
	assert.False(t, ok)
}

func TestApply_RemoveMissingFileIsFine(t *testing.T) {
	env := newExecEnv(t)
	d := &types.Delta{Path: "already-gone.txt", Action: types.ActionDelete}
	_, err := env.executor(0).Apply([]types.PlanItem{
		{Op: types.OpRemove, Path: "already-gone.txt", Delta: d},
	})
	assert.NoError(t, err)
}

func TestApply_SymlinkWrite(t *testing.T) {
	env := newExecEnv(t)
	id := env.blob(t, "target/path")

	d := createDelta("link")
	_, err := env.executor(0).Apply([]types.PlanItem{
		{Op: types.OpWrite, Path: "link", ID: id, Kind: types.KindSymlink, Mode: 0777, Delta: d},
	})
	require.NoError(t, err)

	target, err := env.fs.Readlink("/w/link")
	require.NoError(t, err)
	assert.Equal(t, "target/path", target)
}

func TestApply_OpportunisticRmdirIgnoresNonEmpty(t *testing.T) {
	env := newExecEnv(t)
	require.NoError(t, env.fs.MkdirAll("/w/dir", 0755))
	require.NoError(t, env.fs.WriteFile("/w/dir/keep.txt", []byte("k"), 0644))

	_, err := env.executor(0).Apply([]types.PlanItem{
		{Op: types.OpRmdir, Path: "dir"},
	})
	require.NoError(t, err)
	assert.True(t, exists(env.fs, "/w/dir/keep.txt"))
}

func TestApply_RecursiveRmdir(t *testing.T) {
	env := newExecEnv(t)
	require.NoError(t, env.fs.MkdirAll("/w/junk/deep", 0755))
	require.NoError(t, env.fs.WriteFile("/w/junk/deep/x.txt", []byte("x"), 0644))

	d := &types.Delta{
		Path:    "junk",
		Action:  types.ActionDelete,
		Workdir: &types.Entry{Path: "junk", Kind: types.KindDirectory},
	}
	counts, err := env.executor(0).Apply([]types.PlanItem{
		{Op: types.OpRmdir, Path: "junk", Recurse: true, Delta: d},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Removed)
	assert.False(t, exists(env.fs, "/w/junk"))
}

// removeAllFailFS fails every RemoveAll with a fixed error.
type removeAllFailFS struct {
	types.FS
	err error
}

func (f *removeAllFailFS) RemoveAll(string) error { return f.err }

func TestApply_LockedDirectory(t *testing.T) {
	busyErr := &os.PathError{Op: "removeall", Path: "/w/junk", Err: syscall.EBUSY}
	deniedErr := &os.PathError{Op: "removeall", Path: "/w/junk", Err: syscall.EACCES}

	item := func() []types.PlanItem {
		d := &types.Delta{
			Path:    "junk",
			Action:  types.ActionDelete,
			Workdir: &types.Entry{Path: "junk", Kind: types.KindDirectory},
		}
		return []types.PlanItem{{Op: types.OpRmdir, Path: "junk", Recurse: true, Delta: d}}
	}

	// A busy directory fails the checkout by default.
	env := newExecEnv(t)
	ex := env.executor(0)
	ex.FS = &removeAllFailFS{FS: env.fs, err: busyErr}
	_, err := ex.Apply(item())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrLockedDirectory))

	// The skip flag downgrades the busy case to a skipped subtree.
	ex = env.executor(types.SkipLockedDirectories)
	ex.FS = &removeAllFailFS{FS: env.fs, err: busyErr}
	counts, err := ex.Apply(item())
	require.NoError(t, err)
	assert.Zero(t, counts.Removed)

	// A permission failure is not a busy condition: never skipped.
	ex = env.executor(types.SkipLockedDirectories)
	ex.FS = &removeAllFailFS{FS: env.fs, err: deniedErr}
	_, err = ex.Apply(item())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrFilesystem))
}

func TestApply_Rename(t *testing.T) {
	env := newExecEnv(t)
	require.NoError(t, env.fs.WriteFile("/w/README", []byte("docs"), 0644))
	env.idx.Set(index.Entry{Path: "README", ID: "same", Kind: types.KindFile})

	d := &types.Delta{
		Path:     "readme",
		Action:   types.ActionTypeChange,
		Notify:   types.NotifyUpdated,
		Baseline: &types.Entry{Path: "README", Kind: types.KindFile, ID: "same", Mode: 0644},
		Target:   &types.Entry{Path: "readme", Kind: types.KindFile, ID: "same", Mode: 0644},
		Workdir:  &types.Entry{Path: "README", Kind: types.KindFile, ID: "same", Mode: 0644},
	}
	ex := &executor.Executor{
		FS: env.fs, Root: "/w", Cmp: pathcmp.NewComparer(true),
		Store: env.store, Index: env.idx,
	}
	_, err := ex.Apply([]types.PlanItem{
		{Op: types.OpRename, From: "README", Path: "readme", ID: "same", Kind: types.KindFile, Mode: 0644, Delta: d},
	})
	require.NoError(t, err)

	assert.True(t, exists(env.fs, "/w/readme"))
	_, ok := env.idx.Get("README")
	assert.False(t, ok)
	_, ok = env.idx.Get("readme")
	assert.True(t, ok)
}

func TestApply_DryRunTouchesNothing(t *testing.T) {
	env := newExecEnv(t)
	id := env.blob(t, "payload")

	counts, err := env.executor(types.DryRun).Apply([]types.PlanItem{
		{Op: types.OpMkdir, Path: "dir"},
		writeItem("dir/a.txt", id, createDelta("dir/a.txt")),
	})
	require.NoError(t, err)

	// Counters report what would happen; the filesystem and index do not
	// move.
	assert.Equal(t, 1, counts.Created)
	assert.False(t, exists(env.fs, "/w/dir"))
	assert.Zero(t, env.idx.Len())
}

func TestApply_DontUpdateIndex(t *testing.T) {
	env := newExecEnv(t)
	id := env.blob(t, "payload")

	_, err := env.executor(types.DontUpdateIndex).Apply([]types.PlanItem{
		writeItem("a.txt", id, createDelta("a.txt")),
	})
	require.NoError(t, err)

	assert.True(t, exists(env.fs, "/w/a.txt"))
	assert.Zero(t, env.idx.Len())
}

func TestApply_ProgressSequence(t *testing.T) {
	env := newExecEnv(t)
	id := env.blob(t, "x")

	type tick struct {
		path             string
		completed, total int
	}
	var ticks []tick
	ex := env.executor(0)
	ex.Progress = func(p string, completed, total int) {
		ticks = append(ticks, tick{p, completed, total})
	}

	_, err := ex.Apply([]types.PlanItem{
		{Op: types.OpMkdir, Path: "d"}, // no delta, not counted
		writeItem("d/a.txt", id, createDelta("d/a.txt")),
		writeItem("b.txt", id, createDelta("b.txt")),
	})
	require.NoError(t, err)

	assert.Equal(t, []tick{
		{"", 0, 2},
		{"d/a.txt", 1, 2},
		{"b.txt", 2, 2},
	}, ticks)
}

func TestApply_NotifyCancelAborts(t *testing.T) {
	env := newExecEnv(t)
	id := env.blob(t, "x")

	ex := env.executor(0)
	ex.NotifyMask = types.NotifyUpdated
	ex.Notify = func(types.NotifyKind, string, *types.Entry, *types.Entry, *types.Entry) types.NotifyResult {
		return types.Cancel(9)
	}

	_, err := ex.Apply([]types.PlanItem{writeItem("a.txt", id, createDelta("a.txt"))})
	require.Error(t, err)
	code, ok := errors.CancelCode(err)
	require.True(t, ok)
	assert.Equal(t, 9, code)

	// Cancellation fired before the mutation.
	assert.False(t, exists(env.fs, "/w/a.txt"))
}

func TestApply_PerfCounters(t *testing.T) {
	env := newExecEnv(t)
	id := env.blob(t, "x")

	perf := &types.PerfData{}
	ex := env.executor(0)
	ex.Perf = perf

	_, err := ex.Apply([]types.PlanItem{
		{Op: types.OpMkdir, Path: "d"},
		writeItem("d/a.txt", id, createDelta("d/a.txt")),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, perf.Mkdirs)
	assert.Equal(t, 1, perf.Chmods)
	assert.Equal(t, 1, perf.Stats)
}

func exists(fsys types.FS, p string) bool {
	_, err := fsys.Lstat(p)
	return err == nil
}
