// Test Type: Unit Test
// Description: Tests for the index package - staging records, conflict
// stages, persistence round trips, and the stat-cache refresh.

package index_test

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castorvcs/castor/pkg/filesystem"
	"github.com/castorvcs/castor/pkg/index"
	"github.com/castorvcs/castor/pkg/types"
)

func memFS(t *testing.T) types.FS {
	t.Helper()
	return filesystem.NewAfero(afero.NewMemMapFs())
}

func TestSetAndGet(t *testing.T) {
	ix := index.New(memFS(t), "/s/index.yaml")
	ix.Set(index.Entry{Path: "a.txt", ID: "id-a", Kind: types.KindFile, Mode: 0644})
	ix.Set(index.Entry{Path: "b/c.txt", ID: "id-c", Kind: types.KindFile, Mode: 0644})

	e, ok := ix.Get("a.txt")
	require.True(t, ok)
	assert.Equal(t, types.ObjectID("id-a"), e.ID)

	_, ok = ix.Get("missing.txt")
	assert.False(t, ok)
	assert.Equal(t, 2, ix.Len())
}

func TestSet_ReplacesAndResolvesConflicts(t *testing.T) {
	ix := index.New(memFS(t), "/s/index.yaml")
	ix.SetStage(index.Entry{Path: "a.txt", ID: "ancestor", Stage: index.StageAncestor})
	ix.SetStage(index.Entry{Path: "a.txt", ID: "ours", Stage: index.StageOurs})
	ix.SetStage(index.Entry{Path: "a.txt", ID: "theirs", Stage: index.StageTheirs})
	require.True(t, ix.HasConflict("a.txt"))

	ix.Set(index.Entry{Path: "a.txt", ID: "merged", Kind: types.KindFile})

	assert.False(t, ix.HasConflict("a.txt"))
	assert.Len(t, ix.Stages("a.txt"), 1)
	e, ok := ix.Get("a.txt")
	require.True(t, ok)
	assert.Equal(t, types.ObjectID("merged"), e.ID)
}

func TestRemove_DropsAllStages(t *testing.T) {
	ix := index.New(memFS(t), "/s/index.yaml")
	ix.Set(index.Entry{Path: "keep.txt", ID: "k"})
	ix.SetStage(index.Entry{Path: "gone.txt", ID: "o", Stage: index.StageOurs})
	ix.SetStage(index.Entry{Path: "gone.txt", ID: "t", Stage: index.StageTheirs})

	ix.Remove("gone.txt")

	assert.Empty(t, ix.Stages("gone.txt"))
	assert.Equal(t, 1, ix.Len())
}

func TestConflictPaths(t *testing.T) {
	ix := index.New(memFS(t), "/s/index.yaml")
	ix.Set(index.Entry{Path: "clean.txt", ID: "c"})
	ix.SetStage(index.Entry{Path: "b.txt", ID: "o", Stage: index.StageOurs})
	ix.SetStage(index.Entry{Path: "b.txt", ID: "t", Stage: index.StageTheirs})
	ix.SetStage(index.Entry{Path: "a.txt", ID: "o", Stage: index.StageOurs})

	assert.Equal(t, []string{"a.txt", "b.txt"}, ix.ConflictPaths())
}

func TestWriteLoadRoundTrip(t *testing.T) {
	fsys := memFS(t)
	require.NoError(t, fsys.MkdirAll("/s", 0755))

	ix := index.New(fsys, "/s/index.yaml")
	mod := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	ix.Set(index.Entry{
		Path: "dir/file.txt", ID: "abc123", Kind: types.KindExecutable,
		Mode: 0755, Size: 42, ModTime: mod,
	})
	ix.SetStage(index.Entry{Path: "war.txt", ID: "ours", Kind: types.KindFile, Stage: index.StageOurs})
	require.NoError(t, ix.Write())

	loaded, err := index.Load(fsys, "/s/index.yaml")
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())

	e, ok := loaded.Get("dir/file.txt")
	require.True(t, ok)
	assert.Equal(t, types.ObjectID("abc123"), e.ID)
	assert.Equal(t, types.KindExecutable, e.Kind)
	assert.Equal(t, int64(42), e.Size)
	assert.True(t, mod.Equal(e.ModTime))
	assert.True(t, loaded.HasConflict("war.txt"))
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	ix, err := index.Load(memFS(t), "/nowhere/index.yaml")
	require.NoError(t, err)
	assert.Zero(t, ix.Len())
}

func TestStatMatches(t *testing.T) {
	fsys := memFS(t)
	require.NoError(t, fsys.WriteFile("/w/a.txt", []byte("abc"), 0644))
	info, err := fsys.Lstat("/w/a.txt")
	require.NoError(t, err)

	matching := index.Entry{Size: info.Size(), ModTime: info.ModTime()}
	assert.True(t, matching.StatMatches(info))

	stale := index.Entry{Size: info.Size() + 1, ModTime: info.ModTime()}
	assert.False(t, stale.StatMatches(info))
}

func TestRefresh_RepairsUnchangedContent(t *testing.T) {
	fsys := memFS(t)
	require.NoError(t, fsys.WriteFile("/w/a.txt", []byte("stable"), 0644))
	info, err := fsys.Lstat("/w/a.txt")
	require.NoError(t, err)

	hash := func(data []byte) types.ObjectID { return types.ObjectID("h:" + string(data)) }

	// The entry records the right content id but a stale stat cache.
	ix := index.New(fsys, "/s/index.yaml")
	ix.Set(index.Entry{
		Path: "a.txt", ID: "h:stable", Kind: types.KindFile, Mode: 0644,
		Size: 999, ModTime: info.ModTime().Add(-time.Hour),
	})

	perf := &types.PerfData{}
	ix.Refresh(fsys, "/w", hash, perf)

	e, _ := ix.Get("a.txt")
	assert.Equal(t, info.Size(), e.Size)
	assert.True(t, info.ModTime().Equal(e.ModTime))
	assert.Equal(t, 1, perf.Stats)
}

func TestRefresh_LeavesModifiedContentStale(t *testing.T) {
	fsys := memFS(t)
	require.NoError(t, fsys.WriteFile("/w/a.txt", []byte("changed on disk"), 0644))

	hash := func(data []byte) types.ObjectID { return types.ObjectID("h:" + string(data)) }

	ix := index.New(fsys, "/s/index.yaml")
	ix.Set(index.Entry{
		Path: "a.txt", ID: "h:original", Kind: types.KindFile, Mode: 0644,
		Size: 1, ModTime: time.Unix(1, 0),
	})

	ix.Refresh(fsys, "/w", hash, nil)

	// Stat stays stale so the differencer re-hashes and sees the change.
	e, _ := ix.Get("a.txt")
	assert.Equal(t, int64(1), e.Size)
}
