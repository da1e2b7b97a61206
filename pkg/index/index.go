// Package index holds the persisted baseline: one entry per (path, stage)
// with content id, mode bits, and a stat cache used to cheapen workdir
// modification checks. Stage 0 is a merged entry; stages 1-3 are the
// ancestor/ours/theirs sides of an unresolved conflict.
package index

import (
	"io/fs"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/castorvcs/castor/pkg/errors"
	"github.com/castorvcs/castor/pkg/types"
)

// Conflict stage numbers.
const (
	StageMerged   = 0
	StageAncestor = 1
	StageOurs     = 2
	StageTheirs   = 3
)

// Entry is one index record.
type Entry struct {
	Path    string
	ID      types.ObjectID
	Kind    types.EntryKind
	Mode    fs.FileMode
	Size    int64
	ModTime time.Time
	Stage   int
}

// Index is the in-memory staging state for one repository.
type Index struct {
	entries []Entry
	path    string
	fs      types.FS
}

// New returns an empty index that will persist to path.
func New(fsys types.FS, path string) *Index {
	return &Index{fs: fsys, path: path}
}

// Load reads the index file. A missing file yields an empty index, which is
// a valid empty baseline.
func Load(fsys types.FS, path string) (*Index, error) {
	ix := New(fsys, path)
	data, err := fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ix, nil
		}
		return nil, errors.Wrapf(err, errors.ErrIndexRead, "reading %s", path)
	}
	var wire wireIndex
	if err := yaml.Unmarshal(data, &wire); err != nil {
		return nil, errors.Wrapf(err, errors.ErrIndexRead, "parsing %s", path)
	}
	ix.entries, err = wire.decode()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrIndexRead, "parsing %s", path)
	}
	ix.sort()
	return ix, nil
}

func (ix *Index) sort() {
	sort.Slice(ix.entries, func(i, j int) bool {
		if ix.entries[i].Path != ix.entries[j].Path {
			return ix.entries[i].Path < ix.entries[j].Path
		}
		return ix.entries[i].Stage < ix.entries[j].Stage
	})
}

// Len returns the number of records, counting each stage separately.
func (ix *Index) Len() int { return len(ix.entries) }

// Entries returns all records ordered by (path, stage). The slice is owned
// by the index.
func (ix *Index) Entries() []Entry { return ix.entries }

// Get returns the merged (stage-0) entry for a path.
func (ix *Index) Get(path string) (Entry, bool) {
	for i := range ix.entries {
		if ix.entries[i].Path == path && ix.entries[i].Stage == StageMerged {
			return ix.entries[i], true
		}
	}
	return Entry{}, false
}

// Stages returns every record for a path, including conflict stages.
func (ix *Index) Stages(path string) []Entry {
	var out []Entry
	for i := range ix.entries {
		if ix.entries[i].Path == path {
			out = append(out, ix.entries[i])
		}
	}
	return out
}

// HasConflict reports whether a path carries unresolved conflict stages.
func (ix *Index) HasConflict(path string) bool {
	for i := range ix.entries {
		if ix.entries[i].Path == path && ix.entries[i].Stage != StageMerged {
			return true
		}
	}
	return false
}

// ConflictPaths returns every path with unresolved conflict stages, in
// order, each path once.
func (ix *Index) ConflictPaths() []string {
	seen := make(map[string]bool)
	var out []string
	for i := range ix.entries {
		e := &ix.entries[i]
		if e.Stage != StageMerged && !seen[e.Path] {
			seen[e.Path] = true
			out = append(out, e.Path)
		}
	}
	return out
}

// Set records a merged entry for a path, replacing any previous record and
// dropping conflict stages: checking out a path resolves it.
func (ix *Index) Set(e Entry) {
	e.Stage = StageMerged
	ix.Remove(e.Path)
	ix.entries = append(ix.entries, e)
	ix.sort()
}

// SetStage records an entry at its declared stage, replacing any record at
// the same (path, stage). Used when recording merge conflicts.
func (ix *Index) SetStage(e Entry) {
	out := ix.entries[:0]
	for i := range ix.entries {
		if ix.entries[i].Path != e.Path || ix.entries[i].Stage != e.Stage {
			out = append(out, ix.entries[i])
		}
	}
	ix.entries = append(out, e)
	ix.sort()
}

// Remove drops every record (all stages) for a path.
func (ix *Index) Remove(path string) {
	out := ix.entries[:0]
	for i := range ix.entries {
		if ix.entries[i].Path != path {
			out = append(out, ix.entries[i])
		}
	}
	ix.entries = out
}

// StatMatches reports whether a stat result agrees with the entry's cached
// stat data, meaning the workdir file can be assumed unmodified without
// hashing it.
func (e *Entry) StatMatches(info fs.FileInfo) bool {
	return e.Size == info.Size() && e.ModTime.Equal(info.ModTime())
}
