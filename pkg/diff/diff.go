// Package diff builds the three-way comparison: for every path present in
// the baseline tree, the target tree, or the working directory, it produces
// a delta holding the entry descriptors from each source. Actions are not
// decided here; the resolver derives them from the descriptors and the
// strategy flags.
package diff

import (
	"sort"

	"github.com/castorvcs/castor/pkg/index"
	"github.com/castorvcs/castor/pkg/logging"
	"github.com/castorvcs/castor/pkg/pathcmp"
	"github.com/castorvcs/castor/pkg/types"
)

// Differ assembles deltas from the three sources.
type Differ struct {
	FS   types.FS
	Root string
	Cmp  *pathcmp.Comparer

	// Hash computes workdir content ids in the active store's algorithm.
	// It is only invoked when the stat cache cannot prove a file clean.
	Hash index.Hasher

	// SkipNames are directory names never entered (state directories).
	SkipNames []string

	// Perf accumulates stat counters during the workdir scan.
	Perf *types.PerfData
}

// Result is the diff output: ordered deltas plus a workdir lookup the
// resolver uses for blocking-parent checks.
type Result struct {
	Deltas  []types.Delta
	workdir map[string]*types.Entry
	cmp     *pathcmp.Comparer
}

// WorkdirEntry returns the workdir snapshot entry for a path, under the
// active case policy.
func (r *Result) WorkdirEntry(path string) *types.Entry {
	return r.workdir[r.cmp.Fold(path)]
}

// Diff scans the working directory and merges the three sources. Baseline
// entries carry the index stat cache; a workdir file whose stat agrees is
// assumed clean without hashing.
func (d *Differ) Diff(baseline, target *types.Tree) (*Result, error) {
	log := logging.GetLogger("diff")

	sets := d.foldTrees(baseline, target)
	workdir := make(map[string]*types.Entry)
	if d.Root != "" {
		if err := d.scan("", sets, workdir); err != nil {
			return nil, err
		}
	}

	// Union of the three path sets, keyed by folded path so a case-only
	// rename is one logical entity under a case-insensitive policy.
	type slot struct {
		baseline *types.Entry
		target   *types.Entry
		workdir  *types.Entry
	}
	slots := make(map[string]*slot)
	get := func(p string) *slot {
		key := d.Cmp.Fold(p)
		s, ok := slots[key]
		if !ok {
			s = &slot{}
			slots[key] = s
		}
		return s
	}
	for _, e := range baseline.Entries() {
		e := e
		get(e.Path).baseline = &e
	}
	for _, e := range target.Entries() {
		e := e
		get(e.Path).target = &e
	}
	for key, e := range workdir {
		s, ok := slots[key]
		if !ok {
			s = &slot{}
			slots[key] = s
		}
		s.workdir = e
	}

	deltas := make([]types.Delta, 0, len(slots))
	for _, s := range slots {
		delta := types.Delta{
			Path:     deltaPath(s.baseline, s.target, s.workdir),
			Baseline: s.baseline,
			Target:   s.target,
			Workdir:  s.workdir,
		}
		d.fillWorkdirID(&delta)
		deltas = append(deltas, delta)
	}
	sort.Slice(deltas, func(i, j int) bool {
		return d.Cmp.Compare(deltas[i].Path, deltas[j].Path) == pathcmp.Less
	})

	log.Debug().
		Int("baseline", baseline.Len()).
		Int("target", target.Len()).
		Int("workdir", len(workdir)).
		Int("deltas", len(deltas)).
		Msg("three-way diff assembled")

	return &Result{Deltas: deltas, workdir: workdir, cmp: d.Cmp}, nil
}

// deltaPath picks the canonical path for a delta: the target's casing wins,
// then the baseline's, then whatever is on disk.
func deltaPath(baseline, target, workdir *types.Entry) string {
	switch {
	case target != nil:
		return target.Path
	case baseline != nil:
		return baseline.Path
	default:
		return workdir.Path
	}
}

// fillWorkdirID resolves the lazily-hashed workdir content identity when a
// comparison will need it. A stat-cache hit against the baseline proves the
// file clean and reuses the baseline id without reading the file.
func (d *Differ) fillWorkdirID(delta *types.Delta) {
	w := delta.Workdir
	if !w.Present() || !w.ID.Unknown() {
		return
	}
	if w.Kind == types.KindDirectory || w.Kind == types.KindSubmodule {
		return
	}
	if !delta.Baseline.Present() && !delta.Target.Present() {
		return // untracked; nobody compares its content
	}
	b := delta.Baseline
	if b.Present() && b.Kind == w.Kind && b.Size == w.Size && b.ModTime.Equal(w.ModTime) && !b.ModTime.IsZero() {
		w.ID = b.ID
		return
	}
	if w.Kind == types.KindSymlink {
		target, err := d.FS.Readlink(join(d.Root, w.Path))
		if err != nil {
			return
		}
		w.ID = d.Hash([]byte(target))
		return
	}
	data, err := d.FS.ReadFile(join(d.Root, w.Path))
	if err != nil {
		return
	}
	w.ID = d.Hash(data)
}
