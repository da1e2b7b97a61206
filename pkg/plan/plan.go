// Package plan turns resolved deltas into an ordered list of filesystem
// operations. Ordering is the whole point: removals run first, children
// before their directories; creations run second, directories before their
// contents. A case-only rename is split into remove-then-create (or a
// single rename when content is unchanged) because renaming README to
// readme in one step is unreliable on case-insensitive filesystems.
package plan

import (
	"sort"

	"github.com/castorvcs/castor/pkg/logging"
	"github.com/castorvcs/castor/pkg/pathcmp"
	"github.com/castorvcs/castor/pkg/types"
)

// Planner orders plan items under one case policy.
type Planner struct {
	Cmp *pathcmp.Comparer
}

// Plan derives the ordered operation list for the resolved deltas. The
// target tree is consulted to keep directories that still have target
// content from being removed.
func (p *Planner) Plan(deltas []types.Delta, target *types.Tree) []types.PlanItem {
	log := logging.GetLogger("plan")

	var items []types.PlanItem
	renamed := make(map[*types.Delta]bool)

	items = append(items, p.removals(deltas, renamed)...)
	items = append(items, p.dirCleanup(deltas, target)...)
	items = append(items, p.creations(deltas, renamed)...)

	log.Debug().Int("deltas", len(deltas)).Int("items", len(items)).Msg("plan built")
	return items
}

// removals emits delete operations in reverse path order so descendants go
// before their directories.
func (p *Planner) removals(deltas []types.Delta, renamed map[*types.Delta]bool) []types.PlanItem {
	var items []types.PlanItem
	for i := len(deltas) - 1; i >= 0; i-- {
		d := &deltas[i]
		switch d.Action {
		case types.ActionDelete:
			items = append(items, p.removeItem(d))
		case types.ActionTypeChange:
			if p.pureCaseRename(d) {
				items = append(items, types.PlanItem{
					Op:    types.OpRename,
					From:  onDiskPath(d),
					Path:  d.Target.Path,
					Mode:  d.Target.Mode,
					Kind:  d.Target.Kind,
					Delta: d,
				})
				renamed[d] = true
				continue
			}
			items = append(items, p.removeItem(d))
		}
	}
	return items
}

// pureCaseRename recognizes the one case where a rename beats
// remove-then-create: same kind, same content, only the casing moved.
func (p *Planner) pureCaseRename(d *types.Delta) bool {
	if !p.Cmp.IgnoreCase() || !d.Workdir.Present() || !d.Target.Present() {
		return false
	}
	return d.Workdir.Kind == d.Target.Kind &&
		d.Workdir.SameContent(d.Target) &&
		onDiskPath(d) != d.Target.Path
}

func (p *Planner) removeItem(d *types.Delta) types.PlanItem {
	item := types.PlanItem{Op: types.OpRemove, Path: onDiskPath(d), Delta: d}
	if d.Workdir.Present() && d.Workdir.Kind == types.KindDirectory {
		item.Op = types.OpRmdir
		item.Recurse = true
	}
	return item
}

// onDiskPath is where the entry actually lives now: the workdir casing
// when present, else the baseline's.
func onDiskPath(d *types.Delta) string {
	if d.Workdir.Present() {
		return d.Workdir.Path
	}
	if d.Baseline.Present() {
		return d.Baseline.Path
	}
	return d.Path
}

// dirCleanup emits opportunistic empty-directory removals for directories
// the removals may have emptied, deepest first, skipping any directory the
// target still populates.
func (p *Planner) dirCleanup(deltas []types.Delta, target *types.Tree) []types.PlanItem {
	targetDirs := make(map[string]bool)
	for _, e := range target.Entries() {
		for _, dir := range pathcmp.Ancestors(e.Path) {
			targetDirs[p.Cmp.Fold(dir)] = true
		}
	}
	candidates := make(map[string]string)
	for i := range deltas {
		d := &deltas[i]
		if d.Action != types.ActionDelete && d.Action != types.ActionTypeChange {
			continue
		}
		for _, dir := range pathcmp.Ancestors(onDiskPath(d)) {
			key := p.Cmp.Fold(dir)
			if !targetDirs[key] {
				candidates[key] = dir
			}
		}
	}
	dirs := make([]string, 0, len(candidates))
	for _, dir := range candidates {
		dirs = append(dirs, dir)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i] > dirs[j] })

	items := make([]types.PlanItem, 0, len(dirs))
	for _, dir := range dirs {
		items = append(items, types.PlanItem{Op: types.OpRmdir, Path: dir})
	}
	return items
}

// creations emits mkdir and write operations in path order, ensuring every
// parent directory exists before anything is written inside it.
func (p *Planner) creations(deltas []types.Delta, renamed map[*types.Delta]bool) []types.PlanItem {
	var items []types.PlanItem
	ensured := make(map[string]bool)

	for i := range deltas {
		d := &deltas[i]
		switch d.Action {
		case types.ActionCreate, types.ActionUpdate, types.ActionTypeChange:
		default:
			continue
		}
		if renamed[d] {
			continue
		}
		for _, dir := range pathcmp.Ancestors(d.Path) {
			key := p.Cmp.Fold(dir)
			if ensured[key] {
				continue
			}
			ensured[key] = true
			items = append(items, types.PlanItem{Op: types.OpMkdir, Path: dir})
		}
		t := d.Target
		if t.Kind == types.KindSubmodule {
			items = append(items, types.PlanItem{Op: types.OpMkdir, Path: d.Path, Kind: t.Kind, Delta: d})
			continue
		}
		items = append(items, types.PlanItem{
			Op:    types.OpWrite,
			Path:  d.Path,
			ID:    t.ID,
			Mode:  t.Mode,
			Kind:  t.Kind,
			Delta: d,
		})
	}
	return items
}
