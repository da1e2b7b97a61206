package resolve

import (
	"github.com/castorvcs/castor/pkg/diff"
	"github.com/castorvcs/castor/pkg/pathcmp"
	"github.com/castorvcs/castor/pkg/types"
)

// classify derives the delta's action and notify kind from its three entry
// descriptors and the strategy flags. It is a pure function of those
// inputs; ordering between deltas only matters for directory dependencies,
// which the planner owns.
func classify(d *types.Delta, p Params) {
	d.Action = types.ActionNone
	d.Notify = types.NotifyNone

	if p.Scope != nil && !p.Scope.Empty() && !p.Scope.Matches(d.Path) {
		return
	}

	b, t := d.Baseline, d.Target
	switch {
	case !t.Present() && !b.Present():
		classifyUntracked(d, p)
	case !t.Present():
		classifyDelete(d, p)
	case !b.Present():
		classifyCreate(d, p)
	default:
		classifyUpdate(d, p)
	}
}

// classifyUntracked handles paths only the workdir knows about.
func classifyUntracked(d *types.Delta, p Params) {
	w := d.Workdir
	if !w.Present() {
		return
	}
	query := d.Path
	if w.Kind == types.KindDirectory {
		query += "/"
	}
	if p.Ignores != nil && p.Ignores.IsIgnored(query) {
		d.Action = types.ActionIgnored
		d.Notify = types.NotifyIgnored
		if p.Strategy.Has(types.RemoveIgnored) {
			d.Action = types.ActionDelete
		}
		return
	}
	d.Action = types.ActionUntracked
	if w.Kind == types.KindDirectory {
		d.Notify = types.NotifyUntrackedDir
	} else {
		d.Notify = types.NotifyUntracked
	}
	if p.Strategy.Has(types.RemoveUntracked) {
		d.Action = types.ActionDelete
	}
}

// classifyDelete handles paths the target drops. Removal of a file whose
// content differs from the baseline is refused under SAFE: silently losing
// the only copy of an edit is worse than leaving a stray file.
func classifyDelete(d *types.Delta, p Params) {
	w := d.Workdir
	switch {
	case !w.Present():
		// Already gone from disk; still drop it from the index.
		d.Action = types.ActionDelete
		d.Notify = types.NotifyRemoved
	case workdirClean(d):
		d.Action = types.ActionDelete
		d.Notify = types.NotifyRemoved
	case p.Strategy.Has(types.Force):
		d.Action = types.ActionDelete
		d.Notify = types.NotifyRemoved
	default:
		d.Action = types.ActionConflict
		d.Notify = types.NotifyConflict
	}
}

// classifyCreate handles paths only the target has.
func classifyCreate(d *types.Delta, p Params) {
	if p.Strategy.Has(types.UpdateOnly) && !d.Workdir.Present() {
		return
	}
	w := d.Workdir
	if !w.Present() {
		d.Action = types.ActionCreate
		d.Notify = types.NotifyUpdated
		return
	}

	// Something already sits where the target wants to write.
	if w.SameContent(d.Target) && w.Kind != types.KindDirectory {
		// Disk already matches; adopt it into the index.
		d.Action = types.ActionUpdate
		d.Notify = types.NotifyUpdated
		return
	}
	query := d.Path
	if w.Kind == types.KindDirectory {
		query += "/"
	}
	ignored := p.Ignores != nil && p.Ignores.IsIgnored(query)
	switch {
	case ignored && p.Strategy.Has(types.DontOverwriteIgnored):
		d.Action = types.ActionConflict
		d.Notify = types.NotifyConflict
	case ignored, p.Strategy.Has(types.Force):
		// Ignored content is overwritable by default; Force extends that
		// to untracked content.
		d.Action = replaceAction(w, d.Target)
		d.Notify = types.NotifyUpdated
	default:
		d.Action = types.ActionConflict
		d.Notify = types.NotifyConflict
	}
}

// classifyUpdate handles paths both trees know about.
func classifyUpdate(d *types.Delta, p Params) {
	b, t, w := d.Baseline, d.Target, d.Workdir
	caseRename := p.Cmp.IgnoreCase() && b.Path != t.Path

	identical := b.SameContent(t) && b.Mode == t.Mode && !caseRename
	if identical {
		switch {
		case !w.Present():
			if p.Strategy.Has(types.RecreateMissing) || p.Strategy.Has(types.Force) {
				d.Action = types.ActionCreate
				d.Notify = types.NotifyUpdated
			} else {
				d.Notify = types.NotifyDirty
			}
		case !workdirClean(d):
			// Local edits on an unchanged path are preserved; this is the
			// idempotent no-op that makes checkout restartable.
			d.Notify = types.NotifyDirty
		}
		return
	}

	switch {
	case !w.Present():
		// Locally deleted: the default refuses to resurrect the path.
		if p.Strategy.Has(types.Force) || p.Strategy.Has(types.RecreateMissing) {
			d.Action = types.ActionCreate
			d.Notify = types.NotifyUpdated
		} else {
			d.Notify = types.NotifyDirty
		}
	case workdirClean(d):
		if w.Kind != t.Kind || caseRename {
			d.Action = types.ActionTypeChange
		} else {
			d.Action = types.ActionUpdate
		}
		d.Notify = types.NotifyUpdated
	case p.Strategy.Has(types.Force):
		d.Action = replaceAction(w, t)
		d.Notify = types.NotifyUpdated
	default:
		d.Action = types.ActionConflict
		d.Notify = types.NotifyConflict
	}
}

// workdirClean reports whether the workdir entry matches the baseline in
// kind and content. The differencer has already resolved the lazy content
// id when the stat cache could not prove cleanliness.
func workdirClean(d *types.Delta) bool {
	b, w := d.Baseline, d.Workdir
	if !b.Present() || !w.Present() {
		return false
	}
	if b.Kind != w.Kind {
		return false
	}
	if b.Kind == types.KindSubmodule {
		return true
	}
	return b.SameContent(w)
}

// replaceAction picks how target content lands over an existing workdir
// entry: a kind change needs remove-then-create, otherwise a plain rewrite
// suffices.
func replaceAction(w, t *types.Entry) types.DeltaAction {
	if w.Kind != t.Kind {
		return types.ActionTypeChange
	}
	return types.ActionUpdate
}

// adjustBlockedCreates handles a target path whose ancestor on disk is a
// non-directory (target wants a/b, disk has file a). Under Force the
// blocking entry is removed; otherwise the create becomes a conflict.
func adjustBlockedCreates(res *diff.Result, deltas []types.Delta, p Params) {
	blockers := make(map[string]*types.Delta)
	for i := range deltas {
		blockers[p.Cmp.Fold(deltas[i].Path)] = &deltas[i]
	}
	for i := range deltas {
		d := &deltas[i]
		if d.Action != types.ActionCreate && d.Action != types.ActionUpdate {
			continue
		}
		for _, dir := range pathcmp.Ancestors(d.Path) {
			w := res.WorkdirEntry(dir)
			if w == nil || w.Kind == types.KindDirectory {
				continue
			}
			blocker := blockers[p.Cmp.Fold(dir)]
			removed := blocker != nil &&
				(blocker.Action == types.ActionDelete || blocker.Action == types.ActionTypeChange)
			if removed {
				continue
			}
			if p.Strategy.Has(types.Force) {
				if blocker != nil {
					blocker.Action = types.ActionDelete
					blocker.Notify = types.NotifyRemoved
				}
				continue
			}
			d.Action = types.ActionConflict
			d.Notify = types.NotifyConflict
			break
		}
	}
}
