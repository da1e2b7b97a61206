// Package executor performs planned filesystem operations in strict plan
// order, applying content filters on writes, keeping the in-memory index in
// step with the disk, and reporting progress and per-path notifications.
// Dry-run mode walks the identical code path, producing the same callback
// sequence and counters, but never touches the filesystem or the index.
package executor

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/castorvcs/castor/pkg/errors"
	"github.com/castorvcs/castor/pkg/filters"
	"github.com/castorvcs/castor/pkg/index"
	"github.com/castorvcs/castor/pkg/logging"
	"github.com/castorvcs/castor/pkg/object"
	"github.com/castorvcs/castor/pkg/pathcmp"
	"github.com/castorvcs/castor/pkg/types"
)

// Counters tallies what execution did (or, under dry-run, would do).
type Counters struct {
	Created int
	Updated int
	Removed int
}

// Executor applies a plan to one working directory.
type Executor struct {
	FS       types.FS
	Root     string
	Cmp      *pathcmp.Comparer
	Store    object.Store
	Index    *index.Index
	Filters  filters.Source
	Strategy types.Strategy

	Notify     types.NotifyFunc
	NotifyMask types.NotifyKind
	Progress   types.ProgressFunc
	Perf       *types.PerfData

	log     zerolog.Logger
	dryRun  bool
	skipped []string
}

// Apply executes every item in order. Execution halts at the first failing
// item, leaving prior items applied; re-running the checkout converges the
// rest. A cancelling notify callback aborts with the caller's exact code.
func (e *Executor) Apply(items []types.PlanItem) (Counters, error) {
	e.log = logging.GetLogger("executor")
	e.dryRun = e.Strategy.Has(types.DryRun)
	if e.Filters == nil {
		e.Filters = filters.None{}
	}

	var counters Counters
	total := 0
	for i := range items {
		if items[i].Delta != nil {
			total++
		}
	}
	completed := 0
	e.progress("", completed, total)

	for i := range items {
		item := &items[i]
		if e.underSkipped(item.Path) {
			if item.Delta != nil {
				completed++
				e.progress(item.Path, completed, total)
			}
			continue
		}
		if err := e.notifyItem(item); err != nil {
			return counters, err
		}
		if e.dryRun {
			e.count(item, &counters)
		} else if err := e.applyOne(item, &counters); err != nil {
			return counters, err
		}
		if item.Delta != nil {
			completed++
			e.progress(item.Path, completed, total)
		}
	}
	return counters, nil
}

func (e *Executor) progress(p string, completed, total int) {
	if e.Progress != nil {
		e.Progress(p, completed, total)
	}
}

// notifyItem fires the execution-phase notification kinds (updated, removed)
// before the item runs, so cancellation prevents the mutation.
func (e *Executor) notifyItem(item *types.PlanItem) error {
	d := item.Delta
	if d == nil || e.Notify == nil || d.Notify&e.NotifyMask == 0 {
		return nil
	}
	if d.Notify != types.NotifyUpdated && d.Notify != types.NotifyRemoved {
		return nil
	}
	// A typechange produces a removal item and a write item for the same
	// delta; only the leading one notifies.
	if d.Action == types.ActionTypeChange && item.Op == types.OpWrite {
		return nil
	}
	if r := e.Notify(d.Notify, d.Path, d.Baseline, d.Target, d.Workdir); r.Cancelled() {
		return errors.NewCancelled(r.Code())
	}
	return nil
}

// count applies the counter effect an item would have, without any I/O.
func (e *Executor) count(item *types.PlanItem, c *Counters) {
	d := item.Delta
	if d == nil {
		return
	}
	switch item.Op {
	case types.OpRemove, types.OpRmdir:
		if d.Action == types.ActionDelete {
			c.Removed++
		}
	case types.OpWrite, types.OpRename:
		e.countWrite(d, c)
	case types.OpMkdir:
		c.Created++
	}
}

func (e *Executor) countWrite(d *types.Delta, c *Counters) {
	if d == nil {
		return
	}
	if d.Baseline.Present() {
		c.Updated++
	} else {
		c.Created++
	}
}

func (e *Executor) applyOne(item *types.PlanItem, c *Counters) error {
	e.log.Trace().Str("op", item.Op.String()).Str("path", item.Path).Msg("applying")
	switch item.Op {
	case types.OpMkdir:
		return e.applyMkdir(item, c)
	case types.OpWrite:
		return e.applyWrite(item, c)
	case types.OpRemove:
		return e.applyRemove(item, c)
	case types.OpRmdir:
		return e.applyRmdir(item, c)
	case types.OpRename:
		return e.applyRename(item, c)
	default:
		return errors.Newf(errors.ErrInternal, "unknown plan operation %d", item.Op)
	}
}

func (e *Executor) applyMkdir(item *types.PlanItem, c *Counters) error {
	if err := e.FS.MkdirAll(e.full(item.Path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "creating directory %s", item.Path)
	}
	if e.Perf != nil {
		e.Perf.Mkdirs++
	}
	if d := item.Delta; d != nil {
		// Submodule placeholder directory; record it in the index.
		e.updateIndexEntry(d, item)
		c.Created++
	}
	return nil
}

func (e *Executor) applyWrite(item *types.PlanItem, c *Counters) error {
	data, err := e.Store.ReadBlob(item.ID)
	if err != nil {
		return err
	}
	chain := e.Filters.FiltersFor(item.Path)
	data, err = chain.Apply(filters.Context{Path: item.Path, ID: item.ID}, data)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "filtering %s", item.Path)
	}

	full := e.full(item.Path)
	switch item.Kind {
	case types.KindSymlink:
		// Symlinks cannot be rewritten in place.
		if _, lerr := e.FS.Lstat(full); lerr == nil {
			if rerr := e.FS.Remove(full); rerr != nil {
				return errors.Wrapf(rerr, errors.ErrFilesystem, "replacing symlink %s", item.Path)
			}
		}
		if err := e.FS.Symlink(string(data), full); err != nil {
			return errors.Wrapf(err, errors.ErrFilesystem, "linking %s", item.Path)
		}
	default:
		mode := item.Mode
		if mode == 0 {
			mode = defaultMode(item.Kind)
		}
		if err := e.FS.WriteFile(full, data, mode); err != nil {
			return errors.Wrapf(err, errors.ErrFilesystem, "writing %s", item.Path)
		}
		// WriteFile only applies the mode on creation; enforce it on
		// rewritten files too.
		if err := e.FS.Chmod(full, mode); err != nil {
			return errors.Wrapf(err, errors.ErrFilesystem, "setting mode on %s", item.Path)
		}
		if e.Perf != nil {
			e.Perf.Chmods++
		}
	}

	e.updateIndexEntry(item.Delta, item)
	e.countWrite(item.Delta, c)
	return nil
}

func (e *Executor) applyRemove(item *types.PlanItem, c *Counters) error {
	err := e.FS.Remove(e.full(item.Path))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrFilesystem, "removing %s", item.Path)
	}
	e.dropIndexEntry(item.Delta)
	if item.Delta != nil && item.Delta.Action == types.ActionDelete {
		c.Removed++
	}
	return nil
}

func (e *Executor) applyRmdir(item *types.PlanItem, c *Counters) error {
	full := e.full(item.Path)
	if !item.Recurse {
		// Opportunistic cleanup of a possibly-emptied directory; a
		// non-empty or already-gone directory is not an error.
		if err := e.FS.Remove(full); err == nil {
			e.log.Trace().Str("path", item.Path).Msg("pruned empty directory")
		}
		return nil
	}
	if err := e.FS.RemoveAll(full); err != nil {
		if locked(err) {
			if e.Strategy.Has(types.SkipLockedDirectories) {
				e.log.Warn().Err(err).Str("path", item.Path).Msg("directory in use, skipping subtree")
				e.skipped = append(e.skipped, item.Path)
				return nil
			}
			return errors.Wrapf(err, errors.ErrLockedDirectory, "directory %s is in use", item.Path)
		}
		return errors.Wrapf(err, errors.ErrFilesystem, "removing directory %s", item.Path)
	}
	e.dropIndexEntry(item.Delta)
	if item.Delta != nil && item.Delta.Action == types.ActionDelete {
		c.Removed++
	}
	return nil
}

func (e *Executor) applyRename(item *types.PlanItem, c *Counters) error {
	if err := e.FS.Rename(e.full(item.From), e.full(item.Path)); err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "renaming %s to %s", item.From, item.Path)
	}
	if d := item.Delta; d != nil && d.Workdir.Present() && d.Target.Present() && d.Workdir.Mode != d.Target.Mode {
		if err := e.FS.Chmod(e.full(item.Path), item.Mode); err != nil {
			return errors.Wrapf(err, errors.ErrFilesystem, "setting mode on %s", item.Path)
		}
		if e.Perf != nil {
			e.Perf.Chmods++
		}
	}
	e.updateIndexEntry(item.Delta, item)
	e.countWrite(item.Delta, c)
	return nil
}

// updateIndexEntry records the new on-disk state of a written path, unless
// index updates are disabled. Writing a path also resolves any conflict
// stages it carried.
func (e *Executor) updateIndexEntry(d *types.Delta, item *types.PlanItem) {
	if d == nil || e.Index == nil || e.Strategy.Has(types.DontUpdateIndex) {
		return
	}
	entry := index.Entry{
		Path: d.Path,
		ID:   item.ID,
		Kind: item.Kind,
		Mode: item.Mode,
	}
	if entry.ID.Unknown() && d.Target.Present() {
		entry.ID = d.Target.ID
		entry.Kind = d.Target.Kind
		entry.Mode = d.Target.Mode
	}
	if info, err := e.FS.Lstat(e.full(item.Path)); err == nil {
		entry.Size = info.Size()
		entry.ModTime = info.ModTime()
		if e.Perf != nil {
			e.Perf.Stats++
		}
	}
	if d.Baseline.Present() && d.Baseline.Path != d.Path {
		e.Index.Remove(d.Baseline.Path)
	}
	e.Index.Set(entry)
}

// dropIndexEntry removes a deleted path (all stages) from the index.
func (e *Executor) dropIndexEntry(d *types.Delta) {
	if d == nil || e.Index == nil || e.Strategy.Has(types.DontUpdateIndex) {
		return
	}
	if d.Baseline.Present() {
		e.Index.Remove(d.Baseline.Path)
	}
	e.Index.Remove(d.Path)
}

func (e *Executor) underSkipped(p string) bool {
	for _, dir := range e.skipped {
		if e.Cmp.Equal(dir, p) || e.Cmp.IsPrefixOf(dir, p) {
			return true
		}
	}
	return false
}

func (e *Executor) full(rel string) string {
	if e.Root == "" {
		return rel
	}
	return path.Join(e.Root, rel)
}

func defaultMode(kind types.EntryKind) fs.FileMode {
	if kind == types.KindExecutable {
		return 0755
	}
	return 0644
}

// locked recognizes "directory in use" failures that the skip-locked
// strategy may skip. Permission errors are deliberately excluded: those are
// real failures, not transient busy conditions.
func locked(err error) bool {
	return stderrors.Is(err, syscall.EBUSY) ||
		stderrors.Is(err, syscall.ETXTBSY)
}
