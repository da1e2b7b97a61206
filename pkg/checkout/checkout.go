// Package checkout is the engine entry point: it wires the diff, resolve,
// plan, and execute phases into one operation that reconciles a working
// directory with a target tree under a strategy. Every phase that can refuse
// does so before any filesystem mutation happens.
package checkout

import (
	"path"
	"time"

	"github.com/castorvcs/castor/pkg/diff"
	"github.com/castorvcs/castor/pkg/errors"
	"github.com/castorvcs/castor/pkg/executor"
	"github.com/castorvcs/castor/pkg/filters"
	"github.com/castorvcs/castor/pkg/index"
	"github.com/castorvcs/castor/pkg/logging"
	"github.com/castorvcs/castor/pkg/pathspec"
	"github.com/castorvcs/castor/pkg/plan"
	"github.com/castorvcs/castor/pkg/repo"
	"github.com/castorvcs/castor/pkg/resolve"
	"github.com/castorvcs/castor/pkg/types"
)

// Options configures one checkout.
type Options struct {
	// Strategy is the behavior flag set; the zero value is the safe
	// default.
	Strategy types.Strategy

	// Paths limits the operation to matching paths. Patterns by default;
	// literal paths under DisablePathspecMatch. Pathspec-relative prefixes
	// match whole subtrees.
	Paths []string

	// TargetDirectory checks out into an alternate root instead of the
	// repository working directory. Required for bare repositories.
	TargetDirectory string

	// Notify receives per-path callbacks for the kinds in NotifyFlags.
	// Returning a cancel result aborts the checkout.
	Notify      types.NotifyFunc
	NotifyFlags types.NotifyKind

	// Progress receives execution progress.
	Progress types.ProgressFunc

	// Perf receives the final filesystem counters.
	Perf types.PerfFunc

	// Filters overrides the repository-derived filter source. Mostly for
	// tests.
	Filters filters.Source
}

// Counters summarizes what a checkout classified and performed.
type Counters struct {
	Created   int
	Updated   int
	Removed   int
	Untracked int
	Ignored   int
	Conflicts int
}

// Summary is the result of a successful checkout.
type Summary struct {
	Counters Counters
	Perf     types.PerfData
}

// Head checks out the tree the repository's HEAD resolves to.
func Head(r *repo.Repository, opts Options) (*Summary, error) {
	if r.Refs == nil {
		return nil, errors.New(errors.ErrInvalidInput, "repository has no refs")
	}
	id, err := r.Refs.Head()
	if err != nil {
		return nil, err
	}
	if id.Unknown() {
		return nil, errors.New(errors.ErrInvalidInput, "HEAD is unborn")
	}
	return Tree(r, id, opts)
}

// Tree checks out the tree (or the commit peeled to its tree) named by id.
func Tree(r *repo.Repository, id types.ObjectID, opts Options) (*Summary, error) {
	log := logging.GetLogger("checkout")
	start := time.Now()

	root, err := workRoot(r, opts)
	if err != nil {
		return nil, err
	}

	target, err := r.Store.PeelToTree(id)
	if err != nil {
		return nil, err
	}

	scope, err := pathspec.New(opts.Paths, opts.Strategy.Has(types.DisablePathspecMatch), r.Comparer)
	if err != nil {
		return nil, err
	}

	perf := &types.PerfData{}
	if !opts.Strategy.Has(types.NoRefresh) {
		r.Index.Refresh(r.FS, root, r.Store.HashBlob, perf)
	}

	baseline, skip, err := baselineTree(r.Index, scope, opts.Strategy)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("target", id.Short()).
		Str("root", root).
		Str("strategy", opts.Strategy.String()).
		Int("baseline", baseline.Len()).
		Int("tree", target.Len()).
		Msg("checkout starting")

	d := &diff.Differ{
		FS:        r.FS,
		Root:      root,
		Cmp:       r.Comparer,
		Hash:      r.Store.HashBlob,
		SkipNames: []string{repo.StateDirName},
		Perf:      perf,
	}
	res, err := d.Diff(baseline, target)
	if err != nil {
		return nil, err
	}
	dropSkipped(res, skip, r)

	outcome, err := resolve.Resolve(res, resolve.Params{
		Strategy:   opts.Strategy,
		Cmp:        r.Comparer,
		Scope:      scope,
		Ignores:    r.Ignores,
		Notify:     opts.Notify,
		NotifyMask: opts.NotifyFlags,
	})
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	tally(outcome.Deltas, &summary.Counters)
	if outcome.Conflicts > 0 {
		return nil, errors.NewConflict(outcome.Conflicts)
	}

	items := (&plan.Planner{Cmp: r.Comparer}).Plan(outcome.Deltas, target)

	if !opts.Strategy.Has(types.DryRun) {
		if err := r.FS.MkdirAll(root, 0755); err != nil {
			return nil, errors.Wrapf(err, errors.ErrFilesystem, "creating %s", root)
		}
	}

	exec := &executor.Executor{
		FS:         r.FS,
		Root:       root,
		Cmp:        r.Comparer,
		Store:      r.Store,
		Index:      r.Index,
		Filters:    filterSource(r, opts),
		Strategy:   opts.Strategy,
		Notify:     opts.Notify,
		NotifyMask: opts.NotifyFlags,
		Progress:   opts.Progress,
		Perf:       perf,
	}
	counts, err := exec.Apply(items)
	summary.Counters.Created = counts.Created
	summary.Counters.Updated = counts.Updated
	summary.Counters.Removed = counts.Removed
	if err != nil {
		return nil, err
	}

	if shouldWriteIndex(r, opts) {
		if err := r.Index.Write(); err != nil {
			return nil, err
		}
	}

	summary.Perf = *perf
	if opts.Perf != nil {
		opts.Perf(*perf)
	}
	logging.LogDuration(start, "checkout")
	log.Info().
		Int("created", summary.Counters.Created).
		Int("updated", summary.Counters.Updated).
		Int("removed", summary.Counters.Removed).
		Msg("working directory reconciled")
	return summary, nil
}

func workRoot(r *repo.Repository, opts Options) (string, error) {
	if opts.TargetDirectory != "" {
		return opts.TargetDirectory, nil
	}
	if r.Bare() {
		return "", errors.New(errors.ErrInvalidInput,
			"bare repository requires a target directory")
	}
	return r.Workdir, nil
}

// baselineTree builds the comparison baseline from the index. Merged entries
// are taken as-is; conflict-staged paths are resolved by strategy: UseOurs
// and UseTheirs substitute the stage-2/stage-3 side, SkipUnmerged drops the
// path from the operation entirely, and otherwise any in-scope conflicted
// path fails the checkout before it starts.
func baselineTree(ix *index.Index, scope *pathspec.Matcher, s types.Strategy) (*types.Tree, map[string]bool, error) {
	tree := types.NewTree()
	skip := make(map[string]bool)
	var unresolved []string

	for _, e := range ix.Entries() {
		switch e.Stage {
		case index.StageMerged:
			tree.Insert(types.Entry{
				Path:    e.Path,
				Kind:    e.Kind,
				ID:      e.ID,
				Mode:    e.Mode,
				Size:    e.Size,
				ModTime: e.ModTime,
			})
		case index.StageOurs:
			if s.Has(types.UseOurs) {
				tree.Insert(types.Entry{Path: e.Path, Kind: e.Kind, ID: e.ID, Mode: e.Mode})
			}
		case index.StageTheirs:
			if s.Has(types.UseTheirs) {
				tree.Insert(types.Entry{Path: e.Path, Kind: e.Kind, ID: e.ID, Mode: e.Mode})
			}
		}
	}

	for _, p := range ix.ConflictPaths() {
		if !scope.Empty() && !scope.Matches(p) {
			skip[p] = true
			continue
		}
		if s.Has(types.UseOurs) || s.Has(types.UseTheirs) {
			continue
		}
		if s.Has(types.SkipUnmerged) {
			skip[p] = true
			continue
		}
		unresolved = append(unresolved, p)
	}
	if len(unresolved) > 0 {
		err := errors.Newf(errors.ErrUnresolvedConflicts,
			"%d unresolved conflicts prevent checkout", len(unresolved)).
			WithDetail("paths", unresolved)
		return nil, nil, err
	}
	return tree, skip, nil
}

// dropSkipped erases deltas for paths excluded by conflict-stage policy, so
// neither the resolver nor the planner sees them.
func dropSkipped(res *diff.Result, skip map[string]bool, r *repo.Repository) {
	if len(skip) == 0 {
		return
	}
	folded := make(map[string]bool, len(skip))
	for p := range skip {
		folded[r.Comparer.Fold(p)] = true
	}
	kept := res.Deltas[:0]
	for i := range res.Deltas {
		if !folded[r.Comparer.Fold(res.Deltas[i].Path)] {
			kept = append(kept, res.Deltas[i])
		}
	}
	res.Deltas = kept
}

func tally(deltas []types.Delta, c *Counters) {
	for i := range deltas {
		switch deltas[i].Action {
		case types.ActionUntracked:
			c.Untracked++
		case types.ActionIgnored:
			c.Ignored++
		case types.ActionConflict:
			c.Conflicts++
		}
	}
}

func filterSource(r *repo.Repository, opts Options) filters.Source {
	if opts.Filters != nil {
		return opts.Filters
	}
	root := opts.TargetDirectory
	if root == "" {
		root = r.Workdir
	}
	if root == "" || r.Config == nil {
		return filters.None{}
	}
	return filters.NewSource(r.FS, root, r.Config)
}

func shouldWriteIndex(r *repo.Repository, opts Options) bool {
	if opts.Strategy.Has(types.DryRun) ||
		opts.Strategy.Has(types.DontUpdateIndex) ||
		opts.Strategy.Has(types.DontWriteIndex) {
		return false
	}
	return r.StateDir != "" && path.Dir(r.IndexPath()) != "."
}
