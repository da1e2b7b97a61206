package types

import "strings"

// Strategy is the bit set of checkout behavior flags. The zero value is the
// default SAFE strategy: conflicts are surfaced, local modifications are
// preserved, nothing is removed that the target does not account for.
type Strategy uint32

const (
	// Force overrides safety conflicts: modified files are overwritten and
	// locally deleted files restored. Force never deletes ignored content
	// (RemoveIgnored does) and never overrides ignore-deletion policy.
	Force Strategy = 1 << iota

	// RecreateMissing restores files deleted from the workdir even when the
	// target does not change them.
	RecreateMissing

	// RemoveUntracked deletes workdir paths tracked by neither baseline nor
	// target.
	RemoveUntracked

	// RemoveIgnored deletes ignored workdir paths.
	RemoveIgnored

	// UpdateOnly suppresses creation entirely; only paths that already
	// exist on disk may be updated.
	UpdateOnly

	// DontUpdateIndex leaves the in-memory index untouched by execution.
	DontUpdateIndex

	// NoRefresh skips re-validating index stat data against disk before
	// the diff, trusting the persisted index verbatim.
	NoRefresh

	// SkipUnmerged silently skips paths with unresolved conflict stages in
	// the index instead of failing the operation.
	SkipUnmerged

	// UseOurs resolves conflict-staged paths by taking the stage-2 entry.
	UseOurs

	// UseTheirs resolves conflict-staged paths by taking the stage-3 entry.
	UseTheirs

	// DontOverwriteIgnored turns "target wants to write over ignored
	// content" from a silent overwrite into a conflict.
	DontOverwriteIgnored

	// ConflictStyleMerge requests merge-style conflict content rendering.
	// Content rendering is delegated to the text-merge collaborator; the
	// flag is carried for it.
	ConflictStyleMerge

	// ConflictStyleDiff3 requests diff3-style conflict content rendering.
	ConflictStyleDiff3

	// DisablePathspecMatch treats supplied pathspecs as literal paths
	// instead of glob patterns.
	DisablePathspecMatch

	// SkipLockedDirectories downgrades "directory in use" removal failures
	// from fatal errors to skipped subtrees.
	SkipLockedDirectories

	// DontWriteIndex updates the index in memory but skips persisting it.
	DontWriteIndex

	// DryRun classifies, plans, and reports identically to a real run but
	// performs no filesystem or index mutation.
	DryRun
)

// StrategySafe is the default: refuse to touch locally modified or
// untracked content, surface conflicts as errors.
const StrategySafe Strategy = 0

// Has reports whether every flag in f is set.
func (s Strategy) Has(f Strategy) bool { return s&f == f }

// String renders the set flags for logs.
func (s Strategy) String() string {
	if s == StrategySafe {
		return "safe"
	}
	names := []struct {
		f Strategy
		n string
	}{
		{Force, "force"},
		{RecreateMissing, "recreate-missing"},
		{RemoveUntracked, "remove-untracked"},
		{RemoveIgnored, "remove-ignored"},
		{UpdateOnly, "update-only"},
		{DontUpdateIndex, "dont-update-index"},
		{NoRefresh, "no-refresh"},
		{SkipUnmerged, "skip-unmerged"},
		{UseOurs, "use-ours"},
		{UseTheirs, "use-theirs"},
		{DontOverwriteIgnored, "dont-overwrite-ignored"},
		{ConflictStyleMerge, "conflict-style-merge"},
		{ConflictStyleDiff3, "conflict-style-diff3"},
		{DisablePathspecMatch, "disable-pathspec-match"},
		{SkipLockedDirectories, "skip-locked-directories"},
		{DontWriteIndex, "dont-write-index"},
		{DryRun, "dry-run"},
	}
	var set []string
	for _, nf := range names {
		if s.Has(nf.f) {
			set = append(set, nf.n)
		}
	}
	return strings.Join(set, "|")
}
