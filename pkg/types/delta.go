package types

// DeltaAction is the resolved outcome of a three-way comparison for one
// path. It is a pure function of the (baseline, target, workdir) entries and
// the active strategy flags.
type DeltaAction int

const (
	// ActionNone leaves the path untouched.
	ActionNone DeltaAction = iota

	// ActionCreate writes a path that exists only in the target.
	ActionCreate

	// ActionUpdate rewrites a path whose target content or mode differs
	// from the baseline.
	ActionUpdate

	// ActionDelete removes a path that the target no longer contains.
	ActionDelete

	// ActionConflict marks a path that cannot be safely reconciled under
	// the active strategy.
	ActionConflict

	// ActionTypeChange replaces a path whose entry kind changed
	// (file/directory/symlink/submodule); executed as remove-then-create.
	ActionTypeChange

	// ActionUntracked marks a workdir path unknown to baseline and target.
	ActionUntracked

	// ActionIgnored marks a workdir path excluded by ignore rules.
	ActionIgnored
)

// String returns the action name used in logs.
func (a DeltaAction) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionConflict:
		return "conflict"
	case ActionTypeChange:
		return "typechange"
	case ActionUntracked:
		return "untracked"
	case ActionIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// NotifyKind classifies notification callbacks. Kinds form a bitmask so
// callers can subscribe to a subset.
type NotifyKind uint

const (
	// NotifyConflict reports a path blocked by a safety conflict.
	NotifyConflict NotifyKind = 1 << iota

	// NotifyDirty reports a path with local modifications that checkout
	// preserves (no plan item is produced for it).
	NotifyDirty

	// NotifyUpdated reports a path the executor created or rewrote.
	NotifyUpdated

	// NotifyUntracked reports a workdir path unknown to baseline and target.
	NotifyUntracked

	// NotifyIgnored reports an ignored workdir path.
	NotifyIgnored

	// NotifyUntrackedDir reports a whole directory of untracked content,
	// surfaced as one entry without enumerating its children.
	NotifyUntrackedDir

	// NotifyRemoved reports a path the executor deleted.
	NotifyRemoved
)

// NotifyNone and NotifyAll are the empty and full subscription masks.
const (
	NotifyNone NotifyKind = 0
	NotifyAll  NotifyKind = NotifyConflict | NotifyDirty | NotifyUpdated |
		NotifyUntracked | NotifyIgnored | NotifyUntrackedDir | NotifyRemoved
)

// Delta is the three-way comparison result for one path. Absent sides are
// nil. Action and Notify are filled by the resolver.
type Delta struct {
	Path     string
	Baseline *Entry
	Target   *Entry
	Workdir  *Entry
	Action   DeltaAction
	Notify   NotifyKind
}
