package types

import "io/fs"

// OpKind is the fundamental filesystem operation a plan item performs.
// The engine only does five things to a working directory; everything else
// is classification and ordering.
type OpKind int

const (
	// OpMkdir creates a directory (and any missing parents).
	OpMkdir OpKind = iota

	// OpWrite writes a file or symlink from object-store content.
	OpWrite

	// OpRemove deletes a file or symlink.
	OpRemove

	// OpRmdir removes a directory. Non-recursive removals are attempted
	// opportunistically and skipped when the directory is not empty;
	// recursive removals delete whole untracked or replaced subtrees.
	OpRmdir

	// OpRename moves a path in place. Only emitted for pure case-changing
	// renames on case-insensitive filesystems, where remove-then-create
	// would be redundant I/O for identical content.
	OpRename
)

// String returns the operation name used in logs and dry-run output.
func (k OpKind) String() string {
	switch k {
	case OpMkdir:
		return "mkdir"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRmdir:
		return "rmdir"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// PlanItem is one concrete filesystem operation derived from a resolved
// delta. Items execute strictly in slice order; the planner guarantees
// directory-before-child creation and child-before-directory removal.
type PlanItem struct {
	Op   OpKind
	Path string

	// From is the source path for OpRename.
	From string

	// ID is the object-store content to write for OpWrite.
	ID ObjectID

	// Mode is the desired permission bits for OpWrite.
	Mode fs.FileMode

	// Kind distinguishes file/executable/symlink writes.
	Kind EntryKind

	// Recurse makes OpRmdir delete the whole subtree instead of requiring
	// the directory to be empty.
	Recurse bool

	// Delta is the resolved delta this item was derived from, when the
	// item is path-visible (mkdir items for intermediate directories have
	// no delta).
	Delta *Delta
}
