package types

import (
	"io/fs"
	"time"
)

// EntryKind classifies what a path is in one of the three sources
// (baseline, target, workdir). It is a closed set: planning and execution
// switch exhaustively over it, so adding a kind is a compile-visible change.
type EntryKind int

const (
	// KindAbsent means the path does not exist in this source.
	KindAbsent EntryKind = iota

	// KindFile is a regular, non-executable file.
	KindFile

	// KindExecutable is a regular file with the executable bit set.
	KindExecutable

	// KindSymlink is a symbolic link; its content is the link target.
	KindSymlink

	// KindDirectory is a directory. Trees carry directories implicitly via
	// path prefixes; explicit directory entries only appear in workdir
	// snapshots.
	KindDirectory

	// KindSubmodule is a commit reference embedded in a tree (gitlink).
	// The engine never descends into submodules.
	KindSubmodule
)

// String returns a short human-readable name for the kind.
func (k EntryKind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindFile:
		return "file"
	case KindExecutable:
		return "executable"
	case KindSymlink:
		return "symlink"
	case KindDirectory:
		return "directory"
	case KindSubmodule:
		return "submodule"
	default:
		return "unknown"
	}
}

// IsRegular reports whether the kind is a regular file (executable or not).
func (k EntryKind) IsRegular() bool {
	return k == KindFile || k == KindExecutable
}

// ObjectID is a content identity: the hex digest of an object in whatever
// store the repository uses (blake3 for native stores, SHA-1 for git-backed
// ones). The empty string means "not yet hashed", which only occurs for
// workdir entries whose content nobody has needed to compare.
type ObjectID string

// Unknown reports whether the identity has not been computed.
func (id ObjectID) Unknown() bool { return id == "" }

// Short returns an abbreviated form for logs and messages.
func (id ObjectID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// Entry describes one path in one source. Entries are immutable once built
// for the duration of a checkout; the lazily-hashed workdir ID is filled in
// by the differencer before the entry is shared.
type Entry struct {
	Path    string
	Kind    EntryKind
	ID      ObjectID
	Mode    fs.FileMode
	Size    int64
	ModTime time.Time
}

// Present reports whether the entry exists (non-nil and not KindAbsent).
func (e *Entry) Present() bool {
	return e != nil && e.Kind != KindAbsent
}

// SameContent reports whether two entries have equal kind and content
// identity. Entries with unknown IDs never compare equal by content.
func (e *Entry) SameContent(other *Entry) bool {
	if !e.Present() || !other.Present() {
		return !e.Present() && !other.Present()
	}
	if e.Kind != other.Kind {
		return false
	}
	if e.ID.Unknown() || other.ID.Unknown() {
		return false
	}
	return e.ID == other.ID
}
