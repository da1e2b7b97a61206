package types

import "io/fs"

// FS abstracts filesystem operations so the engine can run against the real
// OS filesystem or an in-memory one in tests.
type FS interface {
	// File operations
	Stat(name string) (fs.FileInfo, error)
	Lstat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	Chmod(name string, mode fs.FileMode) error

	// Directory operations
	MkdirAll(path string, perm fs.FileMode) error
	ReadDir(name string) ([]fs.DirEntry, error)

	// Symlink operations
	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)

	// Removal and movement
	Remove(name string) error
	RemoveAll(path string) error
	Rename(oldpath, newpath string) error
}

// IgnoreService answers ignore queries for workdir paths. Implementations
// are queried fresh per path: rules added while a checkout is running are
// visible to paths classified afterwards, not to paths classified before.
type IgnoreService interface {
	IsIgnored(path string) bool
}

// PathspecMatcher scopes an operation to a subset of paths. An empty
// matcher matches everything.
type PathspecMatcher interface {
	Empty() bool
	Matches(path string) bool
}
