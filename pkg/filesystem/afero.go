package filesystem

import (
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/castorvcs/castor/pkg/types"
)

// aferoFS implements types.FS using afero. Backends without native symlink
// support (MemMapFs) get an emulation: the link is stored as a file holding
// the target, and the adapter tracks which paths are links so Lstat and
// ReadDir still report fs.ModeSymlink for them.
type aferoFS struct {
	fs afero.Fs

	mu    sync.RWMutex
	links map[string]bool
}

// NewAfero creates a new afero filesystem implementation. Tests use it with
// afero.NewMemMapFs() for hermetic checkouts.
func NewAfero(fs afero.Fs) types.FS {
	return &aferoFS{fs: fs, links: make(map[string]bool)}
}

// symlinkInfo overlays the symlink mode bit onto an emulated link's info.
type symlinkInfo struct {
	fs.FileInfo
}

func (i symlinkInfo) Mode() fs.FileMode { return i.FileInfo.Mode() | fs.ModeSymlink }

func (a *aferoFS) isEmulatedLink(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.links[path.Clean(name)]
}

func (a *aferoFS) forgetLink(name string) {
	a.mu.Lock()
	delete(a.links, path.Clean(name))
	a.mu.Unlock()
}

func (a *aferoFS) Stat(name string) (fs.FileInfo, error) {
	return a.fs.Stat(name)
}

func (a *aferoFS) Lstat(name string) (fs.FileInfo, error) {
	var info fs.FileInfo
	var err error
	if lstater, ok := a.fs.(afero.Lstater); ok {
		info, _, err = lstater.LstatIfPossible(name)
	} else {
		info, err = a.fs.Stat(name)
	}
	if err != nil {
		return nil, err
	}
	if a.isEmulatedLink(name) {
		return symlinkInfo{info}, nil
	}
	return info, nil
}

func (a *aferoFS) ReadFile(name string) ([]byte, error) {
	info, err := a.fs.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	return afero.ReadFile(a.fs, name)
}

func (a *aferoFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if err := afero.WriteFile(a.fs, name, data, perm); err != nil {
		return err
	}
	a.forgetLink(name)
	// MemMapFs keeps the mode of a pre-existing file; force the new one.
	return a.fs.Chmod(name, perm)
}

func (a *aferoFS) Chmod(name string, mode fs.FileMode) error {
	return a.fs.Chmod(name, mode)
}

func (a *aferoFS) MkdirAll(path string, perm fs.FileMode) error {
	return a.fs.MkdirAll(path, perm)
}

func (a *aferoFS) ReadDir(name string) ([]fs.DirEntry, error) {
	infos, err := afero.ReadDir(a.fs, name)
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, 0, len(infos))
	for _, info := range infos {
		if a.isEmulatedLink(path.Join(name, info.Name())) {
			info = symlinkInfo{info}
		}
		entries = append(entries, fs.FileInfoToDirEntry(info))
	}
	return entries, nil
}

func (a *aferoFS) Symlink(oldname, newname string) error {
	if linker, ok := a.fs.(afero.Linker); ok {
		return linker.SymlinkIfPossible(oldname, newname)
	}
	// Afero's MemMapFs doesn't support Symlink, so we simulate it by
	// storing the target as the file content and remembering the path.
	if err := afero.WriteFile(a.fs, newname, []byte(oldname), 0777); err != nil {
		return err
	}
	a.mu.Lock()
	a.links[path.Clean(newname)] = true
	a.mu.Unlock()
	return nil
}

func (a *aferoFS) Readlink(name string) (string, error) {
	if reader, ok := a.fs.(afero.LinkReader); ok {
		return reader.ReadlinkIfPossible(name)
	}
	if !a.isEmulatedLink(name) {
		return "", &fs.PathError{Op: "readlink", Path: name, Err: fs.ErrInvalid}
	}
	content, err := afero.ReadFile(a.fs, name)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func (a *aferoFS) Remove(name string) error {
	if err := a.fs.Remove(name); err != nil {
		return err
	}
	a.forgetLink(name)
	return nil
}

func (a *aferoFS) RemoveAll(root string) error {
	if err := a.fs.RemoveAll(root); err != nil {
		return err
	}
	cleaned := path.Clean(root)
	a.mu.Lock()
	for name := range a.links {
		if name == cleaned || strings.HasPrefix(name, cleaned+"/") {
			delete(a.links, name)
		}
	}
	a.mu.Unlock()
	return nil
}

func (a *aferoFS) Rename(oldpath, newpath string) error {
	if err := a.fs.Rename(oldpath, newpath); err != nil {
		return err
	}
	a.mu.Lock()
	if a.links[path.Clean(oldpath)] {
		delete(a.links, path.Clean(oldpath))
		a.links[path.Clean(newpath)] = true
	}
	a.mu.Unlock()
	return nil
}
