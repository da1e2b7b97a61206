// Package repo assembles the collaborators one checkout needs: a
// filesystem, an object store, the staged index, ignore rules, and config.
// It deliberately stays a thin handle; discovery beyond "is there a state
// directory here" is out of scope.
package repo

import (
	"os"
	"path"

	"github.com/castorvcs/castor/pkg/config"
	"github.com/castorvcs/castor/pkg/errors"
	"github.com/castorvcs/castor/pkg/filesystem"
	"github.com/castorvcs/castor/pkg/ignore"
	"github.com/castorvcs/castor/pkg/index"
	"github.com/castorvcs/castor/pkg/object"
	"github.com/castorvcs/castor/pkg/pathcmp"
	"github.com/castorvcs/castor/pkg/types"
)

// StateDirName is the repository state directory under the workdir root.
const StateDirName = ".castor"

// IndexFileName is the staged-state file inside the state directory.
const IndexFileName = "index.yaml"

// ConfigFileName is the repository config file inside the state directory.
const ConfigFileName = "config.toml"

// Repository is the handle passed to checkout entry points.
type Repository struct {
	FS       types.FS
	Workdir  string // empty for bare repositories
	StateDir string
	Store    object.Store
	Refs     object.RefStore // nil when the store has no refs
	Config   *config.Config
	Ignores  types.IgnoreService
	Index    *index.Index
	Comparer *pathcmp.Comparer
}

// Bare reports whether the repository has no working directory of its own.
func (r *Repository) Bare() bool { return r.Workdir == "" }

// IndexPath returns where the index persists.
func (r *Repository) IndexPath() string {
	return path.Join(r.StateDir, IndexFileName)
}

// Params configures New. Zero fields get defaults where one exists.
type Params struct {
	FS       types.FS
	Workdir  string
	StateDir string
	Store    object.Store
	Refs     object.RefStore
	Config   *config.Config
	Ignores  types.IgnoreService
	Index    *index.Index
}

// New assembles a repository from explicit parts. The store is the only
// mandatory piece.
func New(p Params) (*Repository, error) {
	if p.Store == nil {
		return nil, errors.New(errors.ErrInvalidInput, "repository requires an object store")
	}
	r := &Repository{
		FS:       p.FS,
		Workdir:  p.Workdir,
		StateDir: p.StateDir,
		Store:    p.Store,
		Refs:     p.Refs,
		Config:   p.Config,
		Ignores:  p.Ignores,
		Index:    p.Index,
	}
	if r.FS == nil {
		r.FS = filesystem.NewOS()
	}
	if r.StateDir == "" && r.Workdir != "" {
		r.StateDir = path.Join(r.Workdir, StateDirName)
	}
	if r.Config == nil {
		cfg, err := config.Load(r.FS, path.Join(r.StateDir, ConfigFileName))
		if err != nil {
			return nil, err
		}
		r.Config = cfg
	}
	if r.Index == nil {
		ix, err := index.Load(r.FS, r.IndexPath())
		if err != nil {
			return nil, err
		}
		r.Index = ix
	}
	if r.Ignores == nil {
		r.Ignores = ignore.Load(r.FS, r.Workdir, r.Config.Ignore.Patterns)
	}
	r.Comparer = resolveComparer(r)
	return r, nil
}

func resolveComparer(r *Repository) *pathcmp.Comparer {
	switch r.Config.Core.IgnoreCase {
	case "true":
		return pathcmp.NewComparer(true)
	case "false":
		return pathcmp.NewComparer(false)
	default:
		if r.Bare() {
			return pathcmp.NewComparer(false)
		}
		return pathcmp.NewComparer(pathcmp.DetectIgnoreCase(r.FS, r.Workdir))
	}
}

// Init lays out a fresh native repository at workdir and returns its handle.
func Init(fsys types.FS, workdir string) (*Repository, error) {
	if fsys == nil {
		fsys = filesystem.NewOS()
	}
	stateDir := path.Join(workdir, StateDirName)
	if err := fsys.MkdirAll(stateDir, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFilesystem, "creating %s", stateDir)
	}
	store, err := object.NewFileStore(fsys, stateDir)
	if err != nil {
		return nil, err
	}
	return New(Params{FS: fsys, Workdir: workdir, StateDir: stateDir, Store: store, Refs: store})
}

// Open opens an existing native repository rooted at workdir.
func Open(fsys types.FS, workdir string) (*Repository, error) {
	if fsys == nil {
		fsys = filesystem.NewOS()
	}
	stateDir := path.Join(workdir, StateDirName)
	if _, err := fsys.Stat(stateDir); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrInvalidInput, "no repository at %s", workdir)
		}
		return nil, errors.Wrapf(err, errors.ErrFilesystem, "statting %s", stateDir)
	}
	store, err := object.NewFileStore(fsys, stateDir)
	if err != nil {
		return nil, err
	}
	return New(Params{FS: fsys, Workdir: workdir, StateDir: stateDir, Store: store, Refs: store})
}
