// Package gitio adapts an existing git repository to the engine's object
// store contract using go-git, so castor can synchronize a working
// directory against git history. Only object and ref reads happen here;
// the engine never touches git internals directly.
package gitio

import (
	"fmt"
	"io"
	iofs "io/fs"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/castorvcs/castor/pkg/errors"
	"github.com/castorvcs/castor/pkg/types"
)

// Store implements object.Store and object.RefStore over a go-git
// repository. Content ids are SHA-1 hex in this store.
type Store struct {
	repo *git.Repository
}

// Open opens the git repository at repoPath.
func Open(repoPath string) (*Store, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return &Store{repo: repo}, nil
}

// NewStore wraps an already-open go-git repository.
func NewStore(repo *git.Repository) *Store {
	return &Store{repo: repo}
}

// ResolveRev resolves a branch, tag, or hash string to an object id.
func (s *Store) ResolveRev(rev string) (types.ObjectID, error) {
	hash, err := s.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInvalidInput, "resolving %q", rev)
	}
	return types.ObjectID(hash.String()), nil
}

// Head implements RefStore.
func (s *Store) Head() (types.ObjectID, error) {
	ref, err := s.repo.Head()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrObjectRead, "resolving HEAD")
	}
	return types.ObjectID(ref.Hash().String()), nil
}

// PeelToTree implements Store: commit ids peel to their root tree, tree ids
// load directly, anything else is NOT_A_TREE.
func (s *Store) PeelToTree(id types.ObjectID) (*types.Tree, error) {
	hash := plumbing.NewHash(string(id))

	tree, err := s.repo.TreeObject(hash)
	if err != nil {
		commit, cerr := s.repo.CommitObject(hash)
		if cerr != nil {
			return nil, errors.Newf(errors.ErrNotATree, "object %s is not a tree or commit", id.Short())
		}
		tree, err = commit.Tree()
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrObjectRead, "loading tree of commit %s", id.Short())
		}
	}

	out := types.NewTree()
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()
	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrObjectRead, "walking tree %s", id.Short())
		}
		if entry.Mode == filemode.Dir {
			continue
		}
		kind, mode := classifyFileMode(entry.Mode)
		e := types.Entry{
			Path: name,
			ID:   types.ObjectID(entry.Hash.String()),
			Kind: kind,
			Mode: mode,
		}
		if err := out.Insert(e); err != nil {
			return nil, errors.Wrapf(err, errors.ErrObjectRead, "tree %s", id.Short())
		}
	}
	return out, nil
}

// ReadBlob implements Store.
func (s *Store) ReadBlob(id types.ObjectID) ([]byte, error) {
	blob, err := s.repo.BlobObject(plumbing.NewHash(string(id)))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrObjectRead, "blob %s", id.Short())
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrObjectRead, "opening blob %s", id.Short())
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrObjectRead, "reading blob %s", id.Short())
	}
	return data, nil
}

// HashBlob implements Store using git's blob hashing.
func (s *Store) HashBlob(data []byte) types.ObjectID {
	hash := plumbing.ComputeHash(plumbing.BlobObject, data)
	return types.ObjectID(hash.String())
}

func classifyFileMode(m filemode.FileMode) (types.EntryKind, iofs.FileMode) {
	switch m {
	case filemode.Executable:
		return types.KindExecutable, 0755
	case filemode.Symlink:
		return types.KindSymlink, 0777
	case filemode.Submodule:
		return types.KindSubmodule, 0
	default:
		return types.KindFile, 0644
	}
}
