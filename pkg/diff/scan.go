package diff

import (
	"os"
	"path"

	"github.com/castorvcs/castor/pkg/errors"
	"github.com/castorvcs/castor/pkg/pathcmp"
	"github.com/castorvcs/castor/pkg/types"
)

// treeSets are the folded path sets of baseline and target: every directory
// they populate (so the scan knows what to enter) and every leaf path (so a
// workdir directory colliding with a tracked file surfaces as typechange
// material).
type treeSets struct {
	prefixes map[string]bool
	leaves   map[string]bool
}

func (d *Differ) foldTrees(baseline, target *types.Tree) treeSets {
	sets := treeSets{
		prefixes: make(map[string]bool),
		leaves:   make(map[string]bool),
	}
	for _, tree := range []*types.Tree{baseline, target} {
		for _, e := range tree.Entries() {
			sets.leaves[d.Cmp.Fold(e.Path)] = true
			for _, dir := range pathcmp.Ancestors(e.Path) {
				sets.prefixes[d.Cmp.Fold(dir)] = true
			}
		}
	}
	return sets
}

// scan walks one workdir directory level, recording file/symlink entries
// and deciding per subdirectory whether to descend. Untracked and ignored
// directories are recorded as a single KindDirectory entry without
// enumerating their contents: removal is recursive anyway and notification
// reports them as one item.
func (d *Differ) scan(dir string, sets treeSets, out map[string]*types.Entry) error {
	full := d.Root
	if dir != "" {
		full = join(d.Root, dir)
	}
	entries, err := d.FS.ReadDir(full)
	if err != nil {
		// A root that does not exist yet is an empty workdir: checkout
		// into a fresh target directory creates it at execution time.
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, errors.ErrFilesystem, "scanning %s", full)
	}
	for _, de := range entries {
		name := de.Name()
		if d.skip(name) {
			continue
		}
		rel := name
		if dir != "" {
			rel = dir + "/" + name
		}
		key := d.Cmp.Fold(rel)
		info, err := de.Info()
		if d.Perf != nil {
			d.Perf.Stats++
		}
		if err != nil {
			// Deleted between ReadDir and stat; treat as absent.
			continue
		}
		kind := pathcmp.ClassifyMode(info.Mode())
		if kind == types.KindDirectory {
			if sets.prefixes[key] {
				if sets.leaves[key] {
					out[key] = dirEntry(rel)
				}
				if err := d.scan(rel, sets, out); err != nil {
					return err
				}
			} else {
				// Untracked or ignored directory: one entry, no descent.
				out[key] = dirEntry(rel)
			}
			continue
		}
		out[key] = &types.Entry{
			Path:    rel,
			Kind:    kind,
			Mode:    info.Mode().Perm(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
	}
	return nil
}

func dirEntry(rel string) *types.Entry {
	return &types.Entry{
		Path: rel,
		Kind: types.KindDirectory,
		Mode: 0755,
	}
}

func (d *Differ) skip(name string) bool {
	for _, s := range d.SkipNames {
		if name == s {
			return true
		}
	}
	return false
}

func join(root, rel string) string {
	if root == "" {
		return rel
	}
	return path.Join(root, rel)
}
