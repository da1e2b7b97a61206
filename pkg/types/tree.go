package types

import (
	"fmt"
	"sort"
)

// Tree is an ordered mapping from path to Entry, as loaded from the object
// store or synthesized from the index. Directory structure is implicit in
// the path strings; a Tree only holds leaf entries (files, symlinks,
// submodules).
type Tree struct {
	entries []Entry
	byPath  map[string]int
	sorted  bool
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{byPath: make(map[string]int)}
}

// Insert adds an entry. A path may appear at most once per tree.
func (t *Tree) Insert(e Entry) error {
	if _, ok := t.byPath[e.Path]; ok {
		return fmt.Errorf("duplicate tree entry %q", e.Path)
	}
	t.byPath[e.Path] = len(t.entries)
	t.entries = append(t.entries, e)
	t.sorted = false
	return nil
}

// Get looks up the entry for an exact path.
func (t *Tree) Get(path string) (*Entry, bool) {
	i, ok := t.byPath[path]
	if !ok {
		return nil, false
	}
	return &t.entries[i], true
}

// Len returns the number of leaf entries.
func (t *Tree) Len() int { return len(t.entries) }

// Entries returns all entries sorted by path. The returned slice is owned
// by the tree and must not be mutated.
func (t *Tree) Entries() []Entry {
	if !t.sorted {
		sort.Slice(t.entries, func(i, j int) bool {
			return t.entries[i].Path < t.entries[j].Path
		})
		for i := range t.entries {
			t.byPath[t.entries[i].Path] = i
		}
		t.sorted = true
	}
	return t.entries
}

// HasPrefix reports whether any entry lives under the given directory path.
func (t *Tree) HasPrefix(dir string) bool {
	if dir == "" {
		return t.Len() > 0
	}
	prefix := dir + "/"
	for i := range t.entries {
		if len(t.entries[i].Path) > len(prefix) && t.entries[i].Path[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
