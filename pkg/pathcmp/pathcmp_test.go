// Test Type: Unit Test
// Description: Tests for the pathcmp package - path ordering, prefix
// queries, and mode classification under both case policies.

package pathcmp_test

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/castorvcs/castor/pkg/pathcmp"
	"github.com/castorvcs/castor/pkg/types"
)

func TestComparer_Compare(t *testing.T) {
	tests := []struct {
		name       string
		ignoreCase bool
		a, b       string
		want       pathcmp.Order
	}{
		{"ordered", false, "a/b.txt", "a/c.txt", pathcmp.Less},
		{"equal", false, "a/b.txt", "a/b.txt", pathcmp.Equal},
		{"reversed", false, "b.txt", "a.txt", pathcmp.Greater},
		{"case_distinct_when_sensitive", false, "README", "readme", pathcmp.Less},
		{"case_folded_when_insensitive", true, "README", "readme", pathcmp.Equal},
		{"fold_applies_to_segments", true, "Dir/File", "dir/file", pathcmp.Equal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := pathcmp.NewComparer(tt.ignoreCase)
			assert.Equal(t, tt.want, cmp.Compare(tt.a, tt.b))
		})
	}
}

func TestComparer_IsPrefixOf(t *testing.T) {
	tests := []struct {
		name       string
		ignoreCase bool
		dir, path  string
		want       bool
	}{
		{"direct_child", false, "a", "a/b.txt", true},
		{"deep_descendant", false, "a", "a/b/c/d.txt", true},
		{"not_own_prefix", false, "a/b.txt", "a/b.txt", false},
		{"sibling_with_shared_prefix", false, "a", "ab/c.txt", false},
		{"root_contains_everything", false, "", "x.txt", true},
		{"root_does_not_contain_itself", false, "", "", false},
		{"trailing_slash_tolerated", false, "a/", "a/b.txt", true},
		{"folded_prefix", true, "DIR", "dir/file.txt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := pathcmp.NewComparer(tt.ignoreCase)
			assert.Equal(t, tt.want, cmp.IsPrefixOf(tt.dir, tt.path))
		})
	}
}

func TestAncestors(t *testing.T) {
	assert.Nil(t, pathcmp.Ancestors("top.txt"))
	assert.Equal(t, []string{"a"}, pathcmp.Ancestors("a/b.txt"))
	assert.Equal(t, []string{"a", "a/b", "a/b/c"}, pathcmp.Ancestors("a/b/c/d.txt"))
}

func TestClassifyMode(t *testing.T) {
	tests := []struct {
		name string
		mode fs.FileMode
		want types.EntryKind
	}{
		{"plain_file", 0644, types.KindFile},
		{"executable", 0755, types.KindExecutable},
		{"group_exec_counts", 0610, types.KindExecutable},
		{"directory", fs.ModeDir | 0755, types.KindDirectory},
		{"symlink", fs.ModeSymlink | 0777, types.KindSymlink},
		{"socket_degrades_to_file", fs.ModeSocket | 0644, types.KindFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pathcmp.ClassifyMode(tt.mode))
		})
	}
}

func TestFold(t *testing.T) {
	sensitive := pathcmp.NewComparer(false)
	insensitive := pathcmp.NewComparer(true)
	assert.Equal(t, "A/B", sensitive.Fold("A/B"))
	assert.Equal(t, "a/b", insensitive.Fold("A/B"))
	assert.True(t, insensitive.IgnoreCase())
	assert.False(t, sensitive.IgnoreCase())
}
