// Test Type: Unit Test
// Description: Tests for the ignore package - pattern syntax, negation,
// directory rules, and parent-directory propagation.

package ignore_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castorvcs/castor/pkg/filesystem"
	"github.com/castorvcs/castor/pkg/ignore"
)

func TestRules_Basic(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{"glob_matches_basename", []string{"*.log"}, "debug.log", true},
		{"glob_matches_at_depth", []string{"*.log"}, "build/out/debug.log", true},
		{"miss", []string{"*.log"}, "main.go", false},
		{"exact_name", []string{"secret.txt"}, "secret.txt", true},
		{"anchored_only_at_root", []string{"/build"}, "build", true},
		{"anchored_does_not_match_nested", []string{"/build"}, "src/build", false},
		{"slash_anchors_pattern", []string{"docs/internal"}, "docs/internal", true},
		{"comment_ignored", []string{"# *.log"}, "debug.log", false},
		{"blank_ignored", []string{""}, "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ignore.NewRules(tt.patterns)
			assert.Equal(t, tt.want, r.IsIgnored(tt.path))
		})
	}
}

func TestRules_Negation(t *testing.T) {
	r := ignore.NewRules([]string{"*.log", "!keep.log"})
	assert.True(t, r.IsIgnored("debug.log"))
	assert.False(t, r.IsIgnored("keep.log"))

	// Last match wins: a later broad rule re-ignores.
	r = ignore.NewRules([]string{"*.log", "!keep.log", "keep.*"})
	assert.True(t, r.IsIgnored("keep.log"))
}

func TestRules_DirectoryOnly(t *testing.T) {
	r := ignore.NewRules([]string{"build/"})

	// A trailing slash in the query marks a directory.
	assert.True(t, r.IsIgnored("build/"))
	assert.False(t, r.IsIgnored("build"))

	// Content inside an ignored directory is ignored via its parent.
	assert.True(t, r.IsIgnored("build/out.o"))
	assert.True(t, r.IsIgnored("build/nested/deep.o"))
}

func TestRules_ParentPropagation(t *testing.T) {
	r := ignore.NewRules([]string{"vendor"})
	assert.True(t, r.IsIgnored("vendor/lib/a.go"))
	assert.False(t, r.IsIgnored("src/a.go"))
}

func TestLoad(t *testing.T) {
	fsys := filesystem.NewAfero(afero.NewMemMapFs())
	require.NoError(t, fsys.MkdirAll("/work", 0755))
	content := "# build artifacts\n*.o\n!keep.o\ntmp/\n"
	require.NoError(t, fsys.WriteFile("/work/.castorignore", []byte(content), 0644))

	r := ignore.Load(fsys, "/work", []string{"*.bak"})
	assert.True(t, r.IsIgnored("a.o"))
	assert.False(t, r.IsIgnored("keep.o"))
	assert.True(t, r.IsIgnored("tmp/"))
	assert.True(t, r.IsIgnored("old.bak"))
	assert.False(t, r.IsIgnored("main.go"))
}

func TestLoad_MissingFile(t *testing.T) {
	fsys := filesystem.NewAfero(afero.NewMemMapFs())
	r := ignore.Load(fsys, "/nowhere", []string{"*.tmp"})
	assert.True(t, r.IsIgnored("x.tmp"))
	assert.False(t, r.IsIgnored("x.go"))
}

func TestRules_MutationMidStream(t *testing.T) {
	r := ignore.NewRules(nil)
	assert.False(t, r.IsIgnored("late.log"))
	r.Add("*.log")
	assert.True(t, r.IsIgnored("late.log"))
}
