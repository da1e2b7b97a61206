// Test Type: Unit Test
// Description: Tests for the pathspec package - glob and literal scoping.

package pathspec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castorvcs/castor/pkg/errors"
	"github.com/castorvcs/castor/pkg/pathcmp"
	"github.com/castorvcs/castor/pkg/pathspec"
)

func TestMatcher_Glob(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{"star_matches_extension", []string{"*.txt"}, "readme.txt", true},
		{"star_does_not_cross_slash", []string{"*.txt"}, "docs/readme.txt", false},
		{"doublestar_crosses_slash", []string{"**/*.txt"}, "a/b/readme.txt", true},
		{"directory_scopes_subtree", []string{"src"}, "src/main.go", true},
		{"trailing_slash_scopes_subtree", []string{"src/"}, "src/main.go", true},
		{"exact_path", []string{"a/b.txt"}, "a/b.txt", true},
		{"miss", []string{"src"}, "lib/x.go", false},
		{"second_pattern_matches", []string{"src", "lib"}, "lib/x.go", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := pathspec.New(tt.patterns, false, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Matches(tt.path))
		})
	}
}

func TestMatcher_Literal(t *testing.T) {
	m, err := pathspec.New([]string{"*.txt", "src"}, true, nil)
	require.NoError(t, err)

	// In literal mode the star is just a byte.
	assert.False(t, m.Matches("readme.txt"))
	assert.True(t, m.Matches("*.txt"))
	assert.True(t, m.Matches("src/main.go"))
}

func TestMatcher_Empty(t *testing.T) {
	m, err := pathspec.New(nil, false, nil)
	require.NoError(t, err)
	assert.True(t, m.Empty())
	assert.True(t, m.Matches("anything/at/all"))
}

func TestMatcher_CaseFolding(t *testing.T) {
	m, err := pathspec.New([]string{"SRC"}, false, pathcmp.NewComparer(true))
	require.NoError(t, err)
	assert.True(t, m.Matches("src/main.go"))
	assert.True(t, m.Matches("Src"))
}

func TestNew_MalformedPattern(t *testing.T) {
	_, err := pathspec.New([]string{"a[b"}, false, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidInput))

	// Literal mode never validates.
	_, err = pathspec.New([]string{"a[b"}, true, nil)
	assert.NoError(t, err)
}
