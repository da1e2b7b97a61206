// Package pathspec scopes checkout operations to a caller-supplied set of
// paths. Patterns are doublestar globs by default; literal mode compares
// exact paths (and directory prefixes) instead.
package pathspec

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/castorvcs/castor/pkg/errors"
	"github.com/castorvcs/castor/pkg/pathcmp"
)

// Matcher implements types.PathspecMatcher over an ordered pattern list.
type Matcher struct {
	patterns []string
	literal  bool
	cmp      *pathcmp.Comparer
}

// New validates the patterns and builds a matcher. A nil or empty pattern
// list matches every path.
func New(patterns []string, literal bool, cmp *pathcmp.Comparer) (*Matcher, error) {
	if cmp == nil {
		cmp = pathcmp.NewComparer(false)
	}
	cleaned := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSuffix(p, "/")
		if p == "" {
			continue
		}
		if !literal && !doublestar.ValidatePattern(p) {
			return nil, errors.Newf(errors.ErrInvalidInput, "malformed pathspec %q", p)
		}
		cleaned = append(cleaned, p)
	}
	return &Matcher{patterns: cleaned, literal: literal, cmp: cmp}, nil
}

// Empty reports whether the matcher has no patterns and therefore matches
// everything.
func (m *Matcher) Empty() bool { return len(m.patterns) == 0 }

// Matches reports whether path is in scope. A pattern naming a directory
// puts the whole subtree in scope.
func (m *Matcher) Matches(path string) bool {
	if m.Empty() {
		return true
	}
	for _, p := range m.patterns {
		if m.cmp.Equal(p, path) || m.cmp.IsPrefixOf(p, path) {
			return true
		}
		if m.literal {
			continue
		}
		if ok, err := doublestar.Match(m.cmp.Fold(p), m.cmp.Fold(path)); err == nil && ok {
			return true
		}
	}
	return false
}
