// Package ignore implements the ignore service consulted for untracked
// workdir paths. Rules come from the repository's ignore file plus
// configuration, and the rule set is mutable: the engine queries it fresh
// for every path, so a rule added mid-checkout applies to paths classified
// afterwards and never retroactively.
package ignore

import (
	"bufio"
	"bytes"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/castorvcs/castor/pkg/logging"
	"github.com/castorvcs/castor/pkg/types"
)

// IgnoreFileName is the per-repository ignore file, at the workdir root.
const IgnoreFileName = ".castorignore"

type rule struct {
	pattern  string
	negate   bool
	dirOnly  bool
	anchored bool
}

// Rules is an ordered, last-match-wins ignore rule set implementing
// types.IgnoreService.
type Rules struct {
	rules []rule
}

// NewRules builds a rule set from raw pattern strings.
func NewRules(patterns []string) *Rules {
	r := &Rules{}
	for _, p := range patterns {
		r.Add(p)
	}
	return r
}

// Load reads the ignore file under root, appending any extra patterns from
// configuration. A missing ignore file yields just the extras.
func Load(fsys types.FS, root string, extra []string) *Rules {
	r := &Rules{}
	data, err := fsys.ReadFile(path.Join(root, IgnoreFileName))
	if err == nil {
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			r.Add(scanner.Text())
		}
	} else {
		log := logging.GetLogger("ignore")
		log.Debug().Str("root", root).Msg("no ignore file")
	}
	for _, p := range extra {
		r.Add(p)
	}
	return r
}

// Add appends one pattern in ignore-file syntax: leading '!' negates,
// trailing '/' restricts to directories, a '/' anywhere else anchors the
// pattern to the repository root.
func (r *Rules) Add(pattern string) {
	pattern = strings.TrimRight(pattern, " \t")
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return
	}
	var rl rule
	if strings.HasPrefix(pattern, "!") {
		rl.negate = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		rl.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	if strings.HasPrefix(pattern, "/") {
		rl.anchored = true
		pattern = pattern[1:]
	} else if strings.Contains(pattern, "/") {
		rl.anchored = true
	}
	rl.pattern = pattern
	r.rules = append(r.rules, rl)
}

// IsIgnored reports whether the path (or any of its parent directories)
// matches the rule set. A trailing slash marks the queried path itself as a
// directory.
func (r *Rules) IsIgnored(p string) bool {
	isDir := strings.HasSuffix(p, "/")
	p = strings.TrimSuffix(p, "/")
	if r.matches(p, isDir) {
		return true
	}
	for _, dir := range parents(p) {
		if r.matches(dir, true) {
			return true
		}
	}
	return false
}

func (r *Rules) matches(p string, isDir bool) bool {
	ignored := false
	for _, rl := range r.rules {
		if rl.dirOnly && !isDir {
			continue
		}
		if rl.match(p) {
			ignored = !rl.negate
		}
	}
	return ignored
}

func (rl rule) match(p string) bool {
	if rl.anchored {
		if ok, err := doublestar.Match(rl.pattern, p); err == nil && ok {
			return true
		}
		return false
	}
	// Unanchored patterns match the basename at any depth.
	if ok, err := doublestar.Match(rl.pattern, path.Base(p)); err == nil && ok {
		return true
	}
	return false
}

func parents(p string) []string {
	var dirs []string
	for d := path.Dir(p); d != "." && d != "/"; d = path.Dir(d) {
		dirs = append(dirs, d)
	}
	return dirs
}
