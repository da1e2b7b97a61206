// Package pathcmp is the path classifier: it compares repository-relative
// paths under the effective case-sensitivity policy and answers prefix
// queries. A case-only rename (README -> readme) is one logical entity
// under a case-insensitive comparer and two distinct paths under a
// case-sensitive one, which changes both the delta action and whether a
// two-step remove-then-create is needed to dodge filesystem aliasing.
package pathcmp

import (
	"io/fs"
	"path"
	"runtime"
	"strings"

	"github.com/castorvcs/castor/pkg/types"
)

// Order is a three-way comparison result.
type Order int

const (
	Less    Order = -1
	Equal   Order = 0
	Greater Order = 1
)

// Comparer compares paths under one case policy. The zero value is
// case-sensitive.
type Comparer struct {
	ignoreCase bool
}

// NewComparer returns a comparer with an explicit case policy.
func NewComparer(ignoreCase bool) *Comparer {
	return &Comparer{ignoreCase: ignoreCase}
}

// IgnoreCase reports the active policy.
func (c *Comparer) IgnoreCase() bool { return c.ignoreCase }

// Fold maps a path to its comparison key. Under a case-insensitive policy
// this lower-cases the path; the hook also isolates any platform Unicode
// normalization the policy requires.
func (c *Comparer) Fold(p string) string {
	if !c.ignoreCase {
		return p
	}
	return strings.ToLower(p)
}

// Compare orders two paths under the active policy.
func (c *Comparer) Compare(a, b string) Order {
	fa, fb := c.Fold(a), c.Fold(b)
	switch {
	case fa < fb:
		return Less
	case fa > fb:
		return Greater
	default:
		return Equal
	}
}

// Equal reports whether two paths name the same logical entity.
func (c *Comparer) Equal(a, b string) bool {
	return c.Compare(a, b) == Equal
}

// IsPrefixOf reports whether dir contains p (strictly; a path is not its
// own prefix). The empty dir is the repository root and contains
// everything.
func (c *Comparer) IsPrefixOf(dir, p string) bool {
	if dir == "" {
		return p != ""
	}
	dir = strings.TrimSuffix(dir, "/")
	fd, fp := c.Fold(dir), c.Fold(p)
	return len(fp) > len(fd)+1 && strings.HasPrefix(fp, fd) && fp[len(fd)] == '/'
}

// Ancestors returns every parent directory of p, shallowest first.
func Ancestors(p string) []string {
	var dirs []string
	for d := path.Dir(p); d != "." && d != "/"; d = path.Dir(d) {
		dirs = append(dirs, d)
	}
	for i, j := 0, len(dirs)-1; i < j; i, j = i+1, j-1 {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	}
	return dirs
}

// ClassifyMode maps stat mode bits to an entry kind.
func ClassifyMode(mode fs.FileMode) types.EntryKind {
	switch {
	case mode.IsDir():
		return types.KindDirectory
	case mode&fs.ModeSymlink != 0:
		return types.KindSymlink
	case mode.IsRegular() && mode&0111 != 0:
		return types.KindExecutable
	case mode.IsRegular():
		return types.KindFile
	default:
		// Sockets, devices and the like are treated as plain files; the
		// differencer will flag them as modified rather than crash.
		return types.KindFile
	}
}

// DetectIgnoreCase probes whether the filesystem rooted at dir folds case.
// It stats an upper-cased alias of an existing entry; when nothing suitable
// exists it falls back to the platform default.
func DetectIgnoreCase(fsys types.FS, dir string) bool {
	entries, err := fsys.ReadDir(dir)
	if err == nil {
		for _, e := range entries {
			name := e.Name()
			alias := flipCase(name)
			if alias == name {
				continue
			}
			if _, err := fsys.Lstat(path.Join(dir, alias)); err == nil {
				return true
			}
			return false
		}
	}
	return runtime.GOOS == "darwin" || runtime.GOOS == "windows"
}

func flipCase(s string) string {
	upper := strings.ToUpper(s)
	if upper != s {
		return upper
	}
	return strings.ToLower(s)
}
