package filters

import (
	"bufio"
	"bytes"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/castorvcs/castor/pkg/config"
	"github.com/castorvcs/castor/pkg/types"
)

// AttributesFileName is the per-repository attributes file at the workdir
// root. Lines are "pattern attr...", where an attribute is `text`, `ident`,
// or the `-` prefixed negation overriding the config default.
const AttributesFileName = ".castorattributes"

type attrRule struct {
	pattern string
	set     map[string]bool
}

// ConfigSource decides filters from core config plus attribute rules.
// Attribute lookups happen per call, so rules added through AddRule while a
// checkout runs are visible to subsequently written paths.
type ConfigSource struct {
	autocrlf bool
	ident    bool
	rules    []attrRule
}

// NewSource builds a ConfigSource from repository config and the attributes
// file under root (which may be absent).
func NewSource(fsys types.FS, root string, cfg *config.Config) *ConfigSource {
	s := &ConfigSource{autocrlf: cfg.Core.AutoCRLF, ident: cfg.Core.Ident}
	data, err := fsys.ReadFile(path.Join(root, AttributesFileName))
	if err != nil {
		return s
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		s.AddRule(scanner.Text())
	}
	return s
}

// AddRule parses one attributes line into the rule set.
func (s *ConfigSource) AddRule(line string) {
	fields := strings.Fields(line)
	if len(fields) < 2 || strings.HasPrefix(fields[0], "#") {
		return
	}
	rule := attrRule{pattern: fields[0], set: make(map[string]bool)}
	for _, attr := range fields[1:] {
		if strings.HasPrefix(attr, "-") {
			rule.set[attr[1:]] = false
		} else {
			rule.set[attr] = true
		}
	}
	s.rules = append(s.rules, rule)
}

// FiltersFor implements Source. Later rules override earlier ones, which
// override the config defaults.
func (s *ConfigSource) FiltersFor(p string) Chain {
	text, ident := s.autocrlf, s.ident
	for _, rule := range s.rules {
		if !matchAttr(rule.pattern, p) {
			continue
		}
		if v, ok := rule.set["text"]; ok {
			text = v
		}
		if v, ok := rule.set["ident"]; ok {
			ident = v
		}
	}
	var chain Chain
	if ident {
		chain = append(chain, Ident{})
	}
	if text {
		chain = append(chain, CRLF{})
	}
	return chain
}

func matchAttr(pattern, p string) bool {
	if !strings.Contains(pattern, "/") {
		if ok, err := doublestar.Match(pattern, path.Base(p)); err == nil && ok {
			return true
		}
		return false
	}
	ok, err := doublestar.Match(strings.TrimPrefix(pattern, "/"), p)
	return err == nil && ok
}
