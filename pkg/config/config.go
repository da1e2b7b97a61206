// Package config loads repository configuration from castor.toml. Values
// here tune engine policy (case sensitivity, content filters, extra ignore
// patterns); absence of the file yields usable defaults.
package config

import (
	stderrors "errors"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/castorvcs/castor/pkg/errors"
	"github.com/castorvcs/castor/pkg/types"
)

// Core holds engine policy settings.
type Core struct {
	// IgnoreCase overrides filesystem case-sensitivity detection:
	// "auto" (default) probes the workdir, "true"/"false" force a policy.
	IgnoreCase string `toml:"ignore-case"`

	// AutoCRLF converts line endings to CRLF on checkout for text blobs.
	AutoCRLF bool `toml:"autocrlf"`

	// Ident expands $Id$ keywords to the blob id on checkout.
	Ident bool `toml:"ident"`
}

// Ignore holds ignore-rule settings supplementing the ignore files.
type Ignore struct {
	Patterns []string `toml:"patterns"`
}

// Config is the root of castor.toml.
type Config struct {
	Core   Core   `toml:"core"`
	Ignore Ignore `toml:"ignore"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Core: Core{IgnoreCase: "auto"},
	}
}

// Load reads the config file at path, merging it over defaults. A missing
// file is not an error.
func Load(fsys types.FS, path string) (*Config, error) {
	cfg := Default()

	data, err := fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) || stderrors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "reading %s", path)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "parsing %s", path)
	}
	if cfg.Core.IgnoreCase == "" {
		cfg.Core.IgnoreCase = "auto"
	}
	return cfg, nil
}
