// Package config loads the peephole pass's on-disk configuration: which
// rules to disable and whether to chain the redundant-cast remover after
// the core pass (spec.md §6 "Configuration"). Loading follows the
// teacher's TOML convention (internal/pkg/config.go in the reference
// toolchain): os.ReadFile followed by toml.Unmarshal, errors wrapped with
// %w rather than swallowed.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
)

// FileName is the conventional config file name, named in the CLI's
// -config flag help. The CLI reads a config file only from an explicit
// -config path; without one it uses Default() and does not look for
// FileName in the working directory.
const FileName = "dexpeep.toml"

// PeepholeConfig is the top-level configuration document.
type PeepholeConfig struct {
	// Disabled lists rule names excluded from this run. An unknown name
	// is not an error (spec.md §6, §7): it is trace-logged by the engine
	// and otherwise ignored.
	Disabled []string `toml:"disabled_rules"`

	// RunRedundantCastRemover selects whether the independent
	// redundant-cast-removal pass runs immediately after the peephole
	// pass, mirroring PeepholePassV2::run_pass's invocation order in the
	// original source.
	RunRedundantCastRemover bool `toml:"run_redundant_cast_remover"`

	// MaxWorkers bounds how many methods the engine processes
	// concurrently. Zero (the default, and what an absent key parses to)
	// means "use runtime.GOMAXPROCS(0)" (spec.md §5, SPEC_FULL.md
	// "Concurrency — made concrete").
	MaxWorkers int `toml:"max_workers"`
}

// Load reads and parses path, defaulting RunRedundantCastRemover to true
// (the original source always ran it) when the key is absent from the
// file.
func Load(path string) (*PeepholeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dexpeep: read config %s: %w", path, err)
	}

	cfg := &PeepholeConfig{RunRedundantCastRemover: true}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("dexpeep: parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dexpeep: invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a config equivalent to running with no file at all:
// nothing disabled, redundant-cast removal on.
func Default() *PeepholeConfig {
	return &PeepholeConfig{RunRedundantCastRemover: true}
}

// Validate collects every structural problem with the config rather than
// failing on the first one, so a user fixing a config file sees every
// issue in one pass.
func (c *PeepholeConfig) Validate() error {
	var errs error
	if c.MaxWorkers < 0 {
		errs = multierr.Append(errs, fmt.Errorf("max_workers must be >= 0, got %d", c.MaxWorkers))
	}
	seen := make(map[string]bool, len(c.Disabled))
	for _, name := range c.Disabled {
		if name == "" {
			errs = multierr.Append(errs, fmt.Errorf("disabled_rules contains an empty rule name"))
			continue
		}
		if seen[name] {
			errs = multierr.Append(errs, fmt.Errorf("disabled_rules lists %q more than once", name))
		}
		seen[name] = true
	}
	return errs
}
