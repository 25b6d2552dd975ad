package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/multierr"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if len(cfg.Disabled) != 0 {
		t.Fatalf("expected no disabled rules by default, got %v", cfg.Disabled)
	}
	if !cfg.RunRedundantCastRemover {
		t.Fatalf("expected the redundant-cast remover to run by default")
	}
}

func TestLoadParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	contents := `
disabled_rules = ["Remove_AppendEmptyString", "Arith_AddLit_0"]
run_redundant_cast_remover = false
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned an error: %v", err)
	}
	if len(cfg.Disabled) != 2 || cfg.Disabled[0] != "Remove_AppendEmptyString" {
		t.Fatalf("unexpected Disabled: %v", cfg.Disabled)
	}
	if cfg.RunRedundantCastRemover {
		t.Fatalf("expected run_redundant_cast_remover = false to be honored")
	}
}

func TestLoadDefaultsRunRedundantCastRemoverWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(`disabled_rules = []`), 0o644); err != nil {
		t.Fatalf("write fixture config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned an error: %v", err)
	}
	if !cfg.RunRedundantCastRemover {
		t.Fatalf("expected RunRedundantCastRemover to default true when the key is absent")
	}
}

func TestLoadParsesMaxWorkers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(`max_workers = 4`), 0o644); err != nil {
		t.Fatalf("write fixture config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned an error: %v", err)
	}
	if cfg.MaxWorkers != 4 {
		t.Fatalf("expected MaxWorkers to parse as 4, got %d", cfg.MaxWorkers)
	}
}

func TestLoadRejectsNegativeMaxWorkers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(`max_workers = -1`), 0o644); err != nil {
		t.Fatalf("write fixture config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected Load to reject a negative max_workers")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	contents := `disabled_rules = ["Arith_AddLit_0", "Arith_AddLit_0"]`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected Load to reject a duplicate disabled rule name")
	}
}

func TestValidateCollectsMultipleErrors(t *testing.T) {
	cfg := &PeepholeConfig{Disabled: []string{"", "dup", "dup"}}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected Validate to return an error")
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected 2 aggregated errors (empty name + duplicate), got %d: %v", got, err)
	}
}
