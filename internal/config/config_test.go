package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoConfigFile(t *testing.T) {
	configDirOverride = t.TempDir()
	defer func() { configDirOverride = "" }()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AuthorName != "" || cfg.AuthorEmail != "" {
		t.Errorf("missing config file should yield zero config, got %+v", cfg)
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	configDirOverride = dir
	defer func() { configDirOverride = "" }()

	content := "author_name = \"Ada\"\nauthor_email = \"ada@example.com\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AuthorName != "Ada" {
		t.Errorf("author name mismatch: got %q", cfg.AuthorName)
	}
	if cfg.AuthorEmail != "ada@example.com" {
		t.Errorf("author email mismatch: got %q", cfg.AuthorEmail)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	configDirOverride = dir
	defer func() { configDirOverride = "" }()

	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("= broken ="), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Error("expected error for malformed config file")
	}
}
