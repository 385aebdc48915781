package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"todotui/model"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todotui", "config.toml")

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load or create failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("want defaults %+v, got %+v", Default(), cfg)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file was not created: %v", err)
	}

	again, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if !reflect.DeepEqual(again, cfg) {
		t.Fatalf("reload mismatch: want %+v, got %+v", cfg, again)
	}
}

func TestLoadOrCreateReadsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "priority_mode = \"numbers\"\ntheme = \"dracula\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.PriorityMode != model.PriorityNumbers {
		t.Fatalf("want numbers mode, got %q", cfg.PriorityMode)
	}
	if cfg.Theme != "dracula" {
		t.Fatalf("want dracula theme, got %q", cfg.Theme)
	}
}

func TestLoadOrCreateRepairsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "priority_mode = \"banana\"\ntheme = \"\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.PriorityMode != model.PriorityLetters {
		t.Fatalf("want letters fallback, got %q", cfg.PriorityMode)
	}
	if cfg.Theme != "default" {
		t.Fatalf("want default theme fallback, got %q", cfg.Theme)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	want := Config{PriorityMode: model.PriorityNumbers, Theme: "gruvbox"}

	if err := Save(path, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round-trip mismatch: want %+v, got %+v", want, got)
	}
}
