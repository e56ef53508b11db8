package main

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/moffa90/go-modbin/platform"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modinfo.toml")
	content := `log_level = "debug"
vector_table_sizes = [512]
concurrency = 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if !slices.Equal(cfg.VectorTableSizes, []int{512}) {
		t.Errorf("VectorTableSizes = %v, want [512]", cfg.VectorTableSizes)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.Concurrency)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MODINFO_CONCURRENCY", "2")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2 from environment", cfg.Concurrency)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestPlatformTableOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "platforms.toml")
	content := `[[platform]]
id = 99
name = "custom"
asset_growth = "up"
max_module_size = 65536
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.PlatformsFile = path
	tbl, err := cfg.platformTable()
	if err != nil {
		t.Fatalf("platformTable() error = %v", err)
	}
	p, ok := tbl.Lookup(99)
	if !ok || p.Name != "custom" || p.AssetGrowth != platform.GrowUp {
		t.Errorf("Lookup(99) = %+v, %v", p, ok)
	}
	if _, ok := tbl.Lookup(6); ok {
		t.Error("override table should not contain built-in platforms")
	}
}

func TestSizeString(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "-"},
		{1 << 20, "1M"},
		{2 * 1024 * 1024, "2M"},
		{131072, "128K"},
		{1000, "1000"},
	}
	for _, tt := range tests {
		if got := sizeString(tt.n); got != tt.want {
			t.Errorf("sizeString(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
