package confloader

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Map struct {
		Kind   string `koanf:"kind"`
		Shards int    `koanf:"shards"`
	} `koanf:"map"`
	Load struct {
		Workers int     `koanf:"workers"`
		Rate    float64 `koanf:"rate"`
	} `koanf:"load"`
}

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeTempYAML(t, `
map:
  kind: hashed
  shards: 8
load:
  workers: 4
  rate: 100.5
`)

	l := NewLoader(WithConfigFile(path))

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Map.Kind != "hashed" {
		t.Errorf("map.kind = %q, want %q", cfg.Map.Kind, "hashed")
	}
	if cfg.Map.Shards != 8 {
		t.Errorf("map.shards = %d, want 8", cfg.Map.Shards)
	}
	if cfg.Load.Workers != 4 {
		t.Errorf("load.workers = %d, want 4", cfg.Load.Workers)
	}
	if cfg.Load.Rate != 100.5 {
		t.Errorf("load.rate = %v, want 100.5", cfg.Load.Rate)
	}
}

func TestLoadFileMissing(t *testing.T) {
	l := NewLoader(WithConfigFile("/nonexistent/config.yaml"))

	var cfg testConfig
	if err := l.Load(&cfg); err == nil {
		t.Error("Load() with missing file should return an error")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeTempYAML(t, `
load:
  workers: 4
`)

	t.Setenv("REFMAP_LOAD_WORKERS", "16")

	l := NewLoader(WithConfigFile(path))

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Load.Workers != 16 {
		t.Errorf("load.workers = %d, want 16 (env should override file)", cfg.Load.Workers)
	}
}

func TestLoadEnvCustomPrefix(t *testing.T) {
	t.Setenv("STRESS_MAP_KIND", "ordered")

	l := NewLoader(WithEnvPrefix("STRESS_"))

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Map.Kind != "ordered" {
		t.Errorf("map.kind = %q, want %q", cfg.Map.Kind, "ordered")
	}
}

func TestLoadMap(t *testing.T) {
	l := NewLoader()

	if err := l.LoadMap(map[string]any{
		"map.kind":     "sharded",
		"load.workers": 32,
	}); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}

	var cfg testConfig
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if cfg.Map.Kind != "sharded" {
		t.Errorf("map.kind = %q, want %q", cfg.Map.Kind, "sharded")
	}
	if cfg.Load.Workers != 32 {
		t.Errorf("load.workers = %d, want 32", cfg.Load.Workers)
	}
}

func TestGetString(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{"map.kind": "hashed"}); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}

	if got := l.GetString("map.kind"); got != "hashed" {
		t.Errorf("GetString(map.kind) = %q, want %q", got, "hashed")
	}
	if got := l.GetString("missing.key"); got != "" {
		t.Errorf("GetString(missing.key) = %q, want empty", got)
	}
}

func TestMapProviderReadBytes(t *testing.T) {
	p := mapProvider{"a": 1}
	if _, err := p.ReadBytes(); err == nil {
		t.Error("ReadBytes() should return an error")
	}
	data, err := p.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if data["a"] != 1 {
		t.Errorf("Read()[a] = %v, want 1", data["a"])
	}
}
