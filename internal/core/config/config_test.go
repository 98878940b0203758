package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glot.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	content := `
version = 1

[resolver]
injection_depth = 5
rate = 10.0
burst = 20

[history]
enabled = true
path = "state/res.db"

[watch]
debounce = "250ms"

[watch.exclude]
dirs = [".git"]
files = ["*.log"]

[observability]
metrics_addr = "127.0.0.1:9090"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Resolver.InjectionDepth != 5 {
		t.Errorf("injection depth = %d, want 5", cfg.Resolver.InjectionDepth)
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("debounce = %v, want 250ms", cfg.Watch.Debounce)
	}
	if !cfg.History.Enabled || cfg.History.Path != "state/res.db" {
		t.Errorf("history = %+v", cfg.History)
	}
	if cfg.Observability.MetricsAddr != "127.0.0.1:9090" {
		t.Errorf("metrics addr = %q", cfg.Observability.MetricsAddr)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("version = %d, want 1", cfg.Version)
	}
	if cfg.Resolver.InjectionDepth != 8 {
		t.Errorf("default injection depth = %d, want 8", cfg.Resolver.InjectionDepth)
	}
	if cfg.Watch.Debounce != 400*time.Millisecond {
		t.Errorf("default debounce = %v", cfg.Watch.Debounce)
	}
	if cfg.Resolver.QueueCapacity != 128 {
		t.Errorf("default queue capacity = %d", cfg.Resolver.QueueCapacity)
	}
}

func TestValidateRejectsShallowInjectionDepth(t *testing.T) {
	_, err := Load(writeConfig(t, "[resolver]\ninjection_depth = 2\n"))
	if err == nil || !strings.Contains(err.Error(), "injection_depth") {
		t.Fatalf("expected injection_depth error, got %v", err)
	}
}

func TestValidateRejectsUnknownVersion(t *testing.T) {
	_, err := Load(writeConfig(t, "version = 9\n"))
	if err == nil || !strings.Contains(err.Error(), "version") {
		t.Fatalf("expected version error, got %v", err)
	}
}
