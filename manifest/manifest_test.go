package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/kestrel/vm"
	"github.com/chazu/kestrel/vm/profile"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "test-app"
version = "0.1.0"

[evaluator]
gc-threshold = 4096
max-call-depth = 200
disable-gc = true

[profile]
mode = "heap-flame"
output = "out/flame.txt"
flame-weight = "allocated"
store = "/var/lib/kestrel/profiles.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "test-app" {
		t.Errorf("project name = %q, want test-app", m.Project.Name)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if m.Evaluator.GCThreshold != 4096 {
		t.Errorf("gc-threshold = %d, want 4096", m.Evaluator.GCThreshold)
	}
	if m.Evaluator.MaxCallDepth != 200 {
		t.Errorf("max-call-depth = %d, want 200", m.Evaluator.MaxCallDepth)
	}
	if !m.Evaluator.DisableGC {
		t.Error("disable-gc = false, want true")
	}

	cfg, err := m.EvaluatorConfig()
	if err != nil {
		t.Fatalf("EvaluatorConfig failed: %v", err)
	}
	if cfg.Profile != vm.ProfileHeapFlame {
		t.Errorf("profile mode = %s, want heap-flame", cfg.Profile)
	}
	if cfg.FlameWeight != profile.WeightAllocated {
		t.Errorf("flame weight = %s, want allocated", cfg.FlameWeight)
	}
	if cfg.GCThreshold != 4096 || cfg.MaxCallDepth != 200 || !cfg.DisableGC {
		t.Errorf("config = %+v", cfg)
	}

	if got, want := m.OutputPath(), filepath.Join(m.Dir, "out", "flame.txt"); got != want {
		t.Errorf("output path = %q, want %q", got, want)
	}
	if got := m.StorePath(); got != "/var/lib/kestrel/profiles.db" {
		t.Errorf("store path = %q", got)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg, err := m.EvaluatorConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg != vm.DefaultConfig() {
		t.Errorf("config = %+v, want defaults %+v", cfg, vm.DefaultConfig())
	}
	if m.OutputPath() != "" || m.StorePath() != "" {
		t.Error("unset paths should stay empty")
	}
}

func TestEvaluatorConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"mode", "[profile]\nmode = \"bytecode\"\n"},
		{"weight", "[profile]\nflame-weight = \"cycles\"\n"},
		{"threshold", "[evaluator]\ngc-threshold = -1\n"},
		{"depth", "[evaluator]\nmax-call-depth = -5\n"},
	}
	for _, tt := range tests {
		dir := t.TempDir()
		writeManifest(t, dir, tt.toml)
		m, err := Load(dir)
		if err != nil {
			t.Fatalf("%s: Load failed: %v", tt.name, err)
		}
		if _, err := m.EvaluatorConfig(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestLoadManifestParseError(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[evaluator\n")
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestFindAndLoad(t *testing.T) {
	// Create nested directory structure
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	writeManifest(t, dir, `[project]
name = "found-project"
`)

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no kestrel.toml exists")
	}
}
