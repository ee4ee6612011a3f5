// Package manifest handles kestrel.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/kestrel/vm"
	"github.com/chazu/kestrel/vm/profile"
)

// FileName is the name of the project configuration file.
const FileName = "kestrel.toml"

// Manifest represents a kestrel.toml project configuration.
type Manifest struct {
	Project   Project         `toml:"project"`
	Evaluator EvaluatorConfig `toml:"evaluator"`
	Profile   ProfileConfig   `toml:"profile"`

	// Dir is the directory containing the kestrel.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// EvaluatorConfig tunes garbage collection and recursion.
type EvaluatorConfig struct {
	GCThreshold  int64 `toml:"gc-threshold"`
	MaxCallDepth int   `toml:"max-call-depth"`
	DisableGC    bool  `toml:"disable-gc"`
}

// ProfileConfig selects a profiler and where its output goes.
type ProfileConfig struct {
	Mode        string `toml:"mode"`
	Output      string `toml:"output"`
	FlameWeight string `toml:"flame-weight"`
	Store       string `toml:"store"`
}

// Load parses a kestrel.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Evaluator.GCThreshold == 0 {
		m.Evaluator.GCThreshold = vm.GCThreshold
	}
	if m.Evaluator.MaxCallDepth == 0 {
		m.Evaluator.MaxCallDepth = vm.DefaultMaxCallDepth
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a kestrel.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// EvaluatorConfig converts the [evaluator] and [profile] sections into
// settings for vm.Evaluator.ApplyConfig.
func (m *Manifest) EvaluatorConfig() (vm.Config, error) {
	mode, err := vm.ParseProfileMode(m.Profile.Mode)
	if err != nil {
		return vm.Config{}, fmt.Errorf("%s: [profile] %w", FileName, err)
	}
	weight, err := profile.ParseWeight(m.Profile.FlameWeight)
	if err != nil {
		return vm.Config{}, fmt.Errorf("%s: [profile] %w", FileName, err)
	}
	if m.Evaluator.GCThreshold < 0 {
		return vm.Config{}, fmt.Errorf("%s: [evaluator] gc-threshold must not be negative", FileName)
	}
	if m.Evaluator.MaxCallDepth < 0 {
		return vm.Config{}, fmt.Errorf("%s: [evaluator] max-call-depth must not be negative", FileName)
	}
	return vm.Config{
		GCThreshold:  m.Evaluator.GCThreshold,
		MaxCallDepth: m.Evaluator.MaxCallDepth,
		DisableGC:    m.Evaluator.DisableGC,
		Profile:      mode,
		FlameWeight:  weight,
	}, nil
}

// OutputPath returns the absolute path profiles are written to, or "" if
// none is configured.
func (m *Manifest) OutputPath() string {
	return m.resolve(m.Profile.Output)
}

// StorePath returns the absolute path of the profile archive, or "" if
// none is configured.
func (m *Manifest) StorePath() string {
	return m.resolve(m.Profile.Store)
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
