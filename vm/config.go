package vm

import "github.com/chazu/kestrel/vm/profile"

// Config holds the tunables of an Evaluator. The zero value of each field
// leaves the current setting unchanged.
type Config struct {
	GCThreshold  int64
	MaxCallDepth int
	DisableGC    bool
	Profile      ProfileMode
	FlameWeight  profile.Weight
}

// DefaultConfig returns the settings a fresh Evaluator starts with.
func DefaultConfig() Config {
	return Config{
		GCThreshold:  GCThreshold,
		MaxCallDepth: DefaultMaxCallDepth,
	}
}

// ApplyConfig installs cfg. Settings that only ever tighten, such as
// DisableGC and profiling, are not undone by a later config.
func (e *Evaluator) ApplyConfig(cfg Config) error {
	if cfg.GCThreshold > 0 {
		e.gcThreshold = cfg.GCThreshold
		if e.nextGCLevel > 0 {
			e.nextGCLevel = e.Heap().Allocated() + cfg.GCThreshold
		}
	}
	if cfg.MaxCallDepth > 0 {
		e.callStack.maxDepth = cfg.MaxCallDepth
	}
	if cfg.DisableGC {
		e.DisableGC()
	}
	if cfg.FlameWeight != profile.WeightCalls {
		e.SetFlameWeight(cfg.FlameWeight)
	}
	return e.EnableProfile(cfg.Profile)
}
