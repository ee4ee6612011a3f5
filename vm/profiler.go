package vm

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/kestrel/vm/profile"
)

// ProfileMode selects which profiler an Evaluator runs.
//
// The heap modes record every call boundary and the bytes allocated between
// them; they disable garbage collection because the profile is rebuilt from
// the linear allocation record. The statement mode times every statement
// and leaves GC alone. Both kinds add overhead to every boundary, so
// profiling the same program in two separate runs gives cleaner numbers
// than enabling both at once.
type ProfileMode uint8

const (
	ProfileNone ProfileMode = iota
	ProfileHeapSummary
	ProfileHeapFlame
	ProfileStatement
)

var profileModeNames = [...]string{
	ProfileNone:        "none",
	ProfileHeapSummary: "heap-summary",
	ProfileHeapFlame:   "heap-flame",
	ProfileStatement:   "statement",
}

func (m ProfileMode) String() string {
	if int(m) < len(profileModeNames) {
		return profileModeNames[m]
	}
	return fmt.Sprintf("ProfileMode(%d)", m)
}

// ParseProfileMode accepts the names printed by ProfileMode.String. The
// empty string selects ProfileNone.
func ParseProfileMode(s string) (ProfileMode, error) {
	if s == "" {
		return ProfileNone, nil
	}
	for i, name := range profileModeNames {
		if name == s {
			return ProfileMode(i), nil
		}
	}
	return ProfileNone, fmt.Errorf("unknown profile mode %q", s)
}

// heapProfile is the call-level profiler state.
type heapProfile struct {
	enabled bool
	mode    ProfileMode
	runID   string
	created time.Time
	weight  profile.Weight
}

// ---------------------------------------------------------------------------
// Enabling
// ---------------------------------------------------------------------------

// EnableProfile turns on the profiler for mode. It must be called before
// execution begins. The heap modes disable GC for the rest of this
// Evaluator's life.
func (e *Evaluator) EnableProfile(mode ProfileMode) error {
	switch mode {
	case ProfileHeapSummary, ProfileHeapFlame:
		if !e.heapProfile.enabled {
			e.heapProfile.runID = uuid.NewString()
			e.heapProfile.created = time.Now()
			e.Heap().startProfile()
		}
		e.heapProfile.enabled = true
		e.heapProfile.mode = mode
		e.DisableGC()
		logger.Infof("call profiling enabled (%s, run %s)", mode, e.heapProfile.runID)
		return nil
	case ProfileStatement:
		e.EnableStmtProfile()
		return nil
	case ProfileNone:
		return nil
	}
	return fmt.Errorf("unknown profile mode %v", mode)
}

// EnableStmtProfile turns on the statement profiler by registering a
// pre-statement hook. GC stays enabled.
func (e *Evaluator) EnableStmtProfile() {
	if e.stmtProfile.enabled {
		return
	}
	e.stmtProfile.enable()
	if cm, ok := e.codemap.get(); ok {
		e.stmtProfile.setCodeMap(cm)
	}
	e.BeforeStmt(func(span Span, e *Evaluator) {
		e.stmtProfile.beforeStmt(span)
	})
	logger.Infof("statement profiling enabled")
}

// SetFlameWeight selects the weight written on folded-stack lines.
func (e *Evaluator) SetFlameWeight(w profile.Weight) {
	e.heapProfile.weight = w
}

// IsProfiling reports whether the call profiler is on.
func (e *Evaluator) IsProfiling() bool {
	return e.heapProfile.enabled
}

// ProfileRunID returns the identifier of the current call-profiling run,
// or "" if the call profiler is off.
func (e *Evaluator) ProfileRunID() string {
	return e.heapProfile.runID
}

func (e *Evaluator) recordCallEnter(function Value) {
	e.Heap().RecordCallEnter(e.Heap().NameOf(function))
}

func (e *Evaluator) recordCallExit() {
	e.Heap().RecordCallExit()
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

// ProfileReport aggregates the call record so far.
func (e *Evaluator) ProfileReport() (*profile.Report, error) {
	if !e.heapProfile.enabled {
		return nil, ErrProfilingNotEnabled
	}
	events, end := e.Heap().ProfileEvents()
	p := &e.heapProfile
	return profile.NewReport(p.runID, p.mode.String(), p.created, events, end, p.weight), nil
}

// GenProfile renders the call profile in the format of the enabled mode:
// summary CSV for ProfileHeapSummary, folded stacks for ProfileHeapFlame.
func (e *Evaluator) GenProfile() (string, error) {
	r, err := e.ProfileReport()
	if err != nil {
		return "", err
	}
	if e.heapProfile.mode == ProfileHeapFlame {
		return r.FlameGraph(), nil
	}
	return r.Summary(), nil
}

// WriteProfile writes GenProfile's output to path.
func (e *Evaluator) WriteProfile(path string) error {
	out, err := e.GenProfile()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}
	return nil
}

// WriteProfileSnapshot writes the aggregated report as CBOR to path.
func (e *Evaluator) WriteProfileSnapshot(path string) error {
	r, err := e.ProfileReport()
	if err != nil {
		return err
	}
	data, err := profile.MarshalReport(r)
	if err != nil {
		return fmt.Errorf("encoding profile snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing profile snapshot: %w", err)
	}
	return nil
}

// GenStmtProfile renders the statement profile as CSV.
func (e *Evaluator) GenStmtProfile() (string, error) {
	total, rows, ok := e.stmtProfile.rows()
	if !ok {
		return "", ErrStmtProfilingNotEnabled
	}
	return profile.StmtString(total, rows), nil
}

// WriteStmtProfile writes GenStmtProfile's output to path.
func (e *Evaluator) WriteStmtProfile(path string) error {
	out, err := e.GenStmtProfile()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return fmt.Errorf("writing statement profile: %w", err)
	}
	return nil
}
