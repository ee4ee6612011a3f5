package profile

import "time"

// Report is a self-contained snapshot of one profiling session. It carries
// both renderings so it can be archived and re-rendered elsewhere.
type Report struct {
	RunID       string        `cbor:"1,keyasint"`
	Mode        string        `cbor:"2,keyasint"`
	CreatedAt   int64         `cbor:"3,keyasint"` // unix seconds
	Time        time.Duration `cbor:"4,keyasint"`
	Allocated   int64         `cbor:"5,keyasint"`
	Rows        []Row         `cbor:"6,keyasint,omitempty"`
	Flame       []FlameLine   `cbor:"7,keyasint,omitempty"`
	FlameWeight Weight        `cbor:"8,keyasint"`
}

// NewReport aggregates events and fills in both renderings.
func NewReport(runID, mode string, created time.Time, events []Event, end Event, w Weight) *Report {
	tree := Aggregate(events, end)
	return &Report{
		RunID:       runID,
		Mode:        mode,
		CreatedAt:   created.Unix(),
		Time:        tree.Root.Time,
		Allocated:   tree.Root.Allocated,
		Rows:        Summarize(tree),
		Flame:       Fold(tree, w),
		FlameWeight: w,
	}
}

// Summary renders the report's rows as CSV.
func (r *Report) Summary() string {
	return SummaryString(r.Rows)
}

// FlameGraph renders the report's folded stacks.
func (r *Report) FlameGraph() string {
	return FlameString(r.Flame)
}
