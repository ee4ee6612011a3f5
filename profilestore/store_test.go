package profilestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/kestrel/vm/profile"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "profiles.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testReport(runID string, created int64) *profile.Report {
	return &profile.Report{
		RunID:     runID,
		Mode:      "heap-summary",
		CreatedAt: created,
		Time:      10 * time.Millisecond,
		Allocated: 25,
		Rows: []profile.Row{
			{Function: "f", Calls: 1, Time: 5 * time.Millisecond, TimeInclusive: 10 * time.Millisecond, Allocated: 5, AllocatedInclusive: 25},
			{Function: "g", Calls: 2, Time: 5 * time.Millisecond, TimeInclusive: 5 * time.Millisecond, Allocated: 20, AllocatedInclusive: 20},
		},
		Flame: []profile.FlameLine{
			{Stack: []string{"f"}, Weight: 1},
			{Stack: []string{"f", "g"}, Weight: 2},
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	want := testReport("run-1", 1700000000)
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Summary() != want.Summary() {
		t.Errorf("summary =\n%s\nwant\n%s", got.Summary(), want.Summary())
	}
	if got.FlameGraph() != "f 1\nf;g 2\n" {
		t.Errorf("flame = %q", got.FlameGraph())
	}
}

func TestLoadMissingRun(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Load(context.Background(), "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSaveReplacesRun(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	r := testReport("run-1", 1700000000)
	if err := s.Save(ctx, r); err != nil {
		t.Fatal(err)
	}
	r.Rows = r.Rows[:1]
	if err := s.Save(ctx, r); err != nil {
		t.Fatal(err)
	}

	hist, err := s.FunctionHistory(ctx, "g")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 0 {
		t.Errorf("stale rows survived a re-save: %v", hist)
	}
	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("got %d runs, want 1", len(runs))
	}
}

func TestRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	for i, id := range []string{"old", "new", "mid"} {
		created := []int64{100, 300, 200}[i]
		if err := s.Save(ctx, testReport(id, created)); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	if len(ids) != 3 || ids[0] != "new" || ids[1] != "mid" || ids[2] != "old" {
		t.Errorf("run order = %v", ids)
	}
	if runs[0].Time != 10*time.Millisecond || runs[0].Allocated != 25 {
		t.Errorf("run = %+v", runs[0])
	}
	if !runs[0].CreatedAt.Equal(time.Unix(300, 0)) {
		t.Errorf("created = %s", runs[0].CreatedAt)
	}
}

func TestFunctionHistory(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	a := testReport("a", 1)
	b := testReport("b", 2)
	b.Rows[1].Calls = 7
	for _, r := range []*profile.Report{a, b} {
		if err := s.Save(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	hist, err := s.FunctionHistory(ctx, "g")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 {
		t.Fatalf("history = %v", hist)
	}
	if hist["a"].Calls != 2 || hist["b"].Calls != 7 {
		t.Errorf("calls = %d, %d", hist["a"].Calls, hist["b"].Calls)
	}
	if hist["a"].TimeInclusive != 5*time.Millisecond {
		t.Errorf("time inclusive = %s", hist["a"].TimeInclusive)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.Save(ctx, testReport("run-1", 1)); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "run-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, "run-1"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("run survived delete: %v", err)
	}
	hist, _ := s.FunctionHistory(ctx, "f")
	if len(hist) != 0 {
		t.Error("rows survived delete")
	}
	if err := s.Delete(ctx, "run-1"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second delete = %v, want ErrRunNotFound", err)
	}
}

func TestSaveRejectsEmptyRunID(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save(context.Background(), &profile.Report{}); err == nil {
		t.Error("expected error for empty run id")
	}
}
