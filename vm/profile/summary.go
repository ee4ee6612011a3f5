package profile

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Row is the per-function line of a summary. A function that recurses is
// counted once in the inclusive columns for each outermost activation.
type Row struct {
	Function           string        `cbor:"1,keyasint"`
	Calls              int           `cbor:"2,keyasint"`
	Time               time.Duration `cbor:"3,keyasint"`
	TimeInclusive      time.Duration `cbor:"4,keyasint"`
	Allocated          int64         `cbor:"5,keyasint"`
	AllocatedInclusive int64         `cbor:"6,keyasint"`
}

// SummaryHeader is the first line of the summary CSV.
var SummaryHeader = []string{
	"Function",
	"Calls",
	"Time (s)",
	"Time inclusive (s)",
	"Allocated bytes",
	"Allocated bytes inclusive",
}

// Summarize folds every path of the tree into one row per function name.
// Rows are ordered by exclusive time, most expensive first, then by name.
func Summarize(t *Tree) []Row {
	byName := make(map[string]*Row)
	t.Walk(func(path []string, n *Node) {
		r, ok := byName[n.Name]
		if !ok {
			r = &Row{Function: n.Name}
			byName[n.Name] = r
		}
		r.Calls += n.Calls
		r.Time += n.ExclusiveTime()
		r.Allocated += n.ExclusiveAllocated()
		for _, ancestor := range path[:len(path)-1] {
			if ancestor == n.Name {
				return
			}
		}
		r.TimeInclusive += n.Time
		r.AllocatedInclusive += n.Allocated
	})

	rows := make([]Row, 0, len(byName))
	for _, r := range byName {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Time != rows[j].Time {
			return rows[i].Time > rows[j].Time
		}
		return rows[i].Function < rows[j].Function
	})
	return rows
}

// WriteSummary writes rows as CSV: SummaryHeader, then one record per row.
// Times are seconds with microsecond precision.
func WriteSummary(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Function,
			strconv.Itoa(r.Calls),
			seconds(r.Time),
			seconds(r.TimeInclusive),
			strconv.FormatInt(r.Allocated, 10),
			strconv.FormatInt(r.AllocatedInclusive, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SummaryString renders rows with WriteSummary.
func SummaryString(rows []Row) string {
	var sb strings.Builder
	// strings.Builder never fails
	_ = WriteSummary(&sb, rows)
	return sb.String()
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.6f", d.Seconds())
}
