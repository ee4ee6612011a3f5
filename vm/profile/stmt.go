package profile

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"
)

// StmtRow is the accumulated cost of one statement span.
type StmtRow struct {
	File     string
	Span     string
	Duration time.Duration
	Count    int
}

// StmtHeader is the first line of the statement profile CSV.
var StmtHeader = []string{"File", "Span", "Duration(s)", "Count"}

// WriteStmt writes the statement profile: StmtHeader, a TOTAL row, then
// one record per row in the order given.
func WriteStmt(w io.Writer, total StmtRow, rows []StmtRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(StmtHeader); err != nil {
		return err
	}
	total.File = "TOTAL"
	total.Span = ""
	for _, r := range append([]StmtRow{total}, rows...) {
		rec := []string{r.File, r.Span, seconds(r.Duration), strconv.Itoa(r.Count)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// StmtString renders a statement profile with WriteStmt.
func StmtString(total StmtRow, rows []StmtRow) string {
	var sb strings.Builder
	_ = WriteStmt(&sb, total, rows)
	return sb.String()
}
