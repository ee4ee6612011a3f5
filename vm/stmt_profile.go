package vm

import (
	"sort"
	"time"

	"github.com/chazu/kestrel/vm/profile"
)

// ---------------------------------------------------------------------------
// Statement profiler
// ---------------------------------------------------------------------------

type stmtKey struct {
	codemap *CodeMap
	span    Span
}

type stmtStat struct {
	count   int
	elapsed time.Duration
}

// stmtProfile times every statement. The time between two statements is
// charged to the earlier one, so the last statement stays open until the
// profile is rendered.
type stmtProfile struct {
	enabled bool
	codemap *CodeMap
	clock   func() time.Time
	start   time.Time

	hasLast bool
	last    stmtKey
	lastAt  time.Time
	stats   map[stmtKey]*stmtStat
}

func newStmtProfile() stmtProfile {
	return stmtProfile{clock: time.Now}
}

func (p *stmtProfile) enable() {
	if p.enabled {
		return
	}
	p.enabled = true
	p.start = p.clock()
	p.stats = make(map[stmtKey]*stmtStat)
}

func (p *stmtProfile) setCodeMap(cm *CodeMap) {
	p.codemap = cm
}

func (p *stmtProfile) beforeStmt(span Span) {
	now := p.clock()
	if p.hasLast {
		p.stats[p.last].elapsed += now.Sub(p.lastAt)
	}
	key := stmtKey{codemap: p.codemap, span: span}
	st, ok := p.stats[key]
	if !ok {
		st = &stmtStat{}
		p.stats[key] = st
	}
	st.count++
	p.hasLast = true
	p.last = key
	p.lastAt = now
}

// rows renders the profile as of now without closing the open statement.
// Rows are sorted by file, then by span start.
func (p *stmtProfile) rows() (profile.StmtRow, []profile.StmtRow, bool) {
	if !p.enabled {
		return profile.StmtRow{}, nil, false
	}
	now := p.clock()

	type keyed struct {
		key stmtKey
		row profile.StmtRow
	}
	all := make([]keyed, 0, len(p.stats))
	total := profile.StmtRow{Duration: now.Sub(p.start)}
	for k, st := range p.stats {
		elapsed := st.elapsed
		if p.hasLast && k == p.last {
			elapsed += now.Sub(p.lastAt)
		}
		row := profile.StmtRow{File: "<unbound>", Span: "", Duration: elapsed, Count: st.count}
		if k.codemap != nil {
			fs := k.codemap.FileSpan(k.span)
			row.File = fs.File
			row.Span = fs.Range()
		}
		total.Count += st.count
		all = append(all, keyed{key: k, row: row})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].row.File != all[j].row.File {
			return all[i].row.File < all[j].row.File
		}
		if all[i].key.span.Begin != all[j].key.span.Begin {
			return all[i].key.span.Begin < all[j].key.span.Begin
		}
		return all[i].key.span.End < all[j].key.span.End
	})

	rows := make([]profile.StmtRow, len(all))
	for i, k := range all {
		rows[i] = k.row
	}
	return total, rows, true
}
