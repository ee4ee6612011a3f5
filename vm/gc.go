package vm

import "time"

// GCThreshold is the number of bytes allocated between collections.
const GCThreshold int64 = 100000

// ---------------------------------------------------------------------------
// Copying collection over a Heap
// ---------------------------------------------------------------------------

// GCStats holds statistics from a single collection.
type GCStats struct {
	CellsBefore int
	CellsAfter  int
	BytesBefore int64
	LiveBytes   int64
	Duration    time.Duration
	Timestamp   time.Time
}

// Freed returns the number of bytes reclaimed.
func (s *GCStats) Freed() int64 {
	return s.BytesBefore - s.LiveBytes
}

// Tracer is handed to every root provider during a collection. Each call to
// Trace relocates one handle into the new arena and rewrites it in place.
type Tracer struct {
	from    []cell
	to      []cell
	forward []int // from index -> to index + 1; 0 means not yet moved
	live    int64
}

// Trace relocates v if it refers into the heap being collected. Inline and
// frozen values are left alone.
func (t *Tracer) Trace(v *Value) {
	if v.tag != tagHeap {
		return
	}
	v.n = int64(t.move(v.index()))
}

func (t *Tracer) move(i int) int {
	if f := t.forward[i]; f != 0 {
		return f - 1
	}
	c := t.from[i]
	t.to = append(t.to, c)
	t.live += c.size
	n := len(t.to) - 1
	t.forward[i] = n + 1
	return n
}

// Collect runs a copying collection. roots must present every live handle
// to the tracer; handles it misses are left dangling. Payloads reachable
// from the roots are scanned breadth-first.
func (h *Heap) Collect(roots func(*Tracer)) *GCStats {
	start := time.Now()
	stats := &GCStats{
		Timestamp:   start,
		CellsBefore: len(h.cells),
		BytesBefore: h.allocated,
	}

	t := &Tracer{
		from:    h.cells,
		to:      make([]cell, 0, len(h.cells)/2),
		forward: make([]int, len(h.cells)),
	}
	roots(t)
	for scan := 0; scan < len(t.to); scan++ {
		if tr, ok := t.to[scan].payload.(Traceable); ok {
			tr.Trace(t)
		}
	}

	h.cells = t.to
	h.allocated = t.live

	stats.CellsAfter = len(h.cells)
	stats.LiveBytes = t.live
	stats.Duration = time.Since(start)

	h.collections++
	h.lastStats = stats
	return stats
}

// CollectionCount returns the number of collections performed.
func (h *Heap) CollectionCount() uint64 {
	return h.collections
}

// LastStats returns statistics from the most recent collection, or nil if
// none has run.
func (h *Heap) LastStats() *GCStats {
	return h.lastStats
}
