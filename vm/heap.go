package vm

import (
	"strconv"
	"time"

	"github.com/chazu/kestrel/vm/profile"
)

// ---------------------------------------------------------------------------
// Heap: the mutable, collected arena of one execution
// ---------------------------------------------------------------------------

type cell struct {
	payload Payload
	size    int64
}

// Heap is an append-only arena holding every mutable value produced during
// one execution. Handles index into the arena; a collection relocates the
// live cells and rewrites every root handle.
//
// A Heap belongs to exactly one Evaluator at a time and is not safe for
// concurrent use.
type Heap struct {
	cells     []cell
	allocated int64

	// Collection statistics
	collections uint64
	lastStats   *GCStats

	// Call profile record, in allocation order
	profiling    bool
	events       []profile.Event
	profileStart time.Time
	profileBase  int64
	clock        func() time.Time
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{clock: time.Now}
}

// Alloc stores p in the arena and returns its handle. A payload must be
// allocated at most once.
func (h *Heap) Alloc(p Payload) Value {
	size := p.HeapSize()
	h.cells = append(h.cells, cell{payload: p, size: size})
	h.allocated += size
	return Value{tag: tagHeap, n: int64(len(h.cells) - 1)}
}

// AllocString allocates a string payload.
func (h *Heap) AllocString(s string) Value {
	return h.Alloc(String(s))
}

// AllocList allocates a list holding items.
func (h *Heap) AllocList(items ...Value) Value {
	return h.Alloc(&List{Items: append([]Value(nil), items...)})
}

// Allocated returns the bytes charged since the last collection, plus the
// live bytes that survived it.
func (h *Heap) Allocated() int64 {
	return h.allocated
}

// Len returns the number of cells in the arena.
func (h *Heap) Len() int {
	return len(h.cells)
}

// Payload resolves a handle to its payload. Inline and unset values have
// no payload and return nil.
func (h *Heap) Payload(v Value) Payload {
	switch v.tag {
	case tagHeap:
		return h.cells[v.index()].payload
	case tagFrozen:
		return v.frozen.payload
	}
	return nil
}

// TypeName returns the type name of v.
func (h *Heap) TypeName(v Value) string {
	switch v.tag {
	case tagUnset:
		return "unassigned"
	case tagNone:
		return "NoneType"
	case tagBool:
		return "bool"
	case tagInt:
		return "int"
	}
	return h.Payload(v).TypeName()
}

// Describe renders v for diagnostics.
func (h *Heap) Describe(v Value) string {
	switch v.tag {
	case tagUnset:
		return "<unassigned>"
	case tagNone:
		return "None"
	case tagBool:
		if v.Bool() {
			return "True"
		}
		return "False"
	case tagInt:
		return strconv.FormatInt(v.n, 10)
	}
	return h.Payload(v).String()
}

// NameOf returns the identity used for v in call stacks and profiles:
// the name of a named payload, otherwise its type name.
func (h *Heap) NameOf(v Value) string {
	if n, ok := h.Payload(v).(Named); ok {
		return n.Name()
	}
	return h.TypeName(v)
}

// ---------------------------------------------------------------------------
// Call profile record
// ---------------------------------------------------------------------------

// startProfile begins a fresh call record, discarding markers left by an
// earlier profiling run over the same heap.
func (h *Heap) startProfile() {
	h.profiling = true
	h.events = nil
	h.profileStart = h.clock()
	h.profileBase = h.allocated
}

func (h *Heap) profileMark() (time.Duration, int64) {
	return h.clock().Sub(h.profileStart), h.allocated - h.profileBase
}

// RecordCallEnter appends a call-enter marker for the named function.
func (h *Heap) RecordCallEnter(function string) {
	at, allocated := h.profileMark()
	h.events = append(h.events, profile.Enter(function, at, allocated))
}

// RecordCallExit appends a call-exit marker.
func (h *Heap) RecordCallExit() {
	at, allocated := h.profileMark()
	h.events = append(h.events, profile.Exit(at, allocated))
}

// ProfileEvents returns the recorded markers and a closing marker taken
// now. Both are empty when the heap is not recording.
func (h *Heap) ProfileEvents() ([]profile.Event, profile.Event) {
	if !h.profiling {
		return nil, profile.Event{}
	}
	at, allocated := h.profileMark()
	return h.events, profile.Exit(at, allocated)
}
