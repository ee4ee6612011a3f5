package vm

// ---------------------------------------------------------------------------
// FrozenHeap: values that outlive one execution
// ---------------------------------------------------------------------------

// FrozenValue is a cell in a FrozenHeap. Its payload never changes after
// freezing and the cell is never moved or collected.
type FrozenValue struct {
	payload Payload
	heap    *FrozenHeap
}

// Payload returns the frozen payload.
func (f *FrozenValue) Payload() Payload { return f.payload }

// Heap returns the frozen heap owning this cell.
func (f *FrozenValue) Heap() *FrozenHeap { return f.heap }

// FrozenHeap is an append-only arena that is never collected. It may keep
// other frozen heaps alive through AddReference but never refers to a
// mutable Heap.
//
// Allocation is single-threaded and happens while freezing; once frozen
// values are published, a FrozenHeap is read-only and may be shared by
// concurrently running Evaluators.
type FrozenHeap struct {
	cells     []*FrozenValue
	refs      []*FrozenHeap
	allocated int64
}

// NewFrozenHeap creates an empty frozen heap.
func NewFrozenHeap() *FrozenHeap {
	return &FrozenHeap{}
}

// Alloc stores p and returns a frozen handle to it. p must only refer to
// frozen or inline values.
func (h *FrozenHeap) Alloc(p Payload) Value {
	fv := &FrozenValue{payload: p, heap: h}
	h.cells = append(h.cells, fv)
	h.allocated += memFrozenCellHead + p.HeapSize()
	return Value{tag: tagFrozen, frozen: fv}
}

// AllocString allocates a frozen string.
func (h *FrozenHeap) AllocString(s string) Value {
	return h.Alloc(String(s))
}

// AddReference keeps other alive for as long as h is. Adding h itself or a
// heap that is already referenced is a no-op.
func (h *FrozenHeap) AddReference(other *FrozenHeap) {
	if other == nil || other == h {
		return
	}
	for _, r := range h.refs {
		if r == other {
			return
		}
	}
	h.refs = append(h.refs, other)
}

// References returns the frozen heaps kept alive by h.
func (h *FrozenHeap) References() []*FrozenHeap {
	return h.refs
}

// Len returns the number of cells allocated in h.
func (h *FrozenHeap) Len() int {
	return len(h.cells)
}

// Allocated returns the bytes allocated in h.
func (h *FrozenHeap) Allocated() int64 {
	return h.allocated
}

// ---------------------------------------------------------------------------
// Freezer: deep copy from a Heap into a FrozenHeap
// ---------------------------------------------------------------------------

// Freezer copies mutable values into a frozen heap. Each mutable cell is
// frozen once; shared and cyclic references are preserved.
type Freezer struct {
	src    *Heap
	dst    *FrozenHeap
	module *FrozenModule
	memo   map[int]*FrozenValue
}

func newFreezer(src *Heap, dst *FrozenHeap, module *FrozenModule) *Freezer {
	return &Freezer{
		src:    src,
		dst:    dst,
		module: module,
		memo:   make(map[int]*FrozenValue),
	}
}

// Module returns the frozen module being built, if any.
func (f *Freezer) Module() *FrozenModule {
	return f.module
}

// Freeze returns the frozen equivalent of v. Inline and already-frozen
// values are returned unchanged.
func (f *Freezer) Freeze(v Value) (Value, error) {
	if v.tag != tagHeap {
		return v, nil
	}
	idx := v.index()
	if fv, ok := f.memo[idx]; ok {
		return Value{tag: tagFrozen, frozen: fv}, nil
	}

	// Reserve the cell before descending so cycles resolve to it.
	fv := &FrozenValue{heap: f.dst}
	f.memo[idx] = fv

	p := f.src.cells[idx].payload
	if fz, ok := p.(Freezable); ok {
		np, err := fz.Freeze(f)
		if err != nil {
			delete(f.memo, idx)
			return Value{}, err
		}
		p = np
	}
	fv.payload = p
	f.dst.cells = append(f.dst.cells, fv)
	f.dst.allocated += memFrozenCellHead + p.HeapSize()
	return Value{tag: tagFrozen, frozen: fv}, nil
}
