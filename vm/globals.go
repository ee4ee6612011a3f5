package vm

// GlobalResolver resolves names that are neither local nor module-level.
type GlobalResolver interface {
	Lookup(name string) (Value, bool)
}

// Globals is a frozen table of builtins shared by every module that
// evaluates against it.
type Globals struct {
	heap   *FrozenHeap
	values map[string]Value
}

// NewGlobals creates an empty table.
func NewGlobals() *Globals {
	return &Globals{heap: NewFrozenHeap(), values: make(map[string]Value)}
}

// Lookup implements GlobalResolver.
func (g *Globals) Lookup(name string) (Value, bool) {
	v, ok := g.values[name]
	return v, ok
}

// FrozenHeap returns the heap backing the globals.
func (g *Globals) FrozenHeap() *FrozenHeap {
	return g.heap
}

// SetNative registers a native function under name.
func (g *Globals) SetNative(name string, fn func(e *Evaluator, args []Value) (Value, error)) {
	g.values[name] = g.heap.Alloc(&NativeFunction{name: name, fn: fn})
}

// Set registers a frozen or inline value under name. Mutable heap values
// are rejected.
func (g *Globals) Set(name string, v Value) bool {
	if !v.IsFrozen() {
		return false
	}
	g.values[name] = v
	return true
}

// Len returns the number of registered globals.
func (g *Globals) Len() int {
	return len(g.values)
}
