package vm

import "fmt"

// ModuleSlotID is the dense index of a module-level variable, assigned when
// the program is prepared.
type ModuleSlotID int

// ---------------------------------------------------------------------------
// Module names and slots
// ---------------------------------------------------------------------------

// ModuleNames maps variable names to slot ids. Names are kept for
// diagnostics and for name-based host access; evaluation never looks up
// by name.
type ModuleNames struct {
	ids   map[string]ModuleSlotID
	names []string
}

func newModuleNames() *ModuleNames {
	return &ModuleNames{ids: make(map[string]ModuleSlotID)}
}

// Add returns the slot for name, allocating the next id if it is new.
func (n *ModuleNames) Add(name string) ModuleSlotID {
	if id, ok := n.ids[name]; ok {
		return id
	}
	id := ModuleSlotID(len(n.names))
	n.ids[name] = id
	n.names = append(n.names, name)
	return id
}

// Lookup returns the slot for name.
func (n *ModuleNames) Lookup(name string) (ModuleSlotID, bool) {
	id, ok := n.ids[name]
	return id, ok
}

// SlotName returns the name bound to id.
func (n *ModuleNames) SlotName(id ModuleSlotID) (string, bool) {
	if id < 0 || int(id) >= len(n.names) {
		return "", false
	}
	return n.names[id], true
}

// Len returns the number of names.
func (n *ModuleNames) Len() int {
	return len(n.names)
}

// ModuleSlots holds the current value of every module-level variable.
// An unassigned slot holds the unset Value.
type ModuleSlots struct {
	values []Value
}

// Get returns the value in slot id, or false if it was never assigned.
func (s *ModuleSlots) Get(id ModuleSlotID) (Value, bool) {
	if id < 0 || int(id) >= len(s.values) {
		return Value{}, false
	}
	v := s.values[id]
	return v, !v.IsUnset()
}

// Set stores v in slot id, growing the table when the program added names
// after the table was sized.
func (s *ModuleSlots) Set(id ModuleSlotID, v Value) {
	s.Reserve(int(id) + 1)
	s.values[id] = v
}

// Reserve makes room for n slots.
func (s *ModuleSlots) Reserve(n int) {
	if n <= len(s.values) {
		return
	}
	grown := make([]Value, n)
	copy(grown, s.values)
	s.values = grown
}

// Trace presents every slot to the collector.
func (s *ModuleSlots) Trace(t *Tracer) {
	for i := range s.values {
		t.Trace(&s.values[i])
	}
}

// ---------------------------------------------------------------------------
// Module
// ---------------------------------------------------------------------------

// Module owns the heaps and the module-level variables of one program. It
// must outlive every Evaluator bound to it.
type Module struct {
	heap       *Heap
	frozenHeap *FrozenHeap
	names      *ModuleNames
	slots      *ModuleSlots
}

// NewModule creates an empty module.
func NewModule() *Module {
	return &Module{
		heap:       NewHeap(),
		frozenHeap: NewFrozenHeap(),
		names:      newModuleNames(),
		slots:      &ModuleSlots{},
	}
}

// Heap returns the module's collected heap.
func (m *Module) Heap() *Heap { return m.heap }

// FrozenHeap returns the module's frozen heap.
func (m *Module) FrozenHeap() *FrozenHeap { return m.frozenHeap }

// Names returns the name table.
func (m *Module) Names() *ModuleNames { return m.names }

// Slots returns the slot table.
func (m *Module) Slots() *ModuleSlots { return m.slots }

// Set binds name to v, allocating a slot if needed.
func (m *Module) Set(name string, v Value) {
	m.slots.Set(m.names.Add(name), v)
}

// Get returns the value bound to name.
func (m *Module) Get(name string) (Value, bool) {
	id, ok := m.names.Lookup(name)
	if !ok {
		return Value{}, false
	}
	return m.slots.Get(id)
}

// Freeze copies every assigned variable into the module's frozen heap and
// returns a read-only view of the result. Functions defined by this module
// are rebound to the returned FrozenModule so that calling them later
// resolves module variables against it.
func (m *Module) Freeze() (*FrozenModule, error) {
	fm := &FrozenModule{
		names: append([]string(nil), m.names.names...),
		ids:   make(map[string]ModuleSlotID, len(m.names.names)),
		slots: make([]Value, len(m.names.names)),
		heap:  m.frozenHeap,
	}
	for name, id := range m.names.ids {
		fm.ids[name] = id
	}

	fr := newFreezer(m.heap, m.frozenHeap, fm)
	for i, v := range m.slots.values {
		if v.IsUnset() {
			continue
		}
		fv, err := fr.Freeze(v)
		if err != nil {
			name, _ := m.names.SlotName(ModuleSlotID(i))
			return nil, fmt.Errorf("freezing %s: %w", name, err)
		}
		fm.slots[i] = fv
	}
	return fm, nil
}

// ---------------------------------------------------------------------------
// FrozenModule
// ---------------------------------------------------------------------------

// FrozenModule is an immutable view over a finished module's variables.
// Every value it returns is frozen. It is safe for concurrent use by any
// number of Evaluators.
type FrozenModule struct {
	names []string
	ids   map[string]ModuleSlotID
	slots []Value
	heap  *FrozenHeap
}

// GetSlot returns the value in slot id, or false if it was never assigned.
func (m *FrozenModule) GetSlot(id ModuleSlotID) (Value, bool) {
	if id < 0 || int(id) >= len(m.slots) {
		return Value{}, false
	}
	v := m.slots[id]
	return v, !v.IsUnset()
}

// SlotName returns the name bound to id.
func (m *FrozenModule) SlotName(id ModuleSlotID) (string, bool) {
	if id < 0 || int(id) >= len(m.names) {
		return "", false
	}
	return m.names[id], true
}

// Get returns the value bound to name.
func (m *FrozenModule) Get(name string) (Value, bool) {
	id, ok := m.ids[name]
	if !ok {
		return Value{}, false
	}
	return m.GetSlot(id)
}

// Names returns the variable names in slot order.
func (m *FrozenModule) Names() []string {
	return m.names
}

// FrozenHeap returns the heap backing this module's values.
func (m *FrozenModule) FrozenHeap() *FrozenHeap {
	return m.heap
}
