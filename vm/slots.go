package vm

import "fmt"

// LocalSlotID is the dense index of a local variable within its function,
// assigned when the program is prepared.
type LocalSlotID int

// LocalSlots is the stack of local-variable frames. All frames share one
// backing slice; each frame is a window starting at its base pointer.
// Slot ids always resolve against the top frame.
type LocalSlots struct {
	values []Value
	bases  []int
}

// PushFrame opens a frame of n unassigned slots.
func (l *LocalSlots) PushFrame(n int) {
	base := len(l.values)
	l.bases = append(l.bases, base)
	for i := 0; i < n; i++ {
		l.values = append(l.values, Value{})
	}
}

// PopFrame discards the top frame.
func (l *LocalSlots) PopFrame() {
	top := len(l.bases) - 1
	base := l.bases[top]
	clear(l.values[base:])
	l.values = l.values[:base]
	l.bases = l.bases[:top]
}

// Depth returns the number of open frames.
func (l *LocalSlots) Depth() int {
	return len(l.bases)
}

func (l *LocalSlots) base() int {
	return l.bases[len(l.bases)-1]
}

// Get returns slot id of the top frame, or false if it is unassigned, lies
// outside the top frame, or no frame is open.
func (l *LocalSlots) Get(id LocalSlotID) (Value, bool) {
	if len(l.bases) == 0 || id < 0 {
		return Value{}, false
	}
	i := l.base() + int(id)
	if i >= len(l.values) {
		return Value{}, false
	}
	v := l.values[i]
	return v, !v.IsUnset()
}

// Set stores v in slot id of the top frame. An id outside the frame is a
// preparation bug and panics rather than writing into a caller's frame.
func (l *LocalSlots) Set(id LocalSlotID, v Value) {
	i := l.base() + int(id)
	if id < 0 || i >= len(l.values) {
		panic(fmt.Sprintf("LocalSlots.Set: slot %d outside the current frame", id))
	}
	l.values[i] = v
}

// Trace presents every slot of every frame to the collector.
func (l *LocalSlots) Trace(t *Tracer) {
	for i := range l.values {
		t.Trace(&l.values[i])
	}
}
