package vm

import "strconv"

// Value is a handle to a runtime value.
//
// None, booleans and integers are carried inline. Everything else lives
// behind a handle: either an index into the arena of one mutable Heap, or a
// pointer to a FrozenValue, which never moves and is never collected.
//
// The zero Value is unset. It is what an unassigned slot holds and is never
// produced by evaluation.
type Value struct {
	tag    valueTag
	n      int64 // int payload, bool as 0/1, or arena index
	frozen *FrozenValue
}

type valueTag uint8

const (
	tagUnset valueTag = iota
	tagNone
	tagBool
	tagInt
	tagHeap
	tagFrozen
)

// Pre-defined inline values
var (
	None  = Value{tag: tagNone}
	True  = Value{tag: tagBool, n: 1}
	False = Value{tag: tagBool, n: 0}
)

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// IsUnset returns true for the zero Value.
func (v Value) IsUnset() bool { return v.tag == tagUnset }

// IsNone returns true if v is None.
func (v Value) IsNone() bool { return v.tag == tagNone }

// IsBool returns true if v is True or False.
func (v Value) IsBool() bool { return v.tag == tagBool }

// IsInt returns true if v is an inline integer.
func (v Value) IsInt() bool { return v.tag == tagInt }

// IsHeap returns true if v refers into a mutable Heap arena.
func (v Value) IsHeap() bool { return v.tag == tagHeap }

// IsFrozen returns true if v can be shared across executions: inline
// values and values resolved through a FrozenHeap.
func (v Value) IsFrozen() bool { return v.tag != tagHeap && v.tag != tagUnset }

// ---------------------------------------------------------------------------
// Inline values
// ---------------------------------------------------------------------------

// FromInt creates an integer Value.
func FromInt(n int64) Value { return Value{tag: tagInt, n: n} }

// FromBool creates a boolean Value.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Int returns v as an int64. Panics if v is not an integer.
func (v Value) Int() int64 {
	if v.tag != tagInt {
		panic("Value.Int: not an integer")
	}
	return v.n
}

// Bool returns v as a bool. Panics if v is not a boolean.
func (v Value) Bool() bool {
	if v.tag != tagBool {
		panic("Value.Bool: not a boolean")
	}
	return v.n != 0
}

// Frozen returns the frozen cell behind v, or nil.
func (v Value) Frozen() *FrozenValue {
	if v.tag != tagFrozen {
		return nil
	}
	return v.frozen
}

func (v Value) index() int { return int(v.n) }

// ---------------------------------------------------------------------------
// Payloads
// ---------------------------------------------------------------------------

// Payload is the data stored behind a heap or frozen handle.
type Payload interface {
	TypeName() string
	String() string
	// HeapSize is the number of bytes charged to the heap's
	// allocation counter.
	HeapSize() int64
}

// Traceable is implemented by payloads that hold other values. The
// collector rewrites every child handle in place.
type Traceable interface {
	Trace(t *Tracer)
}

// Freezable is implemented by payloads that need more than a shallow copy
// to move into a frozen heap.
type Freezable interface {
	Freeze(f *Freezer) (Payload, error)
}

// Named payloads report the identity used in call stacks and profiles.
type Named interface {
	Name() string
}

// String is an immutable string payload.
type String string

func (s String) TypeName() string { return "string" }
func (s String) String() string   { return strconv.Quote(string(s)) }
func (s String) HeapSize() int64  { return CostString(len(s)) }

// List is a mutable sequence payload.
type List struct {
	Items []Value
}

func (l *List) TypeName() string { return "list" }
func (l *List) String() string   { return "list(len=" + strconv.Itoa(len(l.Items)) + ")" }
func (l *List) HeapSize() int64  { return CostList(len(l.Items)) }

func (l *List) Trace(t *Tracer) {
	for i := range l.Items {
		t.Trace(&l.Items[i])
	}
}

func (l *List) Freeze(f *Freezer) (Payload, error) {
	items := make([]Value, len(l.Items))
	for i, v := range l.Items {
		fv, err := f.Freeze(v)
		if err != nil {
			return nil, err
		}
		items[i] = fv
	}
	return &FrozenList{items: items}, nil
}

// FrozenList is the read-only form a List takes in a frozen heap. It may be
// read by many Evaluators at once, so its items are not exposed for writing.
type FrozenList struct {
	items []Value
}

func (l *FrozenList) TypeName() string { return "list" }
func (l *FrozenList) String() string   { return "list(len=" + strconv.Itoa(len(l.items)) + ")" }
func (l *FrozenList) HeapSize() int64  { return CostList(len(l.items)) }

// Len returns the number of items.
func (l *FrozenList) Len() int { return len(l.items) }

// Index returns item i.
func (l *FrozenList) Index(i int) Value { return l.items[i] }

// Items returns a copy of the items.
func (l *FrozenList) Items() []Value {
	return append([]Value(nil), l.items...)
}
