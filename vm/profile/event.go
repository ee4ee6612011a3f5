// Package profile aggregates call-boundary markers recorded by the
// evaluator into a call tree and renders it as a per-function summary, as
// folded stacks for flame graphs, and as a CBOR snapshot.
package profile

import "time"

// EventKind distinguishes call-enter markers from call-exit markers.
type EventKind uint8

const (
	CallEnter EventKind = 1
	CallExit  EventKind = 2
)

// Event is one marker in the linear call record. At and Allocated are
// measured from the moment profiling was enabled, so allocations made
// before that point never show up in a profile.
type Event struct {
	Kind      EventKind
	Function  string // empty for exits
	At        time.Duration
	Allocated int64
}

// Enter returns a call-enter marker.
func Enter(function string, at time.Duration, allocated int64) Event {
	return Event{Kind: CallEnter, Function: function, At: at, Allocated: allocated}
}

// Exit returns a call-exit marker.
func Exit(at time.Duration, allocated int64) Event {
	return Event{Kind: CallExit, At: at, Allocated: allocated}
}
