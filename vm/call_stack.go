package vm

// DefaultMaxCallDepth bounds the number of nested calls before a
// StackOverflowError is raised.
const DefaultMaxCallDepth = 3000

// ---------------------------------------------------------------------------
// CallStack: the language-level stack of active calls
// ---------------------------------------------------------------------------

type callFrame struct {
	function Value
	span     Span
	codemap  *CodeMap // nil when the call had no source location
}

func (f *callFrame) location() (FileSpan, bool) {
	if f.codemap == nil {
		return FileSpan{}, false
	}
	return f.codemap.FileSpan(f.span), true
}

// CallStack is the ordered stack of active calls. It is used to build
// tracebacks, to attribute profiles and as a GC root.
type CallStack struct {
	frames   []callFrame
	maxDepth int
}

// Push opens a frame for a call of function at span. codemap may be nil
// for calls without a source location.
func (s *CallStack) Push(function Value, span Span, codemap *CodeMap) error {
	limit := s.maxDepth
	if limit <= 0 {
		limit = DefaultMaxCallDepth
	}
	if len(s.frames) >= limit {
		return &StackOverflowError{Depth: limit}
	}
	s.frames = append(s.frames, callFrame{function: function, span: span, codemap: codemap})
	return nil
}

// Pop closes the innermost frame.
func (s *CallStack) Pop() {
	top := len(s.frames) - 1
	s.frames[top] = callFrame{}
	s.frames = s.frames[:top]
}

// Len returns the number of active frames.
func (s *CallStack) Len() int {
	return len(s.frames)
}

// TopLocation returns the call site of the innermost frame that has one.
// Frames entered from native code have no location.
func (s *CallStack) TopLocation() (FileSpan, bool) {
	if len(s.frames) == 0 {
		return FileSpan{}, false
	}
	return s.frames[len(s.frames)-1].location()
}

// ToFrames exports the stack for diagnostics, innermost frame first.
// nameOf supplies the identity of each called value.
func (s *CallStack) ToFrames(nameOf func(Value) string) []Frame {
	out := make([]Frame, 0, len(s.frames))
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := &s.frames[i]
		fr := Frame{Name: nameOf(f.function)}
		if loc, ok := f.location(); ok {
			fr.Location = &loc
		}
		out = append(out, fr)
	}
	return out
}

// Trace presents every called value to the collector.
func (s *CallStack) Trace(t *Tracer) {
	for i := range s.frames {
		t.Trace(&s.frames[i].function)
	}
}
