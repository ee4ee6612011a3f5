package vm

import (
	"fmt"
	"sort"
)

// Span is a half-open byte range in one source file.
type Span struct {
	Begin uint32
	End   uint32
}

// Pos is a 1-based line and column.
type Pos struct {
	Line   int
	Column int
}

// FileSpan is a Span resolved to file, line and column.
type FileSpan struct {
	File  string
	Begin Pos
	End   Pos
}

// String renders the span as "file:line:col-line:col".
func (f FileSpan) String() string {
	return fmt.Sprintf("%s:%s", f.File, f.Range())
}

// Range renders the span without its file name.
func (f FileSpan) Range() string {
	return fmt.Sprintf("%d:%d-%d:%d", f.Begin.Line, f.Begin.Column, f.End.Line, f.End.Column)
}

// CodeMap resolves spans of one source file. It is supplied by the parser
// and treated as opaque by the Evaluator.
type CodeMap struct {
	filename   string
	source     string
	lineStarts []int
}

// NewCodeMap indexes source for span resolution.
func NewCodeMap(filename, source string) *CodeMap {
	starts := []int{0}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &CodeMap{filename: filename, source: source, lineStarts: starts}
}

// Filename returns the file this codemap describes.
func (c *CodeMap) Filename() string {
	return c.filename
}

// Source returns the indexed source text.
func (c *CodeMap) Source() string {
	return c.source
}

// FileSpan resolves span. Offsets past the end clamp to the end.
func (c *CodeMap) FileSpan(span Span) FileSpan {
	return FileSpan{File: c.filename, Begin: c.pos(span.Begin), End: c.pos(span.End)}
}

func (c *CodeMap) pos(off uint32) Pos {
	o := int(off)
	if o > len(c.source) {
		o = len(c.source)
	}
	line := sort.Search(len(c.lineStarts), func(i int) bool { return c.lineStarts[i] > o }) - 1
	return Pos{Line: line + 1, Column: o - c.lineStarts[line] + 1}
}

// codemapSlot holds the codemap of the code currently executing. It starts
// unbound and is bound before the first statement runs.
type codemapSlot struct {
	cm *CodeMap
}

func (s codemapSlot) get() (*CodeMap, bool) {
	return s.cm, s.cm != nil
}

func (s *codemapSlot) swap(cm *CodeMap) codemapSlot {
	old := *s
	s.cm = cm
	return old
}
