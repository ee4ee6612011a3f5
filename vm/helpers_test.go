package vm

import "time"

// fakeClock advances only when told to.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestEvaluator returns an Evaluator over a fresh module with an empty
// globals table.
func newTestEvaluator() *Evaluator {
	return NewEvaluator(NewModule(), NewGlobals())
}

// defValue allocates a user function in e's heap.
func defValue(e *Evaluator, name string, params, locals int, cm *CodeMap, body func(*Evaluator) (Value, error)) Value {
	return e.Heap().Alloc(&Def{
		FuncName:  name,
		Params:    params,
		NumLocals: locals,
		CodeMap:   cm,
		Body:      body,
	})
}

func spanPtr(begin, end uint32) *Span {
	return &Span{Begin: begin, End: end}
}
