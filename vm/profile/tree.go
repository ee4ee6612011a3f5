package profile

import (
	"sort"
	"time"
)

// Node is one distinct call path in the aggregated tree. Time and
// Allocated are inclusive of every call made beneath this path.
type Node struct {
	Name      string
	Calls     int
	Time      time.Duration
	Allocated int64

	parent   *Node
	children map[string]*Node
}

func newNode(name string, parent *Node) *Node {
	return &Node{Name: name, parent: parent}
}

func (n *Node) child(name string) *Node {
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	c, ok := n.children[name]
	if !ok {
		c = newNode(name, n)
		n.children[name] = c
	}
	return c
}

// Children returns the child paths ordered by name.
func (n *Node) Children() []*Node {
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ExclusiveTime is the time spent in this path minus the time of its callees.
func (n *Node) ExclusiveTime() time.Duration {
	t := n.Time
	for _, c := range n.children {
		t -= c.Time
	}
	return t
}

// ExclusiveAllocated is the bytes allocated in this path minus its callees.
func (n *Node) ExclusiveAllocated() int64 {
	b := n.Allocated
	for _, c := range n.children {
		b -= c.Allocated
	}
	return b
}

// Tree is a call tree keyed by full call path. The root stands for the
// top-level code that was running when profiling started.
type Tree struct {
	Root *Node
}

// Aggregate replays a linear event record into a call tree. end marks the
// moment the record was closed; calls still open at that point are closed
// there. Exits without a matching enter are ignored.
func Aggregate(events []Event, end Event) *Tree {
	type open struct {
		node      *Node
		at        time.Duration
		allocated int64
	}

	root := newNode("", nil)
	stack := []open{{node: root}}

	closeTop := func(at time.Duration, allocated int64) {
		o := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		o.node.Time += at - o.at
		o.node.Allocated += allocated - o.allocated
	}

	for _, ev := range events {
		switch ev.Kind {
		case CallEnter:
			c := stack[len(stack)-1].node.child(ev.Function)
			c.Calls++
			stack = append(stack, open{node: c, at: ev.At, allocated: ev.Allocated})
		case CallExit:
			if len(stack) == 1 {
				continue
			}
			closeTop(ev.At, ev.Allocated)
		}
	}
	for len(stack) > 1 {
		closeTop(end.At, end.Allocated)
	}

	root.Calls = 1
	root.Time = end.At
	root.Allocated = end.Allocated
	return &Tree{Root: root}
}

// Walk visits every non-root path depth-first, children in name order.
// The path slice is reused between calls.
func (t *Tree) Walk(fn func(path []string, n *Node)) {
	var path []string
	var visit func(n *Node)
	visit = func(n *Node) {
		for _, c := range n.Children() {
			path = append(path, c.Name)
			fn(path, c)
			visit(c)
			path = path[:len(path)-1]
		}
	}
	visit(t.Root)
}
