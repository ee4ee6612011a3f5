package profile

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Weight selects the number attached to each folded-stack line.
type Weight uint8

const (
	// WeightCalls weights a path by how many times it was entered.
	WeightCalls Weight = iota
	// WeightAllocated weights a path by the bytes it allocated itself.
	WeightAllocated
	// WeightTime weights a path by its exclusive time in microseconds.
	WeightTime
)

var weightNames = [...]string{
	WeightCalls:     "calls",
	WeightAllocated: "allocated",
	WeightTime:      "time",
}

func (w Weight) String() string {
	if int(w) < len(weightNames) {
		return weightNames[w]
	}
	return fmt.Sprintf("Weight(%d)", w)
}

// ParseWeight accepts the names printed by Weight.String. The empty string
// selects WeightCalls.
func ParseWeight(s string) (Weight, error) {
	if s == "" {
		return WeightCalls, nil
	}
	for i, name := range weightNames {
		if name == s {
			return Weight(i), nil
		}
	}
	return 0, fmt.Errorf("profile: unknown flame weight %q", s)
}

// FlameLine is one unique call path with its weight.
type FlameLine struct {
	Stack  []string `cbor:"1,keyasint"`
	Weight int64    `cbor:"2,keyasint"`
}

// String renders the line in folded-stack syntax: "f;g;h 12".
func (l FlameLine) String() string {
	return strings.Join(l.Stack, ";") + " " + fmt.Sprint(l.Weight)
}

// Fold turns the tree into folded-stack lines, one per unique call path.
// Repeated and sibling calls along the same path share a line. Paths whose
// weight is zero are left out. Lines are sorted by their rendered stack.
func Fold(t *Tree, w Weight) []FlameLine {
	var lines []FlameLine
	t.Walk(func(path []string, n *Node) {
		var weight int64
		switch w {
		case WeightAllocated:
			weight = n.ExclusiveAllocated()
		case WeightTime:
			weight = n.ExclusiveTime().Microseconds()
		default:
			weight = int64(n.Calls)
		}
		if weight <= 0 {
			return
		}
		lines = append(lines, FlameLine{
			Stack:  append([]string(nil), path...),
			Weight: weight,
		})
	})
	sort.Slice(lines, func(i, j int) bool {
		return strings.Join(lines[i].Stack, ";") < strings.Join(lines[j].Stack, ";")
	})
	return lines
}

// WriteFlame writes one folded-stack line per path, newline terminated.
func WriteFlame(w io.Writer, lines []FlameLine) error {
	for _, l := range lines {
		if _, err := io.WriteString(w, l.String()+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// FlameString renders lines with WriteFlame.
func FlameString(lines []FlameLine) string {
	var sb strings.Builder
	_ = WriteFlame(&sb, lines)
	return sb.String()
}
