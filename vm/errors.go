package vm

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

var (
	// ErrProfilingNotEnabled is returned when a call profile is requested
	// from an Evaluator that never had EnableProfile called.
	ErrProfilingNotEnabled = errors.New("can't write a profile unless EnableProfile was called first")

	// ErrStmtProfilingNotEnabled is returned when a statement profile is
	// requested from an Evaluator that never had EnableStmtProfile called.
	ErrStmtProfilingNotEnabled = errors.New("can't write a statement profile unless EnableStmtProfile was called first")

	// ErrNoLoaderConfigured is returned by LoadModule when SetLoader was
	// never called.
	ErrNoLoaderConfigured = errors.New("no loader configured for load()")

	// ErrNoCodeMap is returned when a function context is entered without
	// a codemap to resolve its spans.
	ErrNoCodeMap = errors.New("function context entered without a codemap")

	// ErrWrongArgCount is wrapped when a function receives the wrong
	// number of arguments.
	ErrWrongArgCount = errors.New("wrong number of arguments")
)

// UnboundVariableError reports a read of a slot before its first assignment.
type UnboundVariableError struct {
	Name string
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("variable `%s` referenced before assignment", e.Name)
}

// UndefinedGlobalError reports a name the global resolver does not know.
type UndefinedGlobalError struct {
	Name string
}

func (e *UndefinedGlobalError) Error() string {
	return fmt.Sprintf("variable `%s` not found", e.Name)
}

// StackOverflowError reports that the call stack reached its depth limit.
type StackOverflowError struct {
	Depth int
}

func (e *StackOverflowError) Error() string {
	return fmt.Sprintf("call stack overflow (depth %d)", e.Depth)
}

// NotCallableError reports a call of a value that is not a function.
type NotCallableError struct {
	Type string
}

func (e *NotCallableError) Error() string {
	return fmt.Sprintf("value of type `%s` is not callable", e.Type)
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

// Frame is one entry of an exported call stack.
type Frame struct {
	Name     string
	Location *FileSpan // nil for calls without a source location
}

func (f Frame) String() string {
	if f.Location == nil {
		return f.Name
	}
	return fmt.Sprintf("%s (%s)", f.Name, f.Location)
}

// Diagnostic wraps an evaluation failure with the call stack that was
// active where it first crossed a call boundary.
type Diagnostic struct {
	Err       error
	CallStack []Frame // innermost first
}

func (d *Diagnostic) Error() string {
	return d.Err.Error()
}

func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// Traceback renders the call stack outermost first, followed by the error.
func (d *Diagnostic) Traceback() string {
	var sb strings.Builder
	sb.WriteString("Traceback (most recent call last):\n")
	for i := len(d.CallStack) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "  * %s\n", d.CallStack[i])
	}
	sb.WriteString("error: ")
	sb.WriteString(d.Err.Error())
	return sb.String()
}

// attachCallStack records frames on err unless a call stack is already
// attached further down the chain. frames is only invoked when needed.
func attachCallStack(err error, frames func() []Frame) error {
	var d *Diagnostic
	if errors.As(err, &d) {
		if d.CallStack == nil {
			d.CallStack = frames()
		}
		return err
	}
	return &Diagnostic{Err: err, CallStack: frames()}
}

// CallStackOf returns the call stack attached to err, if any.
func CallStackOf(err error) []Frame {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d.CallStack
	}
	return nil
}
