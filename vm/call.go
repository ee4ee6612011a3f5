package vm

import "fmt"

// ---------------------------------------------------------------------------
// Callables
// ---------------------------------------------------------------------------

// Callable is a payload that can be invoked through Evaluator.Call.
type Callable interface {
	Payload
	Invoke(e *Evaluator, args []Value) (Value, error)
}

// Def is a user-defined function. Body stands for the prepared statement
// tree: it runs with the function's local frame on top of the stack and the
// arguments bound to slots 0 through Params-1.
type Def struct {
	FuncName  string
	Params    int
	NumLocals int
	CodeMap   *CodeMap
	// Module is the frozen module the function was defined in, or nil
	// when it belongs to the Evaluator's own module.
	Module *FrozenModule
	Body   func(e *Evaluator) (Value, error)
}

func (d *Def) Name() string     { return d.FuncName }
func (d *Def) TypeName() string { return "function" }
func (d *Def) String() string   { return "<function " + d.FuncName + ">" }
func (d *Def) HeapSize() int64  { return CostDef() }

// Freeze binds a function of the module being frozen to the new frozen
// module.
func (d *Def) Freeze(f *Freezer) (Payload, error) {
	nd := *d
	if nd.Module == nil {
		nd.Module = f.Module()
	}
	return &nd, nil
}

// Invoke runs the body in the function's own module and codemap context.
func (d *Def) Invoke(e *Evaluator, args []Value) (Value, error) {
	if len(args) != d.Params {
		return Value{}, fmt.Errorf("%w: %s() takes %d, got %d", ErrWrongArgCount, d.FuncName, d.Params, len(args))
	}
	return e.EnterFunctionContext(d.Module, d.CodeMap, func(e *Evaluator) (Value, error) {
		n := d.NumLocals
		if n < d.Params {
			n = d.Params
		}
		e.locals.PushFrame(n)
		defer e.locals.PopFrame()
		for i, a := range args {
			e.locals.Set(LocalSlotID(i), a)
		}
		return d.Body(e)
	})
}

// NativeFunction is a builtin implemented in Go. It runs in the caller's
// module and codemap context and has no local frame.
type NativeFunction struct {
	name string
	fn   func(e *Evaluator, args []Value) (Value, error)
}

// NewNativeFunction wraps fn as a callable payload.
func NewNativeFunction(name string, fn func(e *Evaluator, args []Value) (Value, error)) *NativeFunction {
	return &NativeFunction{name: name, fn: fn}
}

func (n *NativeFunction) Name() string     { return n.name }
func (n *NativeFunction) TypeName() string { return "builtin_function_or_method" }
func (n *NativeFunction) String() string   { return "<built-in function " + n.name + ">" }
func (n *NativeFunction) HeapSize() int64  { return CostNative() }

// Invoke calls the Go implementation.
func (n *NativeFunction) Invoke(e *Evaluator, args []Value) (Value, error) {
	return n.fn(e, args)
}

// Call invokes fn with args. span is the call site, or nil when the call
// originates from native code. The call is recorded on the call stack and
// in the call profile.
func (e *Evaluator) Call(fn Value, args []Value, span *Span) (Value, error) {
	c, ok := e.Heap().Payload(fn).(Callable)
	if !ok {
		return Value{}, &NotCallableError{Type: e.Heap().TypeName(fn)}
	}
	return e.EnterCall(fn, span, func(e *Evaluator) (Value, error) {
		return c.Invoke(e, args)
	})
}
