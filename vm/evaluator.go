package vm

import (
	"github.com/tliron/commonlog"
)

var logger = commonlog.GetLogger("kestrel.vm")

// ---------------------------------------------------------------------------
// Evaluator: the mutable context of one execution
// ---------------------------------------------------------------------------

// Evaluator holds everything about an ongoing evaluation: the module being
// evaluated, module-variable resolution, local variables, the call stack,
// GC trigger state and the profilers.
//
// An Evaluator drives exactly one logical call stack and must not be used
// from more than one goroutine. Evaluations of independent modules may run
// in parallel, each with its own Evaluator and Module; frozen modules may
// be shared between them.
type Evaluator struct {
	// The module being evaluated; it owns the heaps.
	module *Module
	// Module variables currently in scope. nil means the module's own
	// slots; non-nil while running a function from a loaded module.
	moduleVariables *FrozenModule
	// Local variables of the running function and its callers.
	locals LocalSlots
	// Resolves names that are neither local nor module-level.
	globals GlobalResolver
	// The language-level stack of calls.
	callStack CallStack
	// Resolves load statements; nil until SetLoader.
	loader FileLoader
	// Codemap of the code currently running.
	codemap codemapSlot

	// GC trigger state
	disableGC   bool
	gcThreshold int64
	nextGCLevel int64

	// Profiling
	heapProfile heapProfile
	stmtProfile stmtProfile
	beforeStmt  []func(Span, *Evaluator)

	// Extra is free for the host, typically read by native functions it
	// also defines. It must not hold heap values; see SetExtraValues.
	Extra       any
	extraValues []Value
}

// NewEvaluator creates an Evaluator for module, resolving global names
// through globals. If globals is backed by a frozen heap, the module keeps
// that heap alive.
//
// If the program contains load statements, SetLoader must also be called.
func NewEvaluator(module *Module, globals GlobalResolver) *Evaluator {
	if g, ok := globals.(interface{ FrozenHeap() *FrozenHeap }); ok {
		module.FrozenHeap().AddReference(g.FrozenHeap())
	}
	return &Evaluator{
		module:      module,
		globals:     globals,
		gcThreshold: GCThreshold,
		nextGCLevel: GCThreshold,
		stmtProfile: newStmtProfile(),
	}
}

// Module returns the module being evaluated.
func (e *Evaluator) Module() *Module {
	return e.module
}

// Heap returns the heap where values are allocated.
func (e *Evaluator) Heap() *Heap {
	return e.module.Heap()
}

// FrozenHeap returns the module's frozen heap. Values allocated here stay
// alive as long as the module's frozen results are in use.
func (e *Evaluator) FrozenHeap() *FrozenHeap {
	return e.module.FrozenHeap()
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// SetLoader installs the FileLoader used by load statements.
func (e *Evaluator) SetLoader(loader FileLoader) {
	e.loader = loader
}

// LoadModule resolves path through the loader and keeps the loaded
// module's frozen heap alive for as long as this module.
func (e *Evaluator) LoadModule(path string) (*FrozenModule, error) {
	if e.loader == nil {
		return nil, ErrNoLoaderConfigured
	}
	current := ""
	if cm, ok := e.codemap.get(); ok {
		current = cm.Filename()
	}
	fm, err := e.loader.Load(path, current)
	if err != nil {
		return nil, err
	}
	e.FrozenHeap().AddReference(fm.FrozenHeap())
	return fm, nil
}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

// ResolveModuleSlot reads a module variable from the module in scope.
// Inside a function from a loaded module the value comes from that frozen
// module and is frozen.
func (e *Evaluator) ResolveModuleSlot(id ModuleSlotID) (Value, error) {
	var v Value
	var ok bool
	if e.moduleVariables == nil {
		v, ok = e.module.Slots().Get(id)
	} else {
		v, ok = e.moduleVariables.GetSlot(id)
	}
	if !ok {
		return Value{}, e.moduleSlotError(id)
	}
	return v, nil
}

// Kept out of the hot path: names are only looked up on failure.
func (e *Evaluator) moduleSlotError(id ModuleSlotID) error {
	var name string
	var ok bool
	if e.moduleVariables == nil {
		name, ok = e.module.Names().SlotName(id)
	} else {
		name, ok = e.moduleVariables.SlotName(id)
	}
	if !ok {
		name = "<unknown>"
	}
	return &UnboundVariableError{Name: name}
}

// ResolveLocalSlot reads a local variable of the running function. name is
// only used in the error.
func (e *Evaluator) ResolveLocalSlot(id LocalSlotID, name string) (Value, error) {
	v, ok := e.locals.Get(id)
	if !ok {
		return Value{}, &UnboundVariableError{Name: name}
	}
	return v, nil
}

// AssignModuleSlot writes a variable of the top-level module. Inside a
// function from a loaded module this still writes the top-level module.
func (e *Evaluator) AssignModuleSlot(id ModuleSlotID, v Value) {
	e.module.Slots().Set(id, v)
}

// AssignLocalSlot writes a local variable of the running function.
func (e *Evaluator) AssignLocalSlot(id LocalSlotID, v Value) {
	e.locals.Set(id, v)
}

// ResolveGlobal looks name up in the global resolver.
func (e *Evaluator) ResolveGlobal(name string) (Value, error) {
	if e.globals != nil {
		if v, ok := e.globals.Lookup(name); ok {
			return v, nil
		}
	}
	return Value{}, &UndefinedGlobalError{Name: name}
}

// SetModuleVariableAtSomePoint binds name in the top-level module, which
// may not be the module the running function came from. The variable is
// visible in the Module after evaluation returns.
func (e *Evaluator) SetModuleVariableAtSomePoint(name string, v Value) {
	e.module.Set(name, v)
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// EnterCall runs within with a new call-stack frame for function. span is
// the call site, or nil for calls from native code.
//
// The frame is popped, and the profiler told, on every exit path. If within
// fails, the call stack as it was inside the call is attached to the error
// before the frame is popped, unless an inner call already attached one.
func (e *Evaluator) EnterCall(function Value, span *Span, within func(*Evaluator) (Value, error)) (Value, error) {
	var sp Span
	var cm *CodeMap
	if span != nil {
		sp = *span
		cm, _ = e.codemap.get()
	}
	if err := e.callStack.Push(function, sp, cm); err != nil {
		return Value{}, err
	}
	profiling := e.heapProfile.enabled
	if profiling {
		e.recordCallEnter(function)
	}
	defer func() {
		e.callStack.Pop()
		if profiling {
			e.recordCallExit()
		}
	}()

	v, err := within(e)
	if err != nil {
		return Value{}, attachCallStack(err, e.CallStack)
	}
	return v, nil
}

// EnterFunctionContext runs within with module variables resolved through
// module (nil for the Evaluator's own module) and spans resolved through
// codemap. Both are restored on every exit path. Only user-defined
// functions switch context; native calls run in their caller's. codemap is
// required: a nil codemap fails with ErrNoCodeMap before anything changes.
func (e *Evaluator) EnterFunctionContext(module *FrozenModule, codemap *CodeMap, within func(*Evaluator) (Value, error)) (Value, error) {
	if codemap == nil {
		return Value{}, ErrNoCodeMap
	}
	defer e.swapContext(module, codemap)()
	return within(e)
}

// swapContext installs a context and returns the guard that restores the
// previous one.
func (e *Evaluator) swapContext(module *FrozenModule, codemap *CodeMap) func() {
	oldModule := e.moduleVariables
	oldCodemap := e.setCodeMap(codemap)
	e.moduleVariables = module
	return func() {
		e.setCodeMap(oldCodemap.cm)
		e.moduleVariables = oldModule
	}
}

func (e *Evaluator) setCodeMap(cm *CodeMap) codemapSlot {
	e.stmtProfile.setCodeMap(cm)
	return e.codemap.swap(cm)
}

// RunModule runs top-level code of the Evaluator's own module with spans
// resolved through codemap.
func (e *Evaluator) RunModule(codemap *CodeMap, body func(*Evaluator) error) error {
	if codemap == nil {
		return ErrNoCodeMap
	}
	defer e.swapContext(nil, codemap)()
	return body(e)
}

// CallStack returns the current call stack, innermost frame first.
func (e *Evaluator) CallStack() []Frame {
	return e.callStack.ToFrames(e.Heap().NameOf)
}

// CallStackDepth returns the number of active calls.
func (e *Evaluator) CallStackDepth() int {
	return e.callStack.Len()
}

// CallStackTopLocation returns the innermost call site. It is absent when
// the innermost call came from native code.
func (e *Evaluator) CallStackTopLocation() (FileSpan, bool) {
	return e.callStack.TopLocation()
}

// CodeMap returns the codemap of the code currently running.
func (e *Evaluator) CodeMap() (*CodeMap, bool) {
	return e.codemap.get()
}

// FileSpan resolves span against the codemap of the code currently
// running. ok is false before any codemap has been bound.
func (e *Evaluator) FileSpan(span Span) (FileSpan, bool) {
	cm, ok := e.codemap.get()
	if !ok {
		return FileSpan{}, false
	}
	return cm.FileSpan(span), true
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// BeforeStmt registers a hook run before every statement.
func (e *Evaluator) BeforeStmt(hook func(Span, *Evaluator)) {
	e.beforeStmt = append(e.beforeStmt, hook)
}

// Statement is called by the statement layer before each statement runs.
func (e *Evaluator) Statement(span Span) {
	for _, hook := range e.beforeStmt {
		hook(span, e)
	}
}

// ---------------------------------------------------------------------------
// Garbage collection
// ---------------------------------------------------------------------------

// DisableGC turns off collection for the rest of this Evaluator's life.
// It cannot be re-enabled.
func (e *Evaluator) DisableGC() {
	if !e.disableGC {
		logger.Debugf("garbage collection disabled")
	}
	e.disableGC = true
}

// GCDisabled reports whether collection has been disabled.
func (e *Evaluator) GCDisabled() bool {
	return e.disableGC
}

// TriggerGC requests a collection at the next checkpoint. Once GC is
// disabled the request is ignored.
func (e *Evaluator) TriggerGC() {
	if e.disableGC {
		logger.Debugf("ignoring GC trigger: collection is disabled")
	}
	e.nextGCLevel = 0
}

// GCCheckpoint collects if collection is enabled and the heap has grown
// past the watermark, then moves the watermark GCThreshold bytes past the
// live size. The statement layer calls it where every live value is held
// in a slot or on the call stack. It reports whether a collection ran.
func (e *Evaluator) GCCheckpoint() bool {
	if e.disableGC || e.Heap().Allocated() < e.nextGCLevel {
		return false
	}
	stats := e.Heap().Collect(e.WalkRoots)
	e.nextGCLevel = stats.LiveBytes + e.gcThreshold
	logger.Debugf("gc: %d -> %d cells, freed %d bytes in %s",
		stats.CellsBefore, stats.CellsAfter, stats.Freed(), stats.Duration)
	return true
}

// WalkRoots presents the complete root set to t: every slot of the
// module, every local frame and every value on the call stack.
func (e *Evaluator) WalkRoots(t *Tracer) {
	e.module.Slots().Trace(t)
	e.locals.Trace(t)
	e.callStack.Trace(t)
}

// SetExtraValues lets the host keep heap values where the collector cannot
// see them. Because those handles would not be relocated, GC is disabled.
func (e *Evaluator) SetExtraValues(values ...Value) {
	e.extraValues = values
	e.DisableGC()
}

// ExtraValues returns the values stored by SetExtraValues.
func (e *Evaluator) ExtraValues() []Value {
	return e.extraValues
}
