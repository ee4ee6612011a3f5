// Package vm implements the kestrel evaluation runtime.
//
// This package contains:
//   - Value handles over a collected heap and never-collected frozen heaps
//   - Modules, frozen modules and slot-addressed variable storage
//   - The call stack and the diagnostics captured from it
//   - The Evaluator that coordinates scopes, calls, GC and profiling
//
// Parsing and statement dispatch live outside this package. The statement
// layer drives an Evaluator through slot reads and writes, Call,
// Statement and GCCheckpoint.
package vm
