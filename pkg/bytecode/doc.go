// Package bytecode provides the Slate compiler and register-based virtual
// machine. The compiler walks the AST from pkg/ast and emits a Program: a
// flat instruction sequence plus deduplicated integer-constant and name
// pools. The VM executes a Program against a bank of 256 registers whose
// write-state is tracked in a compact validity bitmap.
//
// The instruction format is designed for:
//   - Fixed-shape instructions (struct operands, no byte decoding)
//   - Cheap sharing (programs are immutable after compilation, so the
//     cache and concurrent executions hold the same *Program)
//   - Easy serialization (Programs round-trip through CBOR for the
//     persistent store)
//
// Error semantics are strict: arithmetic overflow, division or modulo by
// zero, reads of never-written registers and reads of undefined variables
// all abort execution with a RuntimeError carrying the zero-based index
// of the failing instruction. Nothing wraps silently and nothing produces
// NaN or infinity.
//
// A VM instance is single-use: one Program, one execution, then discarded.
// Print output accumulates in an in-memory buffer so results are
// byte-identical whether a program runs inside the daemon or directly in
// the calling process.
package bytecode
