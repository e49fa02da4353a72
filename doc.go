// Package main implements SCRIBBLE, a small language on a small machine.
//
// SCRIBBLE programs are sequences of expressions:
//
//	define(double (x) add(x x))
//	double(21)
//
// An expression is a string "like this", an unsigned decimal integer, a bare
// name, or a call name(args...). The define form installs a procedure under a
// name and evaluates to that name; every other call is resolved by name each
// time it runs, so redefining a procedure changes all of its callers.
//
// # Machine
//
// The VM has one memory of fixed size, divided into two regions. The lower
// code region holds instructions, written by a cursor that grows upward as
// procedures are defined. Slot 0 holds a halt, which procedures run by
// ExecuteEntry return into. The upper region holds the operand stack.
//
// Each slot holds either an instruction or a value; reading one as the other
// is a fault. Values are NULL, 64-bit unsigned integers (printed as hex),
// strings, and symbols.
//
// Registers r1, r2, and r3 are scratch; base holds the address of the current
// frame; the null register reads as NULL and may not be written.
//
// # Calls
//
// A call with arity n moves its n arguments above two linkage values, the
// return address and the caller's base, and points base at the first
// argument:
//
//	... | ret | saved base | arg0 ... argN-1 | locals
//	                       ^ base
//
// So load with index i reads argument i, while negative indices count down
// from the top of the stack. Return keeps the top of the frame, if the callee
// left anything there, discards the rest of the frame, restores the linkage,
// and pushes the kept value. A return outside of any call is a fault.
//
// # Top level
//
// Each top-level expression is compiled into a transient program that prints
// the expression's value and halts. The program is written above the code
// cursor, run, and then reclaimed, so only definitions grow the code region.
// Values printed at top level stay on the operand stack.
//
// Diagnostics go to a separate message stream from program output: notices
// such as "redefining add", and with -trace, one line per instruction.
package main
