package main

import (
	"context"
	"io"

	"github.com/jcorbin/scribble/internal/code"
	"github.com/jcorbin/scribble/internal/fileinput"
	"github.com/jcorbin/scribble/internal/lexer"
	"github.com/jcorbin/scribble/internal/prim"
)

// New returns a VM with the add and print procedures predefined; memory is
// allocated on first use.
func New(opts ...VMOption) *VM {
	var vm VM
	defaultOptions.apply(&vm)
	VMOptions(opts...).apply(&vm)
	return &vm
}

// DefineProcedure writes body into permanent code memory and binds it to
// name, replacing any prior binding. Callers that resolve name afterwards,
// including already compiled code, reach the new body.
func (vm *VM) DefineProcedure(name string, arity uint, body []code.Instruction) (entry uint, err error) {
	err = vm.isolate("define", func() error {
		vm.init()
		entry = vm.define(name, arity, body)
		return nil
	})
	return entry, err
}

// Execute runs a transient top-level program: it is written above the code
// region cursor and reclaimed after it halts, whether or not it succeeds.
// The program runs in no frame, so it must end in a halt; a return
// outside of any call it makes is a fault.
func (vm *VM) Execute(ctx context.Context, prog []code.Instruction) error {
	return vm.isolate("VM", func() error {
		vm.init()
		mark := vm.stack.CodeTop()
		defer func() {
			if err := vm.stack.Rollback(mark); err != nil {
				vm.logf("#", "rollback failed: %v", err)
			}
		}()
		vm.prog = vm.define(replSymbol, 0, prog)
		vm.setBase(vm.stack.Position())
		vm.frames = 0
		vm.exec(ctx)
		return nil
	})
}

// ExecuteEntry runs permanent code at entry, without arguments, inside a
// new call frame that returns into a halt.
func (vm *VM) ExecuteEntry(ctx context.Context, entry uint) error {
	return vm.isolate("VM", func() error {
		vm.init()
		oldBase := vm.base()
		vm.push(prim.Int(haltAddr))
		vm.push(prim.Int(uint64(oldBase)))
		vm.setBase(vm.stack.Position())
		vm.frames = 1
		vm.prog = entry
		vm.exec(ctx)
		return nil
	})
}

// Interpret compiles and executes each top-level expression read from in
// until the end of input, stopping at the first error.
func (vm *VM) Interpret(ctx context.Context, in *fileinput.Input) error {
	c := compiler{defs: vm, toks: lexer.New(in)}
	for {
		prog, err := c.next()
		if err != nil {
			return err
		}
		if prog == nil {
			return nil
		}
		if err := vm.Execute(ctx, prog); err != nil {
			return err
		}
	}
}

// Stack returns a copy of the operand stack, bottom first.
func (vm *VM) Stack() []prim.Primitive {
	if vm.stack == nil {
		return nil
	}
	return vm.stack.Values()
}

// CodeTop returns the code region cursor.
func (vm *VM) CodeTop() uint {
	if vm.stack == nil {
		return 0
	}
	return vm.stack.CodeTop()
}

// Dump writes a human readable description of the machine state to w.
func (vm *VM) Dump(w io.Writer) {
	vmDumper{vm: vm, out: w}.dump()
}

func WithOutput(w io.Writer) VMOption { return withOutput(w) }
func WithTee(w io.Writer) VMOption    { return withTee(w) }

// WithMemLayout sizes memory: the first reserved of capacity slots hold code.
func WithMemLayout(reserved, capacity uint) VMOption { return withMemLayout(reserved, capacity) }

func WithLogf(logfn func(mess string, args ...interface{})) VMOption  { return withLogfn(logfn) }
func WithNotef(notef func(mess string, args ...interface{})) VMOption { return withNotefn(notef) }
