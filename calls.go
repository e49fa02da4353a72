package main

import (
	"github.com/jcorbin/scribble/internal/code"
	"github.com/jcorbin/scribble/internal/mem"
	"github.com/jcorbin/scribble/internal/prim"
)

// Frame layout, from low to high addresses:
//
//	... caller values | return addr | saved base | arg0 ... argN-1 | locals
//	                                             ^ base
//
// Arguments are moved above the linkage so that the callee addresses them
// from base, and ret leaves only the return value behind.

// call resolves name and enters it, moving its arguments above a new frame
// linkage.
func (vm *VM) call(name string) {
	proc, err := vm.procs.resolve(name)
	vm.faultif(err)

	oldBase := vm.base()
	var have uint
	if top := vm.stack.Position(); top > oldBase {
		have = top - oldBase
	}
	if have < proc.arity {
		vm.fault(arityError{name, proc.arity, have})
	}

	args := make([]prim.Primitive, proc.arity)
	for i := len(args) - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	vm.push(prim.Int(uint64(vm.prog)))
	vm.push(prim.Int(uint64(oldBase)))
	vm.setBase(vm.stack.Position())
	for _, arg := range args {
		vm.push(arg)
	}
	vm.frames++

	vm.logf(">", "call %v @%v base:%v", name, proc.entry, vm.stack.Position()-proc.arity)
	vm.prog = proc.entry
}

// ret unwinds the current frame, keeping its top value, if any, as the
// return value.
func (vm *VM) ret() {
	if vm.frames == 0 {
		vm.fault(errNoFrame)
	}
	base := vm.base()
	top := vm.stack.Position()
	if top < base {
		vm.fault(errFrameSmashed)
	}

	var rv prim.Primitive
	hasRV := top > base
	if hasRV {
		rv = vm.pop()
	}
	for vm.stack.Position() > base {
		vm.pop()
	}

	savedBase := vm.popInt(code.OpRet)
	retAddr := vm.popInt(code.OpRet)
	vm.setBase(uint(savedBase))
	vm.prog = uint(retAddr)
	vm.frames--
	if hasRV {
		vm.push(rv)
	}
	vm.logf("<", "ret @%v base:%v", vm.prog, savedBase)
}

// load copies an operand stack value into reg; non-negative indices count up
// from base, negative ones count down from the top, -1 being the top itself.
func (vm *VM) load(reg code.Register, index int64) {
	var offset int64
	if index < 0 {
		offset = index + 1
	} else {
		offset = int64(vm.base()) - int64(vm.stack.Position()) + index + 1
	}
	slot, err := vm.stack.Peek(int(offset))
	vm.faultif(err)
	val, ok := slot.Value()
	if !ok {
		vm.fault(mem.SlotError{Addr: uint(int64(vm.stack.Position()) + offset - 1), Exec: true})
	}
	vm.setReg(reg, val)
}
