package main

import (
	"context"

	"github.com/jcorbin/scribble/internal/code"
	"github.com/jcorbin/scribble/internal/mem"
	"github.com/jcorbin/scribble/internal/prim"
)

// VM is a register and stack machine whose code and operand stack share a
// single slot memory.
type VM struct {
	core

	capacity uint
	reserved uint

	stack *mem.Stack
	regs  [code.RegCount]prim.Primitive
	prog  uint
	procs procTable

	// frames counts live call frames; ret with none is a fault
	frames uint

	// current instruction, for fault reporting
	at  uint
	ins code.Instruction
}

const (
	// haltAddr holds a halt instruction that permanent procedures return
	// into when run by ExecuteEntry.
	haltAddr = 0

	replSymbol = "::repl::"
)

func (vm *VM) init() {
	if vm.stack != nil {
		return
	}
	st, err := mem.New(vm.capacity, vm.reserved)
	vm.haltif(err)
	vm.stack = st
	vm.setBase(st.Position())

	entry, err := st.WriteCode(code.Halt())
	vm.haltif(err)
	if entry != haltAddr {
		panic("halt trampoline misplaced")
	}
	vm.define("add", 2, []code.Instruction{code.Add(), code.Ret()})
	vm.define("print", 1, []code.Instruction{code.Print(), code.Ret()})
}

// define writes body into the code region and binds name to it.
func (vm *VM) define(name string, arity uint, body []code.Instruction) uint {
	entry, err := vm.stack.WriteCode(body...)
	vm.haltif(err)
	if vm.procs.define(name, procedure{entry, arity}) && name != replSymbol {
		vm.notef("redefining %v", name)
	}
	vm.logf(":", "%v/%v @%v", name, arity, entry)
	return entry
}

func (vm *VM) exec(ctx context.Context) {
	if vm.logfn != nil {
		defer vm.withLogPrefix("\t")()
	}
	for !vm.step() {
		if err := ctx.Err(); err != nil {
			vm.halt(err)
		}
	}
}

var vmOpTable [code.OpMax]func(vm *VM, ins code.Instruction) bool

func init() {
	vmOpTable = [code.OpMax]func(vm *VM, ins code.Instruction) bool{
		code.OpHalt:    (*VM).opHalt,
		code.OpMoveInt: (*VM).opMove,
		code.OpMoveStr: (*VM).opMove,
		code.OpMoveSym: (*VM).opMove,
		code.OpLoad:    (*VM).opLoad,
		code.OpPush:    (*VM).opPush,
		code.OpPop:     (*VM).opPop,
		code.OpPrint:   (*VM).opPrint,
		code.OpAdd:     (*VM).opAdd,
		code.OpCall:    (*VM).opCall,
		code.OpRet:     (*VM).opRet,
	}
}

// step executes one instruction, returning true if it was a halt.
func (vm *VM) step() bool {
	vm.at = vm.prog
	ins, err := vm.stack.Fetch(vm.at)
	vm.ins = ins
	vm.faultif(err)
	vm.prog++
	if vm.logfn != nil {
		vm.logf("@", "%v %v -- base:%v s:%v", vm.at, ins, vm.regs[code.RegBase], vm.stack.Values())
	}
	if !ins.Op.Valid() {
		vm.fault(opError(ins.Op))
	}
	return vmOpTable[ins.Op](vm, ins)
}

func (vm *VM) fault(err error) {
	vm.halt(faultError{vm.at, vm.ins, err})
}

func (vm *VM) faultif(err error) {
	if err != nil {
		vm.fault(err)
	}
}

func (vm *VM) reg(reg code.Register) prim.Primitive {
	if reg >= code.RegCount {
		vm.fault(regError(reg))
	}
	return vm.regs[reg]
}

func (vm *VM) setReg(reg code.Register, val prim.Primitive) {
	switch {
	case reg == code.RegNull:
		vm.fault(errNullRegister)
	case reg >= code.RegCount:
		vm.fault(regError(reg))
	}
	vm.regs[reg] = val
}

func (vm *VM) base() uint {
	return uint(vm.expectInt(vm.ins.Op, vm.regs[code.RegBase]))
}

func (vm *VM) setBase(addr uint) {
	vm.regs[code.RegBase] = prim.Int(uint64(addr))
}

func (vm *VM) expectInt(op code.Op, val prim.Primitive) uint64 {
	i, ok := val.AsInteger()
	if !ok {
		vm.fault(typeError{op, prim.KindError{Want: prim.Integer, Got: val}})
	}
	return i
}

func (vm *VM) push(val prim.Primitive) {
	vm.faultif(vm.stack.Push(val))
}

func (vm *VM) pop() prim.Primitive {
	val, err := vm.stack.Pop()
	vm.faultif(err)
	return val
}

func (vm *VM) popInt(op code.Op) uint64 {
	return vm.expectInt(op, vm.pop())
}
