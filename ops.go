package main

import (
	"github.com/jcorbin/scribble/internal/code"
	"github.com/jcorbin/scribble/internal/mem"
	"github.com/jcorbin/scribble/internal/prim"
	"github.com/jcorbin/scribble/internal/runeio"
)

func (vm *VM) opHalt(ins code.Instruction) bool { return true }

var moveKinds = map[code.Op]prim.Kind{
	code.OpMoveInt: prim.Integer,
	code.OpMoveStr: prim.String,
	code.OpMoveSym: prim.Symbol,
}

// opMove loads an immediate into a register; the operator must agree with
// the immediate's kind.
func (vm *VM) opMove(ins code.Instruction) bool {
	if want := moveKinds[ins.Op]; ins.Imm.Kind() != want {
		vm.fault(typeError{ins.Op, prim.KindError{Want: want, Got: ins.Imm}})
	}
	vm.setReg(ins.Reg, ins.Imm)
	return false
}

func (vm *VM) opLoad(ins code.Instruction) bool {
	index := int64(vm.expectInt(ins.Op, ins.Imm))
	vm.load(ins.Reg, index)
	return false
}

func (vm *VM) opPush(ins code.Instruction) bool {
	vm.push(vm.reg(ins.Reg))
	return false
}

func (vm *VM) opPop(ins code.Instruction) bool {
	vm.setReg(ins.Reg, vm.pop())
	return false
}

// opPrint writes the top of the operand stack as one output line, leaving it
// in place.
func (vm *VM) opPrint(ins code.Instruction) bool {
	slot, err := vm.stack.Peek(0)
	vm.faultif(err)
	val, ok := slot.Value()
	if !ok {
		vm.fault(mem.SlotError{Addr: vm.stack.Position() - 1, Exec: true})
	}
	_, err = runeio.WriteLine(vm.out, val.String())
	vm.faultif(err)
	return false
}

func (vm *VM) opAdd(ins code.Instruction) bool {
	b := vm.popInt(ins.Op)
	a := vm.popInt(ins.Op)
	vm.push(prim.Int(a + b))
	return false
}

func (vm *VM) opCall(ins code.Instruction) bool {
	name, ok := ins.Imm.AsSymbol()
	if !ok {
		vm.fault(typeError{ins.Op, prim.KindError{Want: prim.Symbol, Got: ins.Imm}})
	}
	vm.call(name)
	return false
}

func (vm *VM) opRet(ins code.Instruction) bool {
	vm.ret()
	return false
}
