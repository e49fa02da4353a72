// Package code defines the VM instruction set: operators, registers, and the
// instruction word stored in the code region.
package code

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jcorbin/scribble/internal/prim"
)

// Op is an operator code.
type Op uint8

const (
	OpNull Op = iota // <INVALID>  zero instruction, never executed

	OpHalt    // halt      stop the dispatch loop
	OpMoveInt // moveint   reg <- Integer immediate
	OpMoveStr // movestr   reg <- String immediate
	OpMoveSym // movesym   reg <- Symbol immediate
	OpLoad    // load      reg <- operand stack value addressed by a signed argument index
	OpPush    // push      push reg onto the operand stack
	OpPop     // pop       pop the operand stack into reg
	OpPrint   // print     write the top of the operand stack, without popping it
	OpAdd     // add       pop two Integers, push their sum
	OpCall    // call      call the procedure named by the Symbol immediate
	OpRet     // ret       return from the current procedure

	OpMax
)

var opNames = [OpMax]string{
	"null",
	"halt",
	"moveint",
	"movestr",
	"movesym",
	"load",
	"push",
	"pop",
	"print",
	"add",
	"call",
	"ret",
}

func (op Op) String() string {
	if op < OpMax {
		return opNames[op]
	}
	return "op(" + strconv.Itoa(int(op)) + ")"
}

// Valid returns true for executable operators.
func (op Op) Valid() bool { return OpNull < op && op < OpMax }

// Register names a slot in the register file.
type Register uint8

const (
	RegNull Register = iota // no register; reads as Null, never written
	Reg1
	Reg2
	Reg3
	RegBase // frame base

	RegCount
)

var regNames = [RegCount]string{"_", "r1", "r2", "r3", "base"}

func (reg Register) String() string {
	if reg < RegCount {
		return regNames[reg]
	}
	return "reg(" + strconv.Itoa(int(reg)) + ")"
}

// Instruction is one VM operation. Instructions are values; once written into
// the code region they are never modified.
type Instruction struct {
	Op  Op
	Reg Register
	Imm prim.Primitive
}

// Halt, Print, Add, and Ret take no operands.
func Halt() Instruction  { return Instruction{Op: OpHalt} }
func Print() Instruction { return Instruction{Op: OpPrint} }
func Add() Instruction   { return Instruction{Op: OpAdd} }
func Ret() Instruction   { return Instruction{Op: OpRet} }

func MoveInt(reg Register, v uint64) Instruction {
	return Instruction{Op: OpMoveInt, Reg: reg, Imm: prim.Int(v)}
}

func MoveStr(reg Register, s string) Instruction {
	return Instruction{Op: OpMoveStr, Reg: reg, Imm: prim.Str(s)}
}

func MoveSym(reg Register, name string) Instruction {
	return Instruction{Op: OpMoveSym, Reg: reg, Imm: prim.Sym(name)}
}

// Load addresses the operand stack by a signed index: non-negative indices
// count up from the frame base, negative ones down from the top.
func Load(reg Register, index int64) Instruction {
	return Instruction{Op: OpLoad, Reg: reg, Imm: prim.Int(uint64(index))}
}

func Push(reg Register) Instruction { return Instruction{Op: OpPush, Reg: reg} }
func Pop(reg Register) Instruction  { return Instruction{Op: OpPop, Reg: reg} }

// Call invokes a procedure by name, resolved when executed.
func Call(name string) Instruction { return Instruction{Op: OpCall, Imm: prim.Sym(name)} }

// Move returns the type-tagged move for a literal value.
func Move(reg Register, v prim.Primitive) (Instruction, error) {
	switch v.Kind() {
	case prim.Integer:
		return Instruction{Op: OpMoveInt, Reg: reg, Imm: v}, nil
	case prim.String:
		return Instruction{Op: OpMoveStr, Reg: reg, Imm: v}, nil
	case prim.Symbol:
		return Instruction{Op: OpMoveSym, Reg: reg, Imm: v}, nil
	}
	return Instruction{}, fmt.Errorf("no move operator for %v", v.Kind())
}

func (ins Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(ins.Op.String())
	if ins.Reg != RegNull {
		sb.WriteByte(' ')
		sb.WriteString(ins.Reg.String())
	}
	switch {
	case ins.Op == OpLoad:
		i, _ := ins.Imm.AsInteger()
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatInt(int64(i), 10))
	case !ins.Imm.IsNull():
		sb.WriteByte(' ')
		sb.WriteString(ins.Imm.String())
	}
	return sb.String()
}

// Disassemble formats a run of instructions, one per line, addressed from base.
func Disassemble(base uint, prog []Instruction) string {
	var sb strings.Builder
	for i, ins := range prog {
		fmt.Fprintf(&sb, "%04d %v\n", base+uint(i), ins)
	}
	return sb.String()
}
