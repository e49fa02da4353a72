package mem

import (
	"fmt"

	"github.com/jcorbin/scribble/internal/code"
	"github.com/jcorbin/scribble/internal/prim"
)

// Slot is the unit of storage: either an executable instruction or a runtime
// value. The zero Slot is a Null value.
type Slot struct {
	exec bool
	ins  code.Instruction
	val  prim.Primitive
}

// CodeSlot wraps an instruction.
func CodeSlot(ins code.Instruction) Slot { return Slot{exec: true, ins: ins} }

// ValueSlot wraps a runtime value.
func ValueSlot(val prim.Primitive) Slot { return Slot{val: val} }

// Executable returns true if the slot holds an instruction.
func (s Slot) Executable() bool { return s.exec }

// Code returns the held instruction, or false if the slot holds a value.
func (s Slot) Code() (code.Instruction, bool) {
	if !s.exec {
		return code.Instruction{}, false
	}
	return s.ins, true
}

// Value returns the held value, or false if the slot holds an instruction.
func (s Slot) Value() (prim.Primitive, bool) {
	if s.exec {
		return prim.Primitive{}, false
	}
	return s.val, true
}

func (s Slot) String() string {
	if s.exec {
		return s.ins.String()
	}
	return s.val.String()
}

// SlotError reports access to a slot as the wrong variant.
type SlotError struct {
	Addr uint
	Exec bool // what the slot actually holds
}

func (se SlotError) Error() string {
	if se.Exec {
		return fmt.Sprintf("slot @%v holds executable data", se.Addr)
	}
	return fmt.Sprintf("slot @%v is not executable", se.Addr)
}
