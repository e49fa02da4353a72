// Package mem implements the VM's single memory region: a fixed array of slots
// whose low part holds code and whose high part is the operand stack.
package mem

import (
	"errors"
	"fmt"

	"github.com/jcorbin/scribble/internal/code"
	"github.com/jcorbin/scribble/internal/prim"
)

// Default layout.
const (
	DefaultCapacity = 4096
	DefaultReserved = 1024
)

var (
	ErrCodeOverflow   = errors.New("code region overflow")
	ErrStackOverflow  = errors.New("operand stack overflow")
	ErrStackUnderflow = errors.New("operand stack underflow")
	ErrStackEmpty     = errors.New("nothing on stack")
)

// LimitError indicates that an operation would move a cursor past a region
// boundary; it wraps one of the Err* sentinels above.
type LimitError struct {
	Err  error
	Op   string
	Addr uint
}

func (lim LimitError) Error() string {
	return fmt.Sprintf("%v by %v @%v", lim.Err, lim.Op, lim.Addr)
}

func (lim LimitError) Unwrap() error { return lim.Err }

// AddrError indicates an access outside the live part of a region.
type AddrError struct {
	Op   string
	Addr int
	Lo   uint
	Hi   uint
}

func (ae AddrError) Error() string {
	return fmt.Sprintf("%v: address @%v out of region [%v, %v)", ae.Op, ae.Addr, ae.Lo, ae.Hi)
}

// Stack is the memory arena. Indices [0, Reserved()) form the code region,
// filled by Reserve and StoreCode; indices [Reserved(), Cap()) form the
// operand stack, addressed by Push, Pop, and Peek. Everything is addressed by
// index, so nothing is invalidated by writes.
type Stack struct {
	slots    []Slot
	reserved uint
	codeTop  uint
	top      uint
}

// New allocates a Stack of capacity slots, reserving the first reserved
// slots for code.
func New(capacity, reserved uint) (*Stack, error) {
	if reserved == 0 {
		return nil, errors.New("code region must not be empty")
	}
	if capacity <= reserved {
		return nil, fmt.Errorf("capacity %v leaves no operand region above %v reserved slots", capacity, reserved)
	}
	return &Stack{
		slots:    make([]Slot, capacity),
		reserved: reserved,
		top:      reserved,
	}, nil
}

// Cap returns the total number of slots.
func (st *Stack) Cap() uint { return uint(len(st.slots)) }

// Reserved returns the code/operand boundary.
func (st *Stack) Reserved() uint { return st.reserved }

// CodeTop returns the next free code slot.
func (st *Stack) CodeTop() uint { return st.codeTop }

// Position returns the current operand stack top; a frame base snapshot.
func (st *Stack) Position() uint { return st.top }

// Depth returns how many values are on the operand stack.
func (st *Stack) Depth() uint { return st.top - st.reserved }

// Reserve claims count code slots, returning the first one.
func (st *Stack) Reserve(count uint) (uint, error) {
	base := st.codeTop
	if end := base + count; end > st.reserved || end < base {
		return 0, LimitError{ErrCodeOverflow, "reserve", end}
	}
	st.codeTop += count
	return base, nil
}

// StoreCode writes an instruction into a previously reserved code slot.
func (st *Stack) StoreCode(addr uint, ins code.Instruction) error {
	if addr >= st.codeTop {
		return AddrError{"store code", int(addr), 0, st.codeTop}
	}
	st.slots[addr] = CodeSlot(ins)
	return nil
}

// WriteCode reserves room for prog, stores it, and returns its base.
func (st *Stack) WriteCode(prog ...code.Instruction) (uint, error) {
	base, err := st.Reserve(uint(len(prog)))
	if err != nil {
		return 0, err
	}
	for i, ins := range prog {
		st.slots[base+uint(i)] = CodeSlot(ins)
	}
	return base, nil
}

// Rollback resets the code cursor to addr, reclaiming everything above it.
func (st *Stack) Rollback(addr uint) error {
	if addr > st.codeTop {
		return AddrError{"rollback", int(addr), 0, st.codeTop + 1}
	}
	for i := addr; i < st.codeTop; i++ {
		st.slots[i] = Slot{}
	}
	st.codeTop = addr
	return nil
}

// Fetch reads the instruction at addr.
func (st *Stack) Fetch(addr uint) (code.Instruction, error) {
	if addr >= st.codeTop {
		return code.Instruction{}, AddrError{"fetch", int(addr), 0, st.codeTop}
	}
	ins, ok := st.slots[addr].Code()
	if !ok {
		return code.Instruction{}, SlotError{addr, false}
	}
	return ins, nil
}

// Push pushes a value onto the operand stack.
func (st *Stack) Push(val prim.Primitive) error {
	if st.top >= uint(len(st.slots)) {
		return LimitError{ErrStackOverflow, "push", st.top}
	}
	st.slots[st.top] = ValueSlot(val)
	st.top++
	return nil
}

// Pop pops a value off the operand stack.
func (st *Stack) Pop() (prim.Primitive, error) {
	if st.top <= st.reserved {
		return prim.Primitive{}, LimitError{ErrStackUnderflow, "pop", st.top}
	}
	st.top--
	addr := st.top
	slot := st.slots[addr]
	st.slots[addr] = Slot{}
	val, ok := slot.Value()
	if !ok {
		return prim.Primitive{}, SlotError{addr, true}
	}
	return val, nil
}

// Peek reads, without popping, the slot at Position() + offset - 1; so 0 is
// the top value, -1 the one below it, and so on.
func (st *Stack) Peek(offset int) (Slot, error) {
	if st.top == st.reserved {
		return Slot{}, LimitError{ErrStackEmpty, "peek", st.top}
	}
	addr := int(st.top) + offset - 1
	if addr < int(st.reserved) || addr >= int(st.top) {
		return Slot{}, AddrError{"peek", addr, st.reserved, st.top}
	}
	return st.slots[addr], nil
}

// Values returns a copy of the operand stack, bottom first.
func (st *Stack) Values() []prim.Primitive {
	vals := make([]prim.Primitive, 0, st.Depth())
	for _, slot := range st.slots[st.reserved:st.top] {
		val, _ := slot.Value()
		vals = append(vals, val)
	}
	return vals
}

// Code returns a copy of the live code region.
func (st *Stack) Code() []code.Instruction {
	prog := make([]code.Instruction, 0, st.codeTop)
	for _, slot := range st.slots[:st.codeTop] {
		ins, _ := slot.Code()
		prog = append(prog, ins)
	}
	return prog
}
