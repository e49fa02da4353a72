// Package prim implements the tagged scalar values that the VM moves between
// registers and the operand stack.
package prim

import (
	"fmt"
	"strconv"
)

// Kind tags the variant held by a Primitive.
type Kind uint8

// Primitive kinds; the zero Kind is Null.
const (
	Null Kind = iota
	Integer
	String
	Symbol
)

var kindNames = [...]string{
	Null:    "Null",
	Integer: "Integer",
	String:  "String",
	Symbol:  "Symbol",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Primitive is an immutable tagged value, copied by value.
// The zero Primitive is Null.
type Primitive struct {
	kind Kind
	i    uint64
	s    string
}

// Int returns an Integer primitive.
func Int(v uint64) Primitive { return Primitive{kind: Integer, i: v} }

// Str returns a String primitive.
func Str(s string) Primitive { return Primitive{kind: String, s: s} }

// Sym returns a Symbol primitive naming s.
func Sym(name string) Primitive { return Primitive{kind: Symbol, s: name} }

// Kind returns the variant tag.
func (p Primitive) Kind() Kind { return p.kind }

// IsNull returns true only for the Null variant.
func (p Primitive) IsNull() bool { return p.kind == Null }

// AsInteger returns the integer value, and false if p is not an Integer.
func (p Primitive) AsInteger() (uint64, bool) {
	if p.kind != Integer {
		return 0, false
	}
	return p.i, true
}

// AsString returns the text value, and false if p is not a String.
func (p Primitive) AsString() (string, bool) {
	if p.kind != String {
		return "", false
	}
	return p.s, true
}

// AsSymbol returns the symbol name, and false if p is not a Symbol.
func (p Primitive) AsSymbol() (string, bool) {
	if p.kind != Symbol {
		return "", false
	}
	return p.s, true
}

// String formats the value the way the print operator writes it.
func (p Primitive) String() string {
	switch p.kind {
	case Integer:
		return fmt.Sprintf("0x%08x", p.i)
	case String:
		return strconv.Quote(p.s)
	case Symbol:
		return p.s
	default:
		return "NULL"
	}
}

// GoString supports %#v in test failure output.
func (p Primitive) GoString() string {
	switch p.kind {
	case Integer:
		return fmt.Sprintf("prim.Int(%d)", p.i)
	case String:
		return fmt.Sprintf("prim.Str(%q)", p.s)
	case Symbol:
		return fmt.Sprintf("prim.Sym(%q)", p.s)
	default:
		return "prim.Primitive{}"
	}
}

// KindError reports a value of the wrong kind.
type KindError struct {
	Want Kind
	Got  Primitive
}

func (ke KindError) Error() string {
	return fmt.Sprintf("type mismatch: expected %v, got %v %v", ke.Want, ke.Got.kind, ke.Got)
}
