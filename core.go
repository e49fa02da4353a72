package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jcorbin/scribble/internal/code"
	"github.com/jcorbin/scribble/internal/flushio"
	"github.com/jcorbin/scribble/internal/panicerr"
	"github.com/jcorbin/scribble/internal/prim"
)

type core struct {
	logging
	out flushio.WriteFlusher
}

// Close flushes any buffered output; the VM owns no other resources.
func (core *core) Close() error {
	if core.out != nil {
		return core.out.Flush()
	}
	return nil
}

// halt stops the machine by unwinding to the nearest isolate call, which
// returns err; output written so far is flushed first.
func (core *core) halt(err error) {
	// ignore any panics while trying to flush output
	func() {
		defer func() { recover() }()
		if core.out != nil {
			if ferr := core.out.Flush(); err == nil {
				err = ferr
			}
		}
	}()

	// ignore any panics while logging
	func() {
		defer func() { recover() }()
		if err != nil {
			core.logf("#", "halt error: %v", err)
		}
	}()

	panicerr.Halt(err)
}

func (core *core) haltif(err error) {
	if err != nil {
		core.halt(err)
	}
}

// isolate runs f, converting any halt into a returned error, and flushes
// output after a normal return.
func (core *core) isolate(name string, f func() error) error {
	err := panicerr.Recover(name, func() error {
		if err := f(); err != nil {
			return err
		}
		if core.out != nil {
			return core.out.Flush()
		}
		return nil
	})
	if cause, halted := panicerr.HaltCause(err); halted {
		return cause
	}
	return err
}

type logging struct {
	logfn  func(mess string, args ...interface{})
	notefn func(mess string, args ...interface{})

	markWidth int
}

func (log *logging) withLogPrefix(prefix string) func() {
	logfn := log.logfn
	log.logfn = func(mess string, args ...interface{}) {
		logfn(prefix+mess, args...)
	}
	return func() {
		log.logfn = logfn
	}
}

// logf writes a trace line led by mark, padding marks to a common width.
func (log *logging) logf(mark, mess string, args ...interface{}) {
	if log.logfn == nil {
		return
	}
	if n := log.markWidth - len(mark); n > 0 {
		for _, r := range mark {
			mark = strings.Repeat(string(r), n) + mark
			break
		}
	} else if n < 0 {
		log.markWidth = len(mark)
	}
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	log.logfn("%v %v", mark, mess)
}

// notef writes a user facing diagnostic, like a redefinition notice.
func (log *logging) notef(mess string, args ...interface{}) {
	if log.notefn != nil {
		log.notefn(mess, args...)
	}
}

var (
	errUndefinedSymbol = errors.New("undefined symbol")
	errNotEnoughArgs   = errors.New("not enough arguments")
	errNullRegister    = errors.New("write to null register")
	errFrameSmashed    = errors.New("operand stack below frame base")
	errNoFrame         = errors.New("return outside of any call frame")
)

type undefinedSymbolError string

func (name undefinedSymbolError) Error() string {
	return fmt.Sprintf("%v %q", errUndefinedSymbol, string(name))
}
func (name undefinedSymbolError) Unwrap() error { return errUndefinedSymbol }

type arityError struct {
	name  string
	arity uint
	have  uint
}

func (ae arityError) Error() string {
	return fmt.Sprintf("%v to %v: need %v, have %v", errNotEnoughArgs, ae.name, ae.arity, ae.have)
}
func (ae arityError) Unwrap() error { return errNotEnoughArgs }

type typeError struct {
	op  code.Op
	err prim.KindError
}

func (te typeError) Error() string { return fmt.Sprintf("%v: %v", te.op, te.err) }
func (te typeError) Unwrap() error { return te.err }

type opError code.Op

func (op opError) Error() string { return fmt.Sprintf("invalid operator %v", code.Op(op)) }

type regError code.Register

func (reg regError) Error() string { return fmt.Sprintf("invalid register %v", code.Register(reg)) }

// faultError locates a run time error at the instruction that raised it.
type faultError struct {
	at  uint
	ins code.Instruction
	err error
}

func (fe faultError) Error() string { return fmt.Sprintf("@%v %v: %v", fe.at, fe.ins, fe.err) }
func (fe faultError) Unwrap() error { return fe.err }
