package main

import (
	"errors"
	"runtime"
	"strconv"

	"github.com/joomcode/errorx"

	"github.com/jcorbin/scribble/internal/code"
	"github.com/jcorbin/scribble/internal/lexer"
	"github.com/jcorbin/scribble/internal/panicerr"
	"github.com/jcorbin/scribble/internal/prim"
)

var (
	compileErrors = errorx.NewNamespace("compile")

	errUnexpectedToken = compileErrors.NewType("unexpected_token")
	errUndeclaredForm  = compileErrors.NewType("undeclared_form")
	errBadLiteral      = compileErrors.NewType("bad_literal")
	errBadDefine       = compileErrors.NewType("bad_define")
)

// TokenReader supplies tokens to the compiler; *lexer.Lexer and
// *lexer.Queue both implement it.
type TokenReader interface {
	ReadToken() (lexer.Token, error)
}

// Definer installs compiled procedure bodies; *VM implements it.
type Definer interface {
	DefineProcedure(name string, arity uint, body []code.Instruction) (uint, error)
}

// Compile translates every expression from toks into one top-level
// program, printing the value of each and ending in a halt. Definitions are
// installed through defs as they are encountered.
func Compile(defs Definer, toks TokenReader) (prog []code.Instruction, err error) {
	c := compiler{defs: defs, toks: toks}
	defer c.recover(&err)
	for c.peek().Kind != lexer.EOF {
		c.topLevel()
	}
	c.emit(code.Halt())
	return c.prog, nil
}

type compiler struct {
	defs Definer
	toks TokenReader

	tok      lexer.Token
	havePeek bool

	params []string
	prog   []code.Instruction
}

// next compiles the next top-level expression as its own halting program,
// returning nil at the end of input.
func (c *compiler) next() (prog []code.Instruction, err error) {
	defer c.recover(&err)
	c.prog = nil
	if c.peek().Kind == lexer.EOF {
		return nil, nil
	}
	c.topLevel()
	c.emit(code.Halt())
	return c.prog, nil
}

// recover turns a failed compilation back into an error; machine halts
// raised by the definer and runtime faults keep unwinding.
func (c *compiler) recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, isErr := r.(error); isErr {
		var re runtime.Error
		if _, halted := panicerr.HaltCause(e); halted || errors.As(e, &re) {
			panic(r)
		}
	}
	e, ok := errorx.ErrorFromPanic(r)
	if !ok {
		panic(r)
	}
	c.prog = nil
	*err = e
}

func (c *compiler) fail(err error) {
	errorx.Panic(err)
}

func (c *compiler) peek() lexer.Token {
	if !c.havePeek {
		tok, err := c.toks.ReadToken()
		if err != nil {
			c.fail(err)
		}
		c.tok, c.havePeek = tok, true
	}
	return c.tok
}

func (c *compiler) read() lexer.Token {
	tok := c.peek()
	if tok.Kind != lexer.EOF {
		c.havePeek = false
	}
	return tok
}

func (c *compiler) expect(kind lexer.Kind, what string) lexer.Token {
	tok := c.read()
	if tok.Kind != kind {
		c.fail(errUnexpectedToken.New("%v: expected %v, got %v", tok.Loc, what, tok).
			WithProperty(lexer.Location, tok.Loc))
	}
	return tok
}

func (c *compiler) emit(prog ...code.Instruction) {
	c.prog = append(c.prog, prog...)
}

func (c *compiler) topLevel() {
	c.expr()
	c.emit(code.Print())
}

// expr compiles one expression, whose code leaves exactly one value on the
// operand stack.
func (c *compiler) expr() {
	tok := c.read()
	switch tok.Kind {
	case lexer.String:
		c.literal(prim.Str(tok.Text))

	case lexer.Integer:
		v, err := strconv.ParseUint(tok.Text, 10, 64)
		if err != nil {
			c.fail(errBadLiteral.Wrap(err, "%v: invalid integer %v", tok.Loc, tok.Text).
				WithProperty(lexer.Location, tok.Loc))
		}
		c.literal(prim.Int(v))

	case lexer.Symbol:
		if c.peek().Kind == lexer.LParen {
			if tok.Text == "define" {
				c.define()
			} else {
				c.call(tok)
			}
		} else if tok.Text == "define" {
			c.fail(errUndeclaredForm.New("%v: define must be followed by (", tok.Loc).
				WithProperty(lexer.Location, tok.Loc))
		} else if i, ok := c.param(tok.Text); ok {
			c.emit(code.Load(code.Reg1, int64(i)), code.Push(code.Reg1))
		} else {
			c.literal(prim.Sym(tok.Text))
		}

	case lexer.LParen:
		c.fail(errUndeclaredForm.New("%v: list has no form to evaluate it", tok.Loc).
			WithProperty(lexer.Location, tok.Loc))

	default:
		c.fail(errUnexpectedToken.New("%v: expected expression, got %v", tok.Loc, tok).
			WithProperty(lexer.Location, tok.Loc))
	}
}

func (c *compiler) literal(val prim.Primitive) {
	move, err := code.Move(code.Reg1, val)
	if err != nil {
		c.fail(errBadLiteral.Wrap(err, "cannot compile literal"))
	}
	c.emit(move, code.Push(code.Reg1))
}

func (c *compiler) param(name string) (int, bool) {
	for i := len(c.params) - 1; i >= 0; i-- {
		if c.params[i] == name {
			return i, true
		}
	}
	return 0, false
}

// call compiles name(args...): each argument in order, then the call.
func (c *compiler) call(name lexer.Token) {
	c.expect(lexer.LParen, "(")
	for c.peek().Kind != lexer.RParen {
		if c.peek().Kind == lexer.EOF {
			c.expect(lexer.RParen, ")")
		}
		c.expr()
	}
	c.read()
	c.emit(code.Call(name.Text))
}

// define compiles define(name (params...) body...) into a new procedure,
// evaluating to the name as a symbol.
func (c *compiler) define() {
	c.expect(lexer.LParen, "(")
	name := c.expect(lexer.Symbol, "procedure name")
	if name.Text == "define" {
		c.fail(errBadDefine.New("%v: cannot redefine define", name.Loc).
			WithProperty(lexer.Location, name.Loc))
	}

	c.expect(lexer.LParen, "parameter list")
	var params []string
	for c.peek().Kind != lexer.RParen {
		param := c.expect(lexer.Symbol, "parameter name")
		for _, prior := range params {
			if prior == param.Text {
				c.fail(errBadDefine.New("%v: duplicate parameter %v", param.Loc, param.Text).
					WithProperty(lexer.Location, param.Loc))
			}
		}
		params = append(params, param.Text)
	}
	c.read()

	outerParams, outerProg := c.params, c.prog
	c.params, c.prog = params, nil
	for c.peek().Kind != lexer.RParen {
		if c.peek().Kind == lexer.EOF {
			c.expect(lexer.RParen, ")")
		}
		c.expr()
	}
	c.read()
	c.emit(code.Ret())
	body := c.prog
	c.params, c.prog = outerParams, outerProg

	if _, err := c.defs.DefineProcedure(name.Text, uint(len(params)), body); err != nil {
		c.fail(err)
	}
	c.literal(prim.Sym(name.Text))
}
