package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/scribble/internal/code"
	"github.com/jcorbin/scribble/internal/fileinput"
	"github.com/jcorbin/scribble/internal/lexer"
	"github.com/jcorbin/scribble/internal/mem"
	"github.com/jcorbin/scribble/internal/prim"
	"github.com/jcorbin/scribble/internal/runeio"
)

// interpret returns a test op that compiles and runs src one top-level
// expression at a time.
func interpret(src string) func(vm *VM) {
	return func(vm *VM) {
		c := compiler{defs: vmDefiner{vm}, toks: lexer.New(fileinput.New(
			runeio.Named("test", strings.NewReader(src)),
		))}
		for {
			prog, err := c.next()
			vm.haltif(err)
			if prog == nil {
				return
			}
			func() {
				mark := vm.stack.CodeTop()
				defer vm.stack.Rollback(mark)
				vm.prog = vm.define(replSymbol, 0, prog)
				vm.setBase(vm.stack.Position())
				vm.frames = 0
				vm.exec(context.Background())
			}()
		}
	}
}

// vmDefiner defines directly, since test ops already run under isolate.
type vmDefiner struct{ vm *VM }

func (d vmDefiner) DefineProcedure(name string, arity uint, body []code.Instruction) (uint, error) {
	return d.vm.define(name, arity, body), nil
}

func Test_Interpret(t *testing.T) {
	var (
		I = prim.Int
		S = prim.Str
		Y = prim.Sym
	)

	var testCases vmTestCases
	testCases = append(testCases,
		vmTest("add").
			do(interpret(`add(7 5)`)).
			expectOutput("0x0000000c\n").
			expectStack(I(12)).
			expectCodeTop(5),
		vmTest("print builtin").
			do(interpret(`print("hi")`)).
			expectOutput(lines(`"hi"`, `"hi"`)).
			expectStack(S("hi")),
		vmTest("literals").
			do(interpret(`1 "two" three`)).
			expectOutput(lines(`0x00000001`, `"two"`, `three`)).
			expectStack(I(1), S("two"), Y("three")),
		vmTest("nested").
			withMemLayout(32, 64).
			do(interpret(`add(add(1 2) add(3 4))`)).
			expectOutput("0x0000000a\n").
			expectStack(I(10)),
		vmTest("double").
			do(interpret(`
				define(double (x) add(x x))
				double(21)
			`)).
			expectOutput(lines(`double`, `0x0000002a`)).
			expectStack(Y("double"), I(42)).
			expectProc("double", 1, 5).
			expectCodeTop(11),
		vmTest("second param").
			do(interpret(`define(second (a b) b) second(1 2)`)).
			expectOutput(lines(`second`, `0x00000002`)),
		vmTest("parameters are frame local").
			withMemLayout(32, 64).
			do(interpret(`
				define(inner (y) add(y 1))
				define(outer (x) inner(add(x x)))
				outer(5)
			`)).
			expectOutput(lines(`inner`, `outer`, `0x0000000b`)),
		vmTest("redefinition reaches callers").
			withMemLayout(32, 64).
			apply(expectVMNotes("redefining foo")).
			do(interpret(`
				define(foo () 1)
				define(bar () foo())
				bar()
				define(foo () 2)
				bar()
			`)).
			expectOutput(lines(
				`foo`, `bar`, `0x00000001`,
				`foo`, `0x00000002`,
			)),
		vmTest("procedure body ignores later values").
			do(interpret(`define(last () 1 2 3) last()`)).
			expectOutput(lines(`last`, `0x00000003`)).
			expectStack(Y("last"), I(3)),

		// run time errors
		vmTest("not enough arguments").
			do(interpret(`add(1)`)).
			expectError(arityError{"add", 2, 1}).
			expectCodeTop(5),
		vmTest("undefined").
			do(interpret(`nope()`)).
			expectError(undefinedSymbolError("nope")),
		vmTest("add string").
			do(interpret(`add("x" 1)`)).
			expectError(typeError{code.OpAdd, prim.KindError{Want: prim.Integer, Got: S("x")}}),
		vmTest("runaway recursion").
			do(interpret(`define(down () down()) down()`)).
			expectError(mem.ErrStackOverflow),
	)
	testCases.run(t)
}

func Test_Compile(t *testing.T) {
	lexQueue := func(src string) *lexer.Queue {
		lx := lexer.New(fileinput.New(runeio.Named("test", strings.NewReader(src))))
		var q lexer.Queue
		for {
			tok, err := lx.ReadToken()
			require.NoError(t, err)
			if tok.Kind == lexer.EOF {
				return &q
			}
			q = append(q, tok)
		}
	}

	for _, tc := range []struct {
		name string
		src  string
		prog string
		defs []string
	}{
		{
			name: "empty",
			prog: lines(`0000 halt`),
		},
		{
			name: "call",
			src:  `add(7 5)`,
			prog: lines(
				`0000 moveint r1 0x00000007`,
				`0001 push r1`,
				`0002 moveint r1 0x00000005`,
				`0003 push r1`,
				`0004 call add`,
				`0005 print`,
				`0006 halt`,
			),
		},
		{
			name: "two expressions",
			src:  `"a" b`,
			prog: lines(
				`0000 movestr r1 "a"`,
				`0001 push r1`,
				`0002 print`,
				`0003 movesym r1 b`,
				`0004 push r1`,
				`0005 print`,
				`0006 halt`,
			),
		},
		{
			name: "define",
			src:  `define(double (x) add(x x))`,
			prog: lines(
				`0000 movesym r1 double`,
				`0001 push r1`,
				`0002 print`,
				`0003 halt`,
			),
			defs: []string{
				"double/1",
				`0000 load r1 0`,
				`0001 push r1`,
				`0002 load r1 0`,
				`0003 push r1`,
				`0004 call add`,
				`0005 ret`,
			},
		},
		{
			name: "param shadows only inside body",
			src:  `define(f (x) x) x`,
			prog: lines(
				`0000 movesym r1 f`,
				`0001 push r1`,
				`0002 print`,
				`0003 movesym r1 x`,
				`0004 push r1`,
				`0005 print`,
				`0006 halt`,
			),
			defs: []string{
				"f/1",
				`0000 load r1 0`,
				`0001 push r1`,
				`0002 ret`,
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var defs recordingDefiner
			prog, err := Compile(&defs, lexQueue(tc.src))
			require.NoError(t, err)
			assert.Equal(t, tc.prog, code.Disassemble(0, prog), "expected program")
			assert.Equal(t, tc.defs, defs.log, "expected definitions")
		})
	}
}

type recordingDefiner struct {
	log []string
	err error
}

func (rd *recordingDefiner) DefineProcedure(name string, arity uint, body []code.Instruction) (uint, error) {
	if rd.err != nil {
		return 0, rd.err
	}
	rd.log = append(rd.log, fmt.Sprintf("%v/%v", name, arity))
	rd.log = append(rd.log, strings.Split(strings.TrimSuffix(code.Disassemble(0, body), "\n"), "\n")...)
	return 0, nil
}

func Test_Compile_errors(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
		typ  *errorx.Type
		msg  string
	}{
		{"anonymous list", `(1 2)`, errUndeclaredForm, "test:1:1: list has no form"},
		{"bare define", `define`, errUndeclaredForm, "define must be followed by ("},
		{"unclosed call", `add(1`, errUnexpectedToken, "expected ), got end of input"},
		{"stray paren", `)`, errUnexpectedToken, "test:1:1: expected expression, got )"},
		{"define without params", `define(f)`, errUnexpectedToken, "expected parameter list, got )"},
		{"define bad name", `define("f" () 1)`, errUnexpectedToken, "expected procedure name"},
		{"define bad param", `define(f (1) 1)`, errUnexpectedToken, "expected parameter name"},
		{"duplicate param", `define(f (a a) a)`, errBadDefine, "duplicate parameter a"},
		{"define define", `define(define () 1)`, errBadDefine, "cannot redefine define"},
		{"unclosed body", `define(f () 1`, errUnexpectedToken, "expected ), got end of input"},
		{"huge integer", `99999999999999999999999`, errBadLiteral, "invalid integer"},
		{"lexer error", `add(1x)`, lexer.BadToken, "expected digit"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var defs recordingDefiner
			lx := lexer.New(fileinput.New(runeio.Named("test", strings.NewReader(tc.src))))
			_, err := Compile(&defs, lx)
			require.Error(t, err)
			assert.True(t, errorx.IsOfType(err, tc.typ), "expected a %v error, got %+v", tc.typ, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}

	t.Run("definer error", func(t *testing.T) {
		defs := recordingDefiner{err: mem.ErrCodeOverflow}
		lx := lexer.New(fileinput.New(runeio.Named("test", strings.NewReader(`define(f () 1)`))))
		_, err := Compile(&defs, lx)
		assert.True(t, errors.Is(err, mem.ErrCodeOverflow), "expected code overflow, got %v", err)
	})
}

func Test_API(t *testing.T) {
	newVM := func(out *strings.Builder) *VM {
		return New(WithOutput(out), WithMemLayout(32, 64))
	}
	source := func(src string) *fileinput.Input {
		return fileinput.New(runeio.Named("test", strings.NewReader(src)))
	}
	ctx := context.Background()

	t.Run("execute rolls back", func(t *testing.T) {
		var out strings.Builder
		vm := newVM(&out)
		prog := []code.Instruction{
			code.MoveInt(code.Reg1, 7), code.Push(code.Reg1),
			code.MoveInt(code.Reg1, 5), code.Push(code.Reg1),
			code.Call("add"), code.Print(), code.Halt(),
		}
		require.NoError(t, vm.Execute(ctx, prog))
		top := vm.CodeTop()
		require.NoError(t, vm.Execute(ctx, prog))
		assert.Equal(t, top, vm.CodeTop(), "expected no code region growth")
		assert.Equal(t, []prim.Primitive{prim.Int(12), prim.Int(12)}, vm.Stack())
		assert.Equal(t, lines(`0x0000000c`, `0x0000000c`), out.String())

		err := vm.Execute(ctx, []code.Instruction{code.Call("nope"), code.Halt()})
		assert.True(t, errors.Is(err, errUndefinedSymbol), "expected undefined symbol, got %v", err)
		assert.Equal(t, top, vm.CodeTop(), "expected rollback after error")
	})

	t.Run("execute return without frame", func(t *testing.T) {
		vm := newVM(new(strings.Builder))
		require.NoError(t, vm.Interpret(ctx, source(`0 32`)))
		top := vm.CodeTop()
		err := vm.Execute(ctx, []code.Instruction{code.Ret(), code.Halt()})
		assert.True(t, errors.Is(err, errNoFrame), "expected no frame error, got %v", err)
		assert.Equal(t, []prim.Primitive{prim.Int(0), prim.Int(32)}, vm.Stack(),
			"expected caller values left in place")
		assert.Equal(t, top, vm.CodeTop(), "expected rollback after error")

		require.NoError(t, vm.Interpret(ctx, source(`add(1 2)`)))
		assert.Equal(t, []prim.Primitive{prim.Int(0), prim.Int(32), prim.Int(3)}, vm.Stack())
	})

	t.Run("define then execute entry", func(t *testing.T) {
		var out strings.Builder
		vm := newVM(&out)
		entry, err := vm.DefineProcedure("seven", 0, []code.Instruction{
			code.MoveInt(code.Reg1, 7), code.Push(code.Reg1), code.Print(), code.Ret(),
		})
		require.NoError(t, err)
		assert.Equal(t, uint(5), entry)
		require.NoError(t, vm.ExecuteEntry(ctx, entry))
		assert.Equal(t, []prim.Primitive{prim.Int(7)}, vm.Stack())
		assert.Equal(t, "0x00000007\n", out.String())
		assert.Equal(t, prim.Int(32), vm.regs[code.RegBase], "expected base restored")
	})

	t.Run("define overflow", func(t *testing.T) {
		vm := New(WithMemLayout(6, 12))
		_, err := vm.DefineProcedure("big", 0, []code.Instruction{code.Ret(), code.Ret()})
		assert.True(t, errors.Is(err, mem.ErrCodeOverflow), "expected code overflow, got %v", err)
	})

	t.Run("interpret", func(t *testing.T) {
		var out strings.Builder
		vm := newVM(&out)
		require.NoError(t, vm.Interpret(ctx, source(`define(double (x) add(x x)) double(21)`)))
		assert.Equal(t, lines(`double`, `0x0000002a`), out.String())
		assert.Equal(t, []prim.Primitive{prim.Sym("double"), prim.Int(42)}, vm.Stack())
		assert.Equal(t, uint(11), vm.CodeTop(), "expected only the definition to remain")
	})

	t.Run("interpret stops at first error", func(t *testing.T) {
		var out strings.Builder
		vm := newVM(&out)
		err := vm.Interpret(ctx, source("1\nadd(1)\n2"))
		assert.True(t, errors.Is(err, errNotEnoughArgs), "expected arity error, got %v", err)
		assert.Equal(t, "0x00000001\n", out.String())
	})

	t.Run("canceled", func(t *testing.T) {
		vm := newVM(new(strings.Builder))
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		err := vm.Execute(ctx, []code.Instruction{code.MoveInt(code.Reg1, 1), code.Halt()})
		assert.True(t, errors.Is(err, context.Canceled), "expected cancellation, got %v", err)
	})

	t.Run("close flushes output", func(t *testing.T) {
		var out flushCounter
		vm := New(WithOutput(&out))
		require.NoError(t, vm.Close())
		assert.Equal(t, 1, out.flushes, "expected one flush on close")

		out.err = errors.New("disk full")
		assert.Equal(t, out.err, vm.Close(), "expected flush error from close")
	})

	t.Run("depth conservation", func(t *testing.T) {
		vm := newVM(new(strings.Builder))
		_, err := vm.DefineProcedure("noisy", 2, []code.Instruction{
			code.MoveInt(code.Reg1, 9), code.Push(code.Reg1),
			code.Push(code.Reg1), code.Push(code.Reg1),
			code.Ret(),
		})
		require.NoError(t, err)
		require.NoError(t, vm.Interpret(ctx, source(`0 noisy(1 2)`)))
		assert.Equal(t, []prim.Primitive{prim.Int(0), prim.Int(9)}, vm.Stack(),
			"expected arguments consumed and one value returned")
	})
}

type flushCounter struct {
	strings.Builder
	flushes int
	err     error
}

func (fc *flushCounter) Flush() error {
	fc.flushes++
	return fc.err
}
