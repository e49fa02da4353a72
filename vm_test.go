package main

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jcorbin/scribble/internal/code"
	"github.com/jcorbin/scribble/internal/logio"
	"github.com/jcorbin/scribble/internal/prim"
)

type vmTestCases []vmTestCase

func (vmts vmTestCases) run(t *testing.T) {
	for _, vmt := range vmts {
		if !t.Run(vmt.name, vmt.run) {
			return
		}
	}
}

func vmTest(name string) (vmt vmTestCase) {
	vmt.name = name
	return vmt
}

type vmTestCase struct {
	name    string
	opts    []interface{}
	setup   []func(vm *VM)
	ops     []func(vm *VM)
	expect  []func(t *testing.T, vm *VM)
	timeout time.Duration
	wantErr error
}

func (vmt vmTestCase) apply(wraps ...func(vmTestCase) vmTestCase) vmTestCase {
	for _, wrap := range wraps {
		vmt = wrap(vmt)
	}
	return vmt
}

func (vmt vmTestCase) withOptions(opts ...VMOption) vmTestCase {
	for _, opt := range opts {
		vmt.opts = append(vmt.opts, opt)
	}
	return vmt
}

func (vmt vmTestCase) withMemLayout(reserved uint, capacity uint) vmTestCase {
	vmt.opts = append(vmt.opts, withMemLayout(reserved, capacity))
	return vmt
}

func (vmt vmTestCase) withProg(prog uint) vmTestCase {
	vmt.setup = append(vmt.setup, func(vm *VM) {
		vm.prog = prog
	})
	return vmt
}

func (vmt vmTestCase) withBase(base uint) vmTestCase {
	vmt.setup = append(vmt.setup, func(vm *VM) {
		vm.setBase(base)
	})
	return vmt
}

func (vmt vmTestCase) withReg(reg code.Register, val prim.Primitive) vmTestCase {
	vmt.setup = append(vmt.setup, func(vm *VM) {
		vm.regs[reg] = val
	})
	return vmt
}

func (vmt vmTestCase) withStack(values ...prim.Primitive) vmTestCase {
	vmt.setup = append(vmt.setup, func(vm *VM) {
		for _, val := range values {
			vm.push(val)
		}
	})
	return vmt
}

func (vmt vmTestCase) withProc(name string, arity uint, body ...code.Instruction) vmTestCase {
	vmt.setup = append(vmt.setup, func(vm *VM) {
		vm.define(name, arity, body)
	})
	return vmt
}

func (vmt vmTestCase) do(ops ...func(vm *VM)) vmTestCase {
	vmt.ops = append(vmt.ops, ops...)
	return vmt
}

func (vmt vmTestCase) withTimeout(timeout time.Duration) vmTestCase {
	vmt.timeout = timeout
	return vmt
}

func (vmt vmTestCase) expectError(err error) vmTestCase {
	vmt.wantErr = err
	return vmt
}

func (vmt vmTestCase) expectProg(prog uint) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, prog, vm.prog, "expected program counter")
	})
	return vmt
}

func (vmt vmTestCase) expectBase(base uint) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, prim.Int(uint64(base)), vm.regs[code.RegBase], "expected frame base")
	})
	return vmt
}

func (vmt vmTestCase) expectReg(reg code.Register, val prim.Primitive) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, val, vm.regs[reg], "expected register %v", reg)
	})
	return vmt
}

func (vmt vmTestCase) expectStack(values ...prim.Primitive) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		if values == nil {
			values = []prim.Primitive{}
		}
		assert.Equal(t, values, vm.stack.Values(), "expected stack values")
	})
	return vmt
}

func (vmt vmTestCase) expectCodeTop(top uint) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, top, vm.stack.CodeTop(), "expected code region cursor")
	})
	return vmt
}

func (vmt vmTestCase) expectProc(name string, arity uint, entry uint) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		proc, defined := vm.procs.lookup(name)
		if assert.True(t, defined, "expected procedure %q to be defined", name) {
			assert.Equal(t, procedure{entry, arity}, proc, "expected procedure %q", name)
		}
	})
	return vmt
}

func (vmt vmTestCase) expectOutput(output string) vmTestCase {
	var out strings.Builder
	vmt.opts = append(vmt.opts, WithOutput(&out))
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, output, out.String(), "expected output")
	})
	return vmt
}

func (vmt vmTestCase) expectNotes(notes ...string) vmTestCase {
	var got []string
	vmt.opts = append(vmt.opts, WithNotef(func(mess string, args ...interface{}) {
		got = append(got, fmt.Sprintf(mess, args...))
	}))
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, notes, got, "expected notices")
	})
	return vmt
}

func (vmt vmTestCase) expectDump(dump string) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		var out strings.Builder
		vmDumper{
			vm:  vm,
			out: &out,
		}.dump()
		assert.Equal(t, dump, out.String(), "expected dump")
	})
	return vmt
}

func (vmt vmTestCase) withTestDump() vmTestCase {
	vmt.expect = append(vmt.expect, vmt.dumpToTest)
	return vmt
}

func (vmt vmTestCase) withTestOutput() vmTestCase {
	vmt.opts = append(vmt.opts, func(vmt *vmTestCase, t *testing.T) VMOption {
		return WithTee(&logio.Writer{Prefix: "out: ", Logf: t.Logf})
	})
	return vmt
}

func (vmt vmTestCase) run(t *testing.T) {
	defer func(then time.Time) {
		label := "PASS"
		if t.Failed() {
			label = "FAIL"
		}
		t.Logf("%v\t%v\t%v", label, t.Name(), time.Since(then))
	}(time.Now())

	if testFails(func(t *testing.T) {
		vmt.runVMTest(context.Background(), t, vmt.buildVM(t))
	}) {
		vm := vmt.buildVM(t)
		WithLogf(t.Logf).apply(vm)
		vmt.runVMTest(context.Background(), t, vm)
	}
}

func (vmt vmTestCase) runVMTest(ctx context.Context, t *testing.T, vm *VM) {
	const defaultTimeout = time.Second
	timeout := vmt.timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if t.Failed() {
			vmt.dumpToTest(t, vm)
		}
	}()

	if err := vmt.runVM(ctx, vm); vmt.wantErr != nil {
		assert.True(t, errors.Is(err, vmt.wantErr), "expected error: %v\ngot: %+v", vmt.wantErr, err)
	} else {
		assert.NoError(t, err, "unexpected VM error")
	}

	if !t.Failed() {
		for _, expect := range vmt.expect {
			expect(t, vm)
		}
	}
}

func (vmt vmTestCase) runVM(ctx context.Context, vm *VM) (rerr error) {
	defer func() {
		if err := vm.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("vm.Close failed: %w", err)
		}
	}()

	names := make([]string, len(vmt.ops))
	for i, op := range vmt.ops {
		names[i] = runtime.FuncForPC(reflect.ValueOf(op).Pointer()).Name()
	}
	return vm.isolate("vmTestCase.ops", func() error {
		vm.init()
		for _, setup := range vmt.setup {
			setup(vm)
		}
		for i, op := range vmt.ops {
			vm.logf(">", "do[%v] %v", i, names[i])
			op(vm)
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (vmt vmTestCase) buildVM(t *testing.T) *VM {
	const (
		testReserved = 16
		testCapacity = 32
	)

	var opt VMOption = withMemLayout(testReserved, testCapacity)
	for _, o := range vmt.opts {
		switch impl := o.(type) {
		case func(vmt *vmTestCase, t *testing.T) VMOption:
			opt = VMOptions(opt, impl(&vmt, t))
		case VMOption:
			opt = VMOptions(opt, impl)
		default:
			t.Logf("unsupported vmTestCase opt type %T", o)
			t.FailNow()
		}
	}
	return New(opt)
}

func (vmt vmTestCase) dumpToTest(t *testing.T, vm *VM) {
	lw := logio.Writer{Logf: t.Logf}
	defer lw.Close()
	vmDumper{vm: vm, out: &lw}.dump()
}

//// test ops

// runProg writes prog, followed by a halt, above the code cursor and runs it.
func runProg(prog ...code.Instruction) func(vm *VM) {
	return func(vm *VM) {
		entry, err := vm.stack.WriteCode(append(prog, code.Halt())...)
		vm.haltif(err)
		vm.prog = entry
		vm.exec(context.Background())
	}
}

//// utilities

func testFails(fn func(t *testing.T)) bool {
	var fakeT testing.T
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(&fakeT)
	}()
	<-done
	return fakeT.Failed()
}

func lines(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}
