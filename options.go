package main

import (
	"io"

	"github.com/jcorbin/scribble/internal/flushio"
	"github.com/jcorbin/scribble/internal/mem"
)

type VMOption interface{ apply(vm *VM) }

type vmOptions []VMOption

// VMOptions combines options into one, applied in order.
func VMOptions(opts ...VMOption) VMOption {
	var all vmOptions
	for _, opt := range opts {
		switch impl := opt.(type) {
		case nil:
		case vmOptions:
			all = append(all, impl...)
		default:
			all = append(all, impl)
		}
	}
	return all
}

func (opts vmOptions) apply(vm *VM) {
	for _, opt := range opts {
		opt.apply(vm)
	}
}

var defaultOptions = VMOptions(
	withOutput(io.Discard),
	withMemLayout(mem.DefaultReserved, mem.DefaultCapacity),
)

type withLogfn func(mess string, args ...interface{})
type withNotefn func(mess string, args ...interface{})

func (logfn withLogfn) apply(vm *VM)  { vm.logfn = logfn }
func (notef withNotefn) apply(vm *VM) { vm.notefn = notef }

type outputOption struct{ io.Writer }
type teeOption struct{ io.Writer }
type memLayoutOption struct{ reserved, capacity uint }

func withOutput(w io.Writer) outputOption { return outputOption{w} }
func withTee(w io.Writer) teeOption       { return teeOption{w} }

func withMemLayout(reserved, capacity uint) memLayoutOption {
	return memLayoutOption{reserved, capacity}
}

func (o outputOption) apply(vm *VM) {
	if vm.out != nil {
		vm.out.Flush()
	}
	vm.out = flushio.NewWriteFlusher(o.Writer)
}

func (o teeOption) apply(vm *VM) {
	vm.out = flushio.Tee(vm.out, flushio.NewWriteFlusher(o.Writer))
}

func (lay memLayoutOption) apply(vm *VM) {
	if lay.reserved != 0 {
		vm.reserved = lay.reserved
	}
	if lay.capacity != 0 {
		vm.capacity = lay.capacity
	}
}
