package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jcorbin/scribble/internal/code"
)

type vmDumper struct {
	vm  *VM
	out io.Writer

	addrWidth int
}

func (dump vmDumper) dump() {
	vm := dump.vm
	fmt.Fprintf(dump.out, "# VM Dump\n")
	fmt.Fprintf(dump.out, "  prog: %v\n", vm.prog)
	fmt.Fprintf(dump.out, "  regs:")
	for reg := code.Reg1; reg < code.RegCount; reg++ {
		fmt.Fprintf(dump.out, " %v:%v", reg, vm.regs[reg])
	}
	fmt.Fprintf(dump.out, "\n")
	if vm.stack == nil {
		fmt.Fprintf(dump.out, "  memory: unallocated\n")
		return
	}
	dump.dumpProcs()
	dump.dumpCode()
	dump.dumpStack()
}

func (dump *vmDumper) dumpProcs() {
	names := dump.vm.procs.sorted()
	procs := make([]string, len(names))
	for i, name := range names {
		procs[i] = dump.vm.procs.describe(name)
	}
	fmt.Fprintf(dump.out, "  procs: %v\n", procs)
}

func (dump *vmDumper) width() int {
	if dump.addrWidth == 0 {
		dump.addrWidth = len(strconv.Itoa(int(dump.vm.stack.Cap()))) + 1
	}
	return dump.addrWidth
}

func (dump *vmDumper) dumpCode() {
	st := dump.vm.stack
	fmt.Fprintf(dump.out, "# Code [0, %v) of %v\n", st.CodeTop(), st.Reserved())

	entries := make(map[uint][]string)
	for _, name := range dump.vm.procs.sorted() {
		proc, _ := dump.vm.procs.lookup(name)
		if proc.entry < st.CodeTop() {
			entries[proc.entry] = append(entries[proc.entry], name)
		}
	}

	for addr, ins := range st.Code() {
		for _, name := range entries[uint(addr)] {
			fmt.Fprintf(dump.out, "  %v:\n", dump.vm.procs.describe(name))
		}
		fmt.Fprintf(dump.out, "  @% *v %v\n", dump.width(), addr, ins)
	}
}

func (dump *vmDumper) dumpStack() {
	st := dump.vm.stack
	fmt.Fprintf(dump.out, "# Stack [%v, %v) of %v\n", st.Reserved(), st.Position(), st.Cap())
	base, _ := dump.vm.regs[code.RegBase].AsInteger()
	for i, val := range st.Values() {
		addr := st.Reserved() + uint(i)
		fmt.Fprintf(dump.out, "  @% *v %v", dump.width(), addr, val)
		if uint64(addr) == base {
			fmt.Fprintf(dump.out, " <- base")
		}
		fmt.Fprintf(dump.out, "\n")
	}
	if uint64(st.Position()) == base {
		fmt.Fprintf(dump.out, "  @% *v <- base\n", dump.width(), st.Position())
	}
}
