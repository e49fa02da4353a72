package main

import (
	"fmt"
	"sort"
)

// procedure is one entry in the procedure table; entry is the code address
// of its first instruction, and arity counts the arguments it takes.
type procedure struct {
	entry uint
	arity uint
}

type procTable struct {
	names []string
	procs map[string]procedure
}

// define binds name, returning true if it replaced a prior binding.
func (pt *procTable) define(name string, proc procedure) (replaced bool) {
	if pt.procs == nil {
		pt.procs = make(map[string]procedure)
	}
	if _, replaced = pt.procs[name]; !replaced {
		pt.names = append(pt.names, name)
	}
	pt.procs[name] = proc
	return replaced
}

func (pt procTable) lookup(name string) (procedure, bool) {
	proc, ok := pt.procs[name]
	return proc, ok
}

func (pt procTable) resolve(name string) (procedure, error) {
	if proc, ok := pt.procs[name]; ok {
		return proc, nil
	}
	return procedure{}, undefinedSymbolError(name)
}

// sorted returns all procedure names in order of ascending entry address.
func (pt procTable) sorted() []string {
	names := append([]string(nil), pt.names...)
	sort.SliceStable(names, func(i, j int) bool {
		return pt.procs[names[i]].entry < pt.procs[names[j]].entry
	})
	return names
}

func (pt procTable) describe(name string) string {
	proc := pt.procs[name]
	return fmt.Sprintf("%v/%v@%v", name, proc.arity, proc.entry)
}
