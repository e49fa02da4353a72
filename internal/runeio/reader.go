// Package runeio provides rune-oriented reading and writing helpers for the
// source input and printed output of the VM.
package runeio

import (
	"bufio"
	"io"
)

// Reader is an io.Reader that also supports reading runes.
type Reader interface {
	io.Reader
	io.RuneReader
}

// NewReader returns a Reader from r; if r already implements, it is simply
// returned, otherwise it is buffered by a bufio.Reader.
// If r implements Name() string, so will the returned Reader.
func NewReader(r io.Reader) Reader {
	if impl, ok := r.(Reader); ok {
		return impl
	}
	br := bufio.NewReader(r)
	if impl, ok := r.(interface{ Name() string }); ok {
		return namedReader{br, impl.Name()}
	}
	return br
}

// Named attaches a name to r, e.g. for source locations of in-memory input.
func Named(name string, r io.Reader) Reader {
	return namedReader{NewReader(r), name}
}

type namedReader struct {
	Reader
	name string
}

func (nr namedReader) Name() string { return nr.name }
