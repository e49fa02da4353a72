// Package fileinput reads runes sequentially through a queue of named input
// streams, tracking source locations for diagnostics.
package fileinput

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jcorbin/scribble/internal/runeio"
)

// Location names a position in an Input stream; Line and Col are 1-based,
// and Col counts runes.
type Location struct {
	Name string
	Line int
	Col  int
}

// Line combines a Location along with a bytes.Buffer holding the line's text
// read so far.
type Line struct {
	Location
	bytes.Buffer
}

func (loc Location) String() string {
	if loc.Col > 0 {
		return fmt.Sprintf("%v:%v:%v", loc.Name, loc.Line, loc.Col)
	}
	return fmt.Sprintf("%v:%v", loc.Name, loc.Line)
}

func (il *Line) String() string { return fmt.Sprintf("%v %q", il.Location, il.Buffer.String()) }

// Input implements sequential rune reading through a Queue of one or more
// input streams. Both the current and last scanned lines are tracked to
// facilitate user feedback.
type Input struct {
	rr    runeio.Reader
	Queue []io.Reader
	Last  Line
	Scan  Line
}

// New returns an Input reading from each of rs in turn.
func New(rs ...io.Reader) *Input {
	return &Input{Queue: rs}
}

// ReadRune reads one rune from the current input stream, appending it into
// the current Scan line and advancing Scan.Col; a line feed rolls Scan over
// to Last. Reaching the end of one stream moves on to the next; io.EOF is only
// returned after the last stream is exhausted.
func (in *Input) ReadRune() (rune, int, error) {
	for {
		if in.rr == nil && !in.nextIn() {
			return 0, 0, io.EOF
		}

		r, n, err := in.rr.ReadRune()
		if err == io.EOF {
			in.closeIn()
			continue
		} else if err != nil {
			return 0, 0, err
		}

		if r == '\n' {
			in.nextLine()
		} else {
			in.Scan.WriteRune(r)
			in.Scan.Col++
		}
		return r, n, nil
	}
}

func (in *Input) nextLine() {
	in.Last.Reset()
	in.Last.Location = in.Scan.Location
	in.Last.Col = 0
	in.Last.Write(in.Scan.Bytes())
	in.Scan.Reset()
	in.Scan.Line++
	in.Scan.Col = 0
}

func (in *Input) closeIn() {
	if in.Scan.Len() > 0 {
		in.nextLine()
	}
	if cl, ok := in.rr.(io.Closer); ok {
		cl.Close()
	}
	in.rr = nil
}

func (in *Input) nextIn() bool {
	if len(in.Queue) == 0 {
		return false
	}
	r := in.Queue[0]
	in.Queue = in.Queue[1:]
	in.rr = runeio.NewReader(r)
	in.Scan.Name = nameOf(r)
	in.Scan.Line = 1
	in.Scan.Col = 0
	return true
}

func nameOf(obj interface{}) string {
	if nom, ok := obj.(interface{ Name() string }); ok {
		return nom.Name()
	}
	return fmt.Sprintf("<unnamed %T>", obj)
}
