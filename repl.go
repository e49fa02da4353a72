package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/jcorbin/scribble/internal/config"
	"github.com/jcorbin/scribble/internal/fileinput"
	"github.com/jcorbin/scribble/internal/logio"
	"github.com/jcorbin/scribble/internal/runeio"
)

const (
	replOutputPrefix = "> "
	replInfoPrefix   = "| "
	replContPrompt   = "  "
)

type repl struct {
	vm  *VM
	out io.Writer
	seq int
}

// runREPL reads expressions interactively until end of input or :quit;
// errors are reported and do not end the session.
func runREPL(ctx context.Context, cfg *config.Config, opts ...VMOption) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if path := cfg.REPL.History; path != "" {
		if f, err := os.Open(path); err == nil {
			ln.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(path); err == nil {
				ln.WriteHistory(f)
				f.Close()
			}
		}()
	}

	r := newREPL(os.Stdout, opts...)
	defer r.vm.Close()

	for {
		src, ok := readExpr(ln, cfg.REPL.Prompt)
		if !ok {
			fmt.Fprintln(r.out)
			return nil
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		if r.handle(ctx, src) {
			return nil
		}
	}
}

func newREPL(out io.Writer, opts ...VMOption) *repl {
	r := &repl{out: out}
	r.vm = New(append(opts,
		WithOutput(&logio.Writer{Prefix: replOutputPrefix, Logf: r.printf}),
	)...)
	return r
}

func (r *repl) printf(mess string, args ...interface{}) {
	fmt.Fprintf(r.out, mess+"\n", args...)
}

func (r *repl) infof(mess string, args ...interface{}) {
	r.printf(replInfoPrefix+mess, args...)
}

// handle runs one chunk of input, returning true when the session should end.
func (r *repl) handle(ctx context.Context, src string) (quit bool) {
	if cmd := strings.TrimSpace(src); strings.HasPrefix(cmd, ":") {
		switch cmd {
		case ":quit":
			return true
		case ":dump":
			r.vm.Dump(&logio.Writer{Prefix: replInfoPrefix, Logf: r.printf})
		case ":procs":
			for _, name := range r.vm.procs.sorted() {
				if name != replSymbol {
					r.infof("%v", r.vm.procs.describe(name))
				}
			}
		default:
			r.infof("unknown command %v; try :dump, :procs, or :quit", cmd)
		}
		return false
	}

	r.seq++
	name := fmt.Sprintf("<repl %v>", r.seq)
	in := fileinput.New(runeio.Named(name, strings.NewReader(src)))
	if err := r.vm.Interpret(ctx, in); err != nil {
		r.infof("ERROR: %v", err)
	}
	return false
}

// readExpr reads lines until their parentheses balance.
func readExpr(ln *liner.State, prompt string) (string, bool) {
	var b strings.Builder
	for {
		p := prompt
		if b.Len() > 0 {
			p = replContPrompt
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, liner.ErrPromptAborted) {
			b.Reset()
			continue
		} else if err != nil {
			return "", false
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if src := b.String(); openParens(src) <= 0 {
			return src, true
		}
	}
}

// openParens counts parentheses left unclosed in src, ignoring any inside
// string literals.
func openParens(src string) (n int) {
	quoted := false
	for _, r := range src {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '(':
			n++
		case r == ')':
			n--
		}
	}
	return n
}
