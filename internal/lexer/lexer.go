// Package lexer turns source text into the token stream consumed by the
// compiler.
//
// Language:
//
//	string:  "..."              any text wrapped in double quotes
//	integer: [0-9]+             decimal, unsigned
//	name:    [A-Za-z][^ ()]*    a letter followed by anything up to space or paren
//	parens:  ( )
package lexer

import (
	"fmt"
	"io"
	"unicode"

	"github.com/joomcode/errorx"

	"github.com/jcorbin/scribble/internal/fileinput"
	"github.com/jcorbin/scribble/internal/runeio"
)

// Kind classifies a Token.
type Kind uint8

const (
	Invalid Kind = iota
	String
	Integer
	Symbol
	LParen
	RParen
	EOF
)

var kindNames = [...]string{
	Invalid: "!!BAD!!",
	String:  "String",
	Integer: "Integer",
	Symbol:  "Symbol",
	LParen:  "(",
	RParen:  ")",
	EOF:     "end of input",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[Invalid]
}

// Token is one lexical unit; Text holds the string contents, the integer
// digits, or the name.
type Token struct {
	Kind Kind
	Text string
	Loc  fileinput.Location
}

func (tok Token) String() string {
	switch tok.Kind {
	case String:
		return fmt.Sprintf("String %q", tok.Text)
	case Integer, Symbol:
		return fmt.Sprintf("%v %v", tok.Kind, tok.Text)
	default:
		return tok.Kind.String()
	}
}

var (
	// Errors is the namespace of all syntax errors.
	Errors = errorx.NewNamespace("syntax")

	// BadToken is returned for malformed input text.
	BadToken = Errors.NewType("bad_token")

	// Location holds the fileinput.Location of an error, where known.
	Location = errorx.RegisterProperty("location")
)

// Lexer reads tokens from an Input with one rune of lookahead.
type Lexer struct {
	in *fileinput.Input

	peeked   rune
	peekLoc  fileinput.Location
	peekErr  error
	havePeek bool
}

// New returns a Lexer reading from in.
func New(in *fileinput.Input) *Lexer {
	return &Lexer{in: in}
}

// ReadToken returns the next token; at the end of input it returns an EOF
// token, as many times as it is called. Malformed input is a BadToken error.
func (lex *Lexer) ReadToken() (Token, error) {
	if err := lex.skipSpace(); err == io.EOF {
		return Token{Kind: EOF, Loc: lex.in.Scan.Location}, nil
	} else if err != nil {
		return Token{}, err
	}

	r, loc, err := lex.next()
	if err != nil {
		return Token{}, err
	}
	switch {
	case r == '(':
		return Token{Kind: LParen, Loc: loc}, nil
	case r == ')':
		return Token{Kind: RParen, Loc: loc}, nil
	case r == '"':
		return lex.str(loc)
	case '0' <= r && r <= '9':
		return lex.word(Integer, r, loc)
	case unicode.IsLetter(r):
		return lex.word(Symbol, r, loc)
	}
	return Token{}, BadToken.New("names must begin with a letter, not %v", runeio.Describe(r)).
		WithProperty(Location, loc)
}

func (lex *Lexer) str(start fileinput.Location) (Token, error) {
	var text []rune
	for {
		r, _, err := lex.next()
		if err == io.EOF {
			return Token{}, BadToken.New("end of input before terminating string").
				WithProperty(Location, start)
		} else if err != nil {
			return Token{}, err
		}
		if r == '"' {
			return Token{Kind: String, Text: string(text), Loc: start}, nil
		}
		text = append(text, r)
	}
}

func (lex *Lexer) word(kind Kind, first rune, start fileinput.Location) (Token, error) {
	text := []rune{first}
	for {
		r, err := lex.peek()
		if err == io.EOF || isDelim(r) {
			return Token{Kind: kind, Text: string(text), Loc: start}, nil
		} else if err != nil {
			return Token{}, err
		}
		r, loc, _ := lex.next()
		if kind == Integer && !('0' <= r && r <= '9') {
			return Token{}, BadToken.New("expected digit, got %v", runeio.Describe(r)).
				WithProperty(Location, loc)
		}
		text = append(text, r)
	}
}

func isDelim(r rune) bool {
	return r == '(' || r == ')' || unicode.IsSpace(r)
}

func (lex *Lexer) skipSpace() error {
	for {
		r, err := lex.peek()
		if err != nil {
			return err
		}
		if !unicode.IsSpace(r) {
			return nil
		}
		lex.next()
	}
}

func (lex *Lexer) peek() (rune, error) {
	if !lex.havePeek {
		lex.peeked, _, lex.peekErr = lex.in.ReadRune()
		lex.peekLoc = lex.in.Scan.Location
		lex.havePeek = true
	}
	return lex.peeked, lex.peekErr
}

func (lex *Lexer) next() (rune, fileinput.Location, error) {
	r, err := lex.peek()
	if err == nil {
		lex.havePeek = false
	}
	return r, lex.peekLoc, err
}

// Queue is a pre-lexed token sequence; once drained it reads as EOF.
type Queue []Token

// ReadToken pops the first token from the queue.
func (q *Queue) ReadToken() (Token, error) {
	if len(*q) == 0 {
		return Token{Kind: EOF}, nil
	}
	tok := (*q)[0]
	*q = (*q)[1:]
	return tok, nil
}
