// Package lex provides a small whitespace and symbol aware tokenizer shared
// by the LEF, DEF and Liberty readers. All three formats are line oriented
// keyword soups, so one scanner with per-format options is enough.
package lex

import (
	"fmt"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
)

type Option func(*Scanner)

// WithSymbols makes every rune from the set a standalone token even when it
// is glued to a word, e.g. "cell(INV_X1)" becomes "cell" "(" "INV_X1" ")".
func WithSymbols(set string) Option {
	return func(s *Scanner) {
		s.symbols = set
	}
}

// WithLineComment sets the marker that comments out the rest of a line.
func WithLineComment(marker byte) Option {
	return func(s *Scanner) {
		s.lineComment = marker
	}
}

// WithBlockComments enables C style /* ... */ and // comments (Liberty).
func WithBlockComments() Option {
	return func(s *Scanner) {
		s.blockComments = true
	}
}

// Scanner splits input into tokens. Quoted strings are returned as a single
// token without the quotes.
type Scanner struct {
	z      *parse.Input
	line   int
	peeked *string

	symbols       string
	lineComment   byte
	blockComments bool
}

func NewScanner(data []byte, options ...Option) *Scanner {
	s := &Scanner{z: parse.NewInputBytes(data), line: 1}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Line is the 1-based line number of the most recently returned token.
func (s *Scanner) Line() int {
	return s.line
}

func (s *Scanner) isSymbol(c byte) bool {
	return strings.IndexByte(s.symbols, c) >= 0
}

func (s *Scanner) skipSpace() {
	for {
		c := s.z.Peek(0)
		switch {
		case c == '\n':
			s.line++
			s.z.Move(1)
		case c == ' ' || c == '\t' || c == '\r':
			s.z.Move(1)
		case s.lineComment != 0 && c == s.lineComment:
			s.skipToEOL()
		case s.blockComments && c == '/' && s.z.Peek(1) == '/':
			s.skipToEOL()
		case s.blockComments && c == '/' && s.z.Peek(1) == '*':
			s.z.Move(2)
			for {
				c := s.z.Peek(0)
				if c == 0 {
					return
				}
				if c == '\n' {
					s.line++
				}
				if c == '*' && s.z.Peek(1) == '/' {
					s.z.Move(2)
					break
				}
				s.z.Move(1)
			}
		default:
			return
		}
	}
}

func (s *Scanner) skipToEOL() {
	for {
		c := s.z.Peek(0)
		if c == 0 {
			return
		}
		if c == '\n' {
			return
		}
		// Liberty wraps long lines with a trailing backslash, keep going
		s.z.Move(1)
	}
}

// Next returns the next token. The second result is false at end of input.
func (s *Scanner) Next() (string, bool) {
	if s.peeked != nil {
		tok := *s.peeked
		s.peeked = nil
		return tok, true
	}
	return s.scan()
}

// Peek returns the next token without consuming it.
func (s *Scanner) Peek() (string, bool) {
	if s.peeked == nil {
		tok, ok := s.scan()
		if !ok {
			return "", false
		}
		s.peeked = &tok
	}
	return *s.peeked, true
}

func (s *Scanner) scan() (string, bool) {
	s.skipSpace()
	s.z.Skip()

	c := s.z.Peek(0)
	if c == 0 {
		return "", false
	}

	if c == '"' {
		s.z.Move(1)
		for {
			c := s.z.Peek(0)
			if c == 0 || c == '"' {
				break
			}
			if c == '\n' {
				s.line++
			}
			s.z.Move(1)
		}
		tok := string(s.z.Shift())
		if s.z.Peek(0) == '"' {
			s.z.Move(1)
			s.z.Skip()
		}
		return strings.TrimPrefix(tok, `"`), true
	}

	if s.isSymbol(c) {
		s.z.Move(1)
		return string(s.z.Shift()), true
	}

	for {
		c := s.z.Peek(0)
		if c == 0 || c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '"' || s.isSymbol(c) {
			break
		}
		if s.lineComment != 0 && c == s.lineComment {
			break
		}
		s.z.Move(1)
	}
	return string(s.z.Shift()), true
}

// Expect consumes the next token and fails unless it matches want.
func (s *Scanner) Expect(want string) error {
	tok, ok := s.Next()
	if !ok {
		return fmt.Errorf("line %d: unexpected end of input, want %q", s.line, want)
	}
	if tok != want {
		return fmt.Errorf("line %d: got %q, want %q", s.line, tok, want)
	}
	return nil
}

// NextFloat consumes the next token as a number.
func (s *Scanner) NextFloat() (float64, error) {
	tok, ok := s.Next()
	if !ok {
		return 0, fmt.Errorf("line %d: unexpected end of input, want number", s.line)
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: bad number %q: %w", s.line, tok, err)
	}
	return v, nil
}

// NextInt consumes the next token as an integer. DEF files sometimes write
// integral values with a decimal point, those are accepted too.
func (s *Scanner) NextInt() (int64, error) {
	tok, ok := s.Next()
	if !ok {
		return 0, fmt.Errorf("line %d: unexpected end of input, want integer", s.line)
	}
	if v, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return v, nil
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: bad integer %q: %w", s.line, tok, err)
	}
	return int64(v), nil
}

// SkipStatement consumes tokens up to and including the next terminator.
func (s *Scanner) SkipStatement(terminator string) {
	for {
		tok, ok := s.Next()
		if !ok || tok == terminator {
			return
		}
	}
}
