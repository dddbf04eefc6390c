package lex

import (
	"testing"
)

func collect(t *testing.T, s *Scanner, n int) []string {
	t.Helper()
	var out []string
	for range n {
		tok, ok := s.Next()
		if !ok {
			break
		}
		out = append(out, tok)
	}
	return out
}

func TestScannerWords(t *testing.T) {
	s := NewScanner([]byte("MACRO AND2_X1\n  SIZE 0.76 BY 1.4 ;\n"), WithLineComment('#'))
	got := collect(t, s, 10)
	want := []string{"MACRO", "AND2_X1", "SIZE", "0.76", "BY", "1.4", ";"}
	if len(got) != len(want) {
		t.Fatalf("token count = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if _, ok := s.Next(); ok {
		t.Fatal("expected end of input")
	}
}

func TestScannerSymbolsAndComments(t *testing.T) {
	src := `
cell(INV_X1) { /* ignored
still ignored */
  leakage_power() { value: 12.5; } // trailing
}
`
	s := NewScanner([]byte(src), WithSymbols("(){};:,"), WithBlockComments())
	got := collect(t, s, 32)
	want := []string{
		"cell", "(", "INV_X1", ")", "{",
		"leakage_power", "(", ")", "{", "value", ":", "12.5", ";", "}",
		"}",
	}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestScannerQuotedString(t *testing.T) {
	s := NewScanner([]byte(`voltage_map(VDD, "1.1") ;`), WithSymbols("();,"))
	got := collect(t, s, 10)
	want := []string{"voltage_map", "(", "VDD", ",", "1.1", ")", ";"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token[%d] = %q, want %q (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestScannerLineComment(t *testing.T) {
	s := NewScanner([]byte("100 200 1.1 # source location\n300"), WithLineComment('#'))
	got := collect(t, s, 10)
	want := []string{"100", "200", "1.1", "300"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v", got)
	}
	if s.Line() != 2 {
		t.Fatalf("line = %d, want 2", s.Line())
	}
}

func TestScannerNumbers(t *testing.T) {
	s := NewScanner([]byte("42 3.5 abc"))
	if v, err := s.NextInt(); err != nil || v != 42 {
		t.Fatalf("NextInt = %d, %v", v, err)
	}
	if v, err := s.NextFloat(); err != nil || v != 3.5 {
		t.Fatalf("NextFloat = %f, %v", v, err)
	}
	if _, err := s.NextFloat(); err == nil {
		t.Fatal("expected error for non-numeric token")
	}
}

func TestSkipStatement(t *testing.T) {
	s := NewScanner([]byte("PROPERTYDEFINITIONS foo bar ; NEXT"))
	tok, _ := s.Next()
	if tok != "PROPERTYDEFINITIONS" {
		t.Fatalf("unexpected token %q", tok)
	}
	s.SkipStatement(";")
	tok, _ = s.Next()
	if tok != "NEXT" {
		t.Fatalf("after skip got %q", tok)
	}
}
