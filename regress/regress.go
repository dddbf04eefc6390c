// Package regress holds golden file helpers for package tests: result file
// placement and a tolerant line differ for comparing generated output
// against checked in references.
package regress

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
)

// ResultFile returns a path for a generated result, under a per-test
// directory that is cleaned up automatically.
func ResultFile(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// Differ compares output against a golden reference line by line.
// Numeric fields match when within Tolerance relative to the reference
// value, everything else must match exactly. Lines matching any Ignore
// pattern are dropped from both sides before comparing.
type Differ struct {
	Tolerance float64
	Ignore    []string
}

// DiffFiles compares two files on disk.
func (d Differ) DiffFiles(got, want string) error {
	g, err := os.ReadFile(got)
	if err != nil {
		return err
	}
	w, err := os.ReadFile(want)
	if err != nil {
		return err
	}
	return d.Diff(g, w)
}

// Diff compares in-memory output against the reference.
func (d Differ) Diff(got, want []byte) error {
	ignore := make([]*regexp.Regexp, 0, len(d.Ignore))
	for _, pat := range d.Ignore {
		re, err := regexp.Compile(pat)
		if err != nil {
			return fmt.Errorf("bad ignore pattern %q: %w", pat, err)
		}
		ignore = append(ignore, re)
	}

	gl, err := readLines(got, ignore)
	if err != nil {
		return err
	}
	wl, err := readLines(want, ignore)
	if err != nil {
		return err
	}

	for i := 0; i < len(gl) && i < len(wl); i++ {
		if err := d.diffLine(gl[i], wl[i]); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	if len(gl) != len(wl) {
		return fmt.Errorf("line count differs: got %d, want %d", len(gl), len(wl))
	}
	return nil
}

func (d Differ) diffLine(got, want string) error {
	gf := strings.Fields(got)
	wf := strings.Fields(want)
	if len(gf) != len(wf) {
		return fmt.Errorf("got %q, want %q", got, want)
	}
	for i := range gf {
		if gf[i] == wf[i] {
			continue
		}
		gv, gerr := strconv.ParseFloat(gf[i], 64)
		wv, werr := strconv.ParseFloat(wf[i], 64)
		if gerr != nil || werr != nil || !d.close(gv, wv) {
			return fmt.Errorf("field %d: got %q, want %q", i+1, gf[i], wf[i])
		}
	}
	return nil
}

func (d Differ) close(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	scale := b
	if scale < 0 {
		scale = -scale
	}
	if scale < 1 {
		scale = 1
	}
	return diff <= d.Tolerance*scale
}

func readLines(data []byte, ignore []*regexp.Regexp) ([]string, error) {
	var out []string
	s := bufio.NewScanner(bytes.NewReader(data))
	s.Buffer(make([]byte, 0, 64*1024), 1<<20)
scan:
	for s.Scan() {
		line := s.Text()
		for _, re := range ignore {
			if re.MatchString(line) {
				continue scan
			}
		}
		out = append(out, line)
	}
	return out, s.Err()
}
