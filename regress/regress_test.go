package regress

import (
	"os"
	"strings"
	"testing"
)

func TestDiffExact(t *testing.T) {
	d := Differ{}
	data := []byte("DESIGN top ;\nROW row_0 core 0 0 N ;\n")
	if err := d.Diff(data, data); err != nil {
		t.Fatalf("identical data: %v", err)
	}
	if err := d.Diff(data, []byte("DESIGN other ;\n")); err == nil {
		t.Fatal("expected mismatch")
	}
}

func TestDiffTolerance(t *testing.T) {
	d := Differ{Tolerance: 0.01}
	got := []byte("u1 1.0953 0.0047\n")
	want := []byte("u1 1.1000 0.0000\n")
	if err := d.Diff(got, want); err != nil {
		t.Fatalf("within tolerance: %v", err)
	}

	d.Tolerance = 0.001
	if err := d.Diff(got, want); err == nil {
		t.Fatal("expected mismatch outside tolerance")
	}
	if !strings.Contains(d.Diff(got, want).Error(), "line 1") {
		t.Fatal("error does not point at the line")
	}
}

func TestDiffToleranceScalesWithReference(t *testing.T) {
	d := Differ{Tolerance: 0.01}
	// 0.5% off a large value passes, the same absolute error against a
	// small value fails
	if err := d.Diff([]byte("hpwl 1005000\n"), []byte("hpwl 1000000\n")); err != nil {
		t.Fatalf("relative check: %v", err)
	}
	if err := d.Diff([]byte("x 5000.02\n"), []byte("x 0.02\n")); err == nil {
		t.Fatal("expected mismatch")
	}
}

func TestDiffIgnore(t *testing.T) {
	d := Differ{Ignore: []string{`^#`, `VERSION`}}
	got := []byte("# generated 2026-08-30\nVERSION 5.8 ;\nDESIGN top ;\n")
	want := []byte("# golden\nDESIGN top ;\n")
	if err := d.Diff(got, want); err != nil {
		t.Fatalf("ignored lines: %v", err)
	}

	d.Ignore = []string{`[`}
	if err := d.Diff(got, want); err == nil {
		t.Fatal("expected error for bad pattern")
	}
}

func TestDiffLineCount(t *testing.T) {
	d := Differ{}
	if err := d.Diff([]byte("a\nb\n"), []byte("a\n")); err == nil {
		t.Fatal("expected line count mismatch")
	}
}

func TestDiffFiles(t *testing.T) {
	got := ResultFile(t, "out.def")
	if err := os.WriteFile(got, []byte("DESIGN top ;\n"), 0600); err != nil {
		t.Fatal(err)
	}
	want := ResultFile(t, "out.defok")
	if err := os.WriteFile(want, []byte("DESIGN top ;\n"), 0600); err != nil {
		t.Fatal(err)
	}

	d := Differ{}
	if err := d.DiffFiles(got, want); err != nil {
		t.Fatalf("diff: %v", err)
	}
	if err := d.DiffFiles(got, ResultFile(t, "missing")); err == nil {
		t.Fatal("expected error for missing golden")
	}
}
