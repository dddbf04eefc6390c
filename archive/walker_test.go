package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bundle.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	w := zip.NewWriter(f)
	for name, content := range entries {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	w.Close()
	f.Close()
	return path
}

func openZip(t *testing.T, path string) *zip.Reader {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return &r.Reader
}

func TestWalk(t *testing.T) {
	path := writeZip(t, map[string]string{
		"lib/tech.lef":    "VERSION 5.8 ;",
		"lib/cells.lef":   "VERSION 5.8 ;",
		"design/gcd.def":  "DESIGN gcd ;",
		"design/gcd.sdc":  "create_clock",
		"constraints.txt": "notes",
	})

	t.Run("suffix selects entries", func(t *testing.T) {
		var visited []string
		err := Walk(openZip(t, path), ".lef", func(file *zip.File) error {
			visited = append(visited, file.Name)
			return nil
		})
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}
		if len(visited) != 2 {
			t.Fatalf("visited %v, want the two lef files", visited)
		}
	})

	t.Run("empty suffix visits everything", func(t *testing.T) {
		var visited int
		if err := Walk(openZip(t, path), "", func(*zip.File) error { visited++; return nil }); err != nil {
			t.Fatalf("Walk() error = %v", err)
		}
		if visited != 5 {
			t.Fatalf("visited %d entries, want 5", visited)
		}
	})

	t.Run("callback error stops the walk", func(t *testing.T) {
		stop := errors.New("stop")
		var visited int
		err := Walk(openZip(t, path), "", func(*zip.File) error {
			visited++
			return stop
		})
		if !errors.Is(err, stop) {
			t.Fatalf("Walk() error = %v, want %v", err, stop)
		}
		if visited != 1 {
			t.Fatalf("visited %d entries after error, want 1", visited)
		}
	})
}

func TestWalkSkipsDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	hdr := &zip.FileHeader{Name: "lib/"}
	hdr.SetMode(os.ModeDir | 0o755)
	if _, err := w.CreateHeader(hdr); err != nil {
		t.Fatal(err)
	}
	fw, err := w.Create("lib/tech.lef")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("VERSION 5.8 ;"))
	w.Close()
	f.Close()

	var visited []string
	if err := Walk(openZip(t, path), ".lef", func(file *zip.File) error {
		visited = append(visited, file.Name)
		return nil
	}); err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(visited) != 1 || visited[0] != "lib/tech.lef" {
		t.Fatalf("visited %v, want only the file entry", visited)
	}
}

func TestWalkRejectsUnsafePaths(t *testing.T) {
	path := writeZip(t, map[string]string{
		"../evil.def": "DESIGN evil ;",
	})
	err := Walk(openZip(t, path), "", func(*zip.File) error { return nil })
	if err == nil {
		t.Fatal("expected error for path traversal entry")
	}
}
