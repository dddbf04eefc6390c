// Package report bundles the result files of one run into a single zip
// archive for hand off: a manifest, the rewritten DEF, analysis reports
// and snapshots. Archive entries keep insertion order and the manifest
// always comes first, stored uncompressed so it can be previewed without
// extraction.
package report

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	fixzip "github.com/hidez8891/zip"
)

// Values holds the variables naming templates may use.
type Values struct {
	Design  string
	Command string
	Stamp   time.Time
}

// ExpandName renders a file naming template. Sprig helper functions are
// available, so templates like "{{ .Design | lower }}-{{ .Command }}" work.
func ExpandName(tmpl string, v Values) (string, error) {
	if v.Stamp.IsZero() {
		v.Stamp = time.Now()
	}
	t, err := template.New("name").Funcs(sprig.FuncMap()).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("unable to parse naming template: %w", err)
	}
	var buf strings.Builder
	if err := t.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("unable to expand naming template: %w", err)
	}
	name := strings.TrimSpace(buf.String())
	if name == "" {
		return "", fmt.Errorf("naming template %q produced an empty name", tmpl)
	}
	return name, nil
}

type entry struct {
	name  string
	data  []byte
	stamp time.Time
}

// Bundle accumulates result files. Not safe for concurrent use.
type Bundle struct {
	entries []entry
	byName  map[string]bool
}

func NewBundle() *Bundle {
	return &Bundle{byName: make(map[string]bool)}
}

// Add stores data under the given archive name.
func (b *Bundle) Add(name string, data []byte) error {
	if b.byName[name] {
		return fmt.Errorf("duplicate bundle entry %q", name)
	}
	b.byName[name] = true
	b.entries = append(b.entries, entry{name: name, data: data, stamp: time.Now()})
	return nil
}

// AddFile stores a copy of the file under the given archive name.
func (b *Bundle) AddFile(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", path, err)
	}
	return b.Add(name, data)
}

func (b *Bundle) Len() int {
	return len(b.entries)
}

// Save writes the archive. The zip is written to a scratch file first and
// then rewritten without data descriptor records, some archive consumers
// choke on those.
func (b *Bundle) Save(path string) error {
	if len(b.entries) == 0 {
		return fmt.Errorf("nothing to bundle")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".bundle-*.zip")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := b.write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return copyZipWithoutDataDescriptors(tmpName, path)
}

func (b *Bundle) write(out io.Writer) error {
	zw := zip.NewWriter(out)

	w, err := zw.CreateHeader(&zip.FileHeader{Name: "MANIFEST", Method: zip.Store, Modified: time.Now()})
	if err != nil {
		return err
	}
	if _, err := w.Write(b.manifest()); err != nil {
		return err
	}

	for _, e := range b.entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate, Modified: e.stamp})
		if err != nil {
			return err
		}
		if _, err := w.Write(e.data); err != nil {
			return err
		}
	}
	return zw.Close()
}

func (b *Bundle) manifest() []byte {
	buf := new(bytes.Buffer)
	for _, e := range b.entries {
		fmt.Fprintf(buf, "%s\t%d\t%s\n", e.name, len(e.data), e.stamp.UTC().Format(time.RFC3339))
	}
	return buf.Bytes()
}

func copyZipWithoutDataDescriptors(from, to string) error {
	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	defer w.Close()

	for _, file := range r.File {
		// unset data descriptor flag.
		file.Flags &= ^fixzip.FlagDataDescriptor

		if err := w.CopyFile(file); err != nil {
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	return nil
}
