// Package archive reads design inputs that may arrive packed: plain files,
// gzip streams and zip containers with legacy file name encodings.
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"strings"
)

// WalkFunc is the type of the function called for each matching file entry.
// If an error is returned, the walk stops.
type WalkFunc func(file *zip.File) error

// Walk visits every regular file in the archive whose name ends with
// suffix, an empty suffix matches all files. Entries with path traversal
// components ("..") or absolute paths abort the walk to prevent Zip Slip
// attacks.
func Walk(r *zip.Reader, suffix string, walkFn WalkFunc) error {
	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !strings.HasSuffix(name, suffix) {
			continue
		}
		if err := walkFn(f); err != nil {
			return err
		}
	}
	return nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
