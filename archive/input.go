package archive

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"golang.org/x/text/encoding/ianaindex"
)

// ReadInput loads a design input file, transparently unpacking gzip and zip
// containers. For a zip the entry whose name ends with want is extracted;
// with an empty want a single-entry archive is accepted. When cpage names an
// IANA character set the content is converted to UTF-8.
func ReadInput(path, want, cpage string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	kind, _ := filetype.Match(data)
	switch kind {
	case matchers.TypeGz:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("unable to unpack %s: %w", path, err)
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("unable to unpack %s: %w", path, err)
		}
	case matchers.TypeZip:
		if data, err = readZipEntry(data, path, want); err != nil {
			return nil, err
		}
	}

	if cpage != "" {
		if data, err = recode(data, cpage); err != nil {
			return nil, fmt.Errorf("unable to recode %s: %w", path, err)
		}
	}
	return data, nil
}

func readZipEntry(data []byte, path, want string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", path, err)
	}

	var found *zip.File
	if err := Walk(zr, want, func(f *zip.File) error {
		if found != nil {
			return fmt.Errorf("%s: multiple entries match %q", path, want)
		}
		found = f
		return nil
	}); err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%s: no entry matching %q", path, want)
	}

	rc, err := found.Open()
	if err != nil {
		return nil, fmt.Errorf("unable to open %s in %s: %w", found.Name, path, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func recode(data []byte, cpage string) ([]byte, error) {
	enc, err := ianaindex.IANA.Encoding(cpage)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported character set %q", cpage)
	}
	return enc.NewDecoder().Bytes(data)
}
