// Package testutil builds archive fixtures for tests.
package testutil

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
)

// ZipEntry holds data for building test zip entries.
// A Path ending in "/" produces a directory marker.
type ZipEntry struct {
	Path string
	Data []byte
}

// File returns a ZipEntry whose content is size bytes of fill.
func File(path string, size int, fill byte) ZipEntry {
	return ZipEntry{Path: path, Data: bytes.Repeat([]byte{fill}, size)}
}

// Dir returns a directory marker entry.
func Dir(path string) ZipEntry {
	return ZipEntry{Path: path}
}

// BuildZip encodes entries, in order, as a deflate zip archive.
func BuildZip(tb testing.TB, entries []ZipEntry) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Path, Method: zip.Deflate})
		if err != nil {
			tb.Fatalf("create zip entry %s: %v", e.Path, err)
		}
		if len(e.Data) > 0 {
			if _, err := w.Write(e.Data); err != nil {
				tb.Fatalf("write zip entry %s: %v", e.Path, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("close zip: %v", err)
	}

	return buf.Bytes()
}

// WriteZip builds a zip archive and stores it at path on fs.
func WriteZip(tb testing.TB, fs afero.Fs, path string, entries []ZipEntry) {
	tb.Helper()

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fs, path, BuildZip(tb, entries), 0o644); err != nil {
		tb.Fatalf("write zip %s: %v", path, err)
	}
}
