package utils

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// tempPattern is the suffix of in-flight downloads. The default ignore list skips it.
const tempPattern = ".solarsync.tmp.*"

// WriteFileAtomic streams r into a temp file next to path and renames it into place,
// so readers never observe a partially written file. Returns the number of bytes written.
func WriteFileAtomic(path string, r io.Reader) (int64, error) {
	if err := EnsureParent(path); err != nil {
		return 0, fmt.Errorf("ensure parent: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+tempPattern)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	n, err := io.Copy(tempFile, r)
	if err != nil {
		return n, fmt.Errorf("write temp file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return n, fmt.Errorf("sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return n, fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return n, fmt.Errorf("rename temp file to %s: %w", path, err)
	}

	success = true
	return n, nil
}

// WriteBytesAtomic is WriteFileAtomic for an in-memory body.
func WriteBytesAtomic(path string, body []byte) error {
	_, err := WriteFileAtomic(path, bytes.NewReader(body))
	return err
}

// FileSize returns the size of the file at path, or 0 if it cannot be stat'ed
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
