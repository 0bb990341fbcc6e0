package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFunc writes the full contents of a file
type WriteFunc func(w io.Writer) error

// WriteFileAtomic writes a file by filling a temporary file in the same
// directory, syncing it and renaming it over path. Readers observe either the
// previous contents or the new contents, never a partial write.
func WriteFileAtomic(path string, perm os.FileMode, write WriteFunc) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := file.Name()

	cleanup := func() {
		file.Close()
		os.Remove(tempPath)
	}

	if err := write(file); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := file.Chmod(perm); err != nil {
		cleanup()
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	// Ensure data is written to disk
	if err := file.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

// WriteBytesAtomic atomically replaces path with data
func WriteBytesAtomic(path string, data []byte, perm os.FileMode) error {
	return WriteFileAtomic(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteJSONAtomic atomically replaces path with v encoded as JSON indented
// by two spaces. <, > and & are written as is.
func WriteJSONAtomic(path string, v interface{}, perm os.FileMode) error {
	return WriteFileAtomic(path, perm, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetEscapeHTML(false)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	})
}
