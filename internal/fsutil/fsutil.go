// Package fsutil holds small file helpers: scoped reads and atomic writes.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadFileScoped reads a file by opening a root at the file's directory.
// This scopes access to the intended directory and avoids path traversal.
func ReadFileScoped(path string) ([]byte, error) {
	root, base, err := openParent(path)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	file, err := root.Open(base)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// ConsumeFile reads a file and removes it, both scoped to its directory.
// Used for one-shot hand-off files.
func ConsumeFile(path string) ([]byte, error) {
	root, base, err := openParent(path)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	file, err := root.Open(base)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(file)
	_ = file.Close()
	if err != nil {
		return nil, err
	}
	if err := root.Remove(base); err != nil {
		return nil, fmt.Errorf("removing %s: %w", path, err)
	}
	return data, nil
}

func openParent(path string) (*os.Root, string, error) {
	cleaned := filepath.Clean(path)
	dir := filepath.Dir(cleaned)
	base := filepath.Base(cleaned)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return nil, "", fmt.Errorf("invalid file path: %q", path)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, "", err
	}
	return root, base, nil
}

// PendingFile is a file that only becomes visible at its final path once
// committed.
type PendingFile interface {
	io.Writer
	// Commit atomically replaces the target with the written content.
	Commit() error
	// Cleanup discards the pending content. Safe to call after Commit.
	Cleanup() error
}
