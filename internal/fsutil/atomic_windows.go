//go:build windows

package fsutil

import (
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to path through a temp file and rename.
// renameio does not support Windows.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	pf, err := NewPendingFile(path, perm)
	if err != nil {
		return err
	}
	defer pf.Cleanup()
	if _, err := pf.Write(data); err != nil {
		return err
	}
	return pf.Commit()
}

// NewPendingFile starts a temp file next to path.
func NewPendingFile(path string, perm os.FileMode) (PendingFile, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".")
	if err != nil {
		return nil, err
	}
	if err := f.Chmod(perm); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, err
	}
	return &tempFile{File: f, target: path}, nil
}

type tempFile struct {
	*os.File
	target string
	done   bool
}

func (t *tempFile) Commit() error {
	if err := t.File.Sync(); err != nil {
		return err
	}
	if err := t.File.Close(); err != nil {
		return err
	}
	if err := os.Rename(t.File.Name(), t.target); err != nil {
		return err
	}
	t.done = true
	return nil
}

func (t *tempFile) Cleanup() error {
	if t.done {
		return nil
	}
	_ = t.File.Close()
	return os.Remove(t.File.Name())
}
