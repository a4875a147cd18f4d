//go:build !windows

package fsutil

import (
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// WriteFileAtomic writes data to path atomically.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}

// NewPendingFile starts a pending file for path in the same directory.
func NewPendingFile(path string, perm os.FileMode) (PendingFile, error) {
	pf, err := renameio.NewPendingFile(path,
		renameio.WithTempDir(filepath.Dir(path)),
		renameio.WithPermissions(perm),
		renameio.WithExistingPermissions())
	if err != nil {
		return nil, err
	}
	return pendingFile{pf}, nil
}

type pendingFile struct {
	*renameio.PendingFile
}

func (p pendingFile) Commit() error {
	return p.CloseAtomicallyReplace()
}
