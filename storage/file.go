package storage

import (
	"context"
	"os"
	"path/filepath"
)

// FileTraceArchive writes traces under a local directory, one file per key.
type FileTraceArchive struct {
	Dir string
}

func NewFileTraceArchive(dir string) *FileTraceArchive {
	return &FileTraceArchive{Dir: dir}
}

func (a *FileTraceArchive) Store(ctx context.Context, key string, data []byte) error {
	path := filepath.Join(a.Dir, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
