package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTraceArchiveStore(t *testing.T) {
	dir := t.TempDir()
	archive := NewFileTraceArchive(dir)

	err := archive.Store(context.Background(), "sessions/abc123.json", []byte(`{"ok":true}`))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "sessions", "abc123.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
}

func TestTestTraceArchive(t *testing.T) {
	archive := NewTestTraceArchive()
	require.NoError(t, archive.Store(context.Background(), "k", []byte("v")))

	data, ok := archive.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), data)

	broken := NewTestTraceArchiveWithError()
	assert.Error(t, broken.Store(context.Background(), "k", []byte("v")))
}
