package storage

import (
	"context"
	"errors"
	"sync"
)

// TraceArchive persists finished analysis traces for later inspection.
type TraceArchive interface {
	Store(ctx context.Context, key string, data []byte) error
}

// TestTraceArchive is a simple in-memory implementation for testing
type TestTraceArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func NewTestTraceArchive() *TestTraceArchive {
	return &TestTraceArchive{objects: make(map[string][]byte)}
}

func NewTestTraceArchiveWithError() *TestTraceArchive {
	return &TestTraceArchive{err: errors.New("archive unavailable")}
}

func (t *TestTraceArchive) Store(ctx context.Context, key string, data []byte) error {
	if t.err != nil {
		return t.err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.objects[key] = append([]byte(nil), data...)
	return nil
}

func (t *TestTraceArchive) Get(key string) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, ok := t.objects[key]
	return data, ok
}
