// Package mock provides a test double for index.Index.
package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/poiesic/docindex/core"
)

// MockIndex records uploads in memory.
type MockIndex struct {
	UploadFunc func(ctx context.Context, records []core.ChunkRecord) error

	callCount atomic.Int64

	mu      sync.Mutex
	uploads map[string][]core.ChunkRecord
	closed  bool
}

// NewMockIndex creates an empty mock index.
func NewMockIndex() *MockIndex {
	return &MockIndex{uploads: make(map[string][]core.ChunkRecord)}
}

// Upload stores records under their source name unless UploadFunc fails.
func (m *MockIndex) Upload(ctx context.Context, records []core.ChunkRecord) error {
	m.callCount.Add(1)
	if m.UploadFunc != nil {
		if err := m.UploadFunc(ctx, records); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.uploads[r.SourceName()] = append(m.uploads[r.SourceName()], r)
	}
	return nil
}

func (m *MockIndex) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Records returns the uploaded records of one source file.
func (m *MockIndex) Records(source string) []core.ChunkRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.ChunkRecord(nil), m.uploads[source]...)
}

// CallCount returns the number of Upload calls.
func (m *MockIndex) CallCount() int {
	return int(m.callCount.Load())
}

// Closed reports whether Close was called.
func (m *MockIndex) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
