// Package mock provides a test double for extract.Extractor.
package mock

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/poiesic/docindex/core"
)

// MockExtractor is a test double for extract.Extractor.
// Without ExtractFunc it returns a short markdown document naming the file.
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, path string, cred core.EndpointCredential) (string, error)

	callCount atomic.Int64

	mu        sync.Mutex
	endpoints []string
}

// NewMockExtractor creates a mock extractor with default behavior.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// Extract records the call and delegates to ExtractFunc when set.
func (m *MockExtractor) Extract(ctx context.Context, path string, cred core.EndpointCredential) (string, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.endpoints = append(m.endpoints, cred.Endpoint)
	m.mu.Unlock()

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, path, cred)
	}
	return "# " + filepath.Base(path) + "\n\nExtracted content.", nil
}

// CallCount returns the number of Extract calls.
func (m *MockExtractor) CallCount() int {
	return int(m.callCount.Load())
}

// Endpoints returns the endpoints seen, in call order.
func (m *MockExtractor) Endpoints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.endpoints))
	copy(out, m.endpoints)
	return out
}
