// Package mockboard provides a mock clipboard implementation for testing.
package mockboard

import (
	"context"
	"sync"

	"github.com/yiblet/halen/internal/clipboard"
)

// MockClipboard implements clipboard.Board for testing
type MockClipboard struct {
	mu       sync.Mutex
	data     map[clipboard.Selection]string
	writes   []string
	readErr  error
	writeErr error
	blocking bool
}

// New creates a new MockClipboard instance
func New() *MockClipboard {
	return &MockClipboard{data: make(map[clipboard.Selection]string)}
}

// Read implements clipboard.Board.Read for MockClipboard
func (m *MockClipboard) Read(ctx context.Context, sel clipboard.Selection) (string, error) {
	m.mu.Lock()
	blocking, err, content := m.blocking, m.readErr, m.data[sel]
	m.mu.Unlock()

	if blocking {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return content, nil
}

// Write implements clipboard.Board.Write for MockClipboard
func (m *MockClipboard) Write(ctx context.Context, sel clipboard.Selection, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return m.writeErr
	}
	m.data[sel] = content
	m.writes = append(m.writes, content)
	return nil
}

// IsSupported always returns true for the mock clipboard
func (m *MockClipboard) IsSupported() bool {
	return true
}

// SetData sets the mock clipboard data directly (for testing)
func (m *MockClipboard) SetData(sel clipboard.Selection, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sel] = content
}

// GetData returns the current clipboard data (for testing)
func (m *MockClipboard) GetData(sel clipboard.Selection) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[sel]
}

// Writes returns every content written so far, oldest first.
func (m *MockClipboard) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

// SetReadError makes every Read fail with err.
func (m *MockClipboard) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// SetWriteError makes every Write fail with err.
func (m *MockClipboard) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// SetBlocking makes Read wait until its context is done.
func (m *MockClipboard) SetBlocking(blocking bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocking = blocking
}
