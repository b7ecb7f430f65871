package guard

import "sync"

// MemoryReturnPaths keeps the return path in process memory
type MemoryReturnPaths struct {
	mu     sync.Mutex
	path   string
	set    bool
	writes int
}

// NewMemoryReturnPaths creates an empty in-memory store
func NewMemoryReturnPaths() *MemoryReturnPaths {
	return &MemoryReturnPaths{}
}

// SaveReturnPath overwrites the stored path. Saving the value already held is a no-op.
func (m *MemoryReturnPaths) SaveReturnPath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.set && m.path == path {
		return
	}
	m.path = path
	m.set = true
	m.writes++
}

// ConsumeReturnPath returns the stored path and clears it
func (m *MemoryReturnPaths) ConsumeReturnPath() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.set {
		return "", false
	}
	path := m.path
	m.path = ""
	m.set = false
	return path, true
}

// Peek returns the stored path without clearing it
func (m *MemoryReturnPaths) Peek() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path, m.set
}

// Writes returns how many times the stored value actually changed
func (m *MemoryReturnPaths) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
