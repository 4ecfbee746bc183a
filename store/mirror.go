package store

import "sync"

// MemoryMirror is a process-local Mirror. It backs tests and consumers that
// have no HTTP response to attach a cookie to.
type MemoryMirror struct {
	mu         sync.Mutex
	credential string
	present    bool
}

// NewMemoryMirror returns an empty in-process mirror.
func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{}
}

func (m *MemoryMirror) Set(credential string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credential = credential
	m.present = credential != ""
	return nil
}

func (m *MemoryMirror) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credential = ""
	m.present = false
	return nil
}

func (m *MemoryMirror) Get() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credential, m.present
}
