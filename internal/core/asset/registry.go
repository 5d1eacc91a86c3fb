package asset

import "sync"

// MemoryRegistry is an in-process Registry used by tests and the standalone
// server. Production deployments plug in the real registry collaborator.
type MemoryRegistry struct {
	mu     sync.RWMutex
	assets map[ID]uint8
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{assets: make(map[ID]uint8)}
}

// Register adds an asset with the given decimal precision.
func (r *MemoryRegistry) Register(id ID, precision uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[id] = precision
}

// Exists implements Registry.
func (r *MemoryRegistry) Exists(id ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.assets[id]
	return ok
}

// Precision implements Registry.
func (r *MemoryRegistry) Precision(id ID) uint8 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.assets[id]
}

// OpenRegistry accepts every asset ID. Used by the standalone daemon
// when no asset list is configured; real deployments plug in the
// upstream registry instead.
type OpenRegistry struct{}

// Exists implements Registry.
func (OpenRegistry) Exists(ID) bool { return true }

// Precision implements Registry.
func (OpenRegistry) Precision(ID) uint8 { return 0 }
