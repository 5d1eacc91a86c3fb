package state

import (
	"github.com/TopCodeBeast/subswap/internal/core/state/keys"
)

// Sandbox buffers state changes over a parent view. Nothing reaches the
// parent until Commit; dropping the sandbox discards every change. Each
// request, and each hop of a multi-hop route, executes against a sandbox so
// a failure anywhere leaves the pre-state untouched.
type Sandbox struct {
	parent View

	insertions    map[keys.Key][]byte
	modifications map[keys.Key][]byte
	deletions     map[keys.Key]bool
}

// NewSandbox creates a sandbox over parent. The parent may itself be a
// sandbox; commits flow one level at a time.
func NewSandbox(parent View) *Sandbox {
	return &Sandbox{
		parent:        parent,
		insertions:    make(map[keys.Key][]byte),
		modifications: make(map[keys.Key][]byte),
		deletions:     make(map[keys.Key]bool),
	}
}

// Read implements View.
func (s *Sandbox) Read(k keys.Key) ([]byte, error) {
	if s.deletions[k] {
		return nil, nil
	}
	if data, ok := s.modifications[k]; ok {
		return data, nil
	}
	if data, ok := s.insertions[k]; ok {
		return data, nil
	}
	return s.parent.Read(k)
}

// Exists implements View.
func (s *Sandbox) Exists(k keys.Key) (bool, error) {
	if s.deletions[k] {
		return false, nil
	}
	if _, ok := s.modifications[k]; ok {
		return true, nil
	}
	if _, ok := s.insertions[k]; ok {
		return true, nil
	}
	return s.parent.Exists(k)
}

// Insert implements View.
func (s *Sandbox) Insert(k keys.Key, data []byte) error {
	delete(s.deletions, k)
	s.insertions[k] = dup(data)
	return nil
}

// Update implements View.
func (s *Sandbox) Update(k keys.Key, data []byte) error {
	if _, ok := s.insertions[k]; ok {
		s.insertions[k] = dup(data)
		return nil
	}
	delete(s.deletions, k)
	s.modifications[k] = dup(data)
	return nil
}

// Erase implements View.
func (s *Sandbox) Erase(k keys.Key) error {
	delete(s.insertions, k)
	delete(s.modifications, k)
	s.deletions[k] = true
	return nil
}

// ForEach implements View. The parent's records are walked in key order with
// this sandbox's overlay applied; records inserted only in the sandbox are
// not visited. No core logic iterates over uncommitted insertions.
func (s *Sandbox) ForEach(fn func(k keys.Key, data []byte) bool) error {
	return s.parent.ForEach(func(k keys.Key, data []byte) bool {
		if s.deletions[k] {
			return true
		}
		if mod, ok := s.modifications[k]; ok {
			data = mod
		}
		return fn(k, data)
	})
}

// Commit flushes every buffered change to the parent. The flush applies
// deletions, then modifications, then insertions; within each class the
// parent sees whole records, so a parent backed by a batching store can make
// the flush atomic.
func (s *Sandbox) Commit() error {
	for k := range s.deletions {
		if err := s.parent.Erase(k); err != nil {
			return err
		}
	}
	for k, data := range s.modifications {
		if err := s.parent.Update(k, data); err != nil {
			return err
		}
	}
	for k, data := range s.insertions {
		if err := s.parent.Insert(k, data); err != nil {
			return err
		}
	}
	s.Reset()
	return nil
}

// Reset discards all buffered changes.
func (s *Sandbox) Reset() {
	s.insertions = make(map[keys.Key][]byte)
	s.modifications = make(map[keys.Key][]byte)
	s.deletions = make(map[keys.Key]bool)
}

// Dirty reports whether the sandbox holds uncommitted changes.
func (s *Sandbox) Dirty() bool {
	return len(s.insertions) > 0 || len(s.modifications) > 0 || len(s.deletions) > 0
}

func dup(data []byte) []byte {
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp
}
