// Package state defines the view the swap core reads and writes its records
// through, and the sandbox that makes every request all-or-nothing. The
// substrate behind the view (memory, pebble, bbolt) is selected outside the
// core; within one state transition the view provides read-your-writes
// consistency.
package state

import (
	"sort"
	"sync"

	"github.com/TopCodeBeast/subswap/internal/core/state/keys"
)

// View provides access to persisted core records.
type View interface {
	// Read returns the record at k, or nil if it does not exist.
	Read(k keys.Key) ([]byte, error)

	// Exists reports whether a record exists at k.
	Exists(k keys.Key) (bool, error)

	// Insert adds a new record.
	Insert(k keys.Key, data []byte) error

	// Update replaces an existing record.
	Update(k keys.Key, data []byte) error

	// Erase removes a record.
	Erase(k keys.Key) error

	// ForEach visits all records in ascending key order. Iteration stops
	// early when fn returns false. Key order is fixed so that any logic
	// built on iteration stays deterministic across replicas.
	ForEach(fn func(k keys.Key, data []byte) bool) error
}

// MapView is an in-memory View. It backs tests and the replay tool, and is
// the root view the standalone server layers its storage flushes on.
type MapView struct {
	mu      sync.RWMutex
	records map[keys.Key][]byte
}

// NewMapView returns an empty in-memory view.
func NewMapView() *MapView {
	return &MapView{records: make(map[keys.Key][]byte)}
}

// Read implements View.
func (v *MapView) Read(k keys.Key) ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	data, ok := v.records[k]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Exists implements View.
func (v *MapView) Exists(k keys.Key) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.records[k]
	return ok, nil
}

// Insert implements View.
func (v *MapView) Insert(k keys.Key, data []byte) error {
	return v.put(k, data)
}

// Update implements View.
func (v *MapView) Update(k keys.Key, data []byte) error {
	return v.put(k, data)
}

func (v *MapView) put(k keys.Key, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	v.records[k] = cp
	return nil
}

// Erase implements View.
func (v *MapView) Erase(k keys.Key) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.records, k)
	return nil
}

// ForEach implements View. Keys are visited in ascending order.
func (v *MapView) ForEach(fn func(k keys.Key, data []byte) bool) error {
	v.mu.RLock()
	ordered := make([]keys.Key, 0, len(v.records))
	for k := range v.records {
		ordered = append(ordered, k)
	}
	v.mu.RUnlock()

	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		for n := 0; n < len(a); n++ {
			if a[n] != b[n] {
				return a[n] < b[n]
			}
		}
		return false
	})

	for _, k := range ordered {
		data, err := v.Read(k)
		if err != nil {
			return err
		}
		if data == nil {
			continue
		}
		if !fn(k, data) {
			return nil
		}
	}
	return nil
}

// Len returns the number of records. Test helper.
func (v *MapView) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.records)
}
