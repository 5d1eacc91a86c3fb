// Package market owns the registry of pools and the deterministic router
// over them. The directory of created pairs is itself a state record, so
// every replica sees the same pool set and the router's search space is
// identical everywhere.
package market

import (
	"fmt"
	"sort"

	"github.com/TopCodeBeast/subswap/internal/core/asset"
	"github.com/TopCodeBeast/subswap/internal/core/pool"
	"github.com/TopCodeBeast/subswap/internal/core/state"
	"github.com/TopCodeBeast/subswap/internal/core/state/keys"
	"github.com/TopCodeBeast/subswap/internal/core/swaperr"
)

// Market reads and writes the pool set through a state view. Mutating
// calls are expected to run against a sandbox owned by the caller.
type Market struct {
	view     state.View
	registry asset.Registry
}

// New returns a market over the given view and asset registry.
func New(view state.View, registry asset.Registry) *Market {
	return &Market{view: view, registry: registry}
}

// GetOrCreatePool returns the pool for the pair, creating it when it does
// not exist yet. Creation is idempotent in the argument order; when the
// pool already exists the curve arguments are ignored and the existing
// pool is returned with created == false.
func (m *Market) GetOrCreatePool(a, b asset.ID, curve pool.CurveKind, params pool.CurveParams, feeBps uint16) (*pool.Pool, bool, error) {
	if !m.registry.Exists(a) {
		return nil, false, fmt.Errorf("%s: %w", a, swaperr.ErrUnknownAsset)
	}
	if !m.registry.Exists(b) {
		return nil, false, fmt.Errorf("%s: %w", b, swaperr.ErrUnknownAsset)
	}
	id, err := pool.NewID(a, b)
	if err != nil {
		return nil, false, err
	}
	exists, err := m.view.Exists(id.Key())
	if err != nil {
		return nil, false, err
	}
	if exists {
		p, err := pool.Load(m.view, id)
		return p, false, err
	}
	p, err := pool.New(id, curve, params, feeBps)
	if err != nil {
		return nil, false, err
	}
	if err := p.Store(m.view); err != nil {
		return nil, false, err
	}
	if err := m.addToDirectory(id); err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// Pool loads the pool for the pair, in either argument order.
func (m *Market) Pool(a, b asset.ID) (*pool.Pool, error) {
	id, err := pool.NewID(a, b)
	if err != nil {
		return nil, err
	}
	return pool.Load(m.view, id)
}

// Pairs returns every created pair in canonical order.
func (m *Market) Pairs() ([]pool.ID, error) {
	return m.readDirectory()
}

// directoryRecord is the wire form of the pair directory.
type directoryRecord struct {
	Pairs [][2]uint64
}

func (m *Market) readDirectory() ([]pool.ID, error) {
	data, err := m.view.Read(keys.Directory())
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var rec directoryRecord
	if err := state.DecodeRecord(data, &rec); err != nil {
		return nil, fmt.Errorf("decode directory: %w", err)
	}
	ids := make([]pool.ID, len(rec.Pairs))
	for i, p := range rec.Pairs {
		ids[i] = pool.ID{AssetA: asset.ID(p[0]), AssetB: asset.ID(p[1])}
	}
	return ids, nil
}

// addToDirectory inserts the pair into the directory record, keeping the
// list sorted so the encoding is canonical.
func (m *Market) addToDirectory(id pool.ID) error {
	ids, err := m.readDirectory()
	if err != nil {
		return err
	}
	at := sort.Search(len(ids), func(i int) bool { return !ids[i].Less(id) })
	if at < len(ids) && ids[at] == id {
		return nil
	}
	ids = append(ids, pool.ID{})
	copy(ids[at+1:], ids[at:])
	ids[at] = id

	rec := directoryRecord{Pairs: make([][2]uint64, len(ids))}
	for i, p := range ids {
		rec.Pairs[i] = [2]uint64{uint64(p.AssetA), uint64(p.AssetB)}
	}
	data, err := state.EncodeRecord(rec)
	if err != nil {
		return err
	}
	k := keys.Directory()
	exists, err := m.view.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return m.view.Update(k, data)
	}
	return m.view.Insert(k, data)
}
