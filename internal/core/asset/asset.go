// Package asset defines asset and account identifiers and the contract of
// the external asset registry. The registry itself (issuance, naming,
// metadata) lives outside this module; the core only checks existence and
// reads precision.
package asset

import (
	"encoding/hex"
	"fmt"
)

// ID identifies a fungible asset. Assignment is owned by the external
// registry; the core treats IDs as opaque ordered numbers.
type ID uint64

func (id ID) String() string {
	return fmt.Sprintf("asset:%d", uint64(id))
}

// AccountID identifies a caller. Authentication happens before requests
// reach the core; by the time an AccountID arrives here it is trusted.
type AccountID [20]byte

func (a AccountID) String() string {
	return hex.EncodeToString(a[:])
}

// ParseAccountID decodes a hex-encoded account identifier.
func ParseAccountID(s string) (AccountID, error) {
	var a AccountID
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("invalid account id %q: %w", s, err)
	}
	if len(b) != len(a) {
		return a, fmt.Errorf("invalid account id %q: want %d bytes, got %d", s, len(a), len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Registry is the external asset registry consumed by the core. The core
// never mutates registry state.
type Registry interface {
	// Exists reports whether the asset is known to the registry.
	Exists(id ID) bool

	// Precision returns the decimal precision of the asset. The result is
	// undefined for unknown assets.
	Precision(id ID) uint8
}
