// Package keys derives the 32-byte state keys under which the swap core
// stores its records. Keys start with a namespace byte followed by SHA-512
// half digest material, so every replica derives identical keys, unrelated
// namespaces cannot collide, and all LP balances of one pool share a common
// prefix for scoped iteration.
package keys

import (
	"bytes"
	"crypto/sha512"
	"encoding/binary"

	"github.com/TopCodeBeast/subswap/internal/core/asset"
)

// Key is a 32-byte state key.
type Key [32]byte

// Namespace bytes. Values are part of the persisted state layout and must
// never be reused.
const (
	nsPool      = 0x70 // 'p'
	nsLPBalance = 0x6c // 'l'
	nsTreasury  = 0x74 // 't'
	nsDirectory = 0x64 // 'd'
)

func halfHash(parts ...[]byte) [32]byte {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	var d [32]byte
	copy(d[:], h.Sum(nil)[:32])
	return d
}

func assetBytes(id asset.ID) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

// Pool returns the key of the pool record for a canonical asset pair. The
// caller must pass the pair with the lower asset ID first.
func Pool(a, b asset.ID) Key {
	d := halfHash(assetBytes(a), assetBytes(b))
	var k Key
	k[0] = nsPool
	copy(k[1:], d[:31])
	return k
}

// LPBalance returns the key of the LP balance record for one holder in one
// pool. Bytes [0:16) are shared by every holder of the pool, so a prefix
// walk visits exactly that pool's balances.
func LPBalance(pool Key, holder asset.AccountID) Key {
	hd := halfHash(holder[:])
	var k Key
	k[0] = nsLPBalance
	copy(k[1:16], pool[1:16])
	copy(k[16:], hd[:16])
	return k
}

// LPPrefix returns the 16-byte key prefix shared by all LP balance records
// of a pool.
func LPPrefix(pool Key) []byte {
	p := make([]byte, 16)
	p[0] = nsLPBalance
	copy(p[1:], pool[1:16])
	return p
}

// HasPrefix reports whether k starts with prefix.
func (k Key) HasPrefix(prefix []byte) bool {
	return bytes.HasPrefix(k[:], prefix)
}

// Treasury returns the key of the process-wide treasury balance record.
func Treasury() Key {
	d := halfHash([]byte("treasury"))
	var k Key
	k[0] = nsTreasury
	copy(k[1:], d[:31])
	return k
}

// Directory returns the key of the pool directory record, the ordered list
// of all pairs the market has created.
func Directory() Key {
	d := halfHash([]byte("directory"))
	var k Key
	k[0] = nsDirectory
	copy(k[1:], d[:31])
	return k
}
