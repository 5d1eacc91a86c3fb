package state

import (
	"crypto/sha512"
	"encoding/binary"

	"github.com/TopCodeBeast/subswap/internal/core/state/keys"
)

// Digest folds every record of the view into one 32-byte fingerprint.
// ForEach visits keys in ascending order, so two views holding the same
// records always produce the same digest. Replicas compare these after a
// block, and the replay tool uses them to verify a re-execution.
func Digest(v View) ([32]byte, error) {
	h := sha512.New()
	err := v.ForEach(func(k keys.Key, data []byte) bool {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(data)))
		h.Write(k[:])
		h.Write(n[:])
		h.Write(data)
		return true
	})
	if err != nil {
		return [32]byte{}, err
	}
	var d [32]byte
	copy(d[:], h.Sum(nil)[:32])
	return d, nil
}
