package state

import (
	"github.com/ugorji/go/codec"
)

// cborHandle is the canonical CBOR handle used for every persisted record.
// Canonical mode fixes map ordering so replicas serialize byte-identical
// records from identical values.
var cborHandle = func() *codec.CborHandle {
	h := new(codec.CborHandle)
	h.Canonical = true
	return h
}()

// EncodeRecord serializes a record value to its canonical byte form.
func EncodeRecord(v interface{}) ([]byte, error) {
	var b []byte
	if err := codec.NewEncoderBytes(&b, cborHandle).Encode(v); err != nil {
		return nil, err
	}
	return b, nil
}

// DecodeRecord deserializes a record produced by EncodeRecord.
func DecodeRecord(data []byte, v interface{}) error {
	return codec.NewDecoderBytes(data, cborHandle).Decode(v)
}
