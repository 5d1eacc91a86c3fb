// Package u128 provides the unsigned 128-bit integer type used for all
// reserve, balance and LP supply math. Every operation is checked: overflow
// and division by zero are reported as errors, never wrapped. All results
// are bit-identical across platforms; no floating point is used anywhere.
package u128

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"math/bits"
)

var (
	// ErrOverflow is returned when a result does not fit in 128 bits.
	ErrOverflow = errors.New("u128: overflow")

	// ErrDivideByZero is returned on division by zero.
	ErrDivideByZero = errors.New("u128: division by zero")

	// ErrNegative is returned when parsing a negative value.
	ErrNegative = errors.New("u128: value cannot be negative")
)

// Uint128 is an unsigned 128-bit integer.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

// Zero is the zero value.
var Zero = Uint128{}

// MaxUint128 is the largest representable value, 2^128 - 1.
var MaxUint128 = Uint128{Hi: ^uint64(0), Lo: ^uint64(0)}

// New returns a Uint128 holding v.
func New(v uint64) Uint128 {
	return Uint128{Lo: v}
}

// FromBig converts a big.Int to a Uint128. The value must be in [0, 2^128).
func FromBig(v *big.Int) (Uint128, error) {
	if v.Sign() < 0 {
		return Zero, ErrNegative
	}
	if v.BitLen() > 128 {
		return Zero, ErrOverflow
	}
	var u Uint128
	u.Lo = v.Uint64()
	u.Hi = new(big.Int).Rsh(v, 64).Uint64()
	return u, nil
}

// FromString parses a decimal string.
func FromString(s string) (Uint128, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Zero, fmt.Errorf("u128: invalid decimal %q", s)
	}
	return FromBig(v)
}

// MustFromString parses a decimal string and panics on failure. Intended for
// constants and tests only.
func MustFromString(s string) Uint128 {
	u, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Big returns the value as a big.Int.
func (u Uint128) Big() *big.Int {
	v := new(big.Int).SetUint64(u.Hi)
	v.Lsh(v, 64)
	return v.Or(v, new(big.Int).SetUint64(u.Lo))
}

// IsZero reports whether u == 0.
func (u Uint128) IsZero() bool {
	return u.Hi == 0 && u.Lo == 0
}

// IsUint64 reports whether the value fits in a uint64.
func (u Uint128) IsUint64() bool {
	return u.Hi == 0
}

// Uint64 returns the low 64 bits. Callers must check IsUint64 first.
func (u Uint128) Uint64() uint64 {
	return u.Lo
}

// Cmp compares u and v, returning -1, 0 or +1.
func (u Uint128) Cmp(v Uint128) int {
	switch {
	case u.Hi != v.Hi:
		if u.Hi < v.Hi {
			return -1
		}
		return 1
	case u.Lo != v.Lo:
		if u.Lo < v.Lo {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// Lt reports u < v.
func (u Uint128) Lt(v Uint128) bool { return u.Cmp(v) < 0 }

// Gt reports u > v.
func (u Uint128) Gt(v Uint128) bool { return u.Cmp(v) > 0 }

// Lte reports u <= v.
func (u Uint128) Lte(v Uint128) bool { return u.Cmp(v) <= 0 }

// Gte reports u >= v.
func (u Uint128) Gte(v Uint128) bool { return u.Cmp(v) >= 0 }

// Add returns u + v, or ErrOverflow.
func (u Uint128) Add(v Uint128) (Uint128, error) {
	lo, carry := bits.Add64(u.Lo, v.Lo, 0)
	hi, carry := bits.Add64(u.Hi, v.Hi, carry)
	if carry != 0 {
		return Zero, ErrOverflow
	}
	return Uint128{Hi: hi, Lo: lo}, nil
}

// AddWrap returns u + v modulo 2^128. Used only for cumulative price
// counters, which are defined to wrap; consumers difference successive
// observations.
func (u Uint128) AddWrap(v Uint128) Uint128 {
	lo, carry := bits.Add64(u.Lo, v.Lo, 0)
	hi, _ := bits.Add64(u.Hi, v.Hi, carry)
	return Uint128{Hi: hi, Lo: lo}
}

// Sub returns u - v, or ErrOverflow when v > u.
func (u Uint128) Sub(v Uint128) (Uint128, error) {
	lo, borrow := bits.Sub64(u.Lo, v.Lo, 0)
	hi, borrow := bits.Sub64(u.Hi, v.Hi, borrow)
	if borrow != 0 {
		return Zero, ErrOverflow
	}
	return Uint128{Hi: hi, Lo: lo}, nil
}

// Mul returns u * v, or ErrOverflow.
func (u Uint128) Mul(v Uint128) (Uint128, error) {
	if u.Hi != 0 && v.Hi != 0 {
		return Zero, ErrOverflow
	}
	// u * v = (uHi*vLo + uLo*vHi) << 64 + uLo*vLo, with at most one of
	// uHi, vHi nonzero here.
	cross, carry1 := mulCheck(u.Hi, v.Lo)
	cross2, carry2 := mulCheck(u.Lo, v.Hi)
	if carry1 || carry2 {
		return Zero, ErrOverflow
	}
	crossSum, c := bits.Add64(cross, cross2, 0)
	if c != 0 {
		return Zero, ErrOverflow
	}
	hi, lo := bits.Mul64(u.Lo, v.Lo)
	hi2, c := bits.Add64(hi, crossSum, 0)
	if c != 0 {
		return Zero, ErrOverflow
	}
	return Uint128{Hi: hi2, Lo: lo}, nil
}

// mulCheck multiplies two uint64s, reporting whether the product exceeds 64
// bits.
func mulCheck(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi != 0
}

// Div returns floor(u / v), or ErrDivideByZero.
func (u Uint128) Div(v Uint128) (Uint128, error) {
	if v.IsZero() {
		return Zero, ErrDivideByZero
	}
	q := new(big.Int).Quo(u.Big(), v.Big())
	return FromBig(q)
}

// MulDiv returns floor(a * b / c) computed through a 256-bit intermediate so
// the product cannot overflow before the division. This is the only
// multiply-then-divide primitive the pricing code is allowed to use.
func MulDiv(a, b, c Uint128) (Uint128, error) {
	if c.IsZero() {
		return Zero, ErrDivideByZero
	}
	p := new(big.Int).Mul(a.Big(), b.Big())
	p.Quo(p, c.Big())
	return FromBig(p)
}

// MulDivCeil returns ceil(a * b / c) through a 256-bit intermediate. Used
// where rounding up charges the caller and therefore favors the pool.
func MulDivCeil(a, b, c Uint128) (Uint128, error) {
	if c.IsZero() {
		return Zero, ErrDivideByZero
	}
	p := new(big.Int).Mul(a.Big(), b.Big())
	q, r := new(big.Int).QuoRem(p, c.Big(), new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return FromBig(q)
}

// Sqrt returns floor(sqrt(u)).
func (u Uint128) Sqrt() Uint128 {
	r := new(big.Int).Sqrt(u.Big())
	// floor(sqrt(x)) of a 128-bit value always fits in 64 bits.
	return Uint128{Lo: r.Uint64()}
}

// Bytes returns the big-endian 16-byte representation.
func (u Uint128) Bytes() []byte {
	b := make([]byte, 16)
	putUint64(b[0:8], u.Hi)
	putUint64(b[8:16], u.Lo)
	return b
}

// FromBytes decodes a big-endian representation of up to 16 bytes.
func FromBytes(b []byte) (Uint128, error) {
	if len(b) > 16 {
		return Zero, ErrOverflow
	}
	var buf [16]byte
	copy(buf[16-len(b):], b)
	return Uint128{
		Hi: getUint64(buf[0:8]),
		Lo: getUint64(buf[8:16]),
	}, nil
}

func putUint64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// String returns the decimal representation.
func (u Uint128) String() string {
	return u.Big().String()
}

// MarshalJSON encodes the value as a decimal string, matching how amounts
// appear on the RPC surface.
func (u Uint128) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON decodes either a decimal string or a bare JSON number.
func (u *Uint128) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Bare number form.
		s = string(data)
	}
	v, err := FromString(s)
	if err != nil {
		return err
	}
	*u = v
	return nil
}
