package u128

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSub(t *testing.T) {
	a := New(1 << 63)
	b := New(1 << 63)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, Uint128{Hi: 1, Lo: 0}, sum)

	back, err := sum.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, a, back)

	_, err = Zero.Sub(New(1))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = MaxUint128.Add(New(1))
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestMul(t *testing.T) {
	a := New(1 << 40)
	b := New(1 << 40)
	p, err := a.Mul(b)
	require.NoError(t, err)
	assert.Equal(t, Uint128{Hi: 1 << 16, Lo: 0}, p)

	// 2^127 * 2 overflows.
	big127 := Uint128{Hi: 1 << 63}
	_, err = big127.Mul(New(2))
	assert.ErrorIs(t, err, ErrOverflow)

	// Max * 1 is fine.
	p, err = MaxUint128.Mul(New(1))
	require.NoError(t, err)
	assert.Equal(t, MaxUint128, p)
}

func TestMulDivFloors(t *testing.T) {
	// 10 * 10 / 3 = 33.33 -> 33
	q, err := MulDiv(New(10), New(10), New(3))
	require.NoError(t, err)
	assert.Equal(t, New(33), q)

	qc, err := MulDivCeil(New(10), New(10), New(3))
	require.NoError(t, err)
	assert.Equal(t, New(34), qc)

	// Exact division: floor == ceil.
	q, err = MulDiv(New(10), New(9), New(3))
	require.NoError(t, err)
	qc, err2 := MulDivCeil(New(10), New(9), New(3))
	require.NoError(t, err2)
	assert.Equal(t, q, qc)

	_, err = MulDiv(New(1), New(1), Zero)
	assert.ErrorIs(t, err, ErrDivideByZero)
}

func TestMulDivWideIntermediate(t *testing.T) {
	// a*b overflows 128 bits but the quotient fits.
	a := MustFromString("340282366920938463463374607431768211455") // 2^128-1
	q, err := MulDiv(a, a, a)
	require.NoError(t, err)
	assert.Equal(t, a, q)
}

func TestSqrt(t *testing.T) {
	assert.Equal(t, New(1000), New(1000000).Sqrt())
	assert.Equal(t, New(999), New(999999).Sqrt())
	assert.Equal(t, Zero, Zero.Sqrt())

	// sqrt(2^128-1) == 2^64-1
	assert.Equal(t, New(^uint64(0)), MaxUint128.Sqrt())
}

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{
		"0",
		"1",
		"18446744073709551616", // 2^64
		"340282366920938463463374607431768211455",
	} {
		v, err := FromString(s)
		require.NoError(t, err)
		assert.Equal(t, s, v.String())

		b, err := FromBytes(v.Bytes())
		require.NoError(t, err)
		assert.Equal(t, v, b)
	}

	_, err := FromString("-1")
	assert.Error(t, err)
	_, err = FromString("340282366920938463463374607431768211456")
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestFromBig(t *testing.T) {
	v := new(big.Int).Lsh(big.NewInt(1), 100)
	u, err := FromBig(v)
	require.NoError(t, err)
	assert.Equal(t, 0, u.Big().Cmp(v))
}

func TestAddWrap(t *testing.T) {
	assert.Equal(t, Zero, MaxUint128.AddWrap(New(1)))
	assert.Equal(t, New(5), New(2).AddWrap(New(3)))
}

func TestJSON(t *testing.T) {
	v := MustFromString("123456789012345678901234567890")
	data, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"123456789012345678901234567890"`, string(data))

	var out Uint128
	require.NoError(t, out.UnmarshalJSON(data))
	assert.Equal(t, v, out)

	require.NoError(t, out.UnmarshalJSON([]byte(`42`)))
	assert.Equal(t, New(42), out)
}
