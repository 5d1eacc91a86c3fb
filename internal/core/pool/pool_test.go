package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TopCodeBeast/subswap/internal/core/state"
	"github.com/TopCodeBeast/subswap/internal/core/swaperr"
	"github.com/TopCodeBeast/subswap/internal/core/u128"
)

func newCPPool(t *testing.T, feeBps uint16) *Pool {
	t.Helper()
	id, err := NewID(1, 2)
	require.NoError(t, err)
	p, err := New(id, ConstantProduct, CurveParams{}, feeBps)
	require.NoError(t, err)
	return p
}

func TestIDCanonicalization(t *testing.T) {
	a, err := NewID(7, 3)
	require.NoError(t, err)
	b, err := NewID(3, 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, a.Key(), b.Key())

	_, err = NewID(5, 5)
	assert.Error(t, err)

	other, ok := a.Other(3)
	require.True(t, ok)
	assert.EqualValues(t, 7, other)
	_, ok = a.Other(9)
	assert.False(t, ok)
}

func TestSeedDepositGeometricMean(t *testing.T) {
	p := newCPPool(t, 30)

	res, err := p.Deposit(u128.New(1000), u128.New(1000), 0)
	require.NoError(t, err)
	assert.Equal(t, u128.New(1000), res.LPMinted)
	assert.Equal(t, u128.New(1000), res.AcceptedA)
	assert.Equal(t, u128.New(1000), res.AcceptedB)
	assert.Equal(t, u128.New(1000), p.ReserveA)
	assert.Equal(t, u128.New(1000), p.ReserveB)
	assert.Equal(t, u128.New(1000), p.LPSupply)
}

func TestSeedDepositFloorsSqrt(t *testing.T) {
	p := newCPPool(t, 0)
	res, err := p.Deposit(u128.New(10), u128.New(11), 0)
	require.NoError(t, err)
	// floor(sqrt(110)) = 10
	assert.Equal(t, u128.New(10), res.LPMinted)
}

func TestSeedTooSmall(t *testing.T) {
	p := newCPPool(t, 0)
	// sqrt(0) after floor of a zero-sided product never happens (zero
	// amounts rejected first); a 1x0 deposit is a ratio error.
	_, err := p.Deposit(u128.New(1), u128.Zero, 0)
	assert.ErrorIs(t, err, swaperr.ErrRatioMismatch)
}

func TestProportionalDepositTrims(t *testing.T) {
	p := newCPPool(t, 30)
	_, err := p.Deposit(u128.New(1000), u128.New(2000), 0)
	require.NoError(t, err)

	// Offering 100/300 against a 1:2 pool accepts 100/200 when tolerance
	// allows the B side to be trimmed by a third.
	res, err := p.Deposit(u128.New(100), u128.New(300), 4000)
	require.NoError(t, err)
	assert.Equal(t, u128.New(100), res.AcceptedA)
	assert.Equal(t, u128.New(200), res.AcceptedB)

	// supply was floor(sqrt(1000*2000)) = 1414; mint = min(1414*100/1000,
	// 1414*200/2000) = 141.
	assert.Equal(t, u128.New(141), res.LPMinted)
	assert.Equal(t, u128.New(1100), p.ReserveA)
	assert.Equal(t, u128.New(2200), p.ReserveB)
}

func TestDepositRatioMismatch(t *testing.T) {
	p := newCPPool(t, 30)
	_, err := p.Deposit(u128.New(1000), u128.New(2000), 0)
	require.NoError(t, err)

	before := *p
	// Same offer with a tight tolerance fails: 300 offered, 200 accepted
	// is far beyond 1%.
	_, err = p.Deposit(u128.New(100), u128.New(300), 100)
	assert.ErrorIs(t, err, swaperr.ErrRatioMismatch)
	assert.Equal(t, before, *p)
}

func TestWithdrawProRata(t *testing.T) {
	p := newCPPool(t, 30)
	_, err := p.Deposit(u128.New(1000), u128.New(4000), 0)
	require.NoError(t, err)
	supply := p.LPSupply // 2000

	res, err := p.Withdraw(u128.New(500))
	require.NoError(t, err)
	assert.Equal(t, u128.New(250), res.AmountA)  // 1000*500/2000
	assert.Equal(t, u128.New(1000), res.AmountB) // 4000*500/2000
	expected, err := supply.Sub(u128.New(500))
	require.NoError(t, err)
	assert.Equal(t, expected, p.LPSupply)
}

func TestWithdrawFullDrainClearsPool(t *testing.T) {
	p := newCPPool(t, 30)
	_, err := p.Deposit(u128.New(1000), u128.New(1000), 0)
	require.NoError(t, err)

	res, err := p.Withdraw(u128.New(1000))
	require.NoError(t, err)
	assert.Equal(t, u128.New(1000), res.AmountA)
	assert.Equal(t, u128.New(1000), res.AmountB)
	assert.True(t, p.IsEmpty())
	assert.True(t, p.ReserveA.IsZero())
	assert.True(t, p.ReserveB.IsZero())

	// Drained pool can re-seed.
	_, err = p.Deposit(u128.New(500), u128.New(500), 0)
	require.NoError(t, err)
	assert.Equal(t, u128.New(500), p.LPSupply)
}

func TestWithdrawBeyondSupply(t *testing.T) {
	p := newCPPool(t, 30)
	_, err := p.Deposit(u128.New(1000), u128.New(1000), 0)
	require.NoError(t, err)
	_, err = p.Withdraw(u128.New(1001))
	assert.ErrorIs(t, err, swaperr.ErrInsufficientBalance)
}

func TestDepositWithdrawNoValueCreation(t *testing.T) {
	p := newCPPool(t, 30)
	_, err := p.Deposit(u128.New(1000), u128.New(2000), 0)
	require.NoError(t, err)

	res, err := p.Deposit(u128.New(333), u128.New(667), 100)
	require.NoError(t, err)

	out, err := p.Withdraw(res.LPMinted)
	require.NoError(t, err)
	assert.True(t, out.AmountA.Lte(res.AcceptedA),
		"withdrew %s for deposit of %s", out.AmountA, res.AcceptedA)
	assert.True(t, out.AmountB.Lte(res.AcceptedB),
		"withdrew %s for deposit of %s", out.AmountB, res.AcceptedB)
}

func TestSwapExactInClosedForm(t *testing.T) {
	// Pool at (1000,1000), 30 bps fee, 100 in: net input is
	// floor(100*9970/10000) = 99, output floor(99*1000/1099) = 90.
	p := newCPPool(t, 30)
	_, err := p.Deposit(u128.New(1000), u128.New(1000), 0)
	require.NoError(t, err)

	kBefore := p.InvariantValue()
	res, err := p.SwapExactIn(1, u128.New(100), u128.Zero, 0)
	require.NoError(t, err)

	assert.Equal(t, u128.New(90), res.AmountOut)
	assert.Equal(t, u128.New(1), res.FeeTotal)
	assert.Equal(t, u128.New(1100), p.ReserveA)
	assert.Equal(t, u128.New(910), p.ReserveB)

	kAfter := p.InvariantValue()
	assert.True(t, kAfter.Cmp(kBefore) > 0, "k must strictly grow with a fee: %s -> %s", kBefore, kAfter)
}

func TestSwapZeroFeePreservesK(t *testing.T) {
	p := newCPPool(t, 0)
	_, err := p.Deposit(u128.New(1_000_000), u128.New(1_000_000), 0)
	require.NoError(t, err)

	kBefore := p.InvariantValue()
	_, err = p.SwapExactIn(1, u128.New(333), u128.Zero, 0)
	require.NoError(t, err)
	kAfter := p.InvariantValue()

	assert.True(t, kAfter.Cmp(kBefore) >= 0)
	// Rounding keeps at most a dust remainder with zero fee.
	diff := kAfter.Sub(kAfter, kBefore)
	assert.True(t, diff.Cmp(p.ReserveA.Big()) < 0)
}

func TestSwapSlippageExceededLeavesPoolUntouched(t *testing.T) {
	p := newCPPool(t, 30)
	_, err := p.Deposit(u128.New(1000), u128.New(1000), 0)
	require.NoError(t, err)

	before := *p
	_, err = p.SwapExactIn(1, u128.New(100), u128.New(91), 0)
	assert.ErrorIs(t, err, swaperr.ErrSlippageExceeded)
	assert.Equal(t, before, *p)
}

func TestSwapExactOut(t *testing.T) {
	p := newCPPool(t, 30)
	_, err := p.Deposit(u128.New(1000), u128.New(1000), 0)
	require.NoError(t, err)

	kBefore := p.InvariantValue()
	res, err := p.SwapExactOut(2, u128.New(90), u128.New(200), 0)
	require.NoError(t, err)

	assert.Equal(t, u128.New(90), res.AmountOut)
	// Net input ceil(1000*90/910) = 99, grossed up ceil(99*10000/9970) = 100.
	assert.Equal(t, u128.New(100), res.AmountIn)
	assert.True(t, p.InvariantValue().Cmp(kBefore) >= 0)

	// Quote agrees with execution.
	p2 := newCPPool(t, 30)
	_, err = p2.Deposit(u128.New(1000), u128.New(1000), 0)
	require.NoError(t, err)
	quoted, err := p2.QuoteExactOut(2, u128.New(90))
	require.NoError(t, err)
	assert.Equal(t, res.AmountIn, quoted)
}

func TestSwapExactOutExcessiveInput(t *testing.T) {
	p := newCPPool(t, 30)
	_, err := p.Deposit(u128.New(1000), u128.New(1000), 0)
	require.NoError(t, err)

	before := *p
	_, err = p.SwapExactOut(2, u128.New(90), u128.New(99), 0)
	assert.ErrorIs(t, err, swaperr.ErrExcessiveInput)
	assert.Equal(t, before, *p)
}

func TestSwapExactOutBeyondReserve(t *testing.T) {
	p := newCPPool(t, 30)
	_, err := p.Deposit(u128.New(1000), u128.New(1000), 0)
	require.NoError(t, err)
	_, err = p.SwapExactOut(2, u128.New(1000), u128.MaxUint128, 0)
	assert.ErrorIs(t, err, swaperr.ErrInsufficientLiquidity)
}

func TestSwapEmptyPool(t *testing.T) {
	p := newCPPool(t, 30)
	_, err := p.SwapExactIn(1, u128.New(100), u128.Zero, 0)
	assert.ErrorIs(t, err, swaperr.ErrInsufficientLiquidity)
}

func TestProtocolFeeSplit(t *testing.T) {
	p := newCPPool(t, 100) // 1%
	_, err := p.Deposit(u128.New(100_000), u128.New(100_000), 0)
	require.NoError(t, err)

	// 10000 in, fee = 100, protocol share 1/6 (1667 bps) = 16.
	res, err := p.SwapExactIn(1, u128.New(10_000), u128.Zero, 1667)
	require.NoError(t, err)
	assert.Equal(t, u128.New(100), res.FeeTotal)
	assert.Equal(t, u128.New(16), res.FeeProtocol)

	// Reserve keeps everything except the protocol slice.
	expected := u128.New(100_000 + 10_000 - 16)
	assert.Equal(t, expected, p.ReserveA)
}

func TestQuoteMatchesSwapAndIsPure(t *testing.T) {
	p := newCPPool(t, 30)
	_, err := p.Deposit(u128.New(5000), u128.New(7000), 0)
	require.NoError(t, err)

	before := *p
	quoted, err := p.QuoteExactIn(1, u128.New(250))
	require.NoError(t, err)
	assert.Equal(t, before, *p, "quote must not mutate the pool")

	res, err := p.SwapExactIn(1, u128.New(250), u128.Zero, 0)
	require.NoError(t, err)
	assert.Equal(t, quoted, res.AmountOut)
}

func TestStableCurveLowSlippage(t *testing.T) {
	id, err := NewID(1, 2)
	require.NoError(t, err)
	sp, err := New(id, StableSwap, CurveParams{Amplification: 100}, 0)
	require.NoError(t, err)
	_, err = sp.Deposit(u128.New(1_000_000), u128.New(1_000_000), 0)
	require.NoError(t, err)

	cp := newCPPool(t, 0)
	_, err = cp.Deposit(u128.New(1_000_000), u128.New(1_000_000), 0)
	require.NoError(t, err)

	dBefore := sp.InvariantValue()
	stableOut, err := sp.SwapExactIn(1, u128.New(100_000), u128.Zero, 0)
	require.NoError(t, err)
	cpOut, err := cp.SwapExactIn(1, u128.New(100_000), u128.Zero, 0)
	require.NoError(t, err)

	assert.True(t, stableOut.AmountOut.Gt(cpOut.AmountOut),
		"stable pool must beat constant product near parity: %s vs %s",
		stableOut.AmountOut, cpOut.AmountOut)
	assert.True(t, stableOut.AmountOut.Lt(u128.New(100_000)),
		"output must stay below input")
	assert.True(t, sp.InvariantValue().Cmp(dBefore) >= 0, "D must not decrease")
}

func TestWeightedCurve(t *testing.T) {
	id, err := NewID(1, 2)
	require.NoError(t, err)
	// 80/20 pool.
	wp, err := New(id, Weighted, CurveParams{WeightA: 4, WeightB: 1}, 0)
	require.NoError(t, err)
	_, err = wp.Deposit(u128.New(8_000_000), u128.New(2_000_000), 0)
	require.NoError(t, err)

	vBefore := wp.InvariantValue()
	res, err := wp.SwapExactIn(1, u128.New(100_000), u128.Zero, 0)
	require.NoError(t, err)
	assert.False(t, res.AmountOut.IsZero())
	assert.True(t, wp.InvariantValue().Cmp(vBefore) >= 0,
		"weighted invariant must not decrease")

	// Exact-out round trip stays consistent: the input implied for the
	// received output is never below what a fresh pool charges.
	wp2, err := New(id, Weighted, CurveParams{WeightA: 4, WeightB: 1}, 0)
	require.NoError(t, err)
	_, err = wp2.Deposit(u128.New(8_000_000), u128.New(2_000_000), 0)
	require.NoError(t, err)
	in, err := wp2.QuoteExactOut(2, res.AmountOut)
	require.NoError(t, err)
	assert.False(t, in.IsZero())
	assert.True(t, in.Lte(res.AmountIn),
		"exact-out charge %s for the floored output cannot exceed the exact-in payment %s",
		in, res.AmountIn)
}

func TestCurveParamValidation(t *testing.T) {
	id, err := NewID(1, 2)
	require.NoError(t, err)

	_, err = New(id, StableSwap, CurveParams{}, 0)
	assert.Error(t, err, "stable pool requires amplification")

	_, err = New(id, Weighted, CurveParams{WeightA: 65, WeightB: 1}, 0)
	assert.Error(t, err, "weight sum capped")

	_, err = New(id, ConstantProduct, CurveParams{}, MaxFeeBps+1)
	assert.Error(t, err, "fee capped")
}

func TestRecordRoundTrip(t *testing.T) {
	view := state.NewMapView()
	p := newCPPool(t, 30)
	_, err := p.Deposit(u128.New(123456), u128.New(654321), 0)
	require.NoError(t, err)
	p.Sync(1000)

	require.NoError(t, p.Store(view))
	loaded, err := Load(view, p.Pair)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)

	// Update path.
	_, err = p.SwapExactIn(1, u128.New(100), u128.Zero, 0)
	require.NoError(t, err)
	require.NoError(t, p.Store(view))
	loaded, err = Load(view, p.Pair)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)

	// Missing pair.
	missing, _ := NewID(8, 9)
	_, err = Load(view, missing)
	assert.ErrorIs(t, err, swaperr.ErrPoolNotFound)
}

func TestSyncAccumulates(t *testing.T) {
	p := newCPPool(t, 0)
	_, err := p.Deposit(u128.New(1000), u128.New(2000), 0)
	require.NoError(t, err)

	// Price of A in B is 2.0 in UQ64.64; ten seconds accrue 20<<64.
	p.Sync(10)
	assert.Equal(t, u128.Uint128{Hi: 20, Lo: 0}, p.PriceACumulative)
	// Price of B in A is 0.5: ten seconds accrue 5<<64.
	assert.Equal(t, u128.Uint128{Hi: 5, Lo: 0}, p.PriceBCumulative)

	p.Sync(10) // same timestamp: no movement
	assert.Equal(t, u128.Uint128{Hi: 20, Lo: 0}, p.PriceACumulative)

	p.Sync(20)
	assert.Equal(t, u128.Uint128{Hi: 40, Lo: 0}, p.PriceACumulative)
	assert.EqualValues(t, 20, p.LastTimestamp)
}

func TestGovernanceSetters(t *testing.T) {
	p := newCPPool(t, 30)
	require.NoError(t, p.SetFee(50))
	assert.EqualValues(t, 50, p.FeeBps)
	assert.Error(t, p.SetFee(MaxFeeBps+1))

	id, _ := NewID(1, 2)
	sp, err := New(id, StableSwap, CurveParams{Amplification: 10}, 0)
	require.NoError(t, err)
	require.NoError(t, sp.SetCurveParams(CurveParams{Amplification: 200}))
	assert.EqualValues(t, 200, sp.Params.Amplification)
	assert.Error(t, sp.SetCurveParams(CurveParams{Amplification: 0}))
}
