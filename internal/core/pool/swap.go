package pool

import (
	"fmt"
	"math/big"

	"github.com/TopCodeBeast/subswap/internal/core/asset"
	"github.com/TopCodeBeast/subswap/internal/core/swaperr"
	"github.com/TopCodeBeast/subswap/internal/core/u128"
)

// SwapResult reports one executed swap against one pool.
type SwapResult struct {
	AssetIn  asset.ID
	AssetOut asset.ID

	// AmountIn is the gross input charged, fee included.
	AmountIn u128.Uint128

	// AmountOut is the output paid to the caller.
	AmountOut u128.Uint128

	// FeeTotal is the full fee taken off the input.
	FeeTotal u128.Uint128

	// FeeProtocol is the slice of FeeTotal owed to the treasury; the
	// remainder stays in the reserves and accrues to LP holders.
	FeeProtocol u128.Uint128
}

// SwapExactIn executes a swap paying exactly amountIn of assetIn. The fee
// comes off the input first, the curve is solved over the net input, and
// the realized output must reach minOut or the swap fails with
// SlippageExceeded, pool untouched. protocolShareBps is the configured
// slice of the fee routed to the treasury; the caller credits
// FeeProtocol there atomically with persisting the pool.
func (p *Pool) SwapExactIn(assetIn asset.ID, amountIn, minOut u128.Uint128, protocolShareBps uint16) (SwapResult, error) {
	if amountIn.IsZero() {
		return SwapResult{}, fmt.Errorf("zero input: %w", swaperr.ErrInsufficientLiquidity)
	}
	rIn, rOut, wIn, wOut, err := p.reserves(assetIn)
	if err != nil {
		return SwapResult{}, err
	}
	if rIn.IsZero() || rOut.IsZero() {
		return SwapResult{}, fmt.Errorf("%s has no liquidity: %w", p.Pair, swaperr.ErrInsufficientLiquidity)
	}

	dxNet, feeTotal, err := p.takeFeeFromInput(amountIn)
	if err != nil {
		return SwapResult{}, err
	}
	dy, err := p.amountOut(rIn, rOut, wIn, wOut, dxNet)
	if err != nil {
		return SwapResult{}, err
	}
	if dy.Lt(minOut) {
		return SwapResult{}, fmt.Errorf("output %s below minimum %s: %w", dy, minOut, swaperr.ErrSlippageExceeded)
	}

	feeProtocol, err := u128.MulDiv(feeTotal, u128.New(uint64(protocolShareBps)), u128.New(FeeDenominator))
	if err != nil {
		return SwapResult{}, fmt.Errorf("fee split: %w", swaperr.ErrArithmeticOverflow)
	}

	// The LP slice of the fee stays in the input reserve; only the
	// protocol slice leaves the pool.
	retained, err := amountIn.Sub(feeProtocol)
	if err != nil {
		return SwapResult{}, fmt.Errorf("fee split: %w", swaperr.ErrArithmeticOverflow)
	}
	newRIn, err := rIn.Add(retained)
	if err != nil {
		return SwapResult{}, fmt.Errorf("input reserve: %w", swaperr.ErrArithmeticOverflow)
	}
	newROut, err := rOut.Sub(dy)
	if err != nil {
		return SwapResult{}, fmt.Errorf("output reserve: %w", swaperr.ErrArithmeticOverflow)
	}

	p.setReserves(assetIn, newRIn, newROut)
	out, _ := p.Pair.Other(assetIn)
	return SwapResult{
		AssetIn:     assetIn,
		AssetOut:    out,
		AmountIn:    amountIn,
		AmountOut:   dy,
		FeeTotal:    feeTotal,
		FeeProtocol: feeProtocol,
	}, nil
}

// SwapExactOut executes a swap delivering exactly amountOut of assetOut.
// The curve is solved for the net input, the fee is grossed up on top, and
// the implied gross input must not exceed maxIn or the swap fails with
// ExcessiveInput, pool untouched.
func (p *Pool) SwapExactOut(assetOut asset.ID, amountOut, maxIn u128.Uint128, protocolShareBps uint16) (SwapResult, error) {
	if amountOut.IsZero() {
		return SwapResult{}, fmt.Errorf("zero output: %w", swaperr.ErrInsufficientLiquidity)
	}
	assetIn, ok := p.Pair.Other(assetOut)
	if !ok {
		return SwapResult{}, fmt.Errorf("%s not in %s: %w", assetOut, p.Pair, swaperr.ErrUnknownAsset)
	}
	rIn, rOut, wIn, wOut, err := p.reserves(assetIn)
	if err != nil {
		return SwapResult{}, err
	}
	if rIn.IsZero() || rOut.IsZero() {
		return SwapResult{}, fmt.Errorf("%s has no liquidity: %w", p.Pair, swaperr.ErrInsufficientLiquidity)
	}

	dxNet, err := p.amountIn(rIn, rOut, wIn, wOut, amountOut)
	if err != nil {
		return SwapResult{}, err
	}
	// Gross up: dx = ceil(dxNet * 10000 / (10000 - fee)).
	dx, err := u128.MulDivCeil(dxNet, u128.New(FeeDenominator), u128.New(uint64(FeeDenominator-p.FeeBps)))
	if err != nil {
		return SwapResult{}, fmt.Errorf("fee gross-up: %w", swaperr.ErrArithmeticOverflow)
	}
	if dx.Gt(maxIn) {
		return SwapResult{}, fmt.Errorf("input %s exceeds maximum %s: %w", dx, maxIn, swaperr.ErrExcessiveInput)
	}
	feeTotal, err := dx.Sub(dxNet)
	if err != nil {
		return SwapResult{}, fmt.Errorf("fee: %w", swaperr.ErrArithmeticOverflow)
	}
	feeProtocol, err := u128.MulDiv(feeTotal, u128.New(uint64(protocolShareBps)), u128.New(FeeDenominator))
	if err != nil {
		return SwapResult{}, fmt.Errorf("fee split: %w", swaperr.ErrArithmeticOverflow)
	}

	retained, err := dx.Sub(feeProtocol)
	if err != nil {
		return SwapResult{}, fmt.Errorf("fee split: %w", swaperr.ErrArithmeticOverflow)
	}
	newRIn, err := rIn.Add(retained)
	if err != nil {
		return SwapResult{}, fmt.Errorf("input reserve: %w", swaperr.ErrArithmeticOverflow)
	}
	newROut, err := rOut.Sub(amountOut)
	if err != nil {
		return SwapResult{}, fmt.Errorf("output reserve: %w", swaperr.ErrArithmeticOverflow)
	}

	p.setReserves(assetIn, newRIn, newROut)
	return SwapResult{
		AssetIn:     assetIn,
		AssetOut:    assetOut,
		AmountIn:    dx,
		AmountOut:   amountOut,
		FeeTotal:    feeTotal,
		FeeProtocol: feeProtocol,
	}, nil
}

// QuoteExactIn computes the output of SwapExactIn without mutating the
// pool.
func (p *Pool) QuoteExactIn(assetIn asset.ID, amountIn u128.Uint128) (u128.Uint128, error) {
	if amountIn.IsZero() {
		return u128.Zero, fmt.Errorf("zero input: %w", swaperr.ErrInsufficientLiquidity)
	}
	rIn, rOut, wIn, wOut, err := p.reserves(assetIn)
	if err != nil {
		return u128.Zero, err
	}
	if rIn.IsZero() || rOut.IsZero() {
		return u128.Zero, fmt.Errorf("%s has no liquidity: %w", p.Pair, swaperr.ErrInsufficientLiquidity)
	}
	dxNet, _, err := p.takeFeeFromInput(amountIn)
	if err != nil {
		return u128.Zero, err
	}
	return p.amountOut(rIn, rOut, wIn, wOut, dxNet)
}

// QuoteExactOut computes the gross input of SwapExactOut without mutating
// the pool.
func (p *Pool) QuoteExactOut(assetOut asset.ID, amountOut u128.Uint128) (u128.Uint128, error) {
	if amountOut.IsZero() {
		return u128.Zero, fmt.Errorf("zero output: %w", swaperr.ErrInsufficientLiquidity)
	}
	assetIn, ok := p.Pair.Other(assetOut)
	if !ok {
		return u128.Zero, fmt.Errorf("%s not in %s: %w", assetOut, p.Pair, swaperr.ErrUnknownAsset)
	}
	rIn, rOut, wIn, wOut, err := p.reserves(assetIn)
	if err != nil {
		return u128.Zero, err
	}
	if rIn.IsZero() || rOut.IsZero() {
		return u128.Zero, fmt.Errorf("%s has no liquidity: %w", p.Pair, swaperr.ErrInsufficientLiquidity)
	}
	dxNet, err := p.amountIn(rIn, rOut, wIn, wOut, amountOut)
	if err != nil {
		return u128.Zero, err
	}
	return u128.MulDivCeil(dxNet, u128.New(FeeDenominator), u128.New(uint64(FeeDenominator-p.FeeBps)))
}

// takeFeeFromInput splits the gross input into the net amount priced by the
// curve and the fee, both floored toward the pool.
func (p *Pool) takeFeeFromInput(amountIn u128.Uint128) (dxNet, feeTotal u128.Uint128, err error) {
	dxNet, err = u128.MulDiv(amountIn, u128.New(uint64(FeeDenominator-p.FeeBps)), u128.New(FeeDenominator))
	if err != nil {
		return u128.Zero, u128.Zero, fmt.Errorf("fee: %w", swaperr.ErrArithmeticOverflow)
	}
	if dxNet.IsZero() {
		return u128.Zero, u128.Zero, fmt.Errorf("input below fee floor: %w", swaperr.ErrInsufficientLiquidity)
	}
	feeTotal, err = amountIn.Sub(dxNet)
	if err != nil {
		return u128.Zero, u128.Zero, fmt.Errorf("fee: %w", swaperr.ErrArithmeticOverflow)
	}
	return dxNet, feeTotal, nil
}

// Sync accumulates the time-weighted UQ64.64 prices up to now. Called on
// every reserve mutation, before the new reserves take effect, matching the
// usual cumulative-price bookkeeping. Counters wrap modulo 2^128.
func (p *Pool) Sync(now uint64) {
	if now <= p.LastTimestamp {
		p.LastTimestamp = now
		return
	}
	elapsed := now - p.LastTimestamp
	p.LastTimestamp = now
	if p.ReserveA.IsZero() || p.ReserveB.IsZero() {
		return
	}
	p.PriceACumulative = p.PriceACumulative.AddWrap(priceQ64Wrapped(p.ReserveB, p.ReserveA, elapsed))
	p.PriceBCumulative = p.PriceBCumulative.AddWrap(priceQ64Wrapped(p.ReserveA, p.ReserveB, elapsed))
}

// priceQ64Wrapped returns (num<<64/den)*elapsed reduced modulo 2^128.
func priceQ64Wrapped(num, den u128.Uint128, elapsed uint64) u128.Uint128 {
	v := num.Big()
	v.Lsh(v, 64)
	v.Quo(v, den.Big())
	v.Mul(v, new(big.Int).SetUint64(elapsed))
	v.And(v, u128.MaxUint128.Big())
	out, _ := u128.FromBig(v)
	return out
}
