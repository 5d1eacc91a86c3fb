package swaptest

import (
	"github.com/TopCodeBeast/subswap/internal/core/asset"
	"github.com/TopCodeBeast/subswap/internal/core/engine"
	"github.com/TopCodeBeast/subswap/internal/core/pool"
	"github.com/TopCodeBeast/subswap/internal/core/u128"
)

// CreatePoolBuilder builds CreatePool requests.
type CreatePoolBuilder struct {
	req engine.CreatePool
}

// CreatePool starts a constant-product pool request with a 30 bps fee.
func CreatePool(origin *Account, a, b asset.ID) *CreatePoolBuilder {
	return &CreatePoolBuilder{req: engine.CreatePool{
		Origin: origin.ID, AssetA: a, AssetB: b, FeeBps: 30,
	}}
}

// Fee sets the swap fee in basis points.
func (b *CreatePoolBuilder) Fee(bps uint16) *CreatePoolBuilder {
	b.req.FeeBps = bps
	return b
}

// Stable switches the pool to the stable curve.
func (b *CreatePoolBuilder) Stable(amplification uint64) *CreatePoolBuilder {
	b.req.Curve = pool.StableSwap
	b.req.Params = pool.CurveParams{Amplification: amplification}
	return b
}

// Weighted switches the pool to the weighted curve.
func (b *CreatePoolBuilder) Weighted(weightA, weightB uint32) *CreatePoolBuilder {
	b.req.Curve = pool.Weighted
	b.req.Params = pool.CurveParams{WeightA: weightA, WeightB: weightB}
	return b
}

// Build returns the request.
func (b *CreatePoolBuilder) Build() engine.Request { return b.req }

// DepositBuilder builds AddLiquidity requests.
type DepositBuilder struct {
	req engine.AddLiquidity
}

// Deposit starts an AddLiquidity request with full ratio tolerance.
func Deposit(origin *Account, a, b asset.ID, amountA, amountB uint64) *DepositBuilder {
	return &DepositBuilder{req: engine.AddLiquidity{
		Origin: origin.ID, AssetA: a, AssetB: b,
		AmountA: u128.New(amountA), AmountB: u128.New(amountB),
		ToleranceBps: pool.FeeDenominator,
	}}
}

// Tolerance bounds how far the accepted amounts may trim below the
// offered ones.
func (b *DepositBuilder) Tolerance(bps uint16) *DepositBuilder {
	b.req.ToleranceBps = bps
	return b
}

// Deadline sets the expiry block time.
func (b *DepositBuilder) Deadline(t uint64) *DepositBuilder {
	b.req.Deadline = t
	return b
}

// Build returns the request.
func (b *DepositBuilder) Build() engine.Request { return b.req }

// WithdrawBuilder builds RemoveLiquidity requests.
type WithdrawBuilder struct {
	req engine.RemoveLiquidity
}

// Withdraw starts a RemoveLiquidity request.
func Withdraw(origin *Account, a, b asset.ID, lpAmount uint64) *WithdrawBuilder {
	return &WithdrawBuilder{req: engine.RemoveLiquidity{
		Origin: origin.ID, AssetA: a, AssetB: b, LPAmount: u128.New(lpAmount),
	}}
}

// Deadline sets the expiry block time.
func (b *WithdrawBuilder) Deadline(t uint64) *WithdrawBuilder {
	b.req.Deadline = t
	return b
}

// Build returns the request.
func (b *WithdrawBuilder) Build() engine.Request { return b.req }

// SwapBuilder builds SwapExactIn, SwapExactOut and RouteSwap requests.
type SwapBuilder struct {
	origin   *Account
	assetIn  asset.ID
	assetOut asset.ID
	amountIn u128.Uint128
	minOut   u128.Uint128
	deadline uint64
	path     []asset.ID
	routed   bool
}

// Swap starts an exact-input swap request.
func Swap(origin *Account, assetIn, assetOut asset.ID, amountIn uint64) *SwapBuilder {
	return &SwapBuilder{
		origin: origin, assetIn: assetIn, assetOut: assetOut,
		amountIn: u128.New(amountIn),
	}
}

// MinOut sets the slippage floor.
func (b *SwapBuilder) MinOut(v uint64) *SwapBuilder {
	b.minOut = u128.New(v)
	return b
}

// Deadline sets the expiry block time.
func (b *SwapBuilder) Deadline(t uint64) *SwapBuilder {
	b.deadline = t
	return b
}

// Routed makes the engine pick the best path instead of the direct pool.
func (b *SwapBuilder) Routed() *SwapBuilder {
	b.routed = true
	return b
}

// Via routes the swap along an explicit path.
func (b *SwapBuilder) Via(path ...asset.ID) *SwapBuilder {
	b.routed = true
	b.path = path
	return b
}

// Build returns the request.
func (b *SwapBuilder) Build() engine.Request {
	if b.routed {
		return engine.RouteSwap{
			Origin: b.origin.ID, AssetIn: b.assetIn, AssetOut: b.assetOut,
			Path: b.path, AmountIn: b.amountIn, MinOut: b.minOut,
			Deadline: b.deadline,
		}
	}
	return engine.SwapExactIn{
		Origin: b.origin.ID, AssetIn: b.assetIn, AssetOut: b.assetOut,
		AmountIn: b.amountIn, MinOut: b.minOut, Deadline: b.deadline,
	}
}

// SwapOut builds an exact-output swap request.
func SwapOut(origin *Account, assetIn, assetOut asset.ID, amountOut, maxIn uint64) engine.Request {
	return engine.SwapExactOut{
		Origin: origin.ID, AssetIn: assetIn, AssetOut: assetOut,
		AmountOut: u128.New(amountOut), MaxIn: u128.New(maxIn),
	}
}

// Transfer builds a TransferLP request.
func Transfer(from, to *Account, a, b asset.ID, amount uint64) engine.Request {
	return engine.TransferLP{
		Origin: from.ID, To: to.ID, AssetA: a, AssetB: b, Amount: u128.New(amount),
	}
}

// SetFee builds a SetFee request.
func SetFee(origin *Account, a, b asset.ID, bps uint16) engine.Request {
	return engine.SetFee{Origin: origin.ID, AssetA: a, AssetB: b, FeeBps: bps}
}

// Fund creates a funded constant-product pool in one step.
func (e *Env) Fund(origin *Account, a, b asset.ID, amountA, amountB uint64) {
	e.T.Helper()
	e.Apply(CreatePool(origin, a, b).Build())
	e.Apply(Deposit(origin, a, b, amountA, amountB).Build())
}
