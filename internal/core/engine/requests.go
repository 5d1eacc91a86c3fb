package engine

import (
	"fmt"

	"github.com/TopCodeBeast/subswap/internal/core/asset"
	"github.com/TopCodeBeast/subswap/internal/core/market"
	"github.com/TopCodeBeast/subswap/internal/core/pool"
	"github.com/TopCodeBeast/subswap/internal/core/swaperr"
	"github.com/TopCodeBeast/subswap/internal/core/u128"
)

// Request is one unit of work for the engine. Validate runs before any
// state is touched and rejects structurally bad requests; apply runs
// against the sandboxed context and may fail with any taxonomy error.
type Request interface {
	Kind() string
	Validate() error
	apply(c *applyCtx) (Result, error)
}

// deadlined is implemented by requests carrying an expiry block time.
// Zero means no deadline.
type deadlined interface {
	deadline() uint64
}

func validatePair(a, b asset.ID) error {
	if a == b {
		return fmt.Errorf("identical assets %s: %w", a, swaperr.ErrInvalidRequest)
	}
	return nil
}

// CreatePool creates the pool for a pair. Creating an existing pair is
// not an error; the request reports the existing pool and emits nothing.
type CreatePool struct {
	Origin asset.AccountID
	AssetA asset.ID
	AssetB asset.ID
	Curve  pool.CurveKind
	Params pool.CurveParams
	FeeBps uint16
}

func (r CreatePool) Kind() string { return "CreatePool" }

func (r CreatePool) Validate() error {
	if err := validatePair(r.AssetA, r.AssetB); err != nil {
		return err
	}
	if r.FeeBps > pool.MaxFeeBps {
		return fmt.Errorf("fee %d exceeds %d bps: %w", r.FeeBps, pool.MaxFeeBps, swaperr.ErrInvalidRequest)
	}
	return nil
}

func (r CreatePool) apply(c *applyCtx) (Result, error) {
	if err := c.requireAssets(r.AssetA, r.AssetB); err != nil {
		return Result{}, err
	}
	p, created, err := c.market.GetOrCreatePool(r.AssetA, r.AssetB, r.Curve, r.Params, r.FeeBps)
	if err != nil {
		return Result{}, err
	}
	if created {
		c.emit(Event{
			Kind:    EventPairCreated,
			Account: r.Origin,
			AssetA:  p.Pair.AssetA,
			AssetB:  p.Pair.AssetB,
		})
	}
	id := p.Pair
	return Result{Pair: &id}, nil
}

// AddLiquidity deposits into an existing pool and mints LP shares to the
// origin account.
type AddLiquidity struct {
	Origin       asset.AccountID
	AssetA       asset.ID
	AssetB       asset.ID
	AmountA      u128.Uint128
	AmountB      u128.Uint128
	ToleranceBps uint16
	Deadline     uint64
}

func (r AddLiquidity) Kind() string     { return "AddLiquidity" }
func (r AddLiquidity) deadline() uint64 { return r.Deadline }

func (r AddLiquidity) Validate() error {
	return validatePair(r.AssetA, r.AssetB)
}

func (r AddLiquidity) apply(c *applyCtx) (Result, error) {
	p, err := c.loadPool(r.AssetA, r.AssetB)
	if err != nil {
		return Result{}, err
	}
	// Deposit amounts arrive in request order; orient them to the
	// canonical pair.
	amountA, amountB := r.AmountA, r.AmountB
	if r.AssetA != p.Pair.AssetA {
		amountA, amountB = amountB, amountA
	}
	dep, err := p.Deposit(amountA, amountB, r.ToleranceBps)
	if err != nil {
		return Result{}, err
	}
	if err := c.ledger.Mint(p.Pair.Key(), r.Origin, dep.LPMinted); err != nil {
		return Result{}, err
	}
	if err := p.Store(c.view); err != nil {
		return Result{}, err
	}
	c.emit(Event{
		Kind:     EventLiquidityAdded,
		Account:  r.Origin,
		AssetA:   p.Pair.AssetA,
		AssetB:   p.Pair.AssetB,
		AmountA:  dep.AcceptedA,
		AmountB:  dep.AcceptedB,
		LPAmount: dep.LPMinted,
	})
	return Result{Deposit: &dep}, nil
}

// RemoveLiquidity burns LP shares of the origin account and pays out
// pro-rata reserves.
type RemoveLiquidity struct {
	Origin   asset.AccountID
	AssetA   asset.ID
	AssetB   asset.ID
	LPAmount u128.Uint128
	Deadline uint64
}

func (r RemoveLiquidity) Kind() string     { return "RemoveLiquidity" }
func (r RemoveLiquidity) deadline() uint64 { return r.Deadline }

func (r RemoveLiquidity) Validate() error {
	return validatePair(r.AssetA, r.AssetB)
}

func (r RemoveLiquidity) apply(c *applyCtx) (Result, error) {
	p, err := c.loadPool(r.AssetA, r.AssetB)
	if err != nil {
		return Result{}, err
	}
	// The balance check runs before the pool mutates; a short balance
	// fails here and the sandbox is dropped whole.
	if err := c.ledger.Burn(p.Pair.Key(), r.Origin, r.LPAmount); err != nil {
		return Result{}, err
	}
	wd, err := p.Withdraw(r.LPAmount)
	if err != nil {
		return Result{}, err
	}
	if err := p.Store(c.view); err != nil {
		return Result{}, err
	}
	c.emit(Event{
		Kind:     EventLiquidityRemoved,
		Account:  r.Origin,
		AssetA:   p.Pair.AssetA,
		AssetB:   p.Pair.AssetB,
		AmountA:  wd.AmountA,
		AmountB:  wd.AmountB,
		LPAmount: r.LPAmount,
	})
	return Result{Withdraw: &wd}, nil
}

// SwapExactIn swaps a fixed input against the direct pool of the pair.
type SwapExactIn struct {
	Origin   asset.AccountID
	AssetIn  asset.ID
	AssetOut asset.ID
	AmountIn u128.Uint128
	MinOut   u128.Uint128
	Deadline uint64
}

func (r SwapExactIn) Kind() string     { return "SwapExactIn" }
func (r SwapExactIn) deadline() uint64 { return r.Deadline }

func (r SwapExactIn) Validate() error {
	return validatePair(r.AssetIn, r.AssetOut)
}

func (r SwapExactIn) apply(c *applyCtx) (Result, error) {
	p, err := c.loadPool(r.AssetIn, r.AssetOut)
	if err != nil {
		return Result{}, err
	}
	sr, err := p.SwapExactIn(r.AssetIn, r.AmountIn, r.MinOut, c.config.ProtocolShareBps)
	if err != nil {
		return Result{}, err
	}
	if err := c.treasury.Credit(sr.FeeProtocol); err != nil {
		return Result{}, err
	}
	if err := p.Store(c.view); err != nil {
		return Result{}, err
	}
	c.emit(swapEvent(r.Origin, p.Pair, sr))
	return Result{Swap: &sr}, nil
}

// SwapExactOut swaps for a fixed output against the direct pool of the
// pair.
type SwapExactOut struct {
	Origin    asset.AccountID
	AssetIn   asset.ID
	AssetOut  asset.ID
	AmountOut u128.Uint128
	MaxIn     u128.Uint128
	Deadline  uint64
}

func (r SwapExactOut) Kind() string     { return "SwapExactOut" }
func (r SwapExactOut) deadline() uint64 { return r.Deadline }

func (r SwapExactOut) Validate() error {
	return validatePair(r.AssetIn, r.AssetOut)
}

func (r SwapExactOut) apply(c *applyCtx) (Result, error) {
	p, err := c.loadPool(r.AssetIn, r.AssetOut)
	if err != nil {
		return Result{}, err
	}
	sr, err := p.SwapExactOut(r.AssetOut, r.AmountOut, r.MaxIn, c.config.ProtocolShareBps)
	if err != nil {
		return Result{}, err
	}
	if err := c.treasury.Credit(sr.FeeProtocol); err != nil {
		return Result{}, err
	}
	if err := p.Store(c.view); err != nil {
		return Result{}, err
	}
	c.emit(swapEvent(r.Origin, p.Pair, sr))
	return Result{Swap: &sr}, nil
}

// RouteSwap swaps a fixed input along a path. With an empty Path the
// engine routes the trade itself through the deterministic best-route
// search; with an explicit Path it executes exactly that path.
type RouteSwap struct {
	Origin   asset.AccountID
	AssetIn  asset.ID
	AssetOut asset.ID
	Path     []asset.ID
	AmountIn u128.Uint128
	MinOut   u128.Uint128
	Deadline uint64
}

func (r RouteSwap) Kind() string     { return "RouteSwap" }
func (r RouteSwap) deadline() uint64 { return r.Deadline }

func (r RouteSwap) Validate() error {
	if err := validatePair(r.AssetIn, r.AssetOut); err != nil {
		return err
	}
	if len(r.Path) > 0 {
		if r.Path[0] != r.AssetIn || r.Path[len(r.Path)-1] != r.AssetOut {
			return fmt.Errorf("path endpoints do not match trade: %w", swaperr.ErrInvalidRequest)
		}
	}
	return nil
}

func (r RouteSwap) apply(c *applyCtx) (Result, error) {
	if err := c.requireAssets(r.AssetIn, r.AssetOut); err != nil {
		return Result{}, err
	}
	path := r.Path
	if len(path) == 0 {
		route, err := c.market.BestRoute(r.AssetIn, r.AssetOut, r.AmountIn, c.config.MaxHops)
		if err != nil {
			return Result{}, err
		}
		path = route.Path
	}
	rr, err := c.market.ExecuteRoute(path, r.AmountIn, r.MinOut, c.now, c.config.ProtocolShareBps)
	if err != nil {
		return Result{}, err
	}
	ev, err := c.settleRoute(r.Origin, rr)
	if err != nil {
		return Result{}, err
	}
	c.emit(ev)
	return Result{Route: &rr}, nil
}

// settleRoute credits each hop's protocol fee and builds the route's
// event. The event pair is the canonical ordering of the endpoints, the
// same ordering the history index matches on; Path keeps the trade
// direction.
func (c *applyCtx) settleRoute(origin asset.AccountID, rr market.RouteResult) (Event, error) {
	feeTotal, feeProtocol := u128.Zero, u128.Zero
	var err error
	for _, hop := range rr.Hops {
		if err := c.treasury.Credit(hop.FeeProtocol); err != nil {
			return Event{}, err
		}
		if feeTotal, err = feeTotal.Add(hop.FeeTotal); err != nil {
			return Event{}, fmt.Errorf("fee total: %w", swaperr.ErrArithmeticOverflow)
		}
		if feeProtocol, err = feeProtocol.Add(hop.FeeProtocol); err != nil {
			return Event{}, fmt.Errorf("fee total: %w", swaperr.ErrArithmeticOverflow)
		}
	}
	pair, err := pool.NewID(rr.Path[0], rr.Path[len(rr.Path)-1])
	if err != nil {
		return Event{}, err
	}
	return Event{
		Kind:        EventSwap,
		Account:     origin,
		AssetA:      pair.AssetA,
		AssetB:      pair.AssetB,
		Path:        rr.Path,
		AmountIn:    rr.AmountIn,
		AmountOut:   rr.AmountOut,
		FeeTotal:    feeTotal,
		FeeProtocol: feeProtocol,
	}, nil
}

// RouteSwapExactOut swaps for a fixed output along a path, the routed
// counterpart of SwapExactOut. With an empty Path the engine picks the
// path demanding the least input; MaxIn bounds the total input either
// way.
type RouteSwapExactOut struct {
	Origin    asset.AccountID
	AssetIn   asset.ID
	AssetOut  asset.ID
	Path      []asset.ID
	AmountOut u128.Uint128
	MaxIn     u128.Uint128
	Deadline  uint64
}

func (r RouteSwapExactOut) Kind() string     { return "RouteSwapExactOut" }
func (r RouteSwapExactOut) deadline() uint64 { return r.Deadline }

func (r RouteSwapExactOut) Validate() error {
	if err := validatePair(r.AssetIn, r.AssetOut); err != nil {
		return err
	}
	if len(r.Path) > 0 {
		if r.Path[0] != r.AssetIn || r.Path[len(r.Path)-1] != r.AssetOut {
			return fmt.Errorf("path endpoints do not match trade: %w", swaperr.ErrInvalidRequest)
		}
	}
	return nil
}

func (r RouteSwapExactOut) apply(c *applyCtx) (Result, error) {
	if err := c.requireAssets(r.AssetIn, r.AssetOut); err != nil {
		return Result{}, err
	}
	path := r.Path
	if len(path) == 0 {
		route, err := c.market.BestRouteExactOut(r.AssetIn, r.AssetOut, r.AmountOut, c.config.MaxHops)
		if err != nil {
			return Result{}, err
		}
		path = route.Path
	}
	rr, err := c.market.ExecuteRouteExactOut(path, r.AmountOut, r.MaxIn, c.now, c.config.ProtocolShareBps)
	if err != nil {
		return Result{}, err
	}
	ev, err := c.settleRoute(r.Origin, rr)
	if err != nil {
		return Result{}, err
	}
	c.emit(ev)
	return Result{Route: &rr}, nil
}

// TransferLP moves LP shares between holders. Reserves and supply are
// untouched.
type TransferLP struct {
	Origin asset.AccountID
	To     asset.AccountID
	AssetA asset.ID
	AssetB asset.ID
	Amount u128.Uint128
}

func (r TransferLP) Kind() string { return "TransferLP" }

func (r TransferLP) Validate() error {
	if err := validatePair(r.AssetA, r.AssetB); err != nil {
		return err
	}
	if r.To == (asset.AccountID{}) {
		return fmt.Errorf("transfer to zero account: %w", swaperr.ErrInvalidRequest)
	}
	return nil
}

func (r TransferLP) apply(c *applyCtx) (Result, error) {
	id, err := pool.NewID(r.AssetA, r.AssetB)
	if err != nil {
		return Result{}, err
	}
	exists, err := c.view.Exists(id.Key())
	if err != nil {
		return Result{}, err
	}
	if !exists {
		return Result{}, fmt.Errorf("%s: %w", id, swaperr.ErrPoolNotFound)
	}
	if err := c.ledger.Transfer(id.Key(), r.Origin, r.To, r.Amount); err != nil {
		return Result{}, err
	}
	c.emit(Event{
		Kind:     EventLPTransfer,
		Account:  r.Origin,
		To:       r.To,
		AssetA:   id.AssetA,
		AssetB:   id.AssetB,
		LPAmount: r.Amount,
	})
	return Result{Pair: &id}, nil
}

// SetFee changes a pool's swap fee. Governance only.
type SetFee struct {
	Origin asset.AccountID
	AssetA asset.ID
	AssetB asset.ID
	FeeBps uint16
}

func (r SetFee) Kind() string { return "SetFee" }

func (r SetFee) Validate() error {
	if err := validatePair(r.AssetA, r.AssetB); err != nil {
		return err
	}
	if r.FeeBps > pool.MaxFeeBps {
		return fmt.Errorf("fee %d exceeds %d bps: %w", r.FeeBps, pool.MaxFeeBps, swaperr.ErrInvalidRequest)
	}
	return nil
}

func (r SetFee) apply(c *applyCtx) (Result, error) {
	if err := c.requireGovernance(r.Origin); err != nil {
		return Result{}, err
	}
	p, err := c.loadPool(r.AssetA, r.AssetB)
	if err != nil {
		return Result{}, err
	}
	if err := p.SetFee(r.FeeBps); err != nil {
		return Result{}, err
	}
	if err := p.Store(c.view); err != nil {
		return Result{}, err
	}
	c.emit(Event{
		Kind:    EventFeeChanged,
		Account: r.Origin,
		AssetA:  p.Pair.AssetA,
		AssetB:  p.Pair.AssetB,
	})
	id := p.Pair
	return Result{Pair: &id}, nil
}

// SetCurveParams changes a pool's curve parameters. Governance only; the
// curve kind itself is fixed at creation.
type SetCurveParams struct {
	Origin asset.AccountID
	AssetA asset.ID
	AssetB asset.ID
	Params pool.CurveParams
}

func (r SetCurveParams) Kind() string { return "SetCurveParams" }

func (r SetCurveParams) Validate() error {
	return validatePair(r.AssetA, r.AssetB)
}

func (r SetCurveParams) apply(c *applyCtx) (Result, error) {
	if err := c.requireGovernance(r.Origin); err != nil {
		return Result{}, err
	}
	p, err := c.loadPool(r.AssetA, r.AssetB)
	if err != nil {
		return Result{}, err
	}
	if err := p.SetCurveParams(r.Params); err != nil {
		return Result{}, err
	}
	if err := p.Store(c.view); err != nil {
		return Result{}, err
	}
	c.emit(Event{
		Kind:    EventCurveChanged,
		Account: r.Origin,
		AssetA:  p.Pair.AssetA,
		AssetB:  p.Pair.AssetB,
	})
	id := p.Pair
	return Result{Pair: &id}, nil
}

func (c *applyCtx) requireGovernance(origin asset.AccountID) error {
	if origin != c.config.Governance || origin == (asset.AccountID{}) {
		return fmt.Errorf("account lacks governance capability: %w", swaperr.ErrUnauthorized)
	}
	return nil
}

func swapEvent(origin asset.AccountID, pair pool.ID, sr pool.SwapResult) Event {
	return Event{
		Kind:        EventSwap,
		Account:     origin,
		AssetA:      pair.AssetA,
		AssetB:      pair.AssetB,
		Path:        []asset.ID{sr.AssetIn, sr.AssetOut},
		AmountIn:    sr.AmountIn,
		AmountOut:   sr.AmountOut,
		FeeTotal:    sr.FeeTotal,
		FeeProtocol: sr.FeeProtocol,
	}
}
