// Package engine executes requests against the swap state. Every request
// runs through the same pipeline: stateless validation, a deadline check
// against the block time, then application inside a sandbox that commits
// only on success. The engine never reads the wall clock, so replaying
// the same requests at the same block times reproduces the same state on
// every replica.
package engine

import (
	"fmt"

	"github.com/TopCodeBeast/subswap/internal/core/asset"
	"github.com/TopCodeBeast/subswap/internal/core/fees"
	"github.com/TopCodeBeast/subswap/internal/core/lpledger"
	"github.com/TopCodeBeast/subswap/internal/core/market"
	"github.com/TopCodeBeast/subswap/internal/core/pool"
	"github.com/TopCodeBeast/subswap/internal/core/state"
	"github.com/TopCodeBeast/subswap/internal/core/swaperr"
	"github.com/TopCodeBeast/subswap/internal/core/u128"
)

// ResultSuccess is the Code of a committed request.
const ResultSuccess = "Success"

// Config holds engine parameters fixed at construction. They are part of
// consensus: replicas must agree on them.
type Config struct {
	// ProtocolShareBps is the slice of every swap fee routed to the
	// treasury, in basis points of the fee.
	ProtocolShareBps uint16

	// MaxHops bounds the router's path search.
	MaxHops int

	// Governance is the account allowed to change pool fees and curve
	// parameters.
	Governance asset.AccountID
}

// DefaultConfig returns the standard parameters: one sixth of the fee to
// the treasury, routes of at most three hops.
func DefaultConfig() Config {
	return Config{
		ProtocolShareBps: fees.DefaultProtocolShareBps,
		MaxHops:          3,
	}
}

// Engine applies requests to a root view.
type Engine struct {
	view     state.View
	registry asset.Registry
	config   Config
	sink     func(Event)
}

// New returns an engine over the given root view.
func New(view state.View, registry asset.Registry, config Config) *Engine {
	if config.MaxHops <= 0 {
		config.MaxHops = 3
	}
	if config.ProtocolShareBps > pool.FeeDenominator {
		config.ProtocolShareBps = pool.FeeDenominator
	}
	return &Engine{view: view, registry: registry, config: config}
}

// SetEventSink installs a callback invoked once per event of every
// committed request, in emission order. Used by the server to fan events
// out to the history index and websocket subscribers.
func (e *Engine) SetEventSink(fn func(Event)) {
	e.sink = fn
}

// Result reports one applied request. Code is ResultSuccess or the wire
// name of the failure; exactly one payload pointer is set on success,
// matching the request kind.
type Result struct {
	Code   string
	Events []Event

	Pair     *pool.ID
	Deposit  *pool.DepositResult
	Withdraw *pool.WithdrawResult
	Swap     *pool.SwapResult
	Route    *market.RouteResult
}

// Apply runs one request at the given block time. On any failure the
// sandbox is dropped and the root view is untouched.
func (e *Engine) Apply(req Request, now uint64) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{Code: swaperr.Name(err)}, err
	}
	if d, ok := req.(deadlined); ok {
		if dl := d.deadline(); dl != 0 && now > dl {
			err := fmt.Errorf("deadline %d passed at %d: %w", dl, now, swaperr.ErrExpired)
			return Result{Code: swaperr.Name(err)}, err
		}
	}

	sb := state.NewSandbox(e.view)
	ctx := &applyCtx{
		view:     sb,
		market:   market.New(sb, e.registry),
		ledger:   lpledger.New(sb),
		treasury: fees.NewAccumulator(sb),
		registry: e.registry,
		config:   e.config,
		now:      now,
	}
	res, err := req.apply(ctx)
	if err != nil {
		return Result{Code: swaperr.Name(err)}, err
	}
	if err := sb.Commit(); err != nil {
		return Result{Code: "Internal"}, err
	}

	res.Code = ResultSuccess
	res.Events = ctx.events
	if e.sink != nil {
		for _, ev := range ctx.events {
			e.sink(ev)
		}
	}
	return res, nil
}

// BlockResult reports one applied block.
type BlockResult struct {
	Results []Result
	Applied int
	Failed  int
}

// ApplyBlock applies requests in order at one block time. A failed
// request is recorded and skipped; it does not abort the block, since its
// sandbox never reached the root view.
func (e *Engine) ApplyBlock(reqs []Request, now uint64) BlockResult {
	block := BlockResult{Results: make([]Result, 0, len(reqs))}
	for _, req := range reqs {
		res, err := e.Apply(req, now)
		block.Results = append(block.Results, res)
		if err != nil {
			block.Failed++
		} else {
			block.Applied++
		}
	}
	return block
}

// PoolInfo loads the pool for a pair from the root view.
func (e *Engine) PoolInfo(a, b asset.ID) (*pool.Pool, error) {
	return market.New(e.view, e.registry).Pool(a, b)
}

// Pairs lists every created pair.
func (e *Engine) Pairs() ([]pool.ID, error) {
	return market.New(e.view, e.registry).Pairs()
}

// QuoteExactIn prices a swap along a path without touching state.
func (e *Engine) QuoteExactIn(path []asset.ID, amountIn u128.Uint128) (u128.Uint128, error) {
	return market.New(e.view, e.registry).Quote(path, amountIn)
}

// QuoteExactOut prices an exact-output direct swap without touching state.
func (e *Engine) QuoteExactOut(assetIn, assetOut asset.ID, amountOut u128.Uint128) (u128.Uint128, error) {
	p, err := market.New(e.view, e.registry).Pool(assetIn, assetOut)
	if err != nil {
		return u128.Zero, err
	}
	return p.QuoteExactOut(assetOut, amountOut)
}

// BestRoute finds the deterministic best path for an exact-input trade.
func (e *Engine) BestRoute(assetIn, assetOut asset.ID, amountIn u128.Uint128) (market.Route, error) {
	return market.New(e.view, e.registry).BestRoute(assetIn, assetOut, amountIn, e.config.MaxHops)
}

// BestRouteExactOut finds the deterministic cheapest path for an
// exact-output trade.
func (e *Engine) BestRouteExactOut(assetIn, assetOut asset.ID, amountOut u128.Uint128) (market.Route, error) {
	return market.New(e.view, e.registry).BestRouteExactOut(assetIn, assetOut, amountOut, e.config.MaxHops)
}

// LPBalance returns a holder's LP balance for a pair.
func (e *Engine) LPBalance(a, b asset.ID, holder asset.AccountID) (u128.Uint128, error) {
	id, err := pool.NewID(a, b)
	if err != nil {
		return u128.Zero, err
	}
	return lpledger.New(e.view).Balance(id.Key(), holder)
}

// TreasuryBalance returns the accumulated protocol fees.
func (e *Engine) TreasuryBalance() (u128.Uint128, error) {
	return fees.NewAccumulator(e.view).Balance()
}

// Digest fingerprints the full state, for replica comparison and replay.
func (e *Engine) Digest() ([32]byte, error) {
	return state.Digest(e.view)
}

// applyCtx carries the per-request sandboxed collaborators.
type applyCtx struct {
	view     *state.Sandbox
	market   *market.Market
	ledger   *lpledger.Ledger
	treasury fees.Treasury
	registry asset.Registry
	config   Config
	now      uint64
	events   []Event
}

func (c *applyCtx) emit(ev Event) {
	c.events = append(c.events, ev)
}

func (c *applyCtx) requireAssets(ids ...asset.ID) error {
	for _, id := range ids {
		if !c.registry.Exists(id) {
			return fmt.Errorf("%s: %w", id, swaperr.ErrUnknownAsset)
		}
	}
	return nil
}

// loadPool loads the pair's pool and brings its cumulative prices up to
// the block time, so the price observed by this request is the one before
// its own mutation.
func (c *applyCtx) loadPool(a, b asset.ID) (*pool.Pool, error) {
	p, err := c.market.Pool(a, b)
	if err != nil {
		return nil, err
	}
	p.Sync(c.now)
	return p, nil
}
