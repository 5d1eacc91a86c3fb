package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/TopCodeBeast/subswap/internal/core/asset"
	"github.com/TopCodeBeast/subswap/internal/core/engine"
	"github.com/TopCodeBeast/subswap/internal/core/pool"
	"github.com/TopCodeBeast/subswap/internal/core/u128"
)

func (s *Server) registerMethods() {
	s.methods = map[string]handler{
		"pool_info":       s.handlePoolInfo,
		"pairs":           s.handlePairs,
		"quote":           s.handleQuote,
		"quote_exact_out": s.handleQuoteExactOut,
		"best_route":      s.handleBestRoute,
		"submit":          s.handleSubmit,
		"lp_balance":      s.handleLPBalance,
		"treasury":        s.handleTreasury,
		"history":         s.handleHistory,
	}
}

type pairParams struct {
	AssetA uint64 `json:"asset_a"`
	AssetB uint64 `json:"asset_b"`
}

type poolInfoResult struct {
	AssetA        uint64       `json:"asset_a"`
	AssetB        uint64       `json:"asset_b"`
	ReserveA      u128.Uint128 `json:"reserve_a"`
	ReserveB      u128.Uint128 `json:"reserve_b"`
	LPSupply      u128.Uint128 `json:"lp_supply"`
	FeeBps        uint16       `json:"fee_bps"`
	Curve         string       `json:"curve"`
	Amplification uint64       `json:"amplification,omitempty"`
	WeightA       uint32       `json:"weight_a,omitempty"`
	WeightB       uint32       `json:"weight_b,omitempty"`
	PriceACum     u128.Uint128 `json:"price_a_cumulative"`
	PriceBCum     u128.Uint128 `json:"price_b_cumulative"`
	LastTimestamp uint64       `json:"last_timestamp"`
}

func (s *Server) handlePoolInfo(_ *http.Request, params json.RawMessage) (any, error) {
	var p pairParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	pl, err := s.engine.PoolInfo(asset.ID(p.AssetA), asset.ID(p.AssetB))
	if err != nil {
		return nil, err
	}
	return poolInfoResult{
		AssetA:        uint64(pl.Pair.AssetA),
		AssetB:        uint64(pl.Pair.AssetB),
		ReserveA:      pl.ReserveA,
		ReserveB:      pl.ReserveB,
		LPSupply:      pl.LPSupply,
		FeeBps:        pl.FeeBps,
		Curve:         pl.Curve.String(),
		Amplification: pl.Params.Amplification,
		WeightA:       pl.Params.WeightA,
		WeightB:       pl.Params.WeightB,
		PriceACum:     pl.PriceACumulative,
		PriceBCum:     pl.PriceBCumulative,
		LastTimestamp: pl.LastTimestamp,
	}, nil
}

func (s *Server) handlePairs(_ *http.Request, _ json.RawMessage) (any, error) {
	ids, err := s.engine.Pairs()
	if err != nil {
		return nil, err
	}
	out := make([]pairParams, len(ids))
	for i, id := range ids {
		out[i] = pairParams{AssetA: uint64(id.AssetA), AssetB: uint64(id.AssetB)}
	}
	return map[string]any{"pairs": out}, nil
}

type quoteParams struct {
	Path     []uint64     `json:"path"`
	AmountIn u128.Uint128 `json:"amount_in"`
}

type quoteResult struct {
	AmountOut u128.Uint128 `json:"amount_out"`

	// PriceImpactPct is display-only: the percentage the executed price
	// falls short of the current mid price along the path.
	PriceImpactPct string `json:"price_impact_pct"`
}

func (s *Server) handleQuote(_ *http.Request, params json.RawMessage) (any, error) {
	var p quoteParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	path := assetPath(p.Path)
	out, err := s.engine.QuoteExactIn(path, p.AmountIn)
	if err != nil {
		return nil, err
	}
	impact, err := s.priceImpact(path, p.AmountIn, out)
	if err != nil {
		return nil, err
	}
	return quoteResult{AmountOut: out, PriceImpactPct: impact}, nil
}

// priceImpact compares the executed price to the mid price of the path.
// Quoting happens off the consensus path, so decimal arithmetic is fine
// here; consensus amounts never touch it.
func (s *Server) priceImpact(path []asset.ID, amountIn, amountOut u128.Uint128) (string, error) {
	mid := decimal.NewFromInt(1)
	for i := 0; i+1 < len(path); i++ {
		pl, err := s.engine.PoolInfo(path[i], path[i+1])
		if err != nil {
			return "", err
		}
		rIn, rOut := pl.ReserveA, pl.ReserveB
		if path[i] != pl.Pair.AssetA {
			rIn, rOut = rOut, rIn
		}
		mid = mid.Mul(decimal.NewFromBigInt(rOut.Big(), 0).
			Div(decimal.NewFromBigInt(rIn.Big(), 0)))
	}
	if mid.IsZero() || amountIn.IsZero() {
		return "0", nil
	}
	executed := decimal.NewFromBigInt(amountOut.Big(), 0).
		Div(decimal.NewFromBigInt(amountIn.Big(), 0))
	impact := decimal.NewFromInt(1).Sub(executed.Div(mid)).Mul(decimal.NewFromInt(100))
	return impact.Round(4).String(), nil
}

type quoteExactOutParams struct {
	AssetIn   uint64       `json:"asset_in"`
	AssetOut  uint64       `json:"asset_out"`
	AmountOut u128.Uint128 `json:"amount_out"`
}

func (s *Server) handleQuoteExactOut(_ *http.Request, params json.RawMessage) (any, error) {
	var p quoteExactOutParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	in, err := s.engine.QuoteExactOut(asset.ID(p.AssetIn), asset.ID(p.AssetOut), p.AmountOut)
	if err != nil {
		return nil, err
	}
	return map[string]any{"amount_in": in}, nil
}

// bestRouteParams carries exactly one of amount_in (maximize output) or
// amount_out (minimize input).
type bestRouteParams struct {
	AssetIn   uint64       `json:"asset_in"`
	AssetOut  uint64       `json:"asset_out"`
	AmountIn  u128.Uint128 `json:"amount_in,omitempty"`
	AmountOut u128.Uint128 `json:"amount_out,omitempty"`
}

func (s *Server) handleBestRoute(_ *http.Request, params json.RawMessage) (any, error) {
	var p bestRouteParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if !p.AmountIn.IsZero() && !p.AmountOut.IsZero() {
		return nil, badParams("amount_in and amount_out are mutually exclusive")
	}
	if p.AmountIn.IsZero() && p.AmountOut.IsZero() {
		return nil, badParams("need amount_in or amount_out")
	}
	if !p.AmountOut.IsZero() {
		route, err := s.engine.BestRouteExactOut(asset.ID(p.AssetIn), asset.ID(p.AssetOut), p.AmountOut)
		if err != nil {
			return nil, err
		}
		return map[string]any{"path": wirePath(route.Path), "amount_in": route.AmountIn}, nil
	}
	route, err := s.engine.BestRoute(asset.ID(p.AssetIn), asset.ID(p.AssetOut), p.AmountIn)
	if err != nil {
		return nil, err
	}
	return map[string]any{"path": wirePath(route.Path), "amount_out": route.AmountOut}, nil
}

func wirePath(path []asset.ID) []uint64 {
	out := make([]uint64, len(path))
	for i, a := range path {
		out[i] = uint64(a)
	}
	return out
}

type lpBalanceParams struct {
	AssetA  uint64 `json:"asset_a"`
	AssetB  uint64 `json:"asset_b"`
	Account string `json:"account"`
}

func (s *Server) handleLPBalance(_ *http.Request, params json.RawMessage) (any, error) {
	var p lpBalanceParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	holder, err := asset.ParseAccountID(p.Account)
	if err != nil {
		return nil, badParams(err.Error())
	}
	bal, err := s.engine.LPBalance(asset.ID(p.AssetA), asset.ID(p.AssetB), holder)
	if err != nil {
		return nil, err
	}
	return map[string]any{"balance": bal}, nil
}

func (s *Server) handleTreasury(_ *http.Request, _ json.RawMessage) (any, error) {
	bal, err := s.engine.TreasuryBalance()
	if err != nil {
		return nil, err
	}
	return map[string]any{"balance": bal}, nil
}

type historyParams struct {
	Limit   int    `json:"limit"`
	AssetA  uint64 `json:"asset_a,omitempty"`
	AssetB  uint64 `json:"asset_b,omitempty"`
	Account string `json:"account,omitempty"`
}

func (s *Server) handleHistory(r *http.Request, params json.RawMessage) (any, error) {
	if s.history == nil {
		return nil, badParams("history index is disabled")
	}
	var p historyParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Limit <= 0 || p.Limit > 500 {
		p.Limit = 100
	}
	ctx := r.Context()
	switch {
	case p.Account != "":
		account, err := asset.ParseAccountID(p.Account)
		if err != nil {
			return nil, badParams(err.Error())
		}
		entries, err := s.history.RecentByAccount(ctx, account, p.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"events": entries}, nil
	case p.AssetA != 0 || p.AssetB != 0:
		entries, err := s.history.RecentByPair(ctx, asset.ID(p.AssetA), asset.ID(p.AssetB), p.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"events": entries}, nil
	default:
		entries, err := s.history.Recent(ctx, p.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"events": entries}, nil
	}
}

// submitParams is the flat wire form of every engine request kind.
type submitParams struct {
	RequestKind string `json:"kind"`
	Origin      string `json:"origin"`
	To          string `json:"to,omitempty"`

	AssetA   uint64 `json:"asset_a,omitempty"`
	AssetB   uint64 `json:"asset_b,omitempty"`
	AssetIn  uint64 `json:"asset_in,omitempty"`
	AssetOut uint64 `json:"asset_out,omitempty"`

	AmountA   u128.Uint128 `json:"amount_a,omitempty"`
	AmountB   u128.Uint128 `json:"amount_b,omitempty"`
	AmountIn  u128.Uint128 `json:"amount_in,omitempty"`
	AmountOut u128.Uint128 `json:"amount_out,omitempty"`
	LPAmount  u128.Uint128 `json:"lp_amount,omitempty"`
	MinOut    u128.Uint128 `json:"min_out,omitempty"`
	MaxIn     u128.Uint128 `json:"max_in,omitempty"`

	FeeBps       uint16 `json:"fee_bps,omitempty"`
	ToleranceBps uint16 `json:"tolerance_bps,omitempty"`
	Deadline     uint64 `json:"deadline,omitempty"`

	Curve         string   `json:"curve,omitempty"`
	Amplification uint64   `json:"amplification,omitempty"`
	WeightA       uint32   `json:"weight_a,omitempty"`
	WeightB       uint32   `json:"weight_b,omitempty"`
	Path          []uint64 `json:"path,omitempty"`
}

type submitResult struct {
	Code   string         `json:"code"`
	Result *engine.Result `json:"result,omitempty"`
}

func (s *Server) handleSubmit(_ *http.Request, params json.RawMessage) (any, error) {
	var p submitParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	req, err := p.toRequest()
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Apply(req, s.now())
	if err != nil {
		// Failed requests still return a structured result; the taxonomy
		// name rides in the error field.
		return nil, err
	}
	return submitResult{Code: res.Code, Result: &res}, nil
}

func (p submitParams) toRequest() (engine.Request, error) {
	origin, err := asset.ParseAccountID(p.Origin)
	if err != nil {
		return nil, badParams("origin: " + err.Error())
	}
	switch p.RequestKind {
	case "CreatePool":
		curve, err := parseCurve(p.Curve)
		if err != nil {
			return nil, err
		}
		return engine.CreatePool{
			Origin: origin,
			AssetA: asset.ID(p.AssetA),
			AssetB: asset.ID(p.AssetB),
			Curve:  curve,
			Params: pool.CurveParams{
				Amplification: p.Amplification,
				WeightA:       p.WeightA,
				WeightB:       p.WeightB,
			},
			FeeBps: p.FeeBps,
		}, nil
	case "AddLiquidity":
		return engine.AddLiquidity{
			Origin:       origin,
			AssetA:       asset.ID(p.AssetA),
			AssetB:       asset.ID(p.AssetB),
			AmountA:      p.AmountA,
			AmountB:      p.AmountB,
			ToleranceBps: p.ToleranceBps,
			Deadline:     p.Deadline,
		}, nil
	case "RemoveLiquidity":
		return engine.RemoveLiquidity{
			Origin:   origin,
			AssetA:   asset.ID(p.AssetA),
			AssetB:   asset.ID(p.AssetB),
			LPAmount: p.LPAmount,
			Deadline: p.Deadline,
		}, nil
	case "SwapExactIn":
		return engine.SwapExactIn{
			Origin:   origin,
			AssetIn:  asset.ID(p.AssetIn),
			AssetOut: asset.ID(p.AssetOut),
			AmountIn: p.AmountIn,
			MinOut:   p.MinOut,
			Deadline: p.Deadline,
		}, nil
	case "SwapExactOut":
		return engine.SwapExactOut{
			Origin:    origin,
			AssetIn:   asset.ID(p.AssetIn),
			AssetOut:  asset.ID(p.AssetOut),
			AmountOut: p.AmountOut,
			MaxIn:     p.MaxIn,
			Deadline:  p.Deadline,
		}, nil
	case "RouteSwap":
		return engine.RouteSwap{
			Origin:   origin,
			AssetIn:  asset.ID(p.AssetIn),
			AssetOut: asset.ID(p.AssetOut),
			Path:     assetPath(p.Path),
			AmountIn: p.AmountIn,
			MinOut:   p.MinOut,
			Deadline: p.Deadline,
		}, nil
	case "RouteSwapExactOut":
		return engine.RouteSwapExactOut{
			Origin:    origin,
			AssetIn:   asset.ID(p.AssetIn),
			AssetOut:  asset.ID(p.AssetOut),
			Path:      assetPath(p.Path),
			AmountOut: p.AmountOut,
			MaxIn:     p.MaxIn,
			Deadline:  p.Deadline,
		}, nil
	case "TransferLP":
		to, err := asset.ParseAccountID(p.To)
		if err != nil {
			return nil, badParams("to: " + err.Error())
		}
		return engine.TransferLP{
			Origin: origin,
			To:     to,
			AssetA: asset.ID(p.AssetA),
			AssetB: asset.ID(p.AssetB),
			Amount: p.LPAmount,
		}, nil
	case "SetFee":
		return engine.SetFee{
			Origin: origin,
			AssetA: asset.ID(p.AssetA),
			AssetB: asset.ID(p.AssetB),
			FeeBps: p.FeeBps,
		}, nil
	case "SetCurveParams":
		return engine.SetCurveParams{
			Origin: origin,
			AssetA: asset.ID(p.AssetA),
			AssetB: asset.ID(p.AssetB),
			Params: pool.CurveParams{
				Amplification: p.Amplification,
				WeightA:       p.WeightA,
				WeightB:       p.WeightB,
			},
		}, nil
	default:
		return nil, badParams("unknown request kind: " + p.RequestKind)
	}
}

// DecodeRequest decodes the flat wire form of an engine request. Shared
// by the submit method and the replay tool.
func DecodeRequest(data json.RawMessage) (engine.Request, error) {
	var p submitParams
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, badParams(err.Error())
	}
	return p.toRequest()
}

func parseCurve(s string) (pool.CurveKind, error) {
	switch s {
	case "", "constant-product":
		return pool.ConstantProduct, nil
	case "stable":
		return pool.StableSwap, nil
	case "weighted":
		return pool.Weighted, nil
	default:
		return 0, badParams("unknown curve: " + s)
	}
}

func assetPath(path []uint64) []asset.ID {
	if len(path) == 0 {
		return nil
	}
	out := make([]asset.ID, len(path))
	for i, a := range path {
		out[i] = asset.ID(a)
	}
	return out
}

func decodeParams(params json.RawMessage, dst any) error {
	if len(params) == 0 {
		return badParams("missing params")
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return badParams(err.Error())
	}
	return nil
}
