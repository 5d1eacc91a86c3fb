package engine

import (
	"github.com/TopCodeBeast/subswap/internal/core/asset"
	"github.com/TopCodeBeast/subswap/internal/core/u128"
)

// EventKind tags an Event.
type EventKind string

const (
	EventPairCreated      EventKind = "PairCreated"
	EventLiquidityAdded   EventKind = "LiquidityAdded"
	EventLiquidityRemoved EventKind = "LiquidityRemoved"
	EventSwap             EventKind = "Swap"
	EventLPTransfer       EventKind = "LPTransfer"
	EventFeeChanged       EventKind = "FeeChanged"
	EventCurveChanged     EventKind = "CurveChanged"
)

// Event records one state change made by an applied request. Events are
// derived from committed state transitions only; a failed request emits
// nothing. The history index and the websocket feed both consume these.
type Event struct {
	Kind    EventKind       `json:"kind"`
	Account asset.AccountID `json:"account"`
	AssetA  asset.ID        `json:"asset_a"`
	AssetB  asset.ID        `json:"asset_b"`

	// Liquidity fields.
	AmountA  u128.Uint128 `json:"amount_a,omitempty"`
	AmountB  u128.Uint128 `json:"amount_b,omitempty"`
	LPAmount u128.Uint128 `json:"lp_amount,omitempty"`

	// Swap fields. Path covers routed swaps; a direct swap has two entries.
	Path        []asset.ID   `json:"path,omitempty"`
	AmountIn    u128.Uint128 `json:"amount_in,omitempty"`
	AmountOut   u128.Uint128 `json:"amount_out,omitempty"`
	FeeTotal    u128.Uint128 `json:"fee_total,omitempty"`
	FeeProtocol u128.Uint128 `json:"fee_protocol,omitempty"`

	// LPTransfer counterparty.
	To asset.AccountID `json:"to,omitempty"`
}
