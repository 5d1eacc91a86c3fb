// Package pool implements the swap pools: two-asset reserves, the bonding
// curve variants priced against them, LP share accounting, and the fee
// arithmetic. All operations mutate the in-memory Pool value only; the
// engine persists it through a sandbox so a failed request never leaves a
// half-applied pool behind.
package pool

import (
	"fmt"

	"github.com/TopCodeBeast/subswap/internal/core/asset"
	"github.com/TopCodeBeast/subswap/internal/core/state"
	"github.com/TopCodeBeast/subswap/internal/core/state/keys"
	"github.com/TopCodeBeast/subswap/internal/core/swaperr"
	"github.com/TopCodeBeast/subswap/internal/core/u128"
)

// FeeDenominator is the basis-point scale for fee and tolerance rates.
const FeeDenominator = 10000

// MaxFeeBps caps the swap fee at 10%.
const MaxFeeBps = 1000

// CurveKind selects the pricing formula of a pool.
type CurveKind uint8

const (
	// ConstantProduct prices against x*y = k.
	ConstantProduct CurveKind = iota

	// StableSwap prices against the low-slippage amplified invariant used
	// for assets expected to trade near parity.
	StableSwap

	// Weighted prices against x^wA * y^wB = k with per-asset weights.
	Weighted
)

func (c CurveKind) String() string {
	switch c {
	case ConstantProduct:
		return "constant-product"
	case StableSwap:
		return "stable"
	case Weighted:
		return "weighted"
	default:
		return fmt.Sprintf("curve(%d)", uint8(c))
	}
}

// CurveParams carries the per-variant curve parameters. Unused fields are
// zero for variants that do not read them.
type CurveParams struct {
	// Amplification is the stable-swap amplification coefficient.
	Amplification uint64

	// WeightA and WeightB are the weighted-pool asset weights.
	WeightA uint32
	WeightB uint32
}

// ID identifies a pool by its canonical asset pair, lower asset ID first.
type ID struct {
	AssetA asset.ID
	AssetB asset.ID
}

// NewID canonicalizes an asset pair. Pair creation and lookup are therefore
// idempotent regardless of argument order.
func NewID(a, b asset.ID) (ID, error) {
	if a == b {
		return ID{}, fmt.Errorf("identical assets %s: %w", a, swaperr.ErrInvalidRequest)
	}
	if a > b {
		a, b = b, a
	}
	return ID{AssetA: a, AssetB: b}, nil
}

// Key returns the state key of the pool record.
func (id ID) Key() keys.Key {
	return keys.Pool(id.AssetA, id.AssetB)
}

// Less orders pool IDs lexicographically by asset pair. Route tie-breaking
// relies on this order being total and replica-independent.
func (id ID) Less(other ID) bool {
	if id.AssetA != other.AssetA {
		return id.AssetA < other.AssetA
	}
	return id.AssetB < other.AssetB
}

func (id ID) String() string {
	return fmt.Sprintf("pool:%d/%d", uint64(id.AssetA), uint64(id.AssetB))
}

// Other returns the pool's counter-asset of a, and whether a belongs to the
// pool at all.
func (id ID) Other(a asset.ID) (asset.ID, bool) {
	switch a {
	case id.AssetA:
		return id.AssetB, true
	case id.AssetB:
		return id.AssetA, true
	default:
		return 0, false
	}
}

// Pool is the full state of one pool. ReserveA always belongs to the lower
// asset ID of the pair.
type Pool struct {
	Pair     ID
	ReserveA u128.Uint128
	ReserveB u128.Uint128
	LPSupply u128.Uint128
	FeeBps   uint16
	Curve    CurveKind
	Params   CurveParams

	// Cumulative UQ64.64 prices, wrapping modulo 2^128; consumers
	// difference successive observations. Updated on every reserve change.
	PriceACumulative u128.Uint128
	PriceBCumulative u128.Uint128
	LastTimestamp    uint64
}

// New returns an empty pool for the pair.
func New(pair ID, curve CurveKind, params CurveParams, feeBps uint16) (*Pool, error) {
	if feeBps > MaxFeeBps {
		return nil, fmt.Errorf("fee %d exceeds %d bps: %w", feeBps, MaxFeeBps, swaperr.ErrInvalidRequest)
	}
	if err := validateParams(curve, params); err != nil {
		return nil, err
	}
	return &Pool{Pair: pair, FeeBps: feeBps, Curve: curve, Params: params}, nil
}

func validateParams(curve CurveKind, params CurveParams) error {
	switch curve {
	case ConstantProduct:
		return nil
	case StableSwap:
		if params.Amplification == 0 || params.Amplification > 1_000_000 {
			return fmt.Errorf("stable amplification %d out of range: %w",
				params.Amplification, swaperr.ErrInvalidRequest)
		}
		return nil
	case Weighted:
		if params.WeightA == 0 || params.WeightB == 0 ||
			params.WeightA+params.WeightB > maxWeightSum {
			return fmt.Errorf("weights %d/%d out of range: %w",
				params.WeightA, params.WeightB, swaperr.ErrInvalidRequest)
		}
		return nil
	default:
		return fmt.Errorf("unknown curve kind %d: %w", curve, swaperr.ErrInvalidRequest)
	}
}

// IsEmpty reports whether the pool holds no liquidity. The invariant
// LPSupply == 0 ⇔ both reserves == 0 is maintained by every operation.
func (p *Pool) IsEmpty() bool {
	return p.LPSupply.IsZero()
}

// reserves returns the (in, out) reserves oriented for a swap paying in
// asset `in`.
func (p *Pool) reserves(in asset.ID) (rIn, rOut u128.Uint128, wIn, wOut uint32, err error) {
	switch in {
	case p.Pair.AssetA:
		return p.ReserveA, p.ReserveB, p.Params.WeightA, p.Params.WeightB, nil
	case p.Pair.AssetB:
		return p.ReserveB, p.ReserveA, p.Params.WeightB, p.Params.WeightA, nil
	default:
		return u128.Zero, u128.Zero, 0, 0,
			fmt.Errorf("%s not in %s: %w", in, p.Pair, swaperr.ErrUnknownAsset)
	}
}

func (p *Pool) setReserves(in asset.ID, rIn, rOut u128.Uint128) {
	if in == p.Pair.AssetA {
		p.ReserveA, p.ReserveB = rIn, rOut
	} else {
		p.ReserveA, p.ReserveB = rOut, rIn
	}
}

// record is the canonical wire form of a pool. Amounts are big-endian
// 16-byte values so the encoding is independent of host integer layout.
type record struct {
	AssetA        uint64
	AssetB        uint64
	ReserveA      []byte
	ReserveB      []byte
	LPSupply      []byte
	FeeBps        uint16
	Curve         uint8
	Amplification uint64
	WeightA       uint32
	WeightB       uint32
	PriceACum     []byte
	PriceBCum     []byte
	LastTimestamp uint64
}

// Load reads a pool from the view, failing with ErrPoolNotFound when the
// pair has never been created.
func Load(view state.View, id ID) (*Pool, error) {
	data, err := view.Read(id.Key())
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%s: %w", id, swaperr.ErrPoolNotFound)
	}
	var rec record
	if err := state.DecodeRecord(data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	p := &Pool{
		Pair:   ID{AssetA: asset.ID(rec.AssetA), AssetB: asset.ID(rec.AssetB)},
		FeeBps: rec.FeeBps,
		Curve:  CurveKind(rec.Curve),
		Params: CurveParams{
			Amplification: rec.Amplification,
			WeightA:       rec.WeightA,
			WeightB:       rec.WeightB,
		},
		LastTimestamp: rec.LastTimestamp,
	}
	if p.ReserveA, err = u128.FromBytes(rec.ReserveA); err != nil {
		return nil, err
	}
	if p.ReserveB, err = u128.FromBytes(rec.ReserveB); err != nil {
		return nil, err
	}
	if p.LPSupply, err = u128.FromBytes(rec.LPSupply); err != nil {
		return nil, err
	}
	if p.PriceACumulative, err = u128.FromBytes(rec.PriceACum); err != nil {
		return nil, err
	}
	if p.PriceBCumulative, err = u128.FromBytes(rec.PriceBCum); err != nil {
		return nil, err
	}
	return p, nil
}

// Store writes the pool record, inserting on first store.
func (p *Pool) Store(view state.View) error {
	rec := record{
		AssetA:        uint64(p.Pair.AssetA),
		AssetB:        uint64(p.Pair.AssetB),
		ReserveA:      p.ReserveA.Bytes(),
		ReserveB:      p.ReserveB.Bytes(),
		LPSupply:      p.LPSupply.Bytes(),
		FeeBps:        p.FeeBps,
		Curve:         uint8(p.Curve),
		Amplification: p.Params.Amplification,
		WeightA:       p.Params.WeightA,
		WeightB:       p.Params.WeightB,
		PriceACum:     p.PriceACumulative.Bytes(),
		PriceBCum:     p.PriceBCumulative.Bytes(),
		LastTimestamp: p.LastTimestamp,
	}
	data, err := state.EncodeRecord(rec)
	if err != nil {
		return err
	}
	k := p.Pair.Key()
	exists, err := view.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return view.Update(k, data)
	}
	return view.Insert(k, data)
}

// SetFee updates the swap fee. Reachable only through the governance entry
// point.
func (p *Pool) SetFee(feeBps uint16) error {
	if feeBps > MaxFeeBps {
		return fmt.Errorf("fee %d exceeds %d bps: %w", feeBps, MaxFeeBps, swaperr.ErrInvalidRequest)
	}
	p.FeeBps = feeBps
	return nil
}

// SetCurveParams updates the curve parameters. Reachable only through the
// governance entry point. The curve kind itself is fixed at creation.
func (p *Pool) SetCurveParams(params CurveParams) error {
	if err := validateParams(p.Curve, params); err != nil {
		return err
	}
	p.Params = params
	return nil
}
