package market

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TopCodeBeast/subswap/internal/core/asset"
	"github.com/TopCodeBeast/subswap/internal/core/pool"
	"github.com/TopCodeBeast/subswap/internal/core/state"
	"github.com/TopCodeBeast/subswap/internal/core/swaperr"
	"github.com/TopCodeBeast/subswap/internal/core/u128"
)

func newTestMarket(t *testing.T, assets ...asset.ID) (*Market, *state.MapView) {
	t.Helper()
	reg := asset.NewMemoryRegistry()
	for _, a := range assets {
		reg.Register(a, 6)
	}
	view := state.NewMapView()
	return New(view, reg), view
}

// seedPool creates the pair and funds it at the given reserves.
func seedPool(t *testing.T, m *Market, a, b asset.ID, resA, resB uint64) {
	t.Helper()
	p, created, err := m.GetOrCreatePool(a, b, pool.ConstantProduct, pool.CurveParams{}, 30)
	require.NoError(t, err)
	require.True(t, created)
	_, err = p.Deposit(u128.New(resA), u128.New(resB), 0)
	require.NoError(t, err)
	require.NoError(t, p.Store(m.view))
}

func TestGetOrCreatePoolIdempotent(t *testing.T) {
	m, _ := newTestMarket(t, 1, 2)

	p1, created, err := m.GetOrCreatePool(1, 2, pool.ConstantProduct, pool.CurveParams{}, 30)
	require.NoError(t, err)
	assert.True(t, created)

	// Reversed argument order and different curve arguments: same pool.
	p2, created, err := m.GetOrCreatePool(2, 1, pool.StableSwap, pool.CurveParams{Amplification: 100}, 50)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p1.Pair, p2.Pair)
	assert.Equal(t, pool.ConstantProduct, p2.Curve)
	assert.Equal(t, uint16(30), p2.FeeBps)
}

func TestGetOrCreatePoolUnknownAsset(t *testing.T) {
	m, _ := newTestMarket(t, 1)

	_, _, err := m.GetOrCreatePool(1, 9, pool.ConstantProduct, pool.CurveParams{}, 30)
	assert.True(t, errors.Is(err, swaperr.ErrUnknownAsset))

	pairs, err := m.Pairs()
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestDirectoryStaysSorted(t *testing.T) {
	m, _ := newTestMarket(t, 1, 2, 3, 4)
	seedPool(t, m, 3, 4, 1000, 1000)
	seedPool(t, m, 1, 2, 1000, 1000)
	seedPool(t, m, 2, 3, 1000, 1000)

	pairs, err := m.Pairs()
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	assert.Equal(t, pool.ID{AssetA: 1, AssetB: 2}, pairs[0])
	assert.Equal(t, pool.ID{AssetA: 2, AssetB: 3}, pairs[1])
	assert.Equal(t, pool.ID{AssetA: 3, AssetB: 4}, pairs[2])
}

func TestQuoteMultiHop(t *testing.T) {
	m, _ := newTestMarket(t, 1, 2, 3)
	seedPool(t, m, 1, 2, 1_000_000, 1_000_000)
	seedPool(t, m, 2, 3, 1_000_000, 1_000_000)

	// Hop 1: net 997 in, 996 out. Hop 2: net 993 in, 992 out.
	out, err := m.Quote([]asset.ID{1, 2, 3}, u128.New(1000))
	require.NoError(t, err)
	assert.Equal(t, u128.New(992), out)

	_, err = m.Quote([]asset.ID{1, 3}, u128.New(1000))
	assert.True(t, errors.Is(err, swaperr.ErrPoolNotFound))

	_, err = m.Quote([]asset.ID{1, 2, 1}, u128.New(1000))
	assert.True(t, errors.Is(err, swaperr.ErrInvalidRequest))
}

func TestBestRoutePrefersBetterTwoHop(t *testing.T) {
	m, _ := newTestMarket(t, 1, 2, 3)
	seedPool(t, m, 1, 2, 1_000_000, 1_000_000)
	seedPool(t, m, 2, 3, 1_000_000, 1_000_000)
	// Direct pool exists but prices asset 3 at half and is shallow.
	seedPool(t, m, 1, 3, 100_000, 50_000)

	route, err := m.BestRoute(1, 3, u128.New(1000), 3)
	require.NoError(t, err)
	assert.Equal(t, []asset.ID{1, 2, 3}, route.Path)
	assert.Equal(t, u128.New(992), route.AmountOut)

	// The direct quote confirms why: 493 < 992.
	direct, err := m.Quote([]asset.ID{1, 3}, u128.New(1000))
	require.NoError(t, err)
	assert.Equal(t, u128.New(493), direct)
}

func TestBestRouteTieBreaksLexicographically(t *testing.T) {
	m, _ := newTestMarket(t, 1, 2, 4, 5)
	// Two structurally identical two-hop paths to asset 5.
	seedPool(t, m, 1, 2, 1_000_000, 1_000_000)
	seedPool(t, m, 2, 5, 1_000_000, 1_000_000)
	seedPool(t, m, 1, 4, 1_000_000, 1_000_000)
	seedPool(t, m, 4, 5, 1_000_000, 1_000_000)

	route, err := m.BestRoute(1, 5, u128.New(1000), 3)
	require.NoError(t, err)
	assert.Equal(t, []asset.ID{1, 2, 5}, route.Path)
}

func TestBestRouteHonorsHopLimit(t *testing.T) {
	m, _ := newTestMarket(t, 1, 2, 3)
	seedPool(t, m, 1, 2, 1_000_000, 1_000_000)
	seedPool(t, m, 2, 3, 1_000_000, 1_000_000)

	_, err := m.BestRoute(1, 3, u128.New(1000), 1)
	assert.True(t, errors.Is(err, swaperr.ErrPoolNotFound))

	_, err = m.BestRoute(1, 1, u128.New(1000), 3)
	assert.True(t, errors.Is(err, swaperr.ErrInvalidRequest))
}

func TestBestRouteExactOutPrefersCheaperTwoHop(t *testing.T) {
	m, _ := newTestMarket(t, 1, 2, 3)
	seedPool(t, m, 1, 2, 1_000_000, 1_000_000)
	seedPool(t, m, 2, 3, 1_000_000, 1_000_000)
	// Direct pool exists but prices asset 3 at half and is shallow.
	seedPool(t, m, 1, 3, 100_000, 50_000)

	// Backward: hop 2 needs 994 in for 990 out, hop 1 needs 998 for 994.
	route, err := m.BestRouteExactOut(1, 3, u128.New(990), 3)
	require.NoError(t, err)
	assert.Equal(t, []asset.ID{1, 2, 3}, route.Path)
	assert.Equal(t, u128.New(998), route.AmountIn)
	assert.Equal(t, u128.New(990), route.AmountOut)

	// The direct quote confirms why: 2027 > 998.
	direct, err := m.QuoteOut([]asset.ID{1, 3}, u128.New(990))
	require.NoError(t, err)
	assert.Equal(t, u128.New(2027), direct)
}

func TestBestRouteExactOutTieBreaksLexicographically(t *testing.T) {
	m, _ := newTestMarket(t, 1, 2, 4, 5)
	// Two structurally identical two-hop paths to asset 5.
	seedPool(t, m, 1, 2, 1_000_000, 1_000_000)
	seedPool(t, m, 2, 5, 1_000_000, 1_000_000)
	seedPool(t, m, 1, 4, 1_000_000, 1_000_000)
	seedPool(t, m, 4, 5, 1_000_000, 1_000_000)

	route, err := m.BestRouteExactOut(1, 5, u128.New(990), 3)
	require.NoError(t, err)
	assert.Equal(t, []asset.ID{1, 2, 5}, route.Path)
}

func TestExecuteRouteUpdatesBothHops(t *testing.T) {
	m, view := newTestMarket(t, 1, 2, 3)
	seedPool(t, m, 1, 2, 1_000_000, 1_000_000)
	seedPool(t, m, 2, 3, 1_000_000, 1_000_000)

	res, err := m.ExecuteRoute([]asset.ID{1, 2, 3}, u128.New(1000), u128.New(992), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, u128.New(1000), res.AmountIn)
	assert.Equal(t, u128.New(992), res.AmountOut)
	require.Len(t, res.Hops, 2)
	assert.Equal(t, u128.New(996), res.Hops[0].AmountOut)

	p12, err := pool.Load(view, pool.ID{AssetA: 1, AssetB: 2})
	require.NoError(t, err)
	assert.Equal(t, u128.New(1_001_000), p12.ReserveA)
	assert.Equal(t, u128.New(999_004), p12.ReserveB)

	p23, err := pool.Load(view, pool.ID{AssetA: 2, AssetB: 3})
	require.NoError(t, err)
	assert.Equal(t, u128.New(1_000_996), p23.ReserveA)
	assert.Equal(t, u128.New(999_008), p23.ReserveB)
}

func TestExecuteRouteAtomicOnSlippage(t *testing.T) {
	m, view := newTestMarket(t, 1, 2, 3)
	seedPool(t, m, 1, 2, 1_000_000, 1_000_000)
	seedPool(t, m, 2, 3, 1_000_000, 1_000_000)

	// Run the route in a sandbox the way the engine does; the slippage
	// failure surfaces after the first hop already wrote, and discarding
	// the sandbox undoes it.
	sb := state.NewSandbox(view)
	sbm := New(sb, asset.NewMemoryRegistry())
	_, err := sbm.ExecuteRoute([]asset.ID{1, 2, 3}, u128.New(1000), u128.New(993), 0, 0)
	assert.True(t, errors.Is(err, swaperr.ErrSlippageExceeded))

	p12, err := pool.Load(view, pool.ID{AssetA: 1, AssetB: 2})
	require.NoError(t, err)
	assert.Equal(t, u128.New(1_000_000), p12.ReserveA)
	p23, err := pool.Load(view, pool.ID{AssetA: 2, AssetB: 3})
	require.NoError(t, err)
	assert.Equal(t, u128.New(1_000_000), p23.ReserveA)
}

func TestExecuteRouteExactOutUpdatesBothHops(t *testing.T) {
	m, view := newTestMarket(t, 1, 2, 3)
	seedPool(t, m, 1, 2, 1_000_000, 1_000_000)
	seedPool(t, m, 2, 3, 1_000_000, 1_000_000)

	res, err := m.ExecuteRouteExactOut([]asset.ID{1, 2, 3}, u128.New(990), u128.New(998), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, u128.New(998), res.AmountIn)
	assert.Equal(t, u128.New(990), res.AmountOut)
	require.Len(t, res.Hops, 2)
	assert.Equal(t, u128.New(998), res.Hops[0].AmountIn)
	assert.Equal(t, u128.New(994), res.Hops[0].AmountOut)
	assert.Equal(t, u128.New(994), res.Hops[1].AmountIn)

	p12, err := pool.Load(view, pool.ID{AssetA: 1, AssetB: 2})
	require.NoError(t, err)
	assert.Equal(t, u128.New(1_000_998), p12.ReserveA)
	assert.Equal(t, u128.New(999_006), p12.ReserveB)

	p23, err := pool.Load(view, pool.ID{AssetA: 2, AssetB: 3})
	require.NoError(t, err)
	assert.Equal(t, u128.New(1_000_994), p23.ReserveA)
	assert.Equal(t, u128.New(999_010), p23.ReserveB)
}

func TestExecuteRouteExactOutBoundsInput(t *testing.T) {
	m, view := newTestMarket(t, 1, 2, 3)
	seedPool(t, m, 1, 2, 1_000_000, 1_000_000)
	seedPool(t, m, 2, 3, 1_000_000, 1_000_000)

	// The bound is checked against the backward quote before any hop
	// executes, so no sandbox is needed to stay atomic here.
	_, err := m.ExecuteRouteExactOut([]asset.ID{1, 2, 3}, u128.New(990), u128.New(997), 0, 0)
	assert.True(t, errors.Is(err, swaperr.ErrExcessiveInput))

	p12, err := pool.Load(view, pool.ID{AssetA: 1, AssetB: 2})
	require.NoError(t, err)
	assert.Equal(t, u128.New(1_000_000), p12.ReserveA)
	p23, err := pool.Load(view, pool.ID{AssetA: 2, AssetB: 3})
	require.NoError(t, err)
	assert.Equal(t, u128.New(1_000_000), p23.ReserveA)
}

func TestQuoteOutMatchesExecution(t *testing.T) {
	m, _ := newTestMarket(t, 1, 2, 3)
	seedPool(t, m, 1, 2, 500_000, 250_000)
	seedPool(t, m, 2, 3, 750_000, 1_000_000)

	quoted, err := m.QuoteOut([]asset.ID{1, 2, 3}, u128.New(12345))
	require.NoError(t, err)

	res, err := m.ExecuteRouteExactOut([]asset.ID{1, 2, 3}, u128.New(12345), u128.MaxUint128, 0, 1667)
	require.NoError(t, err)
	assert.Equal(t, quoted, res.AmountIn)
}

func TestQuoteMatchesExecution(t *testing.T) {
	m, _ := newTestMarket(t, 1, 2, 3)
	seedPool(t, m, 1, 2, 500_000, 250_000)
	seedPool(t, m, 2, 3, 750_000, 1_000_000)

	quoted, err := m.Quote([]asset.ID{1, 2, 3}, u128.New(12345))
	require.NoError(t, err)

	res, err := m.ExecuteRoute([]asset.ID{1, 2, 3}, u128.New(12345), u128.Zero, 0, 1667)
	require.NoError(t, err)
	assert.Equal(t, quoted, res.AmountOut)
}
