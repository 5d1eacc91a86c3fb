package market

import (
	"fmt"

	"github.com/TopCodeBeast/subswap/internal/core/asset"
	"github.com/TopCodeBeast/subswap/internal/core/pool"
	"github.com/TopCodeBeast/subswap/internal/core/swaperr"
	"github.com/TopCodeBeast/subswap/internal/core/u128"
)

// Route is a candidate trade path. Path lists the asset sequence, so a
// direct swap has two entries and each adjacent pair names one pool.
// BestRoute fills AmountOut for the given input; BestRouteExactOut fills
// AmountIn for the given output.
type Route struct {
	Path      []asset.ID
	AmountIn  u128.Uint128
	AmountOut u128.Uint128
}

// RouteResult reports an executed route, hop by hop.
type RouteResult struct {
	Path      []asset.ID
	AmountIn  u128.Uint128
	AmountOut u128.Uint128
	Hops      []pool.SwapResult
}

// Quote computes the output of swapping amountIn along the given path
// without mutating any pool. Each hop feeds its realized output into the
// next, exactly as execution would.
func (m *Market) Quote(path []asset.ID, amountIn u128.Uint128) (u128.Uint128, error) {
	if err := validatePath(path); err != nil {
		return u128.Zero, err
	}
	amount := amountIn
	for i := 0; i+1 < len(path); i++ {
		p, err := m.Pool(path[i], path[i+1])
		if err != nil {
			return u128.Zero, err
		}
		amount, err = p.QuoteExactIn(path[i], amount)
		if err != nil {
			return u128.Zero, err
		}
	}
	return amount, nil
}

// QuoteOut computes the gross input needed to take amountOut off the end
// of the path, without mutating any pool. Hops are priced back to front:
// each hop's gross input is the exact output the previous hop must
// deliver.
func (m *Market) QuoteOut(path []asset.ID, amountOut u128.Uint128) (u128.Uint128, error) {
	if err := validatePath(path); err != nil {
		return u128.Zero, err
	}
	amount := amountOut
	for i := len(path) - 2; i >= 0; i-- {
		p, err := m.Pool(path[i], path[i+1])
		if err != nil {
			return u128.Zero, err
		}
		amount, err = p.QuoteExactOut(path[i+1], amount)
		if err != nil {
			return u128.Zero, err
		}
	}
	return amount, nil
}

// BestRoute searches every simple path from assetIn to assetOut of at most
// maxHops hops and returns the one with the highest output. Ties go to the
// shorter path, then to the lexicographically smaller asset sequence, so
// every replica picks the same route. A path whose quote fails (empty
// pool, dust input) is skipped rather than failing the search.
func (m *Market) BestRoute(assetIn, assetOut asset.ID, amountIn u128.Uint128, maxHops int) (Route, error) {
	if assetIn == assetOut {
		return Route{}, fmt.Errorf("route endpoints identical: %w", swaperr.ErrInvalidRequest)
	}
	if maxHops < 1 {
		return Route{}, fmt.Errorf("max hops %d: %w", maxHops, swaperr.ErrInvalidRequest)
	}
	adj, err := m.adjacency()
	if err != nil {
		return Route{}, err
	}

	best := Route{}
	found := false
	visited := map[asset.ID]bool{assetIn: true}
	path := []asset.ID{assetIn}

	var walk func(from asset.ID, amount u128.Uint128, hops int)
	walk = func(from asset.ID, amount u128.Uint128, hops int) {
		if hops >= maxHops {
			return
		}
		for _, next := range adj[from] {
			if visited[next] {
				continue
			}
			p, err := m.Pool(from, next)
			if err != nil {
				continue
			}
			out, err := p.QuoteExactIn(from, amount)
			if err != nil {
				continue
			}
			path = append(path, next)
			if next == assetOut {
				cand := Route{Path: append([]asset.ID(nil), path...), AmountOut: out}
				if !found || betterRoute(cand, best) {
					best = cand
					found = true
				}
			} else {
				visited[next] = true
				walk(next, out, hops+1)
				visited[next] = false
			}
			path = path[:len(path)-1]
		}
	}
	walk(assetIn, amountIn, 0)

	if !found {
		return Route{}, fmt.Errorf("no route %s -> %s: %w", assetIn, assetOut, swaperr.ErrPoolNotFound)
	}
	return best, nil
}

// BestRouteExactOut mirrors BestRoute for a fixed output: it searches
// every simple path and returns the one demanding the least input. The
// walk runs back to front from assetOut, carrying the amount the current
// hop must deliver, so each step is one QuoteExactOut. Same deterministic
// tie-breaks as BestRoute.
func (m *Market) BestRouteExactOut(assetIn, assetOut asset.ID, amountOut u128.Uint128, maxHops int) (Route, error) {
	if assetIn == assetOut {
		return Route{}, fmt.Errorf("route endpoints identical: %w", swaperr.ErrInvalidRequest)
	}
	if maxHops < 1 {
		return Route{}, fmt.Errorf("max hops %d: %w", maxHops, swaperr.ErrInvalidRequest)
	}
	adj, err := m.adjacency()
	if err != nil {
		return Route{}, err
	}

	best := Route{}
	found := false
	visited := map[asset.ID]bool{assetOut: true}
	// Built in reverse; reversed when a candidate completes.
	rpath := []asset.ID{assetOut}

	var walk func(to asset.ID, amount u128.Uint128, hops int)
	walk = func(to asset.ID, amount u128.Uint128, hops int) {
		if hops >= maxHops {
			return
		}
		for _, prev := range adj[to] {
			if visited[prev] {
				continue
			}
			p, err := m.Pool(prev, to)
			if err != nil {
				continue
			}
			in, err := p.QuoteExactOut(to, amount)
			if err != nil {
				continue
			}
			rpath = append(rpath, prev)
			if prev == assetIn {
				cand := Route{Path: reversedPath(rpath), AmountIn: in, AmountOut: amountOut}
				if !found || cheaperRoute(cand, best) {
					best = cand
					found = true
				}
			} else {
				visited[prev] = true
				walk(prev, in, hops+1)
				visited[prev] = false
			}
			rpath = rpath[:len(rpath)-1]
		}
	}
	walk(assetOut, amountOut, 0)

	if !found {
		return Route{}, fmt.Errorf("no route %s -> %s: %w", assetIn, assetOut, swaperr.ErrPoolNotFound)
	}
	return best, nil
}

// betterRoute reports whether a beats b under the deterministic ordering:
// more output, then fewer hops, then smaller asset sequence.
func betterRoute(a, b Route) bool {
	if c := a.AmountOut.Cmp(b.AmountOut); c != 0 {
		return c > 0
	}
	return tieBreak(a, b)
}

// cheaperRoute is the exact-out ordering: less input, then the same
// tie-breaks.
func cheaperRoute(a, b Route) bool {
	if c := a.AmountIn.Cmp(b.AmountIn); c != 0 {
		return c < 0
	}
	return tieBreak(a, b)
}

func tieBreak(a, b Route) bool {
	if len(a.Path) != len(b.Path) {
		return len(a.Path) < len(b.Path)
	}
	for i := range a.Path {
		if a.Path[i] != b.Path[i] {
			return a.Path[i] < b.Path[i]
		}
	}
	return false
}

func reversedPath(rpath []asset.ID) []asset.ID {
	out := make([]asset.ID, len(rpath))
	for i, a := range rpath {
		out[len(rpath)-1-i] = a
	}
	return out
}

// ExecuteRoute swaps amountIn along the path, hop by hop against the
// market's view. The final output must reach minOut or the whole route
// fails with SlippageExceeded. The caller runs this inside a sandbox, so
// a failure at any hop leaves every pool untouched.
func (m *Market) ExecuteRoute(path []asset.ID, amountIn, minOut u128.Uint128, now uint64, protocolShareBps uint16) (RouteResult, error) {
	if err := validatePath(path); err != nil {
		return RouteResult{}, err
	}
	res := RouteResult{
		Path:     append([]asset.ID(nil), path...),
		AmountIn: amountIn,
		Hops:     make([]pool.SwapResult, 0, len(path)-1),
	}
	amount := amountIn
	for i := 0; i+1 < len(path); i++ {
		p, err := m.Pool(path[i], path[i+1])
		if err != nil {
			return RouteResult{}, err
		}
		p.Sync(now)
		// Per-hop minimum is zero; slippage is enforced on the route's
		// final output below.
		hop, err := p.SwapExactIn(path[i], amount, u128.Zero, protocolShareBps)
		if err != nil {
			return RouteResult{}, err
		}
		if err := p.Store(m.view); err != nil {
			return RouteResult{}, err
		}
		res.Hops = append(res.Hops, hop)
		amount = hop.AmountOut
	}
	if amount.Lt(minOut) {
		return RouteResult{}, fmt.Errorf("route output %s below minimum %s: %w", amount, minOut, swaperr.ErrSlippageExceeded)
	}
	res.AmountOut = amount
	return res, nil
}

// ExecuteRouteExactOut delivers exactly amountOut of the path's last
// asset. A backward quoting pass fixes the gross amount each hop must
// move; the implied total input must not exceed maxIn or the route fails
// with ExcessiveInput before any pool is touched. Hops then execute front
// to back, each as an exact-output swap, so the quoted amounts are the
// executed ones. The caller runs this inside a sandbox like ExecuteRoute.
func (m *Market) ExecuteRouteExactOut(path []asset.ID, amountOut, maxIn u128.Uint128, now uint64, protocolShareBps uint16) (RouteResult, error) {
	if err := validatePath(path); err != nil {
		return RouteResult{}, err
	}
	// amounts[i] is the gross amount of path[i] flowing into hop i; the
	// last entry is the requested output.
	amounts := make([]u128.Uint128, len(path))
	amounts[len(path)-1] = amountOut
	for i := len(path) - 2; i >= 0; i-- {
		p, err := m.Pool(path[i], path[i+1])
		if err != nil {
			return RouteResult{}, err
		}
		amounts[i], err = p.QuoteExactOut(path[i+1], amounts[i+1])
		if err != nil {
			return RouteResult{}, err
		}
	}
	if amounts[0].Gt(maxIn) {
		return RouteResult{}, fmt.Errorf("route input %s exceeds maximum %s: %w", amounts[0], maxIn, swaperr.ErrExcessiveInput)
	}

	res := RouteResult{
		Path:      append([]asset.ID(nil), path...),
		AmountIn:  amounts[0],
		AmountOut: amountOut,
		Hops:      make([]pool.SwapResult, 0, len(path)-1),
	}
	for i := 0; i+1 < len(path); i++ {
		p, err := m.Pool(path[i], path[i+1])
		if err != nil {
			return RouteResult{}, err
		}
		p.Sync(now)
		hop, err := p.SwapExactOut(path[i+1], amounts[i+1], amounts[i], protocolShareBps)
		if err != nil {
			return RouteResult{}, err
		}
		if err := p.Store(m.view); err != nil {
			return RouteResult{}, err
		}
		res.Hops = append(res.Hops, hop)
	}
	return res, nil
}

// FeeProtocolTotal sums the protocol fee slices of all hops. Hops charge
// fees in different assets; the engine credits each hop's slice
// separately, and this total only serves reporting for single-asset fee
// configurations.
func (r RouteResult) FeeProtocolTotal() (u128.Uint128, error) {
	total := u128.Zero
	var err error
	for _, hop := range r.Hops {
		total, err = total.Add(hop.FeeProtocol)
		if err != nil {
			return u128.Zero, fmt.Errorf("fee total: %w", swaperr.ErrArithmeticOverflow)
		}
	}
	return total, nil
}

// validatePath rejects paths that are too short or revisit an asset. A
// simple path never trades through the same pool twice, which keeps
// hop-by-hop quoting equal to execution.
func validatePath(path []asset.ID) error {
	if len(path) < 2 {
		return fmt.Errorf("path needs at least two assets: %w", swaperr.ErrInvalidRequest)
	}
	seen := make(map[asset.ID]bool, len(path))
	for _, a := range path {
		if seen[a] {
			return fmt.Errorf("path revisits %s: %w", a, swaperr.ErrInvalidRequest)
		}
		seen[a] = true
	}
	return nil
}

// adjacency builds the neighbor map from the pair directory, neighbor
// lists sorted ascending. Directory order is canonical, so the map's
// contents (and therefore the route search) are replica-independent.
func (m *Market) adjacency() (map[asset.ID][]asset.ID, error) {
	pairs, err := m.Pairs()
	if err != nil {
		return nil, err
	}
	adj := make(map[asset.ID][]asset.ID)
	for _, id := range pairs {
		adj[id.AssetA] = insertSorted(adj[id.AssetA], id.AssetB)
		adj[id.AssetB] = insertSorted(adj[id.AssetB], id.AssetA)
	}
	return adj, nil
}

func insertSorted(list []asset.ID, a asset.ID) []asset.ID {
	for i, v := range list {
		if v == a {
			return list
		}
		if v > a {
			list = append(list, 0)
			copy(list[i+1:], list[i:])
			list[i] = a
			return list
		}
	}
	return append(list, a)
}
