// Package swaptest provides the test environment and fluent request
// builders the higher-level tests are written with.
package swaptest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TopCodeBeast/subswap/internal/core/asset"
	"github.com/TopCodeBeast/subswap/internal/core/engine"
	"github.com/TopCodeBeast/subswap/internal/core/lpledger"
	"github.com/TopCodeBeast/subswap/internal/core/pool"
	"github.com/TopCodeBeast/subswap/internal/core/state"
	"github.com/TopCodeBeast/subswap/internal/core/swaperr"
	"github.com/TopCodeBeast/subswap/internal/core/u128"
)

// Account is a named test account.
type Account struct {
	Name string
	ID   asset.AccountID
}

// NewAccount derives a stable account from a name.
func NewAccount(name string) *Account {
	var id asset.AccountID
	copy(id[:], name)
	return &Account{Name: name, ID: id}
}

// Env is the swap test environment: an engine over in-memory state, a
// block clock the test advances explicitly, and standard accounts.
type Env struct {
	T      *testing.T
	Engine *engine.Engine
	View   *state.MapView

	Alice *Account
	Bob   *Account
	Carol *Account
	Gov   *Account

	now    uint64
	events []engine.Event
}

// NewEnv returns an environment with the given assets registered.
func NewEnv(t *testing.T, assets ...asset.ID) *Env {
	t.Helper()
	reg := asset.NewMemoryRegistry()
	for _, a := range assets {
		reg.Register(a, 6)
	}
	env := &Env{
		T:     t,
		View:  state.NewMapView(),
		Alice: NewAccount("alice"),
		Bob:   NewAccount("bob"),
		Carol: NewAccount("carol"),
		Gov:   NewAccount("governor"),
	}
	cfg := engine.DefaultConfig()
	cfg.Governance = env.Gov.ID
	env.Engine = engine.New(env.View, reg, cfg)
	env.Engine.SetEventSink(func(ev engine.Event) {
		env.events = append(env.events, ev)
	})
	return env
}

// Advance moves the block clock forward.
func (e *Env) Advance(seconds uint64) {
	e.now += seconds
}

// Now returns the current block time.
func (e *Env) Now() uint64 {
	return e.now
}

// Events returns every event emitted so far.
func (e *Env) Events() []engine.Event {
	return e.events
}

// Apply applies a request and requires success.
func (e *Env) Apply(req engine.Request) engine.Result {
	e.T.Helper()
	res, err := e.Engine.Apply(req, e.now)
	require.NoError(e.T, err, "%s failed", req.Kind())
	return res
}

// ApplyExpect applies a request and requires it to fail with the given
// taxonomy sentinel.
func (e *Env) ApplyExpect(req engine.Request, want error) {
	e.T.Helper()
	_, err := e.Engine.Apply(req, e.now)
	require.ErrorIs(e.T, err, want, "%s: wrong failure", req.Kind())
}

// Pool loads the current pool state of a pair.
func (e *Env) Pool(a, b asset.ID) *pool.Pool {
	e.T.Helper()
	p, err := e.Engine.PoolInfo(a, b)
	require.NoError(e.T, err)
	return p
}

// LPBalance returns an account's LP balance for a pair.
func (e *Env) LPBalance(a, b asset.ID, acct *Account) u128.Uint128 {
	e.T.Helper()
	bal, err := e.Engine.LPBalance(a, b, acct.ID)
	require.NoError(e.T, err)
	return bal
}

// RequireConservation asserts sum(LP balances) == pool supply for the
// pair.
func (e *Env) RequireConservation(a, b asset.ID) {
	e.T.Helper()
	id, err := pool.NewID(a, b)
	require.NoError(e.T, err)
	sum, err := lpledger.New(e.View).SumBalances(id.Key())
	require.NoError(e.T, err)
	require.Equal(e.T, e.Pool(a, b).LPSupply, sum, "LP supply conservation broken")
}

// Digest fingerprints the full state.
func (e *Env) Digest() [32]byte {
	e.T.Helper()
	d, err := e.Engine.Digest()
	require.NoError(e.T, err)
	return d
}

// Err re-exports the taxonomy sentinels tests match against, so test
// files read without importing swaperr directly.
var Err = struct {
	UnknownAsset, PoolNotFound, RatioMismatch, InsufficientBalance,
	InsufficientLiquidity, SlippageExceeded, ExcessiveInput, Expired,
	ArithmeticOverflow, Unauthorized, InvalidRequest error
}{
	swaperr.ErrUnknownAsset, swaperr.ErrPoolNotFound, swaperr.ErrRatioMismatch,
	swaperr.ErrInsufficientBalance, swaperr.ErrInsufficientLiquidity,
	swaperr.ErrSlippageExceeded, swaperr.ErrExcessiveInput, swaperr.ErrExpired,
	swaperr.ErrArithmeticOverflow, swaperr.ErrUnauthorized, swaperr.ErrInvalidRequest,
}
