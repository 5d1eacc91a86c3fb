package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TopCodeBeast/subswap/internal/core/asset"
	"github.com/TopCodeBeast/subswap/internal/core/engine"
	"github.com/TopCodeBeast/subswap/internal/core/u128"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestRecordAndQuery(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	alice := asset.AccountID{0x01}
	bob := asset.AccountID{0x02}

	require.NoError(t, ix.Record(ctx, 100, engine.Event{
		Kind: engine.EventPairCreated, Account: alice, AssetA: 1, AssetB: 2,
	}))
	require.NoError(t, ix.Record(ctx, 110, engine.Event{
		Kind: engine.EventSwap, Account: bob, AssetA: 1, AssetB: 2,
		Path:      []asset.ID{1, 2},
		AmountIn:  u128.New(100),
		AmountOut: u128.New(90),
		FeeTotal:  u128.New(1),
	}))
	require.NoError(t, ix.Record(ctx, 120, engine.Event{
		Kind: engine.EventPairCreated, Account: alice, AssetA: 2, AssetB: 3,
	}))

	recent, err := ix.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, engine.EventPairCreated, recent[0].Event.Kind)
	assert.Equal(t, uint64(120), recent[0].BlockTime)

	byPair, err := ix.RecentByPair(ctx, 2, 1, 10)
	require.NoError(t, err)
	require.Len(t, byPair, 2)
	assert.Equal(t, engine.EventSwap, byPair[0].Event.Kind)
	assert.Equal(t, u128.New(90), byPair[0].Event.AmountOut)
	assert.Equal(t, []asset.ID{1, 2}, byPair[0].Event.Path)

	byAccount, err := ix.RecentByAccount(ctx, bob, 10)
	require.NoError(t, err)
	require.Len(t, byAccount, 1)
	assert.Equal(t, bob, byAccount[0].Event.Account)
}

func TestQueryLimit(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	for i := uint64(0); i < 5; i++ {
		require.NoError(t, ix.Record(ctx, i, engine.Event{
			Kind: engine.EventSwap, AssetA: 1, AssetB: 2,
		}))
	}
	recent, err := ix.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
	assert.Greater(t, recent[0].Seq, recent[2].Seq)
}
