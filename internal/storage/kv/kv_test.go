package kv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TopCodeBeast/subswap/internal/storage/kv"
	"github.com/TopCodeBeast/subswap/internal/storage/kv/memory"
)

// backends under test. The disk backends share the same conformance
// surface; memory and the cached wrapper cover it without touching disk.
func backends(t *testing.T) map[string]kv.DB {
	t.Helper()
	cached, err := kv.NewCached(memory.New(), 64)
	require.NoError(t, err)
	return map[string]kv.DB{
		"memory": memory.New(),
		"cached": cached,
	}
}

func TestReadWriteDelete(t *testing.T) {
	ctx := context.Background()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := db.Read(ctx, []byte("missing"))
			assert.True(t, errors.Is(err, kv.ErrKeyNotFound))

			require.NoError(t, db.Write(ctx, []byte("a"), []byte("1")))
			val, err := db.Read(ctx, []byte("a"))
			require.NoError(t, err)
			assert.Equal(t, []byte("1"), val)

			require.NoError(t, db.Write(ctx, []byte("a"), []byte("2")))
			val, err = db.Read(ctx, []byte("a"))
			require.NoError(t, err)
			assert.Equal(t, []byte("2"), val)

			require.NoError(t, db.Delete(ctx, []byte("a")))
			_, err = db.Read(ctx, []byte("a"))
			assert.True(t, errors.Is(err, kv.ErrKeyNotFound))
		})
	}
}

func TestBatchAndIterator(t *testing.T) {
	ctx := context.Background()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Batch(ctx, []kv.BatchOperation{
				{Type: kv.BatchPut, Key: []byte("b"), Value: []byte("2")},
				{Type: kv.BatchPut, Key: []byte("a"), Value: []byte("1")},
				{Type: kv.BatchPut, Key: []byte("c"), Value: []byte("3")},
				{Type: kv.BatchDelete, Key: []byte("b")},
			}))

			it, err := db.Iterator(ctx, nil, nil)
			require.NoError(t, err)
			defer it.Close()

			var keys []string
			for it.Next() {
				keys = append(keys, string(it.Key()))
			}
			require.NoError(t, it.Error())
			assert.Equal(t, []string{"a", "c"}, keys)
		})
	}
}

func TestIteratorBounds(t *testing.T) {
	ctx := context.Background()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"a", "b", "c", "d"} {
				require.NoError(t, db.Write(ctx, []byte(k), []byte(k)))
			}
			it, err := db.Iterator(ctx, []byte("b"), []byte("d"))
			require.NoError(t, err)
			defer it.Close()

			var keys []string
			for it.Next() {
				keys = append(keys, string(it.Key()))
			}
			assert.Equal(t, []string{"b", "c"}, keys)
		})
	}
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	require.NoError(t, db.Close())

	_, err := db.Read(ctx, []byte("a"))
	assert.True(t, errors.Is(err, kv.ErrDBClosed))
	assert.True(t, errors.Is(db.Write(ctx, []byte("a"), nil), kv.ErrDBClosed))
}

func TestCacheServesRepeatReads(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	cached, err := kv.NewCached(inner, 8)
	require.NoError(t, err)

	require.NoError(t, cached.Write(ctx, []byte("k"), []byte("v")))

	// Mutate behind the cache's back; the cached value wins, which is the
	// documented single-writer contract.
	require.NoError(t, inner.Write(ctx, []byte("k"), []byte("stale")))
	val, err := cached.Read(ctx, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	require.NoError(t, cached.Delete(ctx, []byte("k")))
	_, err = cached.Read(ctx, []byte("k"))
	assert.True(t, errors.Is(err, kv.ErrKeyNotFound))
}
