package statestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TopCodeBeast/subswap/internal/core/state"
	"github.com/TopCodeBeast/subswap/internal/core/state/keys"
	"github.com/TopCodeBeast/subswap/internal/storage/kv/memory"
)

func TestStoreImplementsView(t *testing.T) {
	s := NewStore(memory.New())
	defer s.Close()

	k := keys.Treasury()
	data, err := s.Read(k)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, s.Insert(k, []byte{1, 2, 3}))
	exists, err := s.Exists(k)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Update(k, []byte{4}))
	data, err = s.Read(k)
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, data)

	require.NoError(t, s.Erase(k))
	exists, err = s.Exists(k)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSandboxCommitsToStore(t *testing.T) {
	s := NewStore(memory.New())
	defer s.Close()

	sb := state.NewSandbox(s)
	require.NoError(t, sb.Insert(keys.Treasury(), []byte{9}))

	data, err := s.Read(keys.Treasury())
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, sb.Commit())
	data, err = s.Read(keys.Treasury())
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, data)
}

func TestDigestMatchesMapView(t *testing.T) {
	s := NewStore(memory.New())
	defer s.Close()
	mv := state.NewMapView()

	for i := byte(0); i < 10; i++ {
		var k keys.Key
		k[0] = i
		require.NoError(t, s.Insert(k, []byte{i}))
		require.NoError(t, mv.Insert(k, []byte{i}))
	}

	d1, err := state.Digest(s)
	require.NoError(t, err)
	d2, err := state.Digest(mv)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestOpenMemoryBackend(t *testing.T) {
	s, err := Open("memory", "", 128)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Insert(keys.Directory(), []byte{1}))
	data, err := s.Read(keys.Directory())
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)

	_, err = Open("nosuch", "", 0)
	assert.Error(t, err)
}
