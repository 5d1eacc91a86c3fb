package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TopCodeBeast/subswap/internal/core/asset"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "pebble", cfg.Storage.Backend)
	assert.Equal(t, 4096, cfg.Storage.CacheSize)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "127.0.0.1:7015", cfg.RPC.ListenAddr)
	assert.Equal(t, uint16(1667), cfg.Engine.ProtocolShareBps)
	assert.Equal(t, 3, cfg.Engine.MaxHops)
	assert.Equal(t, "info", cfg.Log.Level)

	gov, err := cfg.Engine.GovernanceAccount()
	require.NoError(t, err)
	assert.Equal(t, asset.AccountID{}, gov)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subswapd.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[storage]
backend = "bbolt"
path = "/tmp/state.db"

[engine]
protocol_share_bps = 2000
max_hops = 4
governance = "0102030405060708090a0b0c0d0e0f1011121314"

[log]
level = "debug"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bbolt", cfg.Storage.Backend)
	assert.Equal(t, uint16(2000), cfg.Engine.ProtocolShareBps)
	assert.Equal(t, 4, cfg.Engine.MaxHops)
	assert.Equal(t, "debug", cfg.Log.Level)

	gov, err := cfg.Engine.GovernanceAccount()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), gov[0])
	assert.Equal(t, byte(0x14), gov[19])
}

func TestMissingExplicitFileFails(t *testing.T) {
	_, err := Load("/nonexistent/subswap.toml")
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad backend": "[storage]\nbackend = \"leveldb\"\n",
		"bad hops":    "[engine]\nmax_hops = 0\n",
		"bad share":   "[engine]\nprotocol_share_bps = 20000\n",
		"bad level":   "[log]\nlevel = \"trace\"\n",
		"bad account": "[engine]\ngovernance = \"zz\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "cfg.toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
