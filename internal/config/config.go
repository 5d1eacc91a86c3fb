// Package config loads the daemon configuration from subswapd.toml,
// environment variables (SUBSWAP_ prefix) and built-in defaults, in that
// reverse priority order.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/TopCodeBeast/subswap/internal/core/asset"
	"github.com/TopCodeBeast/subswap/internal/core/fees"
	"github.com/TopCodeBeast/subswap/internal/core/pool"
)

// Config is the complete subswapd configuration.
type Config struct {
	Storage StorageConfig `toml:"storage" mapstructure:"storage"`
	History HistoryConfig `toml:"history" mapstructure:"history"`
	RPC     RPCConfig     `toml:"rpc" mapstructure:"rpc"`
	Engine  EngineConfig  `toml:"engine" mapstructure:"engine"`
	Log     LogConfig     `toml:"log" mapstructure:"log"`
}

// StorageConfig selects and parameterizes the kv backend.
type StorageConfig struct {
	// Backend is "memory", "pebble" or "bbolt".
	Backend string `toml:"backend" mapstructure:"backend"`

	// Path is the on-disk location for the disk backends.
	Path string `toml:"path" mapstructure:"path"`

	// CacheSize is the LRU read cache entry count; 0 disables it.
	CacheSize int `toml:"cache_size" mapstructure:"cache_size"`
}

// HistoryConfig parameterizes the sqlite event index.
type HistoryConfig struct {
	// Enabled turns the index on.
	Enabled bool `toml:"enabled" mapstructure:"enabled"`

	// Path is the sqlite file, or ":memory:".
	Path string `toml:"path" mapstructure:"path"`
}

// RPCConfig parameterizes the JSON-RPC and websocket surface.
type RPCConfig struct {
	ListenAddr string `toml:"listen_addr" mapstructure:"listen_addr"`
}

// EngineConfig carries the consensus parameters of the swap engine.
type EngineConfig struct {
	ProtocolShareBps uint16 `toml:"protocol_share_bps" mapstructure:"protocol_share_bps"`
	MaxHops          int    `toml:"max_hops" mapstructure:"max_hops"`

	// Governance is the hex account allowed to change pool parameters.
	// Empty disables governance requests entirely.
	Governance string `toml:"governance" mapstructure:"governance"`

	// Assets lists the asset IDs known to the standalone daemon. Empty
	// means accept any asset ID.
	Assets []uint64 `toml:"assets" mapstructure:"assets"`
}

// LogConfig parameterizes logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" mapstructure:"level"`
}

// GovernanceAccount parses the configured governance account. The zero
// account means governance is disabled.
func (e EngineConfig) GovernanceAccount() (asset.AccountID, error) {
	if e.Governance == "" {
		return asset.AccountID{}, nil
	}
	return asset.ParseAccountID(e.Governance)
}

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "subswapd.toml"

// Load reads the configuration. A missing file is not an error; defaults
// and environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if _, err := os.Stat(path); err == nil {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if path != DefaultPath {
			// An explicitly named file must exist.
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
	}

	v.SetEnvPrefix("SUBSWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "pebble")
	v.SetDefault("storage.path", "data/state")
	v.SetDefault("storage.cache_size", 4096)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "data/history.db")

	v.SetDefault("rpc.listen_addr", "127.0.0.1:7015")

	v.SetDefault("engine.protocol_share_bps", int(fees.DefaultProtocolShareBps))
	v.SetDefault("engine.max_hops", 3)
	v.SetDefault("engine.governance", "")

	v.SetDefault("log.level", "info")
}

// Validate checks the configuration for values the daemon cannot run
// with.
func Validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "memory", "pebble", "bbolt":
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend != "memory" && cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path required for backend %q", cfg.Storage.Backend)
	}
	if cfg.Engine.ProtocolShareBps > pool.FeeDenominator {
		return fmt.Errorf("engine.protocol_share_bps %d exceeds %d",
			cfg.Engine.ProtocolShareBps, pool.FeeDenominator)
	}
	if cfg.Engine.MaxHops < 1 || cfg.Engine.MaxHops > 8 {
		return fmt.Errorf("engine.max_hops %d out of range [1, 8]", cfg.Engine.MaxHops)
	}
	if _, err := cfg.Engine.GovernanceAccount(); err != nil {
		return err
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", cfg.Log.Level)
	}
	if cfg.RPC.ListenAddr == "" {
		return fmt.Errorf("rpc.listen_addr cannot be empty")
	}
	return nil
}
