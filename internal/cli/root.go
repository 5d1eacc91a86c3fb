// Package cli wires the subswapd commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/TopCodeBeast/subswap/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "subswapd",
	Short: "subswapd - AMM swap state machine daemon",
	Long: `subswapd runs the swap state machine standalone: pools, LP shares,
routing and protocol fees behind a JSON-RPC and websocket surface. In a
replicated deployment the same engine runs embedded and requests arrive
through blocks instead of the RPC submit method.`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "configuration file path")
}

func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
