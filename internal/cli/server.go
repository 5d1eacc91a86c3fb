package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TopCodeBeast/subswap/internal/config"
	"github.com/TopCodeBeast/subswap/internal/core/asset"
	"github.com/TopCodeBeast/subswap/internal/core/engine"
	"github.com/TopCodeBeast/subswap/internal/rpc"
	"github.com/TopCodeBeast/subswap/internal/storage/history"
	"github.com/TopCodeBeast/subswap/internal/storage/statestore"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the subswapd daemon",
	Long: `Start subswapd with the configured storage backend, the JSON-RPC
endpoint at / and the websocket event stream at /ws.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServer(cmd, args)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := statestore.Open(cfg.Storage.Backend, cfg.Storage.Path, cfg.Storage.CacheSize)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info("state store opened",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("path", cfg.Storage.Path))

	gov, err := cfg.Engine.GovernanceAccount()
	if err != nil {
		return err
	}
	eng := engine.New(store, buildRegistry(cfg), engine.Config{
		ProtocolShareBps: cfg.Engine.ProtocolShareBps,
		MaxHops:          cfg.Engine.MaxHops,
		Governance:       gov,
	})

	var opts []rpc.Option
	var ix *history.Index
	if cfg.History.Enabled {
		ix, err = history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer ix.Close()
		opts = append(opts, rpc.WithHistory(ix))
	}

	srv := rpc.NewServer(eng, log, opts...)
	eng.SetEventSink(func(ev engine.Event) {
		srv.Hub().Publish(ev)
		if ix != nil {
			if err := ix.Record(context.Background(), uint64(time.Now().Unix()), ev); err != nil {
				log.Warn("record event", zap.Error(err))
			}
		}
	})

	httpServer := &http.Server{
		Addr:              cfg.RPC.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("rpc listening", zap.String("addr", cfg.RPC.ListenAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildRegistry(cfg *config.Config) asset.Registry {
	if len(cfg.Engine.Assets) == 0 {
		return asset.OpenRegistry{}
	}
	reg := asset.NewMemoryRegistry()
	for _, id := range cfg.Engine.Assets {
		reg.Register(asset.ID(id), 0)
	}
	return reg
}
