package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/congo-pay/currency/internal/config"
	"github.com/congo-pay/currency/internal/genesis"
	"github.com/congo-pay/currency/internal/infra"
	"github.com/congo-pay/currency/internal/ledger"
	"github.com/congo-pay/currency/internal/logging"
	"github.com/congo-pay/currency/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewWithFile(cfg.LogLevel, logging.FileOptions{
		Path:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
		MaxAgeDay: cfg.LogMaxAgeDays,
	})

	ctx := context.Background()

	backends, err := infra.Open(ctx, cfg)
	if err != nil {
		logger.Error("open backends", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := backends.Close(); err != nil {
			logger.Warn("close backends", "error", err)
		}
	}()

	if cfg.GenesisFile != "" {
		if err := applyGenesis(ctx, cfg.GenesisFile, backends.Store, logger); err != nil {
			logger.Error("apply genesis", "error", err)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, backends, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()
	logger.Info("server started", "address", cfg.Address(), "store", cfg.StoreBackend, "env", cfg.Env)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}

func applyGenesis(ctx context.Context, path string, store ledger.Store, logger *slog.Logger) error {
	gcfg, err := genesis.Load(path)
	if err != nil {
		return err
	}
	total, err := genesis.Apply(ctx, store, gcfg)
	if errors.Is(err, genesis.ErrAlreadyInitialized) {
		logger.Info("genesis skipped, ledger already initialized", "file", path)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("genesis applied", "file", path, "accounts", len(gcfg.Balances), "issuance", total.String())
	return nil
}
