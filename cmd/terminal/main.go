package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"kedaipos-backend/internal/config"
	"kedaipos-backend/internal/ledger"
	"kedaipos-backend/internal/localstore"
	"kedaipos-backend/internal/syncqueue"
)

// The terminal agent keeps a local order cache and a mirror of the
// server catalog on disk, and pushes queued orders to the server
// whenever connectivity allows.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadTerminal()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := localstore.Open(cfg.DataDir, logger)
	if err != nil {
		logger.Error("failed to open local store", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	client := ledger.NewClient(cfg.ServerURL, cfg.APIToken, cfg.SyncTimeout)
	sync := &syncqueue.Synchronizer{
		Store:  store,
		Ledger: client,
		Log:    logger,
	}

	runner := syncqueue.NewRunner(sync, cfg.SyncInterval, cfg.SyncTimeout, logger)
	runner.Catalog = &syncqueue.Refresher{Store: store, Source: client, Log: logger}
	runner.CatalogInterval = cfg.CatalogRefreshInterval
	logger.Info("terminal agent starting",
		"dataDir", cfg.DataDir,
		"server", cfg.ServerURL,
		"syncInterval", cfg.SyncInterval,
		"catalogRefreshInterval", cfg.CatalogRefreshInterval)
	runner.Run(ctx)
	logger.Info("terminal agent stopped")
}
