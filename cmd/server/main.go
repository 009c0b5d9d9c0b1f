package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/staffdir/internal/config"
	"github.com/JonMunkholm/staffdir/internal/core"
	"github.com/JonMunkholm/staffdir/internal/logging"
	"github.com/JonMunkholm/staffdir/internal/remote"
	"github.com/JonMunkholm/staffdir/internal/slot"
	"github.com/JonMunkholm/staffdir/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"storage_driver", cfg.Storage.Driver,
		"seed", cfg.API.SeedURL,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeSlot, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSlot()

	server := web.NewServer(store, cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore opens the configured slot and loads the collection. A failed
// load is logged and the server still starts with an empty directory, so
// the page can offer a reload.
func openStore(ctx context.Context, cfg *config.Config) (*core.Store, func(), error) {
	s, err := slot.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	closeSlot := func() {
		if err := s.Close(); err != nil {
			slog.Warn("closing slot", "error", err)
		}
	}

	api := remote.NewSimulator(remote.Options{
		FailureRate: cfg.API.FailureRate,
		Delay:       cfg.API.Delay,
		Seed:        uint64(cfg.API.RandomSeed),
		HTTPClient:  &http.Client{Timeout: cfg.API.FetchTimeout},
	})
	store := core.NewStore(s, api, core.StoreOptions{
		SlotKey:     cfg.Storage.SlotKey,
		SeedLocator: cfg.API.SeedURL,
	})

	loadCtx, cancel := context.WithTimeout(ctx, cfg.API.FetchTimeout)
	defer cancel()
	if err := store.Load(loadCtx); err != nil {
		slog.Error("initial load failed", "error", err, "hint", core.FormatUserError(err))
	} else {
		slog.Info("employees loaded", "count", store.Len())
	}
	return store, closeSlot, nil
}
