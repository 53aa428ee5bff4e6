// Command echelon runs the market feasibility simulation service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/echelon/internal/advisory"
	"github.com/talgya/echelon/internal/api"
	"github.com/talgya/echelon/internal/config"
	"github.com/talgya/echelon/internal/jobs"
	"github.com/talgya/echelon/internal/store"
	"github.com/talgya/echelon/internal/store/memory"
	"github.com/talgya/echelon/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	records, err := openStore(cfg.Store)
	if err != nil {
		slog.Error("failed to open record store", "error", err)
		os.Exit(1)
	}
	defer records.Close()

	client := advisory.NewClient(cfg.Advisory.APIKey, cfg.Advisory.BaseURL, cfg.Advisory.Model, cfg.Advisory.Timeout.Std())
	if client.Enabled() {
		slog.Info("advisory client enabled", "model", cfg.Advisory.Model)
	} else {
		slog.Warn("advisory api key not set, simulations will run on fallback agents and reports")
	}

	gateway := advisory.NewGateway(client, advisory.GatewayConfig{
		RPM:              cfg.Advisory.RPM,
		MaxRetries:       cfg.Advisory.MaxRetries,
		RetryBase:        cfg.Advisory.RetryBase.Std(),
		BreakerThreshold: cfg.Advisory.BreakerThreshold,
		BreakerCooldown:  cfg.Advisory.BreakerCooldown.Std(),
	})

	manager := jobs.NewManager(records, gateway, cfg.Sim, cfg.Limits)

	apiServer := api.NewServer(manager, cfg.Server)
	httpServer := apiServer.NewHTTPServer()

	go func() {
		slog.Info("HTTP API starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	fmt.Printf("Echelon listening on http://localhost:%d/api/v1/health\n", cfg.Server.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}

	manager.Shutdown()
	slog.Info("all jobs stopped")
}

func openStore(cfg config.Store) (store.RecordStore, error) {
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		slog.Info("sqlite store opened", "path", cfg.Path)
		return s, nil
	case "memory":
		slog.Info("in-memory store selected, jobs will not survive restarts")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
