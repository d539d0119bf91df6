package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/albioncraft/internal/config"
	"github.com/udisondev/albioncraft/internal/data"
	"github.com/udisondev/albioncraft/internal/pricefeed"
	"github.com/udisondev/albioncraft/internal/server"
	"github.com/udisondev/albioncraft/internal/session"
	"github.com/udisondev/albioncraft/internal/view"
)

const ConfigPath = "config/albioncraft.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("ALBIONCRAFT_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("albioncraft starting",
		"bind", cfg.BindAddress,
		"port", cfg.Port,
		"names", cfg.Data.NamesSource,
		"items", cfg.Data.ItemsSource,
		"log_level", cfg.LogLevel)

	pages, err := view.New(cfg.TemplatesDir, cfg.TemplatesDir != "")
	if err != nil {
		return fmt.Errorf("loading page templates: %w", err)
	}

	var prices session.PriceSource
	if !cfg.Prices.Disabled {
		prices = pricefeed.New(pricefeed.Options{
			BaseURL:           cfg.Prices.BaseURL,
			Timeout:           cfg.Prices.Timeout,
			RequestsPerMinute: cfg.Prices.RequestsPerMinute,
			MaxIDsPerRequest:  cfg.Prices.MaxIDsPerRequest,
			CacheTTL:          cfg.Prices.CacheTTL,
		})
	} else {
		slog.Info("price feed disabled, using fallback prices", "fallback", cfg.Prices.FallbackPrice)
	}

	store := &data.Store{}
	loader := &data.Loader{
		NamesSource: cfg.Data.NamesSource,
		ItemsSource: cfg.Data.ItemsSource,
		Client:      &http.Client{Timeout: cfg.Data.FetchTimeout},
	}
	srv := server.New(cfg, store, prices, pages)

	g, gctx := errgroup.WithContext(ctx)

	// the server answers with a loading state until the first load lands
	g.Go(func() error {
		return store.Run(gctx, loader, cfg.Data.RefreshInterval)
	})

	g.Go(func() error {
		if err := srv.Run(gctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
