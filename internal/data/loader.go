package data

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Loader fetches the name resource and the item definitions and builds
// a Catalog from them.
type Loader struct {
	NamesSource string
	ItemsSource string
	Client      *http.Client
}

// Load fetches both resources concurrently.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	var namesRaw, itemsRaw []byte

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := Fetch(gctx, l.Client, l.NamesSource)
		if err != nil {
			return fmt.Errorf("names: %w", err)
		}
		namesRaw = raw
		return nil
	})
	g.Go(func() error {
		raw, err := Fetch(gctx, l.Client, l.ItemsSource)
		if err != nil {
			return fmt.Errorf("item definitions: %w", err)
		}
		itemsRaw = raw
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names, err := ParseNames(bytes.NewReader(namesRaw))
	if err != nil {
		return nil, err
	}
	return NewCatalog(itemsRaw, names)
}

// Store publishes the current catalog. A nil catalog means no data yet.
type Store struct {
	current atomic.Pointer[Catalog]
}

// Catalog returns the published catalog or nil.
func (s *Store) Catalog() *Catalog {
	return s.current.Load()
}

// Set publishes c.
func (s *Store) Set(c *Catalog) {
	s.current.Store(c)
}

// Run loads the catalog immediately and then every interval until ctx is
// done. Failures are logged and keep the previous catalog (or no data).
// With interval <= 0 Run loads once and returns.
func (s *Store) Run(ctx context.Context, l *Loader, interval time.Duration) error {
	s.refresh(ctx, l)
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.refresh(ctx, l)
		}
	}
}

func (s *Store) refresh(ctx context.Context, l *Loader) {
	start := time.Now()
	c, err := l.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("loading item data", "names", l.NamesSource, "items", l.ItemsSource, "error", err)
		return
	}
	s.Set(c)
	slog.Info("item data published", "items", c.Len(), "took", time.Since(start).Round(time.Millisecond))
}
