// Package pricefeed queries the public Albion Online market data API for
// minimum sell prices per market location.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/udisondev/albioncraft/internal/craft"
)

// Record is one row of the prices endpoint. Only the fields used for cost
// estimation are decoded.
type Record struct {
	ItemID       string  `json:"item_id"`
	City         string  `json:"city"`
	Quality      int     `json:"quality"`
	SellPriceMin float64 `json:"sell_price_min"`
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxIDsPerRequest  int
	CacheTTL          time.Duration // 0 disables memoisation
	HTTPClient        *http.Client
}

// Client fetches price tables. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	maxIDs  int
	cache   *cache.Cache
	group   singleflight.Group
}

// New creates a price feed client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	rpm := max(opts.RequestsPerMinute, 1)
	c := &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		http:    httpClient,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		maxIDs:  max(opts.MaxIDsPerRequest, 1),
	}
	if opts.CacheTTL > 0 {
		c.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return c
}

// Prices returns the sell prices seen for each id, grouped by location.
// Zero prices are dropped and the lowest price per id and location wins, so
// an id with no usable price is absent and cost calculation falls back for
// it. The returned table is owned by the caller.
//
// Identical concurrent calls share one fetch. The shared fetch is detached
// from the caller's cancellation and bounded by the client timeout; a
// caller whose ctx ends stops waiting without failing the others.
func (c *Client) Prices(ctx context.Context, ids, locations []string) (craft.CityPrices, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids = normalize(ids)
	locations = normalize(locations)
	if len(ids) == 0 {
		return craft.CityPrices{}, nil
	}

	key := SnapshotKey(ids, locations)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			return v.(craft.CityPrices).Clone(), nil
		}
	}

	ch := c.group.DoChan(key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, c.timeout)
			defer cancel()
		}
		cities, err := c.fetchAll(fctx, ids, locations)
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			c.cache.SetDefault(key, cities)
		}
		return cities, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(craft.CityPrices).Clone(), nil
	}
}

func (c *Client) fetchAll(ctx context.Context, ids, locations []string) (craft.CityPrices, error) {
	chunks := chunk(ids, c.maxIDs)
	results := make([][]Record, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range chunks {
		g.Go(func() error {
			if err := c.limiter.Wait(gctx); err != nil {
				return fmt.Errorf("waiting for rate limiter: %w", err)
			}
			recs, err := c.fetchChunk(gctx, ch, locations)
			if err != nil {
				return err
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cities := make(craft.CityPrices, len(locations))
	for _, recs := range results {
		mergeRecords(cities, recs)
	}

	slog.Debug("fetched prices",
		"ids", len(ids),
		"cities", len(cities),
		"requests", len(chunks),
		"locations", strings.Join(locations, ","))
	return cities, nil
}

func (c *Client) fetchChunk(ctx context.Context, ids, locations []string) ([]Record, error) {
	u := c.requestURL(ids, locations)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		sample, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("price feed returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(sample)))
	}

	var recs []Record
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decoding price response: %w", err)
	}
	return recs, nil
}

func (c *Client) requestURL(ids, locations []string) string {
	escaped := make([]string, len(ids))
	for i, id := range ids {
		escaped[i] = url.PathEscape(id)
	}
	u := c.baseURL + "/" + strings.Join(escaped, ",") + ".json"
	if len(locations) > 0 {
		u += "?" + url.Values{"locations": {strings.Join(locations, ",")}}.Encode()
	}
	return u
}

// mergeRecords keeps the lowest non-zero sell price per item and city.
func mergeRecords(cities craft.CityPrices, recs []Record) {
	for _, r := range recs {
		if r.ItemID == "" || r.SellPriceMin <= 0 {
			continue
		}
		table := cities[r.City]
		if table == nil {
			table = make(craft.PriceTable)
			cities[r.City] = table
		}
		if cur, ok := table[r.ItemID]; ok && cur <= r.SellPriceMin {
			continue
		}
		table[r.ItemID] = r.SellPriceMin
	}
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
