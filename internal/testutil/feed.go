package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// PriceRow mirrors one record of the market prices endpoint.
type PriceRow struct {
	ItemID       string  `json:"item_id"`
	City         string  `json:"city"`
	SellPriceMin float64 `json:"sell_price_min"`
}

// PriceFeed is a fake prices endpoint. Rows are filtered by the requested
// ids and the "locations" query parameter.
type PriceFeed struct {
	*httptest.Server

	mu   sync.Mutex
	rows []PriceRow
	hits int
}

// NewPriceFeed starts a fake feed serving rows under /prices/.
func NewPriceFeed(t testing.TB, rows ...PriceRow) *PriceFeed {
	t.Helper()

	f := &PriceFeed{rows: rows}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// BaseURL is the value for prices.base_url.
func (f *PriceFeed) BaseURL() string {
	return f.URL + "/prices"
}

// Hits returns the number of requests served.
func (f *PriceFeed) Hits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits
}

func (f *PriceFeed) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits++
	rows := f.rows
	f.mu.Unlock()

	if !strings.HasPrefix(r.URL.Path, "/prices/") || !strings.HasSuffix(r.URL.Path, ".json") {
		http.NotFound(w, r)
		return
	}
	list := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/prices/"), ".json")

	ids := make(map[string]bool)
	for _, id := range strings.Split(list, ",") {
		ids[id] = true
	}
	cities := make(map[string]bool)
	if locs := r.URL.Query().Get("locations"); locs != "" {
		for _, c := range strings.Split(locs, ",") {
			cities[c] = true
		}
	}

	out := []PriceRow{}
	for _, row := range rows {
		if !ids[row.ItemID] {
			continue
		}
		if len(cities) > 0 && !cities[row.City] {
			continue
		}
		out = append(out, row)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
