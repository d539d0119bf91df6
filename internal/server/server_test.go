package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/albioncraft/internal/config"
	"github.com/udisondev/albioncraft/internal/craft"
	"github.com/udisondev/albioncraft/internal/data"
	"github.com/udisondev/albioncraft/internal/session"
	"github.com/udisondev/albioncraft/internal/testutil"
	"github.com/udisondev/albioncraft/internal/view"
)

type staticCatalog struct{ c *data.Catalog }

func (s staticCatalog) Catalog() *data.Catalog { return s.c }

// stubPrices записывает последний запрос и отдаёт фиксированную таблицу.
type stubPrices struct {
	mu        sync.Mutex
	table     craft.CityPrices
	err       error
	locations []string
}

func (p *stubPrices) Prices(_ context.Context, _, locations []string) (craft.CityPrices, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locations = locations
	if p.err != nil {
		return nil, p.err
	}
	return p.table, nil
}

func newTestServer(t *testing.T, catalogs CatalogSource, prices *stubPrices) *httptest.Server {
	t.Helper()
	pages, err := view.New("", false)
	require.NoError(t, err)

	cfg := config.Default()
	var src session.PriceSource
	if prices != nil {
		src = prices
	}
	srv := httptest.NewServer(New(cfg, catalogs, src, pages).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func loadedCatalog(t *testing.T) staticCatalog {
	t.Helper()
	return staticCatalog{c: testutil.Catalog(t)}
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	loading := newTestServer(t, staticCatalog{}, nil)
	status, body := get(t, loading.URL+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"loading"}`, body)

	ready := newTestServer(t, loadedCatalog(t), nil)
	_, body = get(t, ready.URL+"/healthz")
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestItemPage(t *testing.T) {
	t.Parallel()

	prices := &stubPrices{table: craft.CityPrices{"Martlock": {"T4_PLANKS": 100}}}
	srv := newTestServer(t, loadedCatalog(t), prices)

	status, body := get(t, srv.URL+"/items/T4_MAIN_SWORD?enchant=1&location=Martlock&location=Lymhurst&sale=2000")
	require.Equal(t, http.StatusOK, status)

	assert.Contains(t, body, "Adept&#39;s Broadsword")
	assert.Contains(t, body, "T4_PLANKS_LEVEL1@1.png")
	assert.Contains(t, body, "Location: Martlock")
	assert.Contains(t, body, "Priced materials: 1 of 3")
	assert.Contains(t, body, "Price: 968.00 (Base)")
	assert.Contains(t, body, "Location: Lymhurst")
	assert.Contains(t, body, "No market data")
	// 2*100 + 3*192 + 1*192
	assert.Contains(t, body, "<strong>Total craft cost:</strong> 968.00")
	assert.Contains(t, body, "<strong>Potential profit:</strong> 1,032.00")
	assert.Equal(t, []string{"Martlock", "Lymhurst"}, prices.locations)
}

func TestItemPage_States(t *testing.T) {
	t.Parallel()

	loading := newTestServer(t, staticCatalog{}, nil)
	status, body := get(t, loading.URL+"/items/T4_MAIN_SWORD")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, "Loading...")

	srv := newTestServer(t, loadedCatalog(t), nil)
	status, body = get(t, srv.URL+"/items/T4_MAIN_SWORDD")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "Item not found!")
	assert.Contains(t, body, `href="/items/T4_MAIN_SWORD"`)

	status, _ = get(t, srv.URL+"/items/T4_MAIN_SWORD?enchant=-1")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = get(t, srv.URL+"/items/T4_MAIN_SWORD?sale=abc")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestItemPage_PriceFeedDown(t *testing.T) {
	t.Parallel()

	prices := &stubPrices{err: testutil.ErrSimulated}
	srv := newTestServer(t, loadedCatalog(t), prices)

	status, body := get(t, srv.URL+"/items/T4_MAIN_SWORD")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Price feed unavailable")
	assert.Contains(t, body, "No market data")
	assert.NotContains(t, body, "Fetching prices...", "nothing is in flight after a failure")
	assert.Contains(t, body, "<strong>Total craft cost:</strong> 1,152.00")
	assert.Equal(t, []string{"Caerleon"}, prices.locations, "default location from config")
}

func TestItemJSON(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, loadedCatalog(t), &stubPrices{table: craft.CityPrices{}})

	status, body := get(t, srv.URL+"/api/items/T4_MAIN_SWORD?sale=1000")
	require.Equal(t, http.StatusOK, status)

	var resp struct {
		Item struct {
			UniqueID    string `json:"uniqueId"`
			DisplayName string `json:"displayName"`
			Tier        int    `json:"tier"`
		} `json:"item"`
		PricesLoaded bool `json:"pricesLoaded"`
		Recipes      []struct {
			RecipeType string `json:"recipeType"`
			Materials  []struct {
				UniqueID string `json:"uniqueId"`
				Count    int    `json:"count"`
				Name     string `json:"name"`
			} `json:"materials"`
			TotalCost float64 `json:"totalCost"`
			SalePrice float64 `json:"salePrice"`
			Profit    float64 `json:"profit"`
		} `json:"recipes"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))

	assert.Equal(t, "T4_MAIN_SWORD", resp.Item.UniqueID)
	assert.Equal(t, "Adept's Broadsword", resp.Item.DisplayName)
	assert.True(t, resp.PricesLoaded)
	require.Len(t, resp.Recipes, 1)
	assert.Len(t, resp.Recipes[0].Materials, 3)
	assert.Equal(t, "Adept's Planks", resp.Recipes[0].Materials[0].Name)
	assert.Equal(t, 1152.0, resp.Recipes[0].TotalCost)
	assert.Equal(t, -152.0, resp.Recipes[0].Profit)

	status, body = get(t, srv.URL+"/api/items/T4_NOPE")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "item not found")
	assert.Contains(t, body, "suggestions")
}

func TestItemJSON_NoFeed(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, loadedCatalog(t), nil)

	status, body := get(t, srv.URL+"/api/items/T4_MAIN_SWORD")
	require.Equal(t, http.StatusOK, status)

	var resp struct {
		PriceStatus string `json:"priceStatus"`
		PriceError  string `json:"priceError"`
		Markets     []struct {
			Location string `json:"location"`
			Status   string `json:"status"`
		} `json:"markets"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "unavailable", resp.PriceStatus)
	assert.Equal(t, "price feed disabled", resp.PriceError)
	require.Len(t, resp.Markets, 1)
	assert.Equal(t, "Caerleon", resp.Markets[0].Location)
	assert.Equal(t, "unavailable", resp.Markets[0].Status)
}

func TestItemJSON_NonFiniteSalePrice(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, loadedCatalog(t), nil)

	for _, sale := range []string{"NaN", "nan", "Inf", "-Inf", "+Infinity", "1e400"} {
		status, body := get(t, srv.URL+"/api/items/T4_MAIN_SWORD?sale="+url.QueryEscape(sale))
		assert.Equal(t, http.StatusBadRequest, status, sale)
		assert.Contains(t, body, "invalid sale price", sale)

		status, _ = get(t, srv.URL+"/items/T4_MAIN_SWORD?sale="+url.QueryEscape(sale))
		assert.Equal(t, http.StatusBadRequest, status, sale)
	}
}

// enchantedCatalog содержит предмет с собственным уровнем зачарования 2.
func enchantedCatalog(t *testing.T) staticCatalog {
	t.Helper()
	c, err := data.NewCatalog([]byte(`{"weapon": [{
	  "uniquename": "T4_MAIN_SWORD@2",
	  "tier": 4,
	  "enchantmentlevel": 2,
	  "shopcategory": "melee",
	  "craftResourceGroups": [{"recipeType": "Base", "children": [
	    {"uniquename": "T4_PLANKS", "count": 2}
	  ]}]
	}]}`), nil)
	require.NoError(t, err)
	return staticCatalog{c: c}
}

func TestItemJSON_EnchantmentLevel(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, enchantedCatalog(t), nil)
	item := srv.URL + "/api/items/" + url.PathEscape("T4_MAIN_SWORD@2")

	type response struct {
		Enchantment int `json:"enchantment"`
		Recipes     []struct {
			Materials []struct {
				DisplayKey string `json:"displayKey"`
			} `json:"materials"`
		} `json:"recipes"`
	}
	decode := func(body string) response {
		var resp response
		require.NoError(t, json.Unmarshal([]byte(body), &resp))
		require.Len(t, resp.Recipes, 1)
		require.Len(t, resp.Recipes[0].Materials, 1)
		return resp
	}

	status, body := get(t, item)
	require.Equal(t, http.StatusOK, status)
	resp := decode(body)
	assert.Equal(t, 2, resp.Enchantment, "item level is the default")
	assert.Equal(t, "T4_PLANKS_LEVEL2@2", resp.Recipes[0].Materials[0].DisplayKey)

	status, body = get(t, item+"?enchant=0")
	require.Equal(t, http.StatusOK, status)
	resp = decode(body)
	assert.Equal(t, 0, resp.Enchantment, "explicit level 0 is honoured")
	assert.Equal(t, "T4_PLANKS", resp.Recipes[0].Materials[0].DisplayKey)

	status, body = get(t, item+"?enchant=")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, decode(body).Enchantment, "empty value keeps the item level")
}

func TestSearch(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, loadedCatalog(t), nil)

	status, body := get(t, srv.URL+"/api/search?q=broadsword")
	require.Equal(t, http.StatusOK, status)
	var got []data.Suggestion
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "T4_MAIN_SWORD", got[0].UniqueID, "substring match ranks first")

	_, body = get(t, srv.URL+"/api/search?q=broadsword&limit=1")
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Len(t, got, 1)

	_, body = get(t, srv.URL+"/api/search?q=")
	assert.JSONEq(t, `[]`, body)

	status, _ = get(t, srv.URL+"/api/search?q=x&limit=0")
	assert.Equal(t, http.StatusBadRequest, status)

	loading := newTestServer(t, staticCatalog{}, nil)
	status, _ = get(t, loading.URL+"/api/search?q=x")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	pages, err := view.New("", false)
	require.NoError(t, err)
	s := New(config.Default(), loadedCatalog(t), nil, pages)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(testutil.ContextWithTimeout(t, 10*time.Second))
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
