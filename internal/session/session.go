// Package session holds the mutable presentation state of one item view and
// recomputes crafting estimates from it on demand.
//
// Setters only record state. View re-runs flattening and cost math on a
// consistent snapshot every time, so there are no derived caches to keep in
// sync.
package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/udisondev/albioncraft/internal/craft"
	"github.com/udisondev/albioncraft/internal/data"
	"github.com/udisondev/albioncraft/internal/pricefeed"
)

// ErrNoPriceFeed marks prices as unavailable because no feed is configured.
var ErrNoPriceFeed = errors.New("price feed disabled")

// PriceStatus is the market price state of a selection.
type PriceStatus string

const (
	// PricesFetching means no result has arrived for the current selection.
	PricesFetching PriceStatus = "fetching"
	// PricesLoaded means market prices were applied.
	PricesLoaded PriceStatus = "loaded"
	// PricesUnavailable means the fetch failed or there is no feed.
	PricesUnavailable PriceStatus = "unavailable"
)

// Namer resolves material ids to display names.
type Namer interface {
	DisplayName(id string) string
}

// PriceRequest captures the selection a price fetch was issued for.
type PriceRequest struct {
	Key       string
	IDs       []string
	Locations []string
}

// Session is safe for concurrent use.
type Session struct {
	mu          sync.Mutex
	namer       Namer
	fallback    float64
	renderBase  string
	item        *data.Item
	enchantment int
	locations   []string
	salePrices  map[int]float64
	cities      craft.CityPrices
	pricesKey   string
	priceStatus PriceStatus
	priceErr    error
}

// New creates an empty session. fallback is the unit price for materials
// without a fetched price.
func New(namer Namer, fallback float64, renderBase string) *Session {
	return &Session{
		namer:       namer,
		fallback:    fallback,
		renderBase:  renderBase,
		salePrices:  make(map[int]float64),
		priceStatus: PricesFetching,
	}
}

// SetItem switches the viewed item. Sale prices and fetched prices belong to
// the previous item and are dropped.
func (s *Session) SetItem(item *data.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.item = item
	s.enchantment = 0
	if item != nil {
		s.enchantment = item.Enchantment
	}
	s.salePrices = make(map[int]float64)
	s.resetPricesLocked()
}

// SetEnchantment selects the enchantment level used for display keys.
func (s *Session) SetEnchantment(level int) error {
	if level < 0 {
		return fmt.Errorf("enchantment level must be >= 0, got %d", level)
	}
	s.mu.Lock()
	s.enchantment = level
	s.mu.Unlock()
	return nil
}

// SetLocations replaces the selected market locations. Prices fetched for
// the previous selection are dropped.
func (s *Session) SetLocations(locations ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locations = slices.Clone(locations)
	s.resetPricesLocked()
}

// SetSalePrice records the user-entered sale price for one recipe index.
func (s *Session) SetSalePrice(recipe int, price float64) error {
	if recipe < 0 {
		return fmt.Errorf("recipe index must be >= 0, got %d", recipe)
	}
	s.mu.Lock()
	s.salePrices[recipe] = price
	s.mu.Unlock()
	return nil
}

// PriceRequest describes the fetch the current selection needs.
// Ok is false when there is nothing to price.
func (s *Session) PriceRequest() (req PriceRequest, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.priceRequestLocked()
}

func (s *Session) priceRequestLocked() (PriceRequest, bool) {
	if s.item == nil {
		return PriceRequest{}, false
	}
	ids := craft.MaterialIDs(s.item.RecipeGroups)
	if len(ids) == 0 {
		return PriceRequest{}, false
	}
	locs := slices.Clone(s.locations)
	return PriceRequest{
		Key:       pricefeed.SnapshotKey(ids, locs),
		IDs:       ids,
		Locations: locs,
	}, true
}

// ApplyPrices installs fetched per-location prices if req still matches the
// current selection. A stale result is discarded and false is returned.
func (s *Session) ApplyPrices(req PriceRequest, cities craft.CityPrices) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(req) {
		return false
	}
	s.cities = cities.Clone()
	s.pricesKey = req.Key
	s.priceStatus = PricesLoaded
	s.priceErr = nil
	return true
}

// PricesUnavailable records that the fetch for req failed. Like ApplyPrices
// it is a no-op for a stale request.
func (s *Session) PricesUnavailable(req PriceRequest, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(req) {
		return false
	}
	s.cities = nil
	s.pricesKey = ""
	s.priceStatus = PricesUnavailable
	s.priceErr = err
	return true
}

func (s *Session) currentLocked(req PriceRequest) bool {
	cur, ok := s.priceRequestLocked()
	return ok && cur.Key == req.Key
}

func (s *Session) resetPricesLocked() {
	s.cities = nil
	s.pricesKey = ""
	s.priceStatus = PricesFetching
	s.priceErr = nil
}
