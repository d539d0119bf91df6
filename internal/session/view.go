package session

import (
	"maps"
	"slices"

	"github.com/udisondev/albioncraft/internal/craft"
	"github.com/udisondev/albioncraft/internal/data"
)

// MaterialView is a material row ready for display.
type MaterialView struct {
	craft.MaterialLine
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
	Priced   bool   `json:"priced"` // false when the fallback price was used
}

// RecipeView is one recipe variant with its cost and profit.
type RecipeView struct {
	Index      int            `json:"index"`
	RecipeType string         `json:"recipeType"`
	Materials  []MaterialView `json:"materials"`
	TotalCost  float64        `json:"totalCost"`
	SalePrice  float64        `json:"salePrice"`
	Profit     float64        `json:"profit"`
}

// LocationView is the price state of one selected market.
type LocationView struct {
	Location string      `json:"location"`
	Status   PriceStatus `json:"status"`
	// Priced counts the distinct materials with a price at this location.
	Priced    int `json:"priced"`
	Materials int `json:"materials"`
	// Costs holds the craft cost of each recipe at this location's prices,
	// set only when Status is PricesLoaded.
	Costs []float64 `json:"costs,omitempty"`
}

// View is a consistent snapshot of the session with all estimates derived.
type View struct {
	Item          *data.Item   `json:"item,omitempty"`
	ImageURL      string       `json:"imageUrl,omitempty"`
	Enchantment   int          `json:"enchantment"`
	Locations     []string     `json:"locations"`
	PricesLoaded  bool           `json:"pricesLoaded"`
	PriceStatus   PriceStatus    `json:"priceStatus"`
	PriceError    string         `json:"priceError,omitempty"`
	FallbackPrice float64        `json:"fallbackPrice"`
	Markets       []LocationView `json:"markets"`
	Recipes       []RecipeView   `json:"recipes"`
}

// View recomputes every recipe estimate from the current state.
func (s *Session) View() View {
	s.mu.Lock()
	item := s.item
	level := s.enchantment
	locations := slices.Clone(s.locations)
	sale := maps.Clone(s.salePrices)
	cities := s.cities
	status := s.priceStatus
	priceErr := s.priceErr
	s.mu.Unlock()

	v := View{
		Item:          item,
		Enchantment:   level,
		Locations:     locations,
		PricesLoaded:  status == PricesLoaded,
		PriceStatus:   status,
		FallbackPrice: s.fallback,
	}
	if priceErr != nil {
		v.PriceError = priceErr.Error()
	}
	if item == nil {
		return v
	}
	prices := cities.Lowest()
	v.Markets = s.markets(item, locations, cities, status)
	v.ImageURL = craft.ImageURL(s.renderBase, craft.DisplayKey(item.UniqueID, level))

	estimates := craft.Estimate(item.RecipeGroups, level, prices, s.fallback, sale)
	v.Recipes = make([]RecipeView, len(estimates))
	for i, e := range estimates {
		materials := make([]MaterialView, len(e.Lines))
		for j, line := range e.Lines {
			_, priced := prices[line.UniqueID]
			materials[j] = MaterialView{
				MaterialLine: line,
				Name:         s.displayName(line.UniqueID),
				ImageURL:     craft.ImageURL(s.renderBase, line.DisplayKey),
				Priced:       priced,
			}
		}
		v.Recipes[i] = RecipeView{
			Index:      e.Index,
			RecipeType: e.RecipeType,
			Materials:  materials,
			TotalCost:  e.TotalCost,
			SalePrice:  e.SalePrice,
			Profit:     e.Profit,
		}
	}
	return v
}

func (s *Session) markets(item *data.Item, locations []string, cities craft.CityPrices, status PriceStatus) []LocationView {
	ids := craft.MaterialIDs(item.RecipeGroups)
	recipes := craft.FlattenGroups(item.RecipeGroups)

	out := make([]LocationView, len(locations))
	for i, loc := range locations {
		lv := LocationView{Location: loc, Status: status, Materials: len(ids)}
		if status == PricesLoaded {
			table, _ := cities.City(loc)
			for _, id := range ids {
				if _, ok := table[id]; ok {
					lv.Priced++
				}
			}
			if lv.Priced == 0 {
				lv.Status = PricesUnavailable
			} else {
				lv.Costs = make([]float64, len(recipes))
				for j, r := range recipes {
					lv.Costs[j] = craft.TotalCost(r.Materials, table, s.fallback)
				}
			}
		}
		out[i] = lv
	}
	return out
}

func (s *Session) displayName(id string) string {
	if s.namer == nil {
		return id
	}
	return s.namer.DisplayName(id)
}
