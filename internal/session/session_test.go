package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/albioncraft/internal/craft"
	"github.com/udisondev/albioncraft/internal/data"
)

type namesStub map[string]string

func (n namesStub) DisplayName(id string) string {
	if name, ok := n[id]; ok {
		return name
	}
	return id
}

func testItem() *data.Item {
	return &data.Item{
		UniqueID:     "T4_MAIN_SWORD",
		Tier:         4,
		DisplayName:  "Adept's Broadsword",
		ShopCategory: "melee",
		RecipeGroups: []craft.RecipeGroup{
			{RecipeType: "Base", Children: []craft.MaterialNode{
				craft.Leaf("T4_PLANKS", 2),
				craft.Leaf("T4_METALBAR", 3),
				craft.Group(craft.Leaf("T4_LEATHER", 1)),
			}},
			{RecipeType: "Base #2", Children: []craft.MaterialNode{
				craft.Leaf("T4_METALBAR", 4),
			}},
		},
	}
}

func newTestSession() *Session {
	return New(namesStub{"T4_PLANKS": "Adept's Planks"}, 192, "")
}

func TestSession_ViewFallback(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	assert.Nil(t, s.View().Item, "empty session renders nothing")

	s.SetItem(testItem())
	v := s.View()

	require.Len(t, v.Recipes, 2)
	assert.False(t, v.PricesLoaded)
	assert.Equal(t, 1152.0, v.Recipes[0].TotalCost)
	assert.Equal(t, -1152.0, v.Recipes[0].Profit)
	assert.Equal(t, 768.0, v.Recipes[1].TotalCost)

	first := v.Recipes[0].Materials[0]
	assert.Equal(t, "Adept's Planks", first.Name)
	assert.Equal(t, "T4_METALBAR", v.Recipes[0].Materials[1].Name, "unknown names fall back to id")
	assert.False(t, first.Priced)
	assert.Equal(t, "https://render.albiononline.com/v1/item/T4_PLANKS.png", first.ImageURL)
	assert.Equal(t, "https://render.albiononline.com/v1/item/T4_MAIN_SWORD.png", v.ImageURL)
}

func TestSession_EnchantmentOnlyChangesDisplay(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	s.SetItem(testItem())
	before := s.View()

	require.NoError(t, s.SetEnchantment(2))
	after := s.View()

	assert.Equal(t, before.Recipes[0].TotalCost, after.Recipes[0].TotalCost)
	assert.Equal(t, "T4_PLANKS_LEVEL2@2", after.Recipes[0].Materials[0].DisplayKey)
	assert.Equal(t, "T4_PLANKS", after.Recipes[0].Materials[0].UniqueID)
	assert.Equal(t, "https://render.albiononline.com/v1/item/T4_MAIN_SWORD_LEVEL2@2.png", after.ImageURL)

	assert.Error(t, s.SetEnchantment(-1))
}

func TestSession_SalePricesPerRecipe(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	s.SetItem(testItem())
	require.NoError(t, s.SetSalePrice(1, 1000))

	v := s.View()
	assert.Equal(t, 0.0, v.Recipes[0].SalePrice)
	assert.Equal(t, -1152.0, v.Recipes[0].Profit)
	assert.Equal(t, 1000.0, v.Recipes[1].SalePrice)
	assert.Equal(t, 232.0, v.Recipes[1].Profit)

	assert.Error(t, s.SetSalePrice(-1, 5))

	s.SetItem(testItem())
	assert.Equal(t, 0.0, s.View().Recipes[1].SalePrice, "new item resets sale prices")
}

func TestSession_ApplyPrices(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	_, ok := s.PriceRequest()
	assert.False(t, ok, "no item, nothing to price")

	s.SetItem(testItem())
	s.SetLocations("Caerleon")

	req, ok := s.PriceRequest()
	require.True(t, ok)
	assert.Equal(t, []string{"T4_PLANKS", "T4_METALBAR", "T4_LEATHER"}, req.IDs)
	assert.Equal(t, []string{"Caerleon"}, req.Locations)

	cities := craft.CityPrices{"Caerleon": {"T4_PLANKS": 100, "T4_METALBAR": 50}}
	assert.True(t, s.ApplyPrices(req, cities))
	cities["Caerleon"]["T4_PLANKS"] = 1 // session keeps its own copy

	v := s.View()
	assert.True(t, v.PricesLoaded)
	assert.Equal(t, 2*100.0+3*50.0+192.0, v.Recipes[0].TotalCost)
	assert.True(t, v.Recipes[0].Materials[0].Priced)
	assert.False(t, v.Recipes[0].Materials[2].Priced)
}

func TestSession_StalePricesDiscarded(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	s.SetItem(testItem())
	s.SetLocations("Caerleon")
	stale, _ := s.PriceRequest()

	// пользователь сменил город, пока запрос был в полёте
	s.SetLocations("Martlock")
	assert.False(t, s.ApplyPrices(stale, craft.CityPrices{"Caerleon": {"T4_PLANKS": 1}}))
	assert.False(t, s.View().PricesLoaded)
	assert.Equal(t, 1152.0, s.View().Recipes[0].TotalCost)

	// enchantment does not change the price snapshot
	cur, _ := s.PriceRequest()
	require.NoError(t, s.SetEnchantment(3))
	assert.True(t, s.ApplyPrices(cur, craft.CityPrices{"Caerleon": {"T4_PLANKS": 1}}))
}

func TestSession_LocationChangeResetsPrices(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	s.SetItem(testItem())
	s.SetLocations("Caerleon")
	req, _ := s.PriceRequest()
	require.True(t, s.ApplyPrices(req, craft.CityPrices{"Caerleon": {"T4_PLANKS": 1}}))

	s.SetLocations("Caerleon", "Lymhurst")
	v := s.View()
	assert.False(t, v.PricesLoaded)
	assert.Equal(t, 1152.0, v.Recipes[0].TotalCost)
}

type sourceFunc func(ctx context.Context, ids, locations []string) (craft.CityPrices, error)

func (f sourceFunc) Prices(ctx context.Context, ids, locations []string) (craft.CityPrices, error) {
	return f(ctx, ids, locations)
}

func TestSession_RefreshPrices(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	s.SetItem(testItem())
	s.SetLocations("Bridgewatch")

	applied, err := s.RefreshPrices(context.Background(), sourceFunc(func(_ context.Context, ids, locs []string) (craft.CityPrices, error) {
		assert.Equal(t, []string{"Bridgewatch"}, locs)
		return craft.CityPrices{"Bridgewatch": {"T4_METALBAR": 10}}, nil
	}))
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 2*192.0+3*10.0+192.0, s.View().Recipes[0].TotalCost)

	boom := errors.New("feed down")
	applied, err = s.RefreshPrices(context.Background(), sourceFunc(func(context.Context, []string, []string) (craft.CityPrices, error) {
		return nil, boom
	}))
	assert.ErrorIs(t, err, boom)
	assert.False(t, applied)
	v := s.View()
	assert.Equal(t, PricesUnavailable, v.PriceStatus)
	assert.Equal(t, "feed down", v.PriceError)
	assert.Equal(t, 1152.0, v.Recipes[0].TotalCost, "failed fetch falls back")

	applied, err = s.RefreshPrices(context.Background(), nil)
	assert.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, PricesUnavailable, s.View().PriceStatus, "no feed means no market data")
	assert.Equal(t, ErrNoPriceFeed.Error(), s.View().PriceError)
}

func TestSession_RefreshPricesStale(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	s.SetItem(testItem())
	s.SetLocations("Caerleon")

	applied, err := s.RefreshPrices(context.Background(), sourceFunc(func(context.Context, []string, []string) (craft.CityPrices, error) {
		s.SetLocations("Thetford") // selection changes mid-fetch
		return craft.CityPrices{"Caerleon": {"T4_PLANKS": 1}}, nil
	}))
	require.NoError(t, err)
	assert.False(t, applied)
	assert.False(t, s.View().PricesLoaded)
}

func TestSession_Markets(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	s.SetItem(testItem())
	s.SetLocations("Martlock", "Thetford")

	v := s.View()
	require.Len(t, v.Markets, 2)
	assert.Equal(t, PricesFetching, v.PriceStatus)
	assert.Equal(t, PricesFetching, v.Markets[0].Status)
	assert.Empty(t, v.Markets[0].Costs)

	req, _ := s.PriceRequest()
	require.True(t, s.ApplyPrices(req, craft.CityPrices{
		"Martlock": {"T4_PLANKS": 100, "T4_METALBAR": 50},
	}))

	v = s.View()
	assert.Equal(t, PricesLoaded, v.PriceStatus)
	martlock := v.Markets[0]
	assert.Equal(t, "Martlock", martlock.Location)
	assert.Equal(t, PricesLoaded, martlock.Status)
	assert.Equal(t, 2, martlock.Priced)
	assert.Equal(t, 3, martlock.Materials)
	// 2*100 + 3*50 + 1*192, 4*50
	assert.Equal(t, []float64{542, 200}, martlock.Costs)

	thetford := v.Markets[1]
	assert.Equal(t, PricesUnavailable, thetford.Status, "loaded, but no data for this city")
	assert.Zero(t, thetford.Priced)
	assert.Empty(t, thetford.Costs)

	// a failure for a stale selection does not touch the current one
	s.SetLocations("Lymhurst")
	assert.False(t, s.PricesUnavailable(req, errors.New("late failure")))
	assert.Equal(t, PricesFetching, s.View().PriceStatus)
}

func TestSession_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	s.SetItem(testItem())

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.SetSalePrice(i%2, float64(i))
			_ = s.SetEnchantment(i % 4)
			s.SetLocations("Caerleon")
			_ = s.View()
		}()
	}
	wg.Wait()

	assert.Len(t, s.View().Recipes, 2)
}
