package session

import (
	"context"
	"log/slog"

	"github.com/udisondev/albioncraft/internal/craft"
)

// PriceSource fetches unit prices for material ids, grouped by location.
type PriceSource interface {
	Prices(ctx context.Context, ids, locations []string) (craft.CityPrices, error)
}

// RefreshPrices fetches prices for the current selection and applies them
// unless the selection changed while the fetch was in flight. On error the
// session keeps fallback prices, marks them unavailable and the error is
// returned for logging. A nil src marks prices unavailable without error.
func (s *Session) RefreshPrices(ctx context.Context, src PriceSource) (bool, error) {
	req, ok := s.PriceRequest()
	if !ok {
		return false, nil
	}
	if src == nil {
		s.PricesUnavailable(req, ErrNoPriceFeed)
		return false, nil
	}

	cities, err := src.Prices(ctx, req.IDs, req.Locations)
	if err != nil {
		s.PricesUnavailable(req, err)
		return false, err
	}

	if !s.ApplyPrices(req, cities) {
		slog.Debug("discarding stale prices", "key", req.Key, "locations", req.Locations)
		return false, nil
	}
	return true, nil
}
