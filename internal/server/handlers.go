package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/udisondev/albioncraft/internal/data"
	"github.com/udisondev/albioncraft/internal/session"
	"github.com/udisondev/albioncraft/internal/view"
)

const suggestionLimit = 5

// Markets offered in the location picker.
var Markets = []string{
	"Bridgewatch", "Caerleon", "Fort Sterling", "Lymhurst",
	"Martlock", "Thetford", "Brecilien", "Black Market",
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "loading"
	if s.catalogs.Catalog() != nil {
		status = "ok"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// itemQuery is the presentation state carried in the query string.
type itemQuery struct {
	// enchantment is nil when the query leaves the item's own level.
	enchantment *int
	locations   []string
	salePrices  []float64
}

func parseItemQuery(r *http.Request, defaultLocations []string) (itemQuery, error) {
	q := r.URL.Query()
	var iq itemQuery

	if v := strings.TrimSpace(q.Get("enchant")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return iq, fmt.Errorf("invalid enchant %q", v)
		}
		iq.enchantment = &n
	}

	for _, loc := range q["location"] {
		for _, part := range strings.Split(loc, ",") {
			if part = strings.TrimSpace(part); part != "" {
				iq.locations = append(iq.locations, part)
			}
		}
	}
	if len(iq.locations) == 0 {
		iq.locations = defaultLocations
	}

	for i, v := range q["sale"] {
		if strings.TrimSpace(v) == "" {
			iq.salePrices = append(iq.salePrices, 0)
			continue
		}
		f, err := parseSalePrice(v)
		if err != nil {
			return iq, fmt.Errorf("invalid sale price #%d %q: %w", i+1, v, err)
		}
		iq.salePrices = append(iq.salePrices, f)
	}
	return iq, nil
}

// parseSalePrice accepts finite decimal numbers only.
func parseSalePrice(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("not a finite number")
	}
	return f, nil
}

// buildSession resolves the item and query state for one request. On error
// the status tells the caller which state to render.
func (s *Server) buildSession(r *http.Request) (*session.Session, int, error) {
	catalog := s.catalogs.Catalog()
	if catalog == nil {
		return nil, http.StatusServiceUnavailable, errors.New("item data is still loading")
	}

	iq, err := parseItemQuery(r, s.cfg.Prices.Locations)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	item, err := catalog.Lookup(chi.URLParam(r, "uniqueName"))
	if err != nil {
		return nil, http.StatusNotFound, err
	}

	sess := session.New(catalog, s.cfg.Prices.FallbackPrice, s.cfg.RenderBaseURL)
	sess.SetItem(item)
	if iq.enchantment != nil {
		if err := sess.SetEnchantment(*iq.enchantment); err != nil {
			return nil, http.StatusBadRequest, err
		}
	}
	sess.SetLocations(iq.locations...)
	for i, p := range iq.salePrices {
		if err := sess.SetSalePrice(i, p); err != nil {
			return nil, http.StatusBadRequest, err
		}
	}
	return sess, http.StatusOK, nil
}

// refreshPrices applies market prices. Failures leave fallback prices and
// are recorded in the session view.
func (s *Server) refreshPrices(ctx context.Context, sess *session.Session) {
	if _, err := sess.RefreshPrices(ctx, s.prices); err != nil {
		slog.Warn("price feed unavailable, using fallback prices", "error", err)
	}
}

func (s *Server) handleItemPage(w http.ResponseWriter, r *http.Request) {
	sess, status, err := s.buildSession(r)
	switch {
	case err == nil:
	case status == http.StatusServiceUnavailable:
		s.renderPage(w, status, view.PageLoading, nil)
		return
	case status == http.StatusNotFound:
		id := chi.URLParam(r, "uniqueName")
		s.renderPage(w, status, view.PageNotFound, view.NotFoundPage{
			Query:       id,
			Suggestions: s.catalogs.Catalog().Suggest(id, suggestionLimit),
		})
		return
	default:
		http.Error(w, err.Error(), status)
		return
	}

	s.refreshPrices(r.Context(), sess)
	s.renderPage(w, http.StatusOK, view.PageItem, view.ItemPage{
		View:         sess.View(),
		AllLocations: Markets,
	})
}

func (s *Server) handleItemJSON(w http.ResponseWriter, r *http.Request) {
	sess, status, err := s.buildSession(r)
	if err != nil {
		resp := map[string]any{"error": err.Error()}
		if status == http.StatusNotFound {
			resp["suggestions"] = s.catalogs.Catalog().Suggest(chi.URLParam(r, "uniqueName"), suggestionLimit)
		}
		writeJSON(w, status, resp)
		return
	}

	s.refreshPrices(r.Context(), sess)
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	catalog := s.catalogs.Catalog()
	if catalog == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "item data is still loading"})
		return
	}

	limit := suggestionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 50 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be 1..50"})
			return
		}
		limit = n
	}

	suggestions := catalog.Suggest(r.URL.Query().Get("q"), limit)
	if suggestions == nil {
		suggestions = []data.Suggestion{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

func (s *Server) renderPage(w http.ResponseWriter, status int, name string, page any) {
	html, err := s.pages.Render(name, page)
	if err != nil {
		slog.Error("rendering page", "page", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(html))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing json response", "error", err)
	}
}
