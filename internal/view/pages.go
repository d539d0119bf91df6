package view

import (
	"github.com/udisondev/albioncraft/internal/data"
	"github.com/udisondev/albioncraft/internal/session"
)

// Page template names.
const (
	PageItem     = "item.html"
	PageNotFound = "notfound.html"
	PageLoading  = "loading.html"
)

// ItemPage is the data for PageItem.
type ItemPage struct {
	session.View
	// AllLocations lists every market the user can pick.
	AllLocations []string
}

// Selected reports whether loc is among the chosen locations.
func (p ItemPage) Selected(loc string) bool {
	for _, l := range p.Locations {
		if l == loc {
			return true
		}
	}
	return false
}

// NotFoundPage is the data for PageNotFound.
type NotFoundPage struct {
	Query       string
	Suggestions []data.Suggestion
}
