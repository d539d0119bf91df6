package data

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tidwall/gjson"
)

// ErrItemNotFound is returned when an id is absent from every collection.
var ErrItemNotFound = errors.New("item not found")

// itemCollections are searched in this order; the first match wins.
var itemCollections = []string{"equipmentitem", "weapon"}

// Catalog is an immutable, indexed view of the item definition source.
type Catalog struct {
	items []*Item // equipment first, then weapons
	byID  map[string]*Item
	names NameTable
}

// NewCatalog decodes the item definition JSON. Collections may sit at the
// top level or under "items". Records without a unique name are skipped.
func NewCatalog(raw []byte, names NameTable) (*Catalog, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("item definitions: invalid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, fmt.Errorf("item definitions: top level is %s, want object", root.Type)
	}
	if nested := field(root, "items"); nested.IsObject() {
		root = nested
	}

	if names == nil {
		names = NameTable{}
	}
	c := &Catalog{
		byID:  make(map[string]*Item),
		names: names,
	}

	skipped := 0
	for _, coll := range itemCollections {
		each(field(root, coll), func(rec gjson.Result) {
			item := decodeItem(rec, names)
			if item == nil {
				skipped++
				return
			}
			c.items = append(c.items, item)
			if _, dup := c.byID[item.UniqueID]; !dup {
				c.byID[item.UniqueID] = item
			}
		})
	}

	slog.Info("loaded item catalog", "items", len(c.items), "names", len(names), "skipped", skipped)
	return c, nil
}

func decodeItem(rec gjson.Result, names NameTable) *Item {
	id := stringValue(field(rec, "uniquename", "uniqueId"))
	if id == "" {
		return nil
	}
	return &Item{
		UniqueID:        id,
		Tier:            intValue(field(rec, "tier")),
		DisplayName:     names.Lookup(id),
		ShopCategory:    stringValue(field(rec, "shopcategory")),
		ShopSubcategory: stringValue(field(rec, "shopsubcategory1", "shopSubcategory")),
		Enchantment:     intValue(field(rec, "enchantment", "enchantmentlevel")),
		RecipeGroups:    decodeGroups(rec),
	}
}

// Lookup finds an item by unique id across all collections.
func (c *Catalog) Lookup(id string) (*Item, error) {
	item, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return item, nil
}

// DisplayName resolves a material or item id to its name, or the raw id.
func (c *Catalog) DisplayName(id string) string {
	return c.names.Lookup(id)
}

// Len returns the number of item records.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Suggestion is a near match for a query that was not found.
type Suggestion struct {
	UniqueID    string `json:"uniqueId"`
	DisplayName string `json:"displayName"`
	distance    int
}

// Suggest returns up to limit items closest to query by edit distance over
// the unique id and display name. Substring matches rank first.
func (c *Catalog) Suggest(query string, limit int) []Suggestion {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return nil
	}

	out := make([]Suggestion, 0, len(c.byID))
	for id, item := range c.byID {
		lid := strings.ToLower(id)
		lname := strings.ToLower(item.DisplayName)

		dist := 0
		if !strings.Contains(lid, q) && !strings.Contains(lname, q) {
			dist = min(levenshtein.ComputeDistance(q, lid), levenshtein.ComputeDistance(q, lname))
		}
		out = append(out, Suggestion{UniqueID: id, DisplayName: item.DisplayName, distance: dist})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].distance != out[j].distance {
			return out[i].distance < out[j].distance
		}
		return out[i].UniqueID < out[j].UniqueID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
