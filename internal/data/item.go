package data

import "github.com/udisondev/albioncraft/internal/craft"

// Recipe type labels for groups derived from the item dump.
const (
	RecipeTypeBase        = "Base"
	RecipeTypeEnchantment = "Enchantment"
)

// Item is one equipment or weapon definition.
// Immutable once published in a Catalog.
type Item struct {
	UniqueID        string              `json:"uniqueId"`
	Tier            int                 `json:"tier"`
	DisplayName     string              `json:"displayName"`
	ShopCategory    string              `json:"shopCategory"`
	ShopSubcategory string              `json:"shopSubcategory,omitempty"`
	Enchantment     int                 `json:"enchantment,omitempty"`
	RecipeGroups    []craft.RecipeGroup `json:"-"`
}
