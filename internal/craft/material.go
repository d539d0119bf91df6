// Package craft implements the crafting math: flattening of nested
// craft-resource trees, material display keys, craft cost and profit.
//
// Everything here is pure. Callers own the state and re-invoke these
// functions whenever the item, enchantment level or prices change.
package craft

import (
	"maps"
	"strings"
)

// MaterialNode is one node of a craft-resource tree.
// A node with a non-nil Children slice is an inner node (the source
// "craftresource" field); any other node is a candidate leaf.
type MaterialNode struct {
	UniqueID string
	Count    int
	Children []MaterialNode
}

// IsLeaf reports whether the node has no nested craft resources.
func (n MaterialNode) IsLeaf() bool {
	return n.Children == nil
}

// Leaf builds a leaf node.
func Leaf(uniqueID string, count int) MaterialNode {
	return MaterialNode{UniqueID: uniqueID, Count: count}
}

// Group builds an inner node. An empty group is still an inner node.
func Group(children ...MaterialNode) MaterialNode {
	if children == nil {
		children = []MaterialNode{}
	}
	return MaterialNode{Children: children}
}

// RecipeGroup is one crafting recipe variant of an item.
type RecipeGroup struct {
	RecipeType string
	Children   []MaterialNode
}

// FlatMaterial is a leaf material produced by flattening.
type FlatMaterial struct {
	UniqueID string `json:"uniqueId"`
	Count    int    `json:"count"`
}

// RecipeMaterials pairs a recipe type with its flattened materials.
type RecipeMaterials struct {
	RecipeType string         `json:"recipeType"`
	Materials  []FlatMaterial `json:"materials"`
}

// PriceTable maps a base material id to a unit price.
type PriceTable map[string]float64

// CityPrices maps a market location to the prices seen there.
type CityPrices map[string]PriceTable

// Lowest merges every location into one table, keeping the lowest positive
// price per id.
func (c CityPrices) Lowest() PriceTable {
	out := make(PriceTable)
	for _, table := range c {
		for id, p := range table {
			if p <= 0 {
				continue
			}
			if cur, ok := out[id]; ok && cur <= p {
				continue
			}
			out[id] = p
		}
	}
	return out
}

// City returns the table for loc. Location names match case-insensitively.
func (c CityPrices) City(loc string) (PriceTable, bool) {
	if t, ok := c[loc]; ok {
		return t, true
	}
	for name, t := range c {
		if strings.EqualFold(name, loc) {
			return t, true
		}
	}
	return nil, false
}

// Clone returns a deep copy.
func (c CityPrices) Clone() CityPrices {
	if c == nil {
		return nil
	}
	out := make(CityPrices, len(c))
	for loc, t := range c {
		out[loc] = maps.Clone(t)
	}
	return out
}
