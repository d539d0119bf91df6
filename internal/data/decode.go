package data

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/udisondev/albioncraft/internal/craft"
)

// The item dump is loosely typed: attribute keys may carry an "@" prefix,
// single-element lists are emitted as objects, and numbers are often strings.

// field returns the first member of obj whose key matches one of names,
// ignoring case and a leading "@".
func field(obj gjson.Result, names ...string) gjson.Result {
	var found gjson.Result
	if !obj.IsObject() {
		return found
	}
	obj.ForEach(func(k, v gjson.Result) bool {
		key := strings.TrimPrefix(k.String(), "@")
		for _, n := range names {
			if strings.EqualFold(key, n) {
				found = v
				return false
			}
		}
		return true
	})
	return found
}

// each calls fn for every element of an array, or once for a lone object.
func each(v gjson.Result, fn func(gjson.Result)) {
	switch {
	case v.IsArray():
		v.ForEach(func(_, el gjson.Result) bool {
			fn(el)
			return true
		})
	case v.IsObject():
		fn(v)
	}
}

// intValue parses numbers and numeric strings. Anything else is 0.
func intValue(v gjson.Result) int {
	switch v.Type {
	case gjson.Number:
		return int(v.Int())
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(v.Str))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func stringValue(v gjson.Result) string {
	return strings.TrimSpace(v.String())
}

// decodeNode maps one craft-resource entry. A nested "craftresource" makes
// it an inner node regardless of other fields, unless the value is null or
// another empty scalar.
func decodeNode(v gjson.Result) craft.MaterialNode {
	if nested := field(v, "craftresource"); !blank(nested) {
		return craft.Group(decodeNodes(nested)...)
	}
	return craft.Leaf(
		stringValue(field(v, "uniquename", "uniqueId")),
		intValue(field(v, "count")),
	)
}

func blank(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return true
	case gjson.String:
		return v.Str == ""
	case gjson.Number:
		return v.Num == 0
	default:
		return false
	}
}

func decodeNodes(v gjson.Result) []craft.MaterialNode {
	var nodes []craft.MaterialNode
	each(v, func(el gjson.Result) {
		if !el.IsObject() {
			return
		}
		nodes = append(nodes, decodeNode(el))
	})
	return nodes
}

// decodeGroups builds recipe groups for an item record. An explicit
// "craftResourceGroups" list wins; otherwise groups come from the base
// crafting requirements followed by per-enchantment requirements.
func decodeGroups(rec gjson.Result) []craft.RecipeGroup {
	if explicit := field(rec, "craftResourceGroups"); explicit.Exists() {
		var groups []craft.RecipeGroup
		each(explicit, func(g gjson.Result) {
			children := field(g, "children")
			if !children.Exists() {
				children = field(g, "craftresource")
			}
			recipeType := stringValue(field(g, "recipeType"))
			if recipeType == "" {
				recipeType = RecipeTypeBase
			}
			groups = append(groups, craft.RecipeGroup{
				RecipeType: recipeType,
				Children:   decodeNodes(children),
			})
		})
		return groups
	}

	groups := requirementGroups(field(rec, "craftingrequirements"), RecipeTypeBase)

	each(field(field(rec, "enchantments"), "enchantment"), func(e gjson.Result) {
		level := intValue(field(e, "enchantmentlevel"))
		label := fmt.Sprintf("%s %d", RecipeTypeEnchantment, level)
		groups = append(groups, requirementGroups(field(e, "craftingrequirements"), label)...)
	})
	return groups
}

// requirementGroups turns a crafting-requirements object or list into
// groups labelled "label", "label #2", ...
func requirementGroups(reqs gjson.Result, label string) []craft.RecipeGroup {
	var groups []craft.RecipeGroup
	each(reqs, func(req gjson.Result) {
		name := label
		if n := len(groups); n > 0 {
			name = fmt.Sprintf("%s #%d", label, n+1)
		}
		groups = append(groups, craft.RecipeGroup{
			RecipeType: name,
			Children:   decodeNodes(field(req, "craftresource")),
		})
	})
	return groups
}
