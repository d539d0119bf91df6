package craft

// Flatten walks the tree depth-first in pre-order and returns its admitted
// leaves. A leaf is admitted only with a non-empty id and a positive count;
// anything else is skipped without error. Order follows the walk, and
// repeated ids are kept as separate entries.
func Flatten(nodes []MaterialNode) []FlatMaterial {
	out := make([]FlatMaterial, 0, len(nodes))
	return appendFlat(out, nodes)
}

func appendFlat(out []FlatMaterial, nodes []MaterialNode) []FlatMaterial {
	for _, n := range nodes {
		if !n.IsLeaf() {
			out = appendFlat(out, n.Children)
			continue
		}
		if n.UniqueID == "" || n.Count <= 0 {
			continue
		}
		out = append(out, FlatMaterial{UniqueID: n.UniqueID, Count: n.Count})
	}
	return out
}

// FlattenGroups flattens every recipe group on its own. Groups are never
// merged; the result has one entry per group in input order.
func FlattenGroups(groups []RecipeGroup) []RecipeMaterials {
	out := make([]RecipeMaterials, len(groups))
	for i, g := range groups {
		out[i] = RecipeMaterials{
			RecipeType: g.RecipeType,
			Materials:  Flatten(g.Children),
		}
	}
	return out
}

// Aggregate merges materials with the same id, keeping first-occurrence
// order. It is an additive view for summaries; Flatten and TotalCost never
// use it.
func Aggregate(materials []FlatMaterial) []FlatMaterial {
	idx := make(map[string]int, len(materials))
	out := make([]FlatMaterial, 0, len(materials))
	for _, m := range materials {
		if i, ok := idx[m.UniqueID]; ok {
			out[i].Count += m.Count
			continue
		}
		idx[m.UniqueID] = len(out)
		out = append(out, m)
	}
	return out
}
