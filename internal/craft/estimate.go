package craft

// MaterialLine is one priced row of a recipe estimate.
type MaterialLine struct {
	UniqueID   string  `json:"uniqueId"`
	DisplayKey string  `json:"displayKey"`
	Count      int     `json:"count"`
	UnitPrice  float64 `json:"unitPrice"`
	Subtotal   float64 `json:"subtotal"`
}

// RecipeEstimate is the cost and profit of one recipe variant.
type RecipeEstimate struct {
	Index      int            `json:"index"`
	RecipeType string         `json:"recipeType"`
	Lines      []MaterialLine `json:"materials"`
	TotalCost  float64        `json:"totalCost"`
	SalePrice  float64        `json:"salePrice"`
	Profit     float64        `json:"profit"`
}

// Estimate prices every recipe group independently. salePrices is keyed by
// recipe index; a missing entry means a sale price of 0.
func Estimate(groups []RecipeGroup, level int, prices PriceTable, fallback float64, salePrices map[int]float64) []RecipeEstimate {
	recipes := FlattenGroups(groups)
	out := make([]RecipeEstimate, len(recipes))
	for i, r := range recipes {
		lines := make([]MaterialLine, len(r.Materials))
		for j, m := range r.Materials {
			unit := UnitPrice(prices, m.UniqueID, fallback)
			lines[j] = MaterialLine{
				UniqueID:   m.UniqueID,
				DisplayKey: DisplayKey(m.UniqueID, level),
				Count:      m.Count,
				UnitPrice:  unit,
				Subtotal:   float64(m.Count) * unit,
			}
		}

		cost := TotalCost(r.Materials, prices, fallback)
		sale := salePrices[i]
		out[i] = RecipeEstimate{
			Index:      i,
			RecipeType: r.RecipeType,
			Lines:      lines,
			TotalCost:  cost,
			SalePrice:  sale,
			Profit:     PotentialProfit(sale, cost),
		}
	}
	return out
}

// MaterialIDs returns the distinct base ids used by any of the groups,
// in first-occurrence order.
func MaterialIDs(groups []RecipeGroup) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, r := range FlattenGroups(groups) {
		for _, m := range r.Materials {
			if _, ok := seen[m.UniqueID]; ok {
				continue
			}
			seen[m.UniqueID] = struct{}{}
			ids = append(ids, m.UniqueID)
		}
	}
	return ids
}
