package craft

// UnitPrice returns the table price for id, or fallback when the id is absent.
func UnitPrice(prices PriceTable, uniqueID string, fallback float64) float64 {
	if p, ok := prices[uniqueID]; ok {
		return p
	}
	return fallback
}

// TotalCost sums count*price over materials. No rounding is applied.
func TotalCost(materials []FlatMaterial, prices PriceTable, fallback float64) float64 {
	var total float64
	for _, m := range materials {
		total += float64(m.Count) * UnitPrice(prices, m.UniqueID, fallback)
	}
	return total
}

// PotentialProfit returns salePrice - craftCost. Inputs are not validated.
func PotentialProfit(salePrice, craftCost float64) float64 {
	return salePrice - craftCost
}
