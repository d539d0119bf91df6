package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/udisondev/albioncraft/internal/craft"
	"github.com/udisondev/albioncraft/internal/session"
	"github.com/udisondev/albioncraft/internal/view"
)

func printReport(out io.Writer, v session.View, aggregate bool) error {
	if v.Item == nil {
		_, err := fmt.Fprintln(out, "Item not found!")
		return err
	}

	item := v.Item
	fmt.Fprintf(out, "%s (%s)\n", item.DisplayName, item.UniqueID)
	fmt.Fprintf(out, "Tier: %d  Category: %s", item.Tier, item.ShopCategory)
	if item.ShopSubcategory != "" {
		fmt.Fprintf(out, "  Subcategory: %s", item.ShopSubcategory)
	}
	if v.Enchantment > 0 {
		fmt.Fprintf(out, "  Enchantment Level: %d", v.Enchantment)
	}
	fmt.Fprintln(out)

	priceNote := "fallback prices"
	if v.PricesLoaded {
		priceNote = "market prices"
	}
	fmt.Fprintf(out, "Locations: %s (%s)\n", strings.Join(v.Locations, ", "), priceNote)
	printMarkets(out, v)

	if len(v.Recipes) == 0 {
		_, err := fmt.Fprintln(out, "\nThis item has no crafting recipe.")
		return err
	}

	for _, r := range v.Recipes {
		fmt.Fprintf(out, "\nRecipe %d: %s\n", r.Index+1, r.RecipeType)

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "Material\tCount\tUnit\tSubtotal\t")
		for _, m := range r.Materials {
			unit := view.FormatSilver(m.UnitPrice)
			if !m.Priced {
				unit += "*"
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t\n", m.Name, m.Count, unit, view.FormatSilver(m.Subtotal))
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if aggregate {
			printTotals(out, r)
		}

		fmt.Fprintf(out, "Total craft cost: %s\n", view.FormatSilver(r.TotalCost))
		fmt.Fprintf(out, "Sale price:       %s\n", view.FormatSilver(r.SalePrice))
		fmt.Fprintf(out, "Potential profit: %s\n", view.FormatSilver(r.Profit))
	}

	_, err := fmt.Fprintf(out, "\n* fallback price %s\n", view.FormatSilver(v.FallbackPrice))
	return err
}

// printMarkets prints the craft cost of each recipe at each location's prices.
func printMarkets(out io.Writer, v session.View) {
	if !v.PricesLoaded {
		return
	}
	for _, m := range v.Markets {
		if m.Status != session.PricesLoaded {
			fmt.Fprintf(out, "  %s: no market data\n", m.Location)
			continue
		}
		costs := make([]string, len(m.Costs))
		for i, c := range m.Costs {
			costs[i] = view.FormatSilver(c)
		}
		fmt.Fprintf(out, "  %s: %d/%d priced, craft cost %s\n",
			m.Location, m.Priced, m.Materials, strings.Join(costs, " / "))
	}
}

// printTotals lists materials merged by id.
func printTotals(out io.Writer, r session.RecipeView) {
	flat := make([]craft.FlatMaterial, len(r.Materials))
	names := make(map[string]string, len(r.Materials))
	for i, m := range r.Materials {
		flat[i] = craft.FlatMaterial{UniqueID: m.UniqueID, Count: m.Count}
		names[m.UniqueID] = m.Name
	}

	fmt.Fprintln(out, "Totals:")
	for _, m := range craft.Aggregate(flat) {
		fmt.Fprintf(out, "  %dx %s\n", m.Count, names[m.UniqueID])
	}
}
