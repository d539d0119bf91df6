// Package testutil holds shared fixtures for albioncraft tests: a small
// item catalog, its source files and a fake market price feed.
package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/udisondev/albioncraft/internal/data"
)

// ErrSimulated: sentinel для проверки путей обработки ошибок.
var ErrSimulated = errors.New("simulated error for testing")

// ItemsJSON содержит сумку и меч. Базовый рецепт меча:
// 2x T4_PLANKS, 3x T4_METALBAR и вложенный узел с 1x T4_LEATHER.
// При fallback-цене 192 стоимость крафта = 1152.
const ItemsJSON = `{
  "equipmentitem": [{
    "uniquename": "T4_BAG",
    "tier": 4,
    "shopcategory": "accessories",
    "shopsubcategory1": "bag",
    "craftResourceGroups": [{
      "recipeType": "Base",
      "children": [
        {"uniquename": "T4_LEATHER", "count": 1},
        {"uniquename": "T4_CLOTH", "count": 2}
      ]
    }]
  }],
  "weapon": [{
    "uniquename": "T4_MAIN_SWORD",
    "tier": 4,
    "shopcategory": "melee",
    "shopsubcategory1": "sword",
    "craftResourceGroups": [{
      "recipeType": "Base",
      "children": [
        {"uniquename": "T4_PLANKS", "count": 2},
        {"uniquename": "T4_METALBAR", "count": 3},
        {"craftresource": [{"uniquename": "T4_LEATHER", "count": 1}]}
      ]
    }]
  }]
}`

// NamesTxt is the name resource matching ItemsJSON.
const NamesTxt = `   1: T4_MAIN_SWORD    : Adept's Broadsword
   2: T4_BAG           : Adept's Bag
   3: T4_PLANKS        : Adept's Planks
   4: T4_METALBAR      : Adept's Steel Bar
`

// FallbackPrice is the unit price used by fixtures when a material is unpriced.
const FallbackPrice = 192.0

// Catalog builds a catalog from the fixtures.
func Catalog(t testing.TB) *data.Catalog {
	t.Helper()

	names, err := data.ParseNames(strings.NewReader(NamesTxt))
	if err != nil {
		t.Fatalf("parse fixture names: %v", err)
	}
	c, err := data.NewCatalog([]byte(ItemsJSON), names)
	if err != nil {
		t.Fatalf("parse fixture items: %v", err)
	}
	return c
}

// WriteDataFiles writes the fixtures into a temp dir and returns their paths.
func WriteDataFiles(t testing.TB) (namesPath, itemsPath string) {
	t.Helper()

	dir := t.TempDir()
	namesPath = filepath.Join(dir, "items.txt")
	itemsPath = filepath.Join(dir, "Output.json")
	if err := os.WriteFile(namesPath, []byte(NamesTxt), 0o644); err != nil {
		t.Fatalf("write names fixture: %v", err)
	}
	if err := os.WriteFile(itemsPath, []byte(ItemsJSON), 0o644); err != nil {
		t.Fatalf("write items fixture: %v", err)
	}
	return namesPath, itemsPath
}

// ContextWithTimeout создаёт context с timeout и отменяет его по завершении теста.
func ContextWithTimeout(t testing.TB, d time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}
