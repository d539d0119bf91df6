// Command craftcalc prints the crafting materials, cost and profit of one
// item.
//
// Usage:
//
//	go run ./cmd/craftcalc T4_MAIN_SWORD
//	go run ./cmd/craftcalc -enchant 2 -location Martlock -location Lymhurst -sale 12000 T4_MAIN_SWORD
//	go run ./cmd/craftcalc -offline -json T4_BAG
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/udisondev/albioncraft/internal/config"
	"github.com/udisondev/albioncraft/internal/data"
	"github.com/udisondev/albioncraft/internal/pricefeed"
	"github.com/udisondev/albioncraft/internal/session"
)

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type floatList []float64

func (l *floatList) String() string { return fmt.Sprint(*l) }

func (l *floatList) Set(v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("parse sale price %q: %w", v, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("sale price %q is not a finite number", v)
	}
	*l = append(*l, f)
	return nil
}

type options struct {
	configPath string
	itemID     string
	enchant    int
	enchantSet bool // -enchant was given; otherwise the item's own level is used
	locations  stringList
	sales      floatList
	offline    bool
	asJSON     bool
	aggregate  bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("craftcalc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "config/albioncraft.yaml", "config file")
	fs.IntVar(&opts.enchant, "enchant", 0, "enchantment level for material display names")
	fs.Var(&opts.locations, "location", "market location (repeatable, default from config)")
	fs.Var(&opts.sales, "sale", "sale price per recipe, in recipe order (repeatable)")
	fs.BoolVar(&opts.offline, "offline", false, "skip the price feed and use the fallback price")
	fs.BoolVar(&opts.asJSON, "json", false, "print JSON instead of tables")
	fs.BoolVar(&opts.aggregate, "aggregate", false, "also print per-material totals across each recipe")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "enchant" {
			opts.enchantSet = true
		}
	})
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, errors.New("exactly one item id is required")
	}
	opts.itemID = fs.Arg(0)
	return opts, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "craftcalc: %v\n", err)
		os.Exit(2)
	}

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "craftcalc: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	loader := &data.Loader{
		NamesSource: cfg.Data.NamesSource,
		ItemsSource: cfg.Data.ItemsSource,
		Client:      &http.Client{Timeout: cfg.Data.FetchTimeout},
	}
	catalog, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading item data: %w", err)
	}

	item, err := catalog.Lookup(opts.itemID)
	if err != nil {
		if errors.Is(err, data.ErrItemNotFound) {
			return notFoundError(catalog, opts.itemID)
		}
		return err
	}

	sess := session.New(catalog, cfg.Prices.FallbackPrice, cfg.RenderBaseURL)
	sess.SetItem(item)
	if opts.enchantSet {
		if err := sess.SetEnchantment(opts.enchant); err != nil {
			return err
		}
	}
	locations := []string(opts.locations)
	if len(locations) == 0 {
		locations = cfg.Prices.Locations
	}
	sess.SetLocations(locations...)
	for i, p := range opts.sales {
		if err := sess.SetSalePrice(i, p); err != nil {
			return err
		}
	}

	var feed session.PriceSource
	if !opts.offline && !cfg.Prices.Disabled {
		feed = pricefeed.New(pricefeed.Options{
			BaseURL:           cfg.Prices.BaseURL,
			Timeout:           cfg.Prices.Timeout,
			RequestsPerMinute: cfg.Prices.RequestsPerMinute,
			MaxIDsPerRequest:  cfg.Prices.MaxIDsPerRequest,
		})
	}
	if _, err := sess.RefreshPrices(ctx, feed); err != nil {
		slog.Warn("price feed unavailable, using fallback prices", "error", err)
	}

	v := sess.View()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return printReport(out, v, opts.aggregate)
}

func notFoundError(c *data.Catalog, id string) error {
	msg := fmt.Sprintf("item %q not found", id)
	if s := c.Suggest(id, 3); len(s) > 0 {
		names := make([]string, len(s))
		for i, sug := range s {
			names[i] = sug.UniqueID
		}
		msg += "; did you mean " + strings.Join(names, ", ") + "?"
	}
	return errors.New(msg)
}
