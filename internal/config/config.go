package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the albioncraft service and CLI.
type Config struct {
	// Network
	BindAddress string `yaml:"bind_address" env:"BIND_ADDRESS"`
	Port        int    `yaml:"port" env:"PORT"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"` // debug|info|warn|error

	Data   DataConfig   `yaml:"data" envPrefix:"DATA_"`
	Prices PricesConfig `yaml:"prices" envPrefix:"PRICES_"`

	// Image renderer, e.g. https://render.albiononline.com/v1/item
	RenderBaseURL string `yaml:"render_base_url" env:"RENDER_BASE_URL"`

	// Page template overrides; empty uses the built-in templates.
	TemplatesDir string `yaml:"templates_dir" env:"TEMPLATES_DIR"`
}

// DataConfig points at the two static item resources.
// A source is either a local path or an http(s) URL.
type DataConfig struct {
	NamesSource     string        `yaml:"names_source" env:"NAMES_SOURCE"`
	ItemsSource     string        `yaml:"items_source" env:"ITEMS_SOURCE"`
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"REFRESH_INTERVAL"` // 0 = load once
	FetchTimeout    time.Duration `yaml:"fetch_timeout" env:"FETCH_TIMEOUT"`
}

// PricesConfig configures the external market price feed.
type PricesConfig struct {
	BaseURL           string        `yaml:"base_url" env:"BASE_URL"`
	Locations         []string      `yaml:"locations" env:"LOCATIONS" envSeparator:","`
	FallbackPrice     float64       `yaml:"fallback_price" env:"FALLBACK_PRICE"`
	Timeout           time.Duration `yaml:"timeout" env:"TIMEOUT"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"REQUESTS_PER_MINUTE"`
	MaxIDsPerRequest  int           `yaml:"max_ids_per_request" env:"MAX_IDS_PER_REQUEST"`
	CacheTTL          time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
	Disabled          bool          `yaml:"disabled" env:"DISABLED"`
}

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "ALBIONCRAFT_"

// Default returns Config with sensible defaults.
func Default() Config {
	return Config{
		BindAddress:   "0.0.0.0",
		Port:          8080,
		LogLevel:      "info",
		RenderBaseURL: "https://render.albiononline.com/v1/item",
		Data: DataConfig{
			NamesSource:  "data/items.txt",
			ItemsSource:  "data/Output.json",
			FetchTimeout: 30 * time.Second,
		},
		Prices: PricesConfig{
			BaseURL:           "https://west.albion-online-data.com/api/v2/stats/prices",
			Locations:         []string{"Caerleon"},
			FallbackPrice:     192,
			Timeout:           10 * time.Second,
			RequestsPerMinute: 180,
			MaxIDsPerRequest:  50,
			CacheTTL:          5 * time.Minute,
		},
	}
}

// Addr returns host:port for the HTTP listener.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}

// Validate checks values that would make the service unusable.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Data.NamesSource == "" {
		errs = append(errs, errors.New("data.names_source is empty"))
	}
	if c.Data.ItemsSource == "" {
		errs = append(errs, errors.New("data.items_source is empty"))
	}
	if c.Prices.FallbackPrice <= 0 {
		errs = append(errs, fmt.Errorf("prices.fallback_price must be positive, got %v", c.Prices.FallbackPrice))
	}
	if c.Prices.MaxIDsPerRequest <= 0 {
		errs = append(errs, fmt.Errorf("prices.max_ids_per_request must be positive, got %d", c.Prices.MaxIDsPerRequest))
	}
	if c.Prices.RequestsPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("prices.requests_per_minute must be positive, got %d", c.Prices.RequestsPerMinute))
	}
	return errors.Join(errs...)
}

// Load loads config from a YAML file and applies ALBIONCRAFT_* environment
// overrides on top. If the file doesn't exist, defaults are used.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
