package model

import (
	"fmt"
	"runtime"
	"time"
)

// Config is the complete gpuscout configuration
type Config struct {
	Engine       Tables              `yaml:"engine" mapstructure:"engine"`
	Concurrency  ConcurrencyConfig   `yaml:"concurrency" mapstructure:"concurrency"`
	Cache        CacheConfig         `yaml:"cache" mapstructure:"cache"`
	HTTP         HTTPConfig          `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitConfig     `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Marketplaces []MarketplaceConfig `yaml:"marketplaces" mapstructure:"marketplaces"`
	Output       OutputConfig        `yaml:"output" mapstructure:"output"`
	Store        StoreConfig         `yaml:"store" mapstructure:"store"`
	Server       ServerConfig        `yaml:"server" mapstructure:"server"`
	Logging      LoggingConfig       `yaml:"logging" mapstructure:"logging"`
}

// ConcurrencyConfig controls batch parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// CacheConfig controls the standardized record cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// HTTPConfig controls marketplace page fetching
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitConfig controls per-domain request pacing
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// MarketplaceConfig names a marketplace and how its result pages are laid out
type MarketplaceConfig struct {
	Name      string    `yaml:"name" mapstructure:"name"`
	Selectors Selectors `yaml:"selectors" mapstructure:"selectors"`
}

// Selectors are the class names that identify listing parts in a result page.
// Each field may hold several space-separated alternatives; the first present wins.
type Selectors struct {
	Item      string `yaml:"item" mapstructure:"item"`
	Title     string `yaml:"title" mapstructure:"title"`
	Price     string `yaml:"price" mapstructure:"price"`
	Condition string `yaml:"condition,omitempty" mapstructure:"condition"`
	Location  string `yaml:"location,omitempty" mapstructure:"location"`
	Link      string `yaml:"link,omitempty" mapstructure:"link"`
}

// OutputConfig controls what the standardize pipeline emits
type OutputConfig struct {
	Format        string   `yaml:"format" mapstructure:"format"` // jsonl or csv
	MinConfidence float64  `yaml:"min_confidence" mapstructure:"min_confidence"`
	Series        []string `yaml:"series,omitempty" mapstructure:"series"` // Keep only these series when set
	Verbose       bool     `yaml:"verbose" mapstructure:"verbose"`
}

// StoreConfig selects the SQL database records are persisted to
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // sqlite3 or postgres
	DSN    string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Engine: DefaultTables(),
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".gpuscout-cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "gpuscout/0.1 (+https://github.com/ppiankov/gpuscout)",
			MaxBodyBytes:  5_000_000,
			RespectRobots: true,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 0.5,
			BurstSize:         1,
		},
		Marketplaces: []MarketplaceConfig{
			{
				Name: "ebay",
				Selectors: Selectors{
					Item:      "s-item",
					Title:     "s-item__title",
					Price:     "s-item__price",
					Condition: "SECONDARY_INFO",
					Location:  "s-item__location",
					Link:      "s-item__link",
				},
			},
			{
				Name: "gumtree",
				Selectors: Selectors{
					Item:      "listing-maxi natural",
					Title:     "listing-title listing-link",
					Price:     "listing-price amount",
					Location:  "listing-location location",
					Condition: "listing-condition",
					Link:      "listing-link",
				},
			},
		},
		Output: OutputConfig{
			Format: "jsonl",
		},
		Store: StoreConfig{
			Driver: "sqlite3",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Marketplace returns the selectors configured for a marketplace
func (c *Config) Marketplace(name string) (MarketplaceConfig, bool) {
	for _, m := range c.Marketplaces {
		if m.Name == name {
			return m, true
		}
	}
	return MarketplaceConfig{}, false
}

// Validate checks configuration ranges
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if c.Output.MinConfidence < 0 || c.Output.MinConfidence > 1 {
		return fmt.Errorf("output: min_confidence must be within [0, 1], got %v", c.Output.MinConfidence)
	}
	switch c.Output.Format {
	case "jsonl", "csv":
	default:
		return fmt.Errorf("output: unsupported format %q (want jsonl or csv)", c.Output.Format)
	}
	switch c.Store.Driver {
	case "", "sqlite3", "postgres":
	default:
		return fmt.Errorf("store: unsupported driver %q (want sqlite3 or postgres)", c.Store.Driver)
	}
	return nil
}
