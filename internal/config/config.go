package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"catalog-aggregator-api/pkg/cache"
)

// AppConfig is every setting of the server, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Port      string `envconfig:"PORT" default:"8085"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	CatalogID       string        `envconfig:"CATALOG_ID" default:"products"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"30m"`
	RefreshTimeout  time.Duration `envconfig:"REFRESH_TIMEOUT" default:"60s"`
	RefreshOnStart  bool          `envconfig:"REFRESH_ON_START" default:"true"`

	DefaultPageSize int `envconfig:"DEFAULT_PAGE_SIZE" default:"12"`
	MaxPageSize     int `envconfig:"MAX_PAGE_SIZE" default:"100"`

	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"10"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"20"`

	Redis cache.Config

	Scraper ScraperConfig
}

// ScraperConfig is read with the SCRAPER_ prefix. Empty URLs disable the
// corresponding source.
type ScraperConfig struct {
	DedicatedAPIURL  string        `envconfig:"DEDICATED_API_URL" default:"https://www.dedicatedbrand.com/en/loadfilter"`
	DedicatedShopURL string        `envconfig:"DEDICATED_SHOP_URL"`
	DedicatedBaseURL string        `envconfig:"DEDICATED_BASE_URL" default:"https://www.dedicatedbrand.com/en/"`
	BrowserEnabled   bool          `envconfig:"BROWSER_ENABLED" default:"false"`
	BrowserURL       string        `envconfig:"BROWSER_URL"`
	BrowserExecPath  string        `envconfig:"BROWSER_EXEC_PATH"`
	BrowserSettle    time.Duration `envconfig:"BROWSER_SETTLE" default:"3s"`
	UserAgent        string        `split_words:"true"`
	Delay            time.Duration `default:"1s"`
	Timeout          time.Duration `default:"30s"`
}

// Load reads an optional env file, then the process environment.
// A missing env file is reported through loadedEnvFile, not as an error.
func Load(envFile string) (cfg AppConfig, loadedEnvFile bool, err error) {
	if envFile != "" {
		loadedEnvFile = godotenv.Load(envFile) == nil
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, loadedEnvFile, fmt.Errorf("process environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, loadedEnvFile, err
	}

	return cfg, loadedEnvFile, nil
}

func (c AppConfig) Validate() error {
	if c.DefaultPageSize < 1 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be at least 1, got %d", c.DefaultPageSize)
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("MAX_PAGE_SIZE (%d) must not be below DEFAULT_PAGE_SIZE (%d)", c.MaxPageSize, c.DefaultPageSize)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit must be positive, got %v rps burst %d", c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.CatalogID == "" {
		return fmt.Errorf("CATALOG_ID must not be empty")
	}
	return nil
}
