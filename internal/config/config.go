// Package config loads the scraper settings from defaults, an optional
// config file, .env, the environment and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Smackface/go-listing-scraper/internal/logger"
)

// Browser drivers.
const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
)

// Defaults.
const (
	DefaultFolder      = "data/raw"
	DefaultFilename    = "extracted_data.json"
	DefaultWaitTimeout = 10 * time.Second
	DefaultMaxLoads    = 500
	DefaultRunTimeout  = 30 * time.Minute
	DefaultUserAgent   = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	DefaultListingSelector  = "h2[data-intitule-offre]"
	DefaultIDAttr           = "data-intitule-offre"
	DefaultTitleSelector    = "span.media-heading-title"
	DefaultLoadMoreSelector = ".btn.btn-primary"
	DefaultCookieSelector   = "pe-cookies"
)

// EnvPrefix prefixes every environment override, e.g. LISTING_OUTPUT_FOLDER.
const EnvPrefix = "LISTING"

// URLEnv is the variable the target URL has always been read from.
const URLEnv = "MY_URL"

// Config holds all runtime configuration for a run.
type Config struct {
	URL         string        `mapstructure:"url"`
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
	MaxLoads    int           `mapstructure:"max_loads"`
	RunTimeout  time.Duration `mapstructure:"run_timeout"`

	Output    Output        `mapstructure:"output"`
	Browser   Browser       `mapstructure:"browser"`
	Selectors Selectors     `mapstructure:"selectors"`
	Log       logger.Config `mapstructure:"log"`
}

// Output describes where results are written.
type Output struct {
	Folder   string `mapstructure:"folder"`
	Filename string `mapstructure:"filename"`
	Snapshot bool   `mapstructure:"snapshot"`
}

// Browser selects and tunes the automation driver.
type Browser struct {
	Driver    string `mapstructure:"driver"`
	Headless  bool   `mapstructure:"headless"`
	UserAgent string `mapstructure:"user_agent"`
}

// Selectors locate the page elements the loader and extractor work with.
type Selectors struct {
	Listing      string `mapstructure:"listing"`
	IDAttr       string `mapstructure:"id_attr"`
	Title        string `mapstructure:"title"`
	LoadMore     string `mapstructure:"load_more"`
	CookieBanner string `mapstructure:"cookie_banner"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("url", "")
	v.SetDefault("wait_timeout", DefaultWaitTimeout)
	v.SetDefault("max_loads", DefaultMaxLoads)
	v.SetDefault("run_timeout", DefaultRunTimeout)

	v.SetDefault("output.folder", DefaultFolder)
	v.SetDefault("output.filename", DefaultFilename)
	v.SetDefault("output.snapshot", false)

	v.SetDefault("browser.driver", DriverChromedp)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", DefaultUserAgent)

	v.SetDefault("selectors.listing", DefaultListingSelector)
	v.SetDefault("selectors.id_attr", DefaultIDAttr)
	v.SetDefault("selectors.title", DefaultTitleSelector)
	v.SetDefault("selectors.load_more", DefaultLoadMoreSelector)
	v.SetDefault("selectors.cookie_banner", DefaultCookieSelector)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// NewViper returns a viper instance with defaults and environment binding.
// MY_URL is honoured alongside LISTING_URL.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("url", EnvPrefix+"_URL", URLEnv)
	return v
}

// LoadDotEnv reads .env unless running inside AWS Lambda. A missing file is
// not an error.
func LoadDotEnv(paths ...string) error {
	if InLambda() {
		return nil
	}
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// InLambda reports whether the process runs inside the AWS Lambda runtime.
func InLambda() bool {
	return os.Getenv("AWS_LAMBDA_RUNTIME_API") != ""
}

// ReadFile merges a config file into v. An empty path searches for
// config.yaml in . and ./config; not finding one is fine.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes v into a validated Config.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.URL = strings.TrimSpace(cfg.URL)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings a run cannot do without. An empty URL is
// allowed: the run reports it and produces no output.
func (c Config) Validate() error {
	switch c.Browser.Driver {
	case DriverChromedp, DriverPlaywright:
	default:
		return fmt.Errorf("unknown browser driver %q", c.Browser.Driver)
	}
	if strings.TrimSpace(c.Output.Filename) == "" {
		return errors.New("output filename is required")
	}
	if c.WaitTimeout <= 0 {
		return errors.New("wait_timeout must be positive")
	}
	if c.Selectors.Listing == "" || c.Selectors.IDAttr == "" || c.Selectors.Title == "" || c.Selectors.LoadMore == "" {
		return errors.New("listing, id_attr, title and load_more selectors are required")
	}
	return nil
}
