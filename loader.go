package main

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Smackface/go-listing-scraper/internal/config"
)

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"url":          "url",
	"folder":       "output.folder",
	"filename":     "output.filename",
	"snapshot":     "output.snapshot",
	"driver":       "browser.driver",
	"headless":     "browser.headless",
	"user-agent":   "browser.user_agent",
	"wait-timeout": "wait_timeout",
	"max-loads":    "max_loads",
	"run-timeout":  "run_timeout",
	"log-level":    "log.level",
	"log-dev":      "log.development",
}

func addConfigFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default is ./config.yaml or ./config/config.yaml)")
	fs.String("url", "", "listing page to scrape (or set MY_URL)")
	fs.String("folder", config.DefaultFolder, "output folder")
	fs.String("filename", config.DefaultFilename, "output file name")
	fs.Bool("snapshot", false, "also save a minified copy of the rendered page")
	fs.String("driver", config.DriverChromedp, "browser driver: chromedp or playwright")
	fs.Bool("headless", true, "run the browser headless")
	fs.String("user-agent", config.DefaultUserAgent, "browser user agent")
	fs.Duration("wait-timeout", config.DefaultWaitTimeout, "bound of every page wait")
	fs.Int("max-loads", config.DefaultMaxLoads, "maximum load-more clicks, 0 for no limit")
	fs.Duration("run-timeout", config.DefaultRunTimeout, "bound of the whole run")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Bool("log-dev", false, "human readable logs")
}

// loadConfig resolves the configuration from defaults, .env, the config
// file, the environment and the flags, in increasing precedence.
func loadConfig(fs *pflag.FlagSet) (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}

	v := config.NewViper()
	path, err := fs.GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	if err := config.ReadFile(v, path); err != nil {
		return config.Config{}, err
	}
	if err := bindFlags(v, fs); err != nil {
		return config.Config{}, err
	}
	return config.Load(v)
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind %s flag: %w", name, err)
		}
	}
	return nil
}
