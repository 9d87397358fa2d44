package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Smackface/go-listing-scraper/internal/browser"
	"github.com/Smackface/go-listing-scraper/internal/config"
	"github.com/Smackface/go-listing-scraper/internal/listing"
	"github.com/Smackface/go-listing-scraper/internal/loader"
	"github.com/Smackface/go-listing-scraper/internal/logger"
	"github.com/Smackface/go-listing-scraper/internal/scraper"
)

var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "listing-scraper",
		Short:         "Scrape a paginated job listing page into a JSON file",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runScrape,
	}
	addConfigFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "scrape",
			Short: "Load every listing of the page and write them as JSON",
			Args:  cobra.NoArgs,
			RunE:  runScrape,
		},
		&cobra.Command{
			Use:   "schema",
			Short: "Print the JSON schema of the output file",
			Args:  cobra.NoArgs,
			RunE:  runSchema,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "listing-scraper version %s\n", version)
			},
		},
	)
	return root
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.URL == "" {
		log.Warn("no target url configured, nothing to scrape", zap.String("env", config.URLEnv))
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	open, err := browser.NewOpener(cfg.Browser.Driver, browser.Options{
		Headless:  cfg.Browser.Headless,
		UserAgent: cfg.Browser.UserAgent,
		Logger:    log.Named("browser"),
	})
	if err != nil {
		return err
	}

	res, err := scraper.Run(ctx, cfg, open, log)
	if errors.Is(err, loader.ErrConfigMissing) {
		log.Warn("no target url configured, nothing to scrape")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d listings saved to %s\n", res.Records, res.Path)
	return nil
}

func runSchema(cmd *cobra.Command, _ []string) error {
	schema, err := listing.Schema()
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
