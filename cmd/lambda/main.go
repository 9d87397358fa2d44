// Command lambda runs a single scrape per AWS Lambda invocation.
package main

import (
	"context"
	"log"
	"path/filepath"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/Smackface/go-listing-scraper/internal/browser"
	"github.com/Smackface/go-listing-scraper/internal/config"
	"github.com/Smackface/go-listing-scraper/internal/loader"
	"github.com/Smackface/go-listing-scraper/internal/logger"
	"github.com/Smackface/go-listing-scraper/internal/scraper"
)

// Event overrides the configured target of one invocation.
type Event struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Response reports where the records were written.
type Response struct {
	Path     string `json:"path"`
	Snapshot string `json:"snapshot,omitempty"`
	Records  int    `json:"records"`
	Loads    int    `json:"loads"`
	Skipped  int    `json:"skipped"`
}

type handler struct {
	base   config.Config
	opener func(config.Config) (browser.Opener, error)
	log    *zap.Logger
}

func (h *handler) handle(ctx context.Context, ev Event) (Response, error) {
	cfg := h.base
	if u := strings.TrimSpace(ev.URL); u != "" {
		cfg.URL = u
	}
	if ev.Filename != "" {
		cfg.Output.Filename = filepath.Base(ev.Filename)
	}
	if cfg.URL == "" {
		h.log.Warn("invocation without target url", zap.String("env", config.URLEnv))
		return Response{}, loader.ErrConfigMissing
	}

	open, err := h.opener(cfg)
	if err != nil {
		return Response{}, err
	}
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}
	res, err := scraper.Run(ctx, cfg, open, h.log)
	if err != nil {
		return Response{}, err
	}
	return Response{
		Path:     res.Path,
		Snapshot: res.SnapshotPath,
		Records:  res.Records,
		Loads:    res.Loads,
		Skipped:  res.Skipped,
	}, nil
}

func chromeOpener(log *zap.Logger) func(config.Config) (browser.Opener, error) {
	return func(cfg config.Config) (browser.Opener, error) {
		return browser.NewOpener(cfg.Browser.Driver, browser.Options{
			Headless:  true,
			UserAgent: cfg.Browser.UserAgent,
			Logger:    log.Named("browser"),
		})
	}
}

// lambdaFolder moves relative output folders under /tmp, the only writable
// path in the Lambda runtime.
func lambdaFolder(folder string) string {
	if filepath.IsAbs(folder) {
		return folder
	}
	return filepath.Join("/tmp", folder)
}

func main() {
	cfg, err := config.Load(config.NewViper())
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	cfg.Output.Folder = lambdaFolder(cfg.Output.Folder)

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	h := &handler{base: cfg, opener: chromeOpener(zl), log: zl}
	zl.Info("lambda handler ready", zap.String("folder", cfg.Output.Folder), zap.String("driver", cfg.Browser.Driver))
	lambda.Start(h.handle)
}
