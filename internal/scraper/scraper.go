// Package scraper runs one load, extract and write cycle against a single
// browser session.
package scraper

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Smackface/go-listing-scraper/internal/browser"
	"github.com/Smackface/go-listing-scraper/internal/config"
	"github.com/Smackface/go-listing-scraper/internal/extract"
	"github.com/Smackface/go-listing-scraper/internal/loader"
	"github.com/Smackface/go-listing-scraper/internal/output"
)

// Result summarizes a finished run.
type Result struct {
	Path         string `json:"path"`
	SnapshotPath string `json:"snapshot_path,omitempty"`
	Records      int    `json:"records"`
	Skipped      int    `json:"skipped"`
	Loads        int    `json:"loads"`
	Listings     int    `json:"listings"`
}

// Run scrapes cfg.URL with a session from open and writes the records.
// The session is closed before Run returns, whatever the outcome. An empty
// URL returns loader.ErrConfigMissing without starting a browser.
func Run(ctx context.Context, cfg config.Config, open browser.Opener, log *zap.Logger) (Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return Result{}, loader.ErrConfigMissing
	}

	sess, err := open(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("failed to close browser session", zap.Error(cerr))
		}
	}()

	l := loader.New(sess, loader.Options{
		ListingSelector:  cfg.Selectors.Listing,
		LoadMoreSelector: cfg.Selectors.LoadMore,
		CookieSelector:   cfg.Selectors.CookieBanner,
		WaitTimeout:      cfg.WaitTimeout,
		MaxLoads:         cfg.MaxLoads,
	}, log.Named("loader"))

	page, err := l.Load(ctx, cfg.URL)
	if err != nil {
		return Result{}, err
	}

	ext := extract.New(extract.Options{
		ListingSelector: cfg.Selectors.Listing,
		IDAttr:          cfg.Selectors.IDAttr,
		TitleSelector:   cfg.Selectors.Title,
	}, log.Named("extract"))
	extracted := ext.Extract(page.Doc)

	res := Result{
		Records:  len(extracted.Records),
		Skipped:  len(extracted.Skipped),
		Loads:    page.Loads,
		Listings: page.Listings,
	}

	res.Path, err = output.WriteJSON(extracted.Records, cfg.Output.Folder, cfg.Output.Filename)
	if err != nil {
		return res, err
	}

	if cfg.Output.Snapshot {
		res.SnapshotPath, err = output.WriteSnapshot(page.Source, cfg.Output.Folder, SnapshotName(cfg.Output.Filename))
		if err != nil {
			return res, err
		}
	}

	log.Info("scrape finished",
		zap.String("path", res.Path),
		zap.Int("records", res.Records),
		zap.Int("skipped", res.Skipped),
		zap.Int("loads", res.Loads),
		zap.String("snapshot", res.SnapshotPath),
	)
	return res, nil
}

// SnapshotName derives the page snapshot file name from the records file
// name, e.g. extracted_data.json becomes extracted_data.html.
func SnapshotName(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ".html"
}
