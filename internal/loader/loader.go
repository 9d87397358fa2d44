// Package loader drives a browser session through a "load more" paginated
// listing page and returns the fully rendered document.
package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/Smackface/go-listing-scraper/internal/browser"
)

var (
	// ErrConfigMissing means no target URL was provided; nothing was loaded.
	ErrConfigMissing = errors.New("loader: target url is not set")
	// ErrNoContent means no listing heading appeared within the wait.
	ErrNoContent = errors.New("loader: no listings appeared")
)

// LoaderError wraps an unexpected automation failure.
type LoaderError struct {
	Op  string
	Err error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("loader: %s: %v", e.Op, e.Err)
}

func (e *LoaderError) Unwrap() error { return e.Err }

// Options configure the selectors and bounds of a load.
type Options struct {
	ListingSelector  string
	LoadMoreSelector string
	// CookieSelector may be empty to skip cookie banner handling.
	CookieSelector string
	WaitTimeout    time.Duration
	// MaxLoads caps load-more activations; zero or less means no cap.
	MaxLoads int
}

// Page is the rendered document after pagination finished.
type Page struct {
	URL    string
	Source string
	Doc    *goquery.Document
	// Loads is the number of load-more clicks that produced new listings.
	Loads int
	// Listings is the heading count observed when pagination stopped.
	Listings int
}

// Loader runs the pagination loop on a driver it does not own.
type Loader struct {
	driver browser.Driver
	opts   Options
	log    *zap.Logger
}

// New returns a Loader for d.
func New(d browser.Driver, opts Options, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{driver: d, opts: opts, log: log}
}

// Load navigates to url and clicks the load-more control until it is gone,
// disabled, or stops producing listings.
func (l *Loader) Load(ctx context.Context, url string) (*Page, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrConfigMissing
	}
	log := l.log.With(zap.String("url", url))

	log.Info("navigating")
	if err := l.driver.Navigate(ctx, url); err != nil {
		return nil, &LoaderError{Op: "navigate", Err: err}
	}

	if err := l.dismissCookieBanner(ctx, log); err != nil {
		return nil, err
	}

	log.Info("waiting for first listings")
	if err := l.driver.WaitPresent(ctx, l.opts.ListingSelector, l.opts.WaitTimeout); err != nil {
		if errors.Is(err, browser.ErrWaitTimeout) {
			return nil, fmt.Errorf("%w: %s", ErrNoContent, l.opts.ListingSelector)
		}
		return nil, &LoaderError{Op: "wait for listings", Err: err}
	}

	count, err := l.driver.Count(ctx, l.opts.ListingSelector)
	if err != nil {
		return nil, &LoaderError{Op: "count listings", Err: err}
	}
	log.Info("initial listings loaded", zap.Int("listings", count))

	loads, count, err := l.paginate(ctx, log, count)
	if err != nil {
		return nil, err
	}

	src, err := l.driver.PageSource(ctx)
	if err != nil {
		return nil, &LoaderError{Op: "page source", Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, &LoaderError{Op: "parse page source", Err: err}
	}

	log.Info("page fully loaded", zap.Int("loads", loads), zap.Int("listings", count))
	return &Page{URL: url, Source: src, Doc: doc, Loads: loads, Listings: count}, nil
}

// dismissCookieBanner removes the consent overlay from the DOM when it shows
// up within the wait. A missing banner, or a failing removal script, is only
// logged.
func (l *Loader) dismissCookieBanner(ctx context.Context, log *zap.Logger) error {
	sel := l.opts.CookieSelector
	if sel == "" {
		return nil
	}

	err := l.driver.WaitPresent(ctx, sel, l.opts.WaitTimeout)
	if err == nil {
		err = l.driver.Exec(ctx, browser.RemoveElementScript(sel))
		if err == nil {
			log.Info("cookie banner removed", zap.String("selector", sel))
			return nil
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &LoaderError{Op: "cookie banner", Err: ctxErr}
	}
	if errors.Is(err, browser.ErrWaitTimeout) {
		log.Info("cookie banner not found", zap.String("selector", sel))
		return nil
	}
	log.Warn("could not remove cookie banner", zap.String("selector", sel), zap.Error(err))
	return nil
}

// paginate clicks the load-more control while it keeps adding listings and
// returns the number of productive clicks and the final listing count.
func (l *Loader) paginate(ctx context.Context, log *zap.Logger, count int) (int, int, error) {
	loads := 0
	for {
		if l.opts.MaxLoads > 0 && loads >= l.opts.MaxLoads {
			log.Warn("load-more cap reached, stopping pagination", zap.Int("max_loads", l.opts.MaxLoads))
			return loads, count, nil
		}

		state, err := l.driver.Control(ctx, l.opts.LoadMoreSelector)
		if err != nil {
			return loads, count, &LoaderError{Op: "inspect load-more control", Err: err}
		}
		switch state {
		case browser.ControlNotFound:
			log.Info("load-more control not found, pagination finished")
			return loads, count, nil
		case browser.ControlNotActionable:
			log.Info("load-more control is not clickable, pagination finished")
			return loads, count, nil
		}

		if err := l.driver.Click(ctx, l.opts.LoadMoreSelector, l.opts.WaitTimeout); err != nil {
			return loads, count, &LoaderError{Op: "click load-more control", Err: err}
		}

		err = l.driver.WaitCountAbove(ctx, l.opts.ListingSelector, count, l.opts.WaitTimeout)
		if errors.Is(err, browser.ErrWaitTimeout) {
			log.Info("no new listings after click, pagination finished", zap.Int("listings", count))
			return loads, count, nil
		}
		if err != nil {
			return loads, count, &LoaderError{Op: "wait for new listings", Err: err}
		}

		n, err := l.driver.Count(ctx, l.opts.ListingSelector)
		if err != nil {
			return loads, count, &LoaderError{Op: "count listings", Err: err}
		}
		count = n
		loads++
		log.Debug("more listings loaded", zap.Int("loads", loads), zap.Int("listings", count))
	}
}
