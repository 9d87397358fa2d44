package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// Playwright is a Session backed by playwright-go driving Chromium.
type Playwright struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	log     *zap.Logger

	once     sync.Once
	closeErr error
}

// NewPlaywright starts the playwright driver, launches Chromium and opens a
// page. The driver and browsers must be installed beforehand
// (go run github.com/playwright-community/playwright-go/cmd/playwright install chromium).
func NewPlaywright(opts Options) (*Playwright, error) {
	log := opts.logger().With(zap.String("driver", "playwright"))

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	p := &Playwright{pw: pw, log: log}

	p.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     []string{"--disable-gpu", "--no-sandbox", "--disable-dev-shm-usage"},
	})
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	pageOpts := playwright.BrowserNewPageOptions{}
	if opts.UserAgent != "" {
		pageOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	p.page, err = p.browser.NewPage(pageOpts)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}

	log.Debug("playwright started", zap.Bool("headless", opts.Headless))
	return p, nil
}

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

// waitErr maps playwright timeouts onto ErrWaitTimeout.
func waitErr(what string, err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%s: %w", what, ErrWaitTimeout)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (p *Playwright) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *Playwright) WaitPresent(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: millis(timeout),
	})
	if err != nil {
		return waitErr("wait for "+selector, err)
	}
	return nil
}

func (p *Playwright) Count(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.page.Locator(selector).Count()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", selector, err)
	}
	return n, nil
}

func (p *Playwright) Control(ctx context.Context, selector string) (ControlState, error) {
	n, err := p.Count(ctx, selector)
	if err != nil {
		return ControlNotFound, err
	}
	if n == 0 {
		return ControlNotFound, nil
	}

	loc := p.page.Locator(selector).First()
	visible, err := loc.IsVisible()
	if err != nil {
		return ControlNotFound, fmt.Errorf("check visibility of %s: %w", selector, err)
	}
	enabled, err := loc.IsEnabled()
	if err != nil {
		return ControlNotFound, fmt.Errorf("check enabled state of %s: %w", selector, err)
	}
	if !visible || !enabled {
		return ControlNotActionable, nil
	}
	return ControlFound, nil
}

func (p *Playwright) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: millis(timeout),
	}); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (p *Playwright) WaitCountAbove(ctx context.Context, selector string, n int, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	expr := fmt.Sprintf("() => %s > %d", countScript(selector), n)
	if _, err := p.page.WaitForFunction(expr, nil, playwright.PageWaitForFunctionOptions{
		Timeout: millis(timeout),
	}); err != nil {
		return waitErr(fmt.Sprintf("wait for more than %d %s", n, selector), err)
	}
	return nil
}

func (p *Playwright) Exec(ctx context.Context, script string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.page.Evaluate(script); err != nil {
		return fmt.Errorf("exec script: %w", err)
	}
	return nil
}

func (p *Playwright) PageSource(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	html, err := p.page.Content()
	if err != nil {
		return "", fmt.Errorf("grab page html: %w", err)
	}
	return html, nil
}

// Close shuts the browser and the playwright driver down.
func (p *Playwright) Close() error {
	p.once.Do(func() {
		var errs []error
		if p.browser != nil {
			if err := p.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close browser: %w", err))
			}
		}
		if err := p.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
		p.closeErr = errors.Join(errs...)
		p.log.Debug("playwright closed")
	})
	return p.closeErr
}
