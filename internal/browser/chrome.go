package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// pollInterval is how often WaitCountAbove re-evaluates its condition.
const pollInterval = 100 * time.Millisecond

// Chrome is a Session backed by a chromedp-controlled Chrome process.
type Chrome struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	log         *zap.Logger

	once     sync.Once
	closeErr error
}

// NewChrome launches Chrome and opens one tab. The parent context bounds the
// lifetime of the browser process.
func NewChrome(parent context.Context, opts Options) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1440, 900),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	log := opts.logger().With(zap.String("driver", "chromedp"))
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			log.Sugar().Debugf(format, args...)
		}),
	)

	c := &Chrome{ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc, log: log}

	// The first Run allocates the browser; it must use the tab context itself
	// so later per-action timeouts do not tear the browser down.
	if err := chromedp.Run(tabCtx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	log.Debug("chrome started", zap.Bool("headless", opts.Headless))
	return c, nil
}

// run executes actions on the tab, bounded by timeout when positive and
// cancelled together with ctx.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(c.ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(c.ctx)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if err := c.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (c *Chrome) WaitPresent(ctx context.Context, selector string, timeout time.Duration) error {
	err := c.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("wait for %s: %w", selector, ErrWaitTimeout)
	default:
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
}

func (c *Chrome) Count(ctx context.Context, selector string) (int, error) {
	var n int
	if err := c.run(ctx, 0, chromedp.Evaluate(countScript(selector), &n)); err != nil {
		return 0, fmt.Errorf("count %s: %w", selector, err)
	}
	return n, nil
}

func (c *Chrome) Control(ctx context.Context, selector string) (ControlState, error) {
	var v int
	if err := c.run(ctx, 0, chromedp.Evaluate(controlScript(selector), &v)); err != nil {
		return ControlNotFound, fmt.Errorf("inspect %s: %w", selector, err)
	}
	return stateFromJS(v), nil
}

func (c *Chrome) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := c.run(ctx, timeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (c *Chrome) WaitCountAbove(ctx context.Context, selector string, n int, timeout time.Duration) error {
	var ok bool
	expr := fmt.Sprintf("%s > %d", countScript(selector), n)
	err := c.run(ctx, 0, chromedp.Poll(expr, &ok,
		chromedp.WithPollingInterval(pollInterval),
		chromedp.WithPollingTimeout(timeout),
	))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, chromedp.ErrPollingTimeout):
		return fmt.Errorf("wait for more than %d %s: %w", n, selector, ErrWaitTimeout)
	default:
		return fmt.Errorf("wait for more than %d %s: %w", n, selector, err)
	}
}

func (c *Chrome) Exec(ctx context.Context, script string) error {
	if err := c.run(ctx, 0, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("exec script: %w", err)
	}
	return nil
}

func (c *Chrome) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("grab page html: %w", err)
	}
	if html == "" {
		return "", errors.New("page html is empty")
	}
	return html, nil
}

// Close shuts the tab and the browser process down.
func (c *Chrome) Close() error {
	c.once.Do(func() {
		c.closeErr = chromedp.Cancel(c.ctx)
		c.cancelTab()
		c.cancelAlloc()
		if errors.Is(c.closeErr, context.Canceled) {
			c.closeErr = nil
		}
		c.log.Debug("chrome closed")
	})
	return c.closeErr
}
