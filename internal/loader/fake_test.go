package loader_test

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Smackface/go-listing-scraper/internal/browser"
)

const (
	listingSel  = "h2[data-intitule-offre]"
	loadMoreSel = ".btn.btn-primary"
	cookieSel   = "pe-cookies"
)

// fakePage simulates a listing page whose load-more control can be clicked
// clicksLeft times, each click rendering perClick new headings.
type fakePage struct {
	listings   int
	clicksLeft int
	perClick   int
	disabled   bool
	cookie     bool
	stall      bool
	fail       map[string]error
	cancelOn   string
	cancel     context.CancelFunc

	navigations []string
	clicks      int
	execs       []string
}

func (f *fakePage) failure(op string) error {
	if f.cancelOn == op && f.cancel != nil {
		f.cancel()
	}
	return f.fail[op]
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	if err := f.failure("navigate"); err != nil {
		return err
	}
	f.navigations = append(f.navigations, url)
	return nil
}

func (f *fakePage) WaitPresent(ctx context.Context, selector string, _ time.Duration) error {
	if err := f.failure("wait:" + selector); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	switch selector {
	case cookieSel:
		if f.cookie {
			return nil
		}
	case listingSel:
		if f.listings > 0 {
			return nil
		}
	}
	return fmt.Errorf("wait for %s: %w", selector, browser.ErrWaitTimeout)
}

func (f *fakePage) Count(_ context.Context, selector string) (int, error) {
	if err := f.failure("count"); err != nil {
		return 0, err
	}
	if selector == listingSel {
		return f.listings, nil
	}
	return 0, nil
}

func (f *fakePage) Control(_ context.Context, _ string) (browser.ControlState, error) {
	if err := f.failure("control"); err != nil {
		return browser.ControlNotFound, err
	}
	switch {
	case f.clicksLeft <= 0:
		return browser.ControlNotFound, nil
	case f.disabled:
		return browser.ControlNotActionable, nil
	default:
		return browser.ControlFound, nil
	}
}

func (f *fakePage) Click(_ context.Context, _ string, _ time.Duration) error {
	if err := f.failure("click"); err != nil {
		return err
	}
	f.clicks++
	f.clicksLeft--
	if !f.stall {
		f.listings += f.perClick
	}
	return nil
}

func (f *fakePage) WaitCountAbove(_ context.Context, _ string, n int, _ time.Duration) error {
	if err := f.failure("wait-more"); err != nil {
		return err
	}
	if f.listings > n {
		return nil
	}
	return browser.ErrWaitTimeout
}

func (f *fakePage) Exec(_ context.Context, script string) error {
	f.execs = append(f.execs, script)
	return f.failure("exec")
}

func (f *fakePage) PageSource(_ context.Context) (string, error) {
	if err := f.failure("source"); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for i := 0; i < f.listings; i++ {
		fmt.Fprintf(&b, `<li><h2 data-intitule-offre="%03d"><span class="media-heading-title">Offre %d</span></h2></li>`, i, i)
	}
	b.WriteString("</ul></body></html>")
	return b.String(), nil
}
