// Package browser wraps the browser automation libraries behind the small
// set of operations the page loader needs.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrWaitTimeout is returned when a bounded wait expires before its
// condition held. It is distinct from a driver failure.
var ErrWaitTimeout = errors.New("browser: wait timed out")

// ControlState is the outcome of looking up the load-more control.
type ControlState int

const (
	ControlNotFound ControlState = iota
	ControlNotActionable
	ControlFound
)

func (s ControlState) String() string {
	switch s {
	case ControlNotFound:
		return "not_found"
	case ControlNotActionable:
		return "not_actionable"
	case ControlFound:
		return "found"
	default:
		return fmt.Sprintf("ControlState(%d)", int(s))
	}
}

// Driver is a live page in an automation session.
type Driver interface {
	// Navigate loads url in the page.
	Navigate(ctx context.Context, url string) error
	// WaitPresent blocks until selector matches at least one element.
	WaitPresent(ctx context.Context, selector string, timeout time.Duration) error
	// Count returns how many elements match selector.
	Count(ctx context.Context, selector string) (int, error)
	// Control reports whether the first element matching selector exists and
	// is visible and enabled.
	Control(ctx context.Context, selector string) (ControlState, error)
	// Click activates the first element matching selector.
	Click(ctx context.Context, selector string, timeout time.Duration) error
	// WaitCountAbove blocks until more than n elements match selector.
	WaitCountAbove(ctx context.Context, selector string, n int, timeout time.Duration) error
	// Exec runs a script against the live document.
	Exec(ctx context.Context, script string) error
	// PageSource returns the serialized document.
	PageSource(ctx context.Context) (string, error)
}

// Session is a Driver that owns an automation process. Close must be called
// exactly once by the owner; extra calls are no-ops.
type Session interface {
	Driver
	Close() error
}

var (
	_ Session = (*Chrome)(nil)
	_ Session = (*Playwright)(nil)
)

// Opener starts a new Session.
type Opener func(ctx context.Context) (Session, error)

// Options tune how the browser process is started.
type Options struct {
	Headless  bool
	UserAgent string
	Logger    *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// NewOpener returns the Opener for the named driver.
func NewOpener(driver string, opts Options) (Opener, error) {
	switch driver {
	case "chromedp", "":
		return func(ctx context.Context) (Session, error) {
			c, err := NewChrome(ctx, opts)
			if err != nil {
				return nil, err
			}
			return c, nil
		}, nil
	case "playwright":
		return func(context.Context) (Session, error) {
			p, err := NewPlaywright(opts)
			if err != nil {
				return nil, err
			}
			return p, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown browser driver %q", driver)
	}
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// controlJS reports the state of the first element matching a selector.
// The selector is substituted as a jsString.
const controlJS = `(() => {
	const el = document.querySelector(%s);
	if (!el) return 0;
	const style = window.getComputedStyle(el);
	const visible = style.display !== 'none' && style.visibility !== 'hidden' &&
		el.getClientRects().length > 0;
	if (!visible || el.disabled || el.getAttribute('aria-disabled') === 'true') return 1;
	return 2;
})()`

// countJS counts the elements matching a selector.
const countJS = `document.querySelectorAll(%s).length`

func controlScript(selector string) string {
	return fmt.Sprintf(controlJS, jsString(selector))
}

func countScript(selector string) string {
	return fmt.Sprintf(countJS, jsString(selector))
}

// RemoveElementScript removes the first element matching selector from
// the document.
func RemoveElementScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (el) { el.remove(); }
	return true;
})()`, jsString(selector))
}

func stateFromJS(v int) ControlState {
	switch v {
	case 2:
		return ControlFound
	case 1:
		return ControlNotActionable
	default:
		return ControlNotFound
	}
}
