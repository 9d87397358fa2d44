package browser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlStateString(t *testing.T) {
	assert.Equal(t, "not_found", ControlNotFound.String())
	assert.Equal(t, "not_actionable", ControlNotActionable.String())
	assert.Equal(t, "found", ControlFound.String())
	assert.Equal(t, "ControlState(9)", ControlState(9).String())
}

func TestStateFromJS(t *testing.T) {
	assert.Equal(t, ControlNotFound, stateFromJS(0))
	assert.Equal(t, ControlNotActionable, stateFromJS(1))
	assert.Equal(t, ControlFound, stateFromJS(2))
	assert.Equal(t, ControlNotFound, stateFromJS(-1))
}

func TestRemoveElementScript_QuotesSelector(t *testing.T) {
	script := RemoveElementScript(`div[data-x="a"]`)
	assert.Contains(t, script, `document.querySelector("div[data-x=\"a\"]")`)
	assert.Contains(t, script, "el.remove()")
}

func TestJSString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`.btn.btn-primary`, `".btn.btn-primary"`},
		{`div[data-x="a"]`, `"div[data-x=\"a\"]"`},
		{"a\u0007b", `"a\u0007b"`},
		{"offre-😀", `"offre-😀"`},
		{`a\b`, `"a\\b"`},
	}
	for _, tt := range tests {
		got := jsString(tt.in)
		assert.Equal(t, tt.want, got, "jsString(%q)", tt.in)
		assert.NotContains(t, got, `\U`)
		assert.NotContains(t, got, `\a`)
	}
}

func TestScriptsEmbedJSLiterals(t *testing.T) {
	sel := "li[data-tag=\"😀\u0007\"]"
	lit := jsString(sel)

	assert.Equal(t, "document.querySelectorAll("+lit+").length", countScript(sel))
	assert.Contains(t, controlScript(sel), "document.querySelector("+lit+")")
	assert.Contains(t, RemoveElementScript(sel), "document.querySelector("+lit+")")
}

func TestNewOpener(t *testing.T) {
	for _, name := range []string{"", "chromedp", "playwright"} {
		open, err := NewOpener(name, Options{})
		require.NoError(t, err, name)
		assert.NotNil(t, open, name)
	}

	_, err := NewOpener("selenium", Options{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "selenium"))
}

func TestChromeRunHonoursCallerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A zero Chrome has no browser; the cancelled caller context must win
	// before chromedp ever looks at it.
	c := &Chrome{ctx: context.Background()}
	err := c.run(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
