package loader_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Smackface/go-listing-scraper/internal/browser"
	"github.com/Smackface/go-listing-scraper/internal/loader"
)

// listingPage starts with three headings and a cookie overlay. Each click on
// the button appends two headings; after the second click it removes itself.
const listingPage = `<!DOCTYPE html>
<html><body>
<pe-cookies><div style="position:fixed;inset:0">cookies</div></pe-cookies>
<ul id="results">
<li><h2 data-intitule-offre="1"><span class="media-heading-title">Plombier F/H</span></h2></li>
<li><h2 data-intitule-offre="2"><span class="media-heading-title">Soudeur</span></h2></li>
<li><h2 data-intitule-offre="3"><span class="media-heading-title">Cariste H/F</span></h2></li>
</ul>
<button class="btn btn-primary" id="more">Afficher plus</button>
<script>
let clicks = 0;
document.getElementById('more').addEventListener('click', () => {
	clicks++;
	setTimeout(() => {
		const ul = document.getElementById('results');
		for (let i = 0; i < 2; i++) {
			const n = ul.children.length + 1;
			const li = document.createElement('li');
			li.innerHTML = '<h2 data-intitule-offre="' + n + '"><span class="media-heading-title">Offre ' + n + '</span></h2>';
			ul.appendChild(li);
		}
		if (clicks >= 2) document.getElementById('more').remove();
	}, 50);
});
</script>
</body></html>`

func hasChrome() bool {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

func TestLoad_Chrome(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if !hasChrome() {
		t.Skip("chrome not installed")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sess, err := browser.NewChrome(ctx, browser.Options{Headless: true, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	defer sess.Close()

	l := loader.New(sess, loader.Options{
		ListingSelector:  listingSel,
		LoadMoreSelector: loadMoreSel,
		CookieSelector:   cookieSel,
		WaitTimeout:      5 * time.Second,
		MaxLoads:         10,
	}, zaptest.NewLogger(t))

	page, err := l.Load(ctx, srv.URL)
	require.NoError(t, err)

	assert.Equal(t, 2, page.Loads)
	assert.Equal(t, 7, page.Listings)
	assert.Equal(t, 7, page.Doc.Find(listingSel).Length())
	assert.Zero(t, page.Doc.Find(cookieSel).Length(), "cookie banner should be removed")
	assert.Zero(t, page.Doc.Find("#more").Length())
}
