package output

import (
	"fmt"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

func snapshotMinifier() *minify.M {
	m := minify.New()
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	return m
}

// MinifyHTML strips comments and redundant whitespace from a rendered page.
func MinifyHTML(src string) (string, error) {
	out, err := snapshotMinifier().String("text/html", src)
	if err != nil {
		return "", fmt.Errorf("failed to minify html: %w", err)
	}
	return out, nil
}

// WriteSnapshot stores a minified copy of src in folder under the same
// naming policy as WriteJSON.
func WriteSnapshot(src, folder, filename string) (string, error) {
	out, err := MinifyHTML(src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return WriteFile([]byte(out), folder, filename)
}
