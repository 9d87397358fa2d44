// Package extract turns a rendered listing page into records.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/Smackface/go-listing-scraper/internal/listing"
)

// genderMarker matches a whitespace-delimited "F/H", "H/H" or "H/F" suffix.
var genderMarker = regexp.MustCompile(`(?i)\s+(?:[FH]\s*/\s*H|H\s*/\s*F)(?:\s|$)`)

// CleanTitle trims the title and cuts it at the first gender marker, keeping
// the text before it. Inner whitespace is left as found on the page.
func CleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if loc := genderMarker.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return strings.TrimSpace(s)
}

// Options name the selectors records are read from.
type Options struct {
	ListingSelector string
	IDAttr          string
	TitleSelector   string
}

// Skip describes a listing element that produced no record.
type Skip struct {
	Index  int
	Reason string
}

func (s Skip) String() string {
	return fmt.Sprintf("listing %d: %s", s.Index, s.Reason)
}

// Result holds the records of a page in document order plus the elements
// that were skipped.
type Result struct {
	Records []listing.Record
	Skipped []Skip
}

type Extractor struct {
	opts Options
	log  *zap.Logger
}

func New(opts Options, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{opts: opts, log: log}
}

// Extract reads one record per listing heading. Elements missing the id
// attribute or the title element are skipped and logged; empty values are
// kept. Records is never nil.
func (e *Extractor) Extract(doc *goquery.Document) Result {
	res := Result{Records: []listing.Record{}}
	if doc == nil {
		return res
	}

	doc.Find(e.opts.ListingSelector).Each(func(i int, s *goquery.Selection) {
		rec, reason := e.record(s)
		if reason != "" {
			skip := Skip{Index: i, Reason: reason}
			e.log.Warn("skipping listing", zap.Int("index", i), zap.String("reason", reason))
			res.Skipped = append(res.Skipped, skip)
			return
		}
		res.Records = append(res.Records, rec)
	})
	return res
}

// ExtractHTML parses src and extracts its records.
func (e *Extractor) ExtractHTML(src string) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse html: %w", err)
	}
	return e.Extract(doc), nil
}

func (e *Extractor) record(s *goquery.Selection) (listing.Record, string) {
	id, ok := s.Attr(e.opts.IDAttr)
	if !ok {
		return listing.Record{}, "missing " + e.opts.IDAttr + " attribute"
	}

	title := s.Find(e.opts.TitleSelector).First()
	if title.Length() == 0 {
		return listing.Record{}, "missing title element"
	}
	return listing.Record{IDURL: id, Title: CleanTitle(title.Text())}, ""
}
