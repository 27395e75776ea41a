package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/race-results/internal/fetch"
)

// DefaultColumns is the cell layout used when a site does not configure one:
// bib, name, time, pace.
var DefaultColumns = Columns{Bib: 0, Name: 1, Time: 2, Pace: 3, Event: -1}

// tableSource reads runners from an HTML results table. When SearchURL is set the
// site's own search narrows the table; otherwise the full results page is read
// (and shared through the page cache across a batch).
type tableSource struct {
	*infoResolver
	render bool
}

func newTableSource(render bool) Factory {
	return func(year int, site SiteConfig, deps Deps) (Scraper, error) {
		if site.Columns == (Columns{}) {
			site.Columns = DefaultColumns
		}
		return &tableSource{
			infoResolver: &infoResolver{year: year, site: site, deps: deps},
			render:       render,
		}, nil
	}
}

func (s *tableSource) SearchRunner(ctx context.Context, name string) (*SearchResult, error) {
	resultsURL := expandTemplate(s.site.ResultsURL, s.year, "")
	pageURL := resultsURL
	if s.site.SearchURL != "" {
		pageURL = expandTemplate(s.site.SearchURL, s.year, name)
	}

	html, err := s.load(ctx, pageURL)
	if err != nil {
		return nil, &FetchError{Site: s.site.Key, Message: "failed to load results page", Cause: err}
	}

	rows, err := s.parseRows(html)
	if err != nil {
		return nil, &FetchError{Site: s.site.Key, Message: "failed to parse results table", Cause: err}
	}

	s.deps.Logger.WithField("site", s.site.Key).WithField("rows", len(rows)).Debug("parsed results table")
	return Classify(name, rows, s.site, s.year, resultsURL), nil
}

func (s *tableSource) load(ctx context.Context, pageURL string) (string, error) {
	selector := s.rowSelector()
	if s.render {
		page, err := s.deps.Fetcher.Render(ctx, pageURL, selector)
		if err != nil {
			return "", err
		}
		return page.HTML, nil
	}

	page, err := s.deps.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}
	if fetch.RequiresBrowser(fetch.DetectPlatform(pageURL)) && fetch.ShouldUseBrowser(page.HTML, selector) {
		if rendered, rerr := s.deps.Fetcher.Render(ctx, pageURL, selector); rerr == nil {
			return rendered.HTML, nil
		}
	}
	return page.HTML, nil
}

func (s *tableSource) rowSelector() string {
	if s.site.RowSelector != "" {
		return s.site.RowSelector
	}
	return strings.Join(fetch.PlatformRowSelectors(fetch.DetectPlatform(s.site.ResultsURL)), ", ")
}

func (s *tableSource) parseRows(html string) ([]Candidate, error) {
	doc, err := fetch.Document(html)
	if err != nil {
		return nil, err
	}

	cols := s.site.Columns
	cellSelector := s.site.CellSelector
	if cellSelector == "" {
		cellSelector = "td"
	}
	var rows []Candidate
	doc.Find(s.rowSelector()).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find(cellSelector)
		if cells.Length() == 0 {
			return
		}
		c := Candidate{
			Name:      cellText(cells, cols.Name),
			Bib:       cellText(cells, cols.Bib),
			Time:      cellText(cells, cols.Time),
			Pace:      cellText(cells, cols.Pace),
			EventType: cellText(cells, cols.Event),
		}
		if c.Name == "" {
			return
		}
		rows = append(rows, c)
	})
	return rows, nil
}

func cellText(cells *goquery.Selection, idx int) string {
	if idx < 0 || idx >= cells.Length() {
		return ""
	}
	return strings.Join(strings.Fields(cells.Eq(idx).Text()), " ")
}
