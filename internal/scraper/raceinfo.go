package scraper

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/race-results/internal/fetch"
)

var errNoInfoURL = errors.New("site has no race info page")

var (
	longDatePattern = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	isoDatePattern  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

// infoResolver implements GetRaceInfo for every source; only the way runners are
// searched differs between site types.
type infoResolver struct {
	year int
	site SiteConfig
	deps Deps
}

func (r *infoResolver) GetRaceInfo(ctx context.Context) (*RaceInfo, error) {
	info := &RaceInfo{
		Location:        r.site.Location,
		EventTypes:      append([]string(nil), r.site.EventTypes...),
		ResultsURL:      expandTemplate(r.site.ResultsURL, r.year, ""),
		ResultsSiteType: string(r.site.Type),
	}

	log := r.deps.Logger.WithField("site", r.site.Key).WithField("year", r.year)

	date, err := r.officialDate(ctx)
	if err == nil {
		info.RaceDate = &date
		return info, nil
	}

	log.WithError(err).Warn("race info unavailable, using approximate date")
	approx, aerr := ApproximateDate(r.site.DateRule, r.year)
	if aerr != nil {
		log.WithError(aerr).Error("cannot compute approximate race date")
		return info, nil
	}
	info.RaceDate = &approx
	info.Approximate = true
	return info, nil
}

func (r *infoResolver) officialDate(ctx context.Context) (time.Time, error) {
	if r.site.InfoURL == "" {
		return time.Time{}, errNoInfoURL
	}
	pageURL := expandTemplate(r.site.InfoURL, r.year, "")

	page, err := r.deps.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return time.Time{}, err
	}

	var text string
	if r.site.DateSelector != "" {
		doc, err := fetch.Document(page.HTML)
		if err != nil {
			return time.Time{}, err
		}
		text = doc.Find(r.site.DateSelector).First().Text()
	} else {
		text, err = fetch.ExtractMainText(page.HTML, fetch.RaceInfoSelectors())
		if err != nil {
			return time.Time{}, err
		}
	}

	date, ok := findDate(text, r.year)
	if !ok {
		return time.Time{}, errors.New("no race date for the edition year on info page")
	}
	return date, nil
}

// findDate returns the first date in text that falls in year.
func findDate(text string, year int) (time.Time, bool) {
	for _, m := range longDatePattern.FindAllStringSubmatch(text, -1) {
		month, err := parseMonth(m[1])
		if err != nil {
			continue
		}
		day, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if y != year {
			continue
		}
		t := time.Date(y, month, day, 0, 0, 0, 0, time.UTC)
		if t.Month() == month {
			return t, true
		}
	}
	for _, m := range isoDatePattern.FindAllStringSubmatch(text, -1) {
		t, err := time.Parse("2006-01-02", m[0])
		if err == nil && t.Year() == year {
			return t, true
		}
	}
	return time.Time{}, false
}

func expandTemplate(tmpl string, year int, name string) string {
	return strings.NewReplacer(
		"{year}", strconv.Itoa(year),
		"{name}", url.QueryEscape(name),
	).Replace(tmpl)
}
