package scraper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// jsonSource queries a participant search endpoint that answers with JSON.
type jsonSource struct {
	*infoResolver
}

func newJSONSource(year int, site SiteConfig, deps Deps) (Scraper, error) {
	if site.SearchURL == "" {
		return nil, fmt.Errorf("json_api site %s requires search_url", site.Key)
	}
	if site.Fields.Name == "" {
		return nil, fmt.Errorf("json_api site %s requires fields.name", site.Key)
	}
	return &jsonSource{infoResolver: &infoResolver{year: year, site: site, deps: deps}}, nil
}

func (s *jsonSource) SearchRunner(ctx context.Context, name string) (*SearchResult, error) {
	searchURL := expandTemplate(s.site.SearchURL, s.year, name)

	var body any
	if _, err := s.deps.Fetcher.FetchJSON(ctx, searchURL, &body); err != nil {
		return nil, &FetchError{Site: s.site.Key, Message: "participant search failed", Cause: err}
	}

	items, err := lookupArray(body, s.site.ResultsKey)
	if err != nil {
		return nil, &FetchError{Site: s.site.Key, Message: "unexpected search response", Cause: err}
	}

	f := s.site.Fields
	rows := make([]Candidate, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		c := Candidate{
			Name:      field(obj, f.Name),
			Bib:       field(obj, f.Bib),
			Time:      field(obj, f.Time),
			Pace:      field(obj, f.Pace),
			EventType: field(obj, f.Event),
		}
		if c.Name != "" {
			rows = append(rows, c)
		}
	}

	return Classify(name, rows, s.site, s.year, expandTemplate(s.site.ResultsURL, s.year, "")), nil
}

// lookupArray follows a dot-separated key path to a JSON array. An empty path
// means the body itself is the array.
func lookupArray(body any, path string) ([]any, error) {
	cur := body
	if path != "" {
		for _, key := range strings.Split(path, ".") {
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected object at %q", key)
			}
			cur = obj[key]
		}
	}
	if cur == nil {
		return nil, nil
	}
	arr, ok := cur.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array at %q", path)
	}
	return arr, nil
}

func field(obj map[string]any, key string) string {
	if key == "" {
		return ""
	}
	switch v := obj[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
