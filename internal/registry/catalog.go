// Package registry routes a race name and year to the scraper for that race.
package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/race-results/internal/schemas"
	"github.com/jonathan/race-results/internal/scraper"
)

//go:embed races.yaml
var defaultCatalog []byte

//go:embed catalog.schema.json
var catalogSchema string

var compiledSchema = sync.OnceValues(func() (*schemas.Schema, error) {
	return schemas.Compile("catalog.schema.json", catalogSchema)
})

// Entry is one race in the catalog.
type Entry struct {
	scraper.SiteConfig `yaml:",inline"`

	Aliases   []string   `yaml:"aliases"`
	Heuristic *Heuristic `yaml:"heuristic,omitempty"`
}

// Heuristic routes free-form race names that mention one of Tokens together with
// Keyword, unless one of Exclude also appears ("Chicago Half Marathon" must not
// land on the Chicago Marathon).
type Heuristic struct {
	Tokens  []string `yaml:"tokens"`
	Keyword string   `yaml:"keyword"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// Catalog is the parsed race catalog.
type Catalog struct {
	Races []Entry `yaml:"races"`
}

// CatalogError reports an invalid catalog document.
type CatalogError struct {
	Source  string
	Message string
	Cause   error
}

func (e *CatalogError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("race catalog %s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("race catalog %s: %s", e.Source, e.Message)
}

func (e *CatalogError) Unwrap() error {
	return e.Cause
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog("embedded", defaultCatalog)
}

// LoadCatalogFile reads and validates a catalog file.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &CatalogError{Source: path, Message: "failed to read", Cause: err}
	}
	return ParseCatalog(path, data)
}

// ParseCatalog decodes a YAML catalog and validates it against the catalog schema.
func ParseCatalog(source string, data []byte) (*Catalog, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &CatalogError{Source: source, Message: "invalid YAML", Cause: err}
	}

	schema, err := compiledSchema()
	if err != nil {
		return nil, &CatalogError{Source: source, Message: "catalog schema is invalid", Cause: err}
	}
	if err := schema.Validate(raw); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			return nil, &CatalogError{Source: source, Message: ve.Summary()}
		}
		return nil, &CatalogError{Source: source, Message: "schema validation failed", Cause: err}
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, &CatalogError{Source: source, Message: "invalid catalog", Cause: err}
	}
	return &cat, nil
}

// Merge returns a catalog with the entries of other added; entries with an
// existing key replace the original.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	merged := &Catalog{Races: append([]Entry(nil), c.Races...)}
	index := make(map[string]int, len(merged.Races))
	for i, e := range merged.Races {
		index[e.Key] = i
	}
	for _, e := range other.Races {
		if i, ok := index[e.Key]; ok {
			merged.Races[i] = e
			continue
		}
		index[e.Key] = len(merged.Races)
		merged.Races = append(merged.Races, e)
	}
	return merged
}
