// Package catalog loads the read-only list of selectable countries.
//
// Configuration is looked up in priority order: the COUNTRIES_CONFIG
// environment variable (inline JSON), then the configured file path, then a
// fixed built-in table. The catalog is never mutated by this system.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/scholarwatch/scholarship-watcher/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Entry is one configured country. Keywords and domain patterns drive the
// watcher's relevance filter and are not exposed over the API.
type Entry struct {
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	Enabled        bool     `json:"-"`
	Keywords       []string `json:"keywords,omitempty"`
	DomainPatterns []string `json:"domain_patterns,omitempty"`
}

// Country maps the entry to its API representation.
func (e Entry) Country() domain.Country {
	return domain.Country{Code: e.Code, Name: e.Name, Enabled: e.Enabled}
}

// Provider yields the enabled countries, sorted by name.
type Provider interface {
	Countries(ctx context.Context) ([]domain.Country, error)
}

// Loader reads country configuration with built-in fallback.
type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// configDocument is the on-disk schema: {"countries": [...]}. A missing
// enabled flag means enabled.
type configDocument struct {
	Countries []configEntry `json:"countries"`
}

type configEntry struct {
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	Enabled        *bool    `json:"enabled,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	DomainPatterns []string `json:"domain_patterns,omitempty"`
}

// Entries returns all configured countries, including disabled ones.
func (l *Loader) Entries(ctx context.Context) ([]Entry, error) {
	if raw := strings.TrimSpace(os.Getenv("COUNTRIES_CONFIG")); raw != "" {
		entries, err := parseConfig([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("parsing COUNTRIES_CONFIG: %w", err)
		}
		return entries, nil
	}

	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return DefaultEntries(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading country config: %w", err)
	}

	entries, err := parseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("parsing country config %s: %w", l.path, err)
	}
	return entries, nil
}

// Countries returns the enabled countries sorted by name.
func (l *Loader) Countries(ctx context.Context) ([]domain.Country, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return nil, err
	}

	countries := make([]domain.Country, 0, len(entries))
	for _, e := range entries {
		if e.Enabled {
			countries = append(countries, e.Country())
		}
	}
	SortByName(countries)
	return countries, nil
}

func parseConfig(data []byte) ([]Entry, error) {
	var doc configDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(doc.Countries))
	for _, c := range doc.Countries {
		code := strings.ToUpper(strings.TrimSpace(c.Code))
		if code == "" || c.Name == "" {
			continue
		}
		entries = append(entries, Entry{
			Code:           code,
			Name:           c.Name,
			Enabled:        c.Enabled == nil || *c.Enabled,
			Keywords:       lowerAll(c.Keywords),
			DomainPatterns: lowerAll(c.DomainPatterns),
		})
	}
	return entries, nil
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SortByName orders countries by display name using locale-aware comparison.
func SortByName(countries []domain.Country) {
	collator := collate.New(language.English)
	sort.SliceStable(countries, func(i, j int) bool {
		return collator.CompareString(countries[i].Name, countries[j].Name) < 0
	})
}
