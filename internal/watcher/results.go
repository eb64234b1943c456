package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/scholarwatch/scholarship-watcher/internal/domain"
	"github.com/scholarwatch/scholarship-watcher/internal/store"
)

// ResultsDocument is the persisted record of everything the watcher has seen,
// keyed by country code.
type ResultsDocument struct {
	ScholarshipsByCountry map[string][]domain.Scholarship `json:"scholarships_by_country"`
	LastUpdated           string                          `json:"last_updated"`
	TotalCount            int                             `json:"total_count"`
	CountryCounts         map[string]int                  `json:"country_counts"`
}

// ResultsStore persists seen scholarships between runs.
type ResultsStore struct {
	path string
	now  func() time.Time
}

func NewResultsStore(path string) *ResultsStore {
	return &ResultsStore{path: path, now: time.Now}
}

// Load reads the previous results. A missing file yields an empty document.
// Older formats (a flat scholarship list, or {"scholarships": [...]}) are
// migrated under the "NO" key, which was the only watched country before
// per-country tracking.
func (r *ResultsStore) Load(ctx context.Context) (*ResultsDocument, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return emptyResults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading results file: %w", err)
	}

	var doc ResultsDocument
	if err := json.Unmarshal(data, &doc); err == nil && doc.ScholarshipsByCountry != nil {
		return &doc, nil
	}

	if migrated, ok := migrateLegacy(data); ok {
		return migrated, nil
	}
	return nil, fmt.Errorf("parsing results file %s: unrecognized format", r.path)
}

// Save writes the document atomically, refreshing the derived counts.
func (r *ResultsStore) Save(ctx context.Context, byCountry map[string][]domain.Scholarship) error {
	doc := ResultsDocument{
		ScholarshipsByCountry: byCountry,
		LastUpdated:           domain.Timestamp(r.now()),
		CountryCounts:         make(map[string]int, len(byCountry)),
	}
	for code, items := range byCountry {
		doc.CountryCounts[code] = len(items)
		doc.TotalCount += len(items)
	}

	if err := store.WriteJSONAtomic(r.path, doc); err != nil {
		return fmt.Errorf("writing results file: %w", err)
	}
	return nil
}

// FindNew diffs current scholarships against a previous document by URL,
// per country.
func FindNew(current map[string][]domain.Scholarship, previous *ResultsDocument) map[string][]domain.Scholarship {
	seen := make(map[string]map[string]struct{})
	for code, items := range previous.ScholarshipsByCountry {
		urls := make(map[string]struct{}, len(items))
		for _, s := range items {
			urls[s.URL] = struct{}{}
		}
		seen[code] = urls
	}

	fresh := make(map[string][]domain.Scholarship)
	for code, items := range current {
		for _, s := range items {
			if _, ok := seen[code][s.URL]; ok {
				continue
			}
			fresh[code] = append(fresh[code], s)
		}
	}
	return fresh
}

// Merge unions current scholarships into the previous document's sets so that
// listings dropped from a source page stay remembered.
func Merge(previous *ResultsDocument, current map[string][]domain.Scholarship) map[string][]domain.Scholarship {
	merged := make(map[string][]domain.Scholarship)
	for code, items := range previous.ScholarshipsByCountry {
		merged[code] = append(merged[code], items...)
	}

	for code, items := range current {
		urls := make(map[string]struct{}, len(merged[code]))
		for _, s := range merged[code] {
			urls[s.URL] = struct{}{}
		}
		for _, s := range items {
			if _, ok := urls[s.URL]; ok {
				continue
			}
			urls[s.URL] = struct{}{}
			merged[code] = append(merged[code], s)
		}
	}
	return merged
}

func emptyResults() *ResultsDocument {
	return &ResultsDocument{
		ScholarshipsByCountry: make(map[string][]domain.Scholarship),
		CountryCounts:         make(map[string]int),
	}
}

func migrateLegacy(data []byte) (*ResultsDocument, bool) {
	var flat []domain.Scholarship
	if err := json.Unmarshal(data, &flat); err == nil {
		doc := emptyResults()
		if len(flat) > 0 {
			doc.ScholarshipsByCountry["NO"] = flat
			doc.CountryCounts["NO"] = len(flat)
			doc.TotalCount = len(flat)
		}
		return doc, true
	}

	var wrapped struct {
		Scholarships []domain.Scholarship `json:"scholarships"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Scholarships != nil {
		doc := emptyResults()
		doc.ScholarshipsByCountry["NO"] = wrapped.Scholarships
		doc.CountryCounts["NO"] = len(wrapped.Scholarships)
		doc.TotalCount = len(wrapped.Scholarships)
		return doc, true
	}
	return nil, false
}
