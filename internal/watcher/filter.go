package watcher

import (
	"log/slog"
	"strings"

	"github.com/scholarwatch/scholarship-watcher/internal/catalog"
	"github.com/scholarwatch/scholarship-watcher/internal/domain"
)

// techKeywords mark a listing as relevant to technology students.
var techKeywords = []string{
	"computer science", "informatics", "software", "engineering",
	"technology", "stem", "data science", "artificial intelligence",
	"machine learning", "ict", "it ", "programming", "cyber",
	"robotics", "electronics", "mathematics", "physics",
	"master", "msc", "phd", "doctoral", "graduate", "postgraduate",
	"international student", "tuition", "scholarship", "fellowship",
	"grant", "stipend", "funding",
}

// falsePositiveKeywords exclude listings that mention a country only in
// passing, or that are clearly off-topic.
var falsePositiveKeywords = []string{
	"expired", "deadline passed", "no longer available",
	"closed for applications", "archive",
	"high school", "undergraduate only", "secondary school",
}

// Filter matches scholarships against the configured country catalog.
type Filter struct {
	entries []catalog.Entry
	logger  *slog.Logger
}

func NewFilter(entries []catalog.Entry, logger *slog.Logger) *Filter {
	enabled := make([]catalog.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Enabled {
			enabled = append(enabled, e)
		}
	}
	return &Filter{entries: enabled, logger: logger}
}

// GroupByCountry buckets relevant scholarships by country code. A listing can
// appear under several countries; irrelevant listings are dropped.
func (f *Filter) GroupByCountry(scholarships []domain.Scholarship) map[string][]domain.Scholarship {
	grouped := make(map[string][]domain.Scholarship)
	kept := 0

	for _, s := range scholarships {
		codes := f.MatchingCountries(s)
		if len(codes) == 0 {
			continue
		}
		kept++
		for _, code := range codes {
			grouped[code] = append(grouped[code], s)
		}
	}

	f.logger.Info("filter complete",
		"input", len(scholarships),
		"relevant", kept,
		"countries", len(grouped),
	)
	return grouped
}

// MatchingCountries returns the country codes a scholarship is relevant to.
// A match needs a country signal (keyword or domain pattern) plus a tech
// signal, and must not trip a false-positive keyword.
func (f *Filter) MatchingCountries(s domain.Scholarship) []string {
	text := strings.ToLower(s.Title + " " + s.URL)

	for _, kw := range falsePositiveKeywords {
		if strings.Contains(text, kw) {
			return nil
		}
	}
	if !containsAny(text, techKeywords) {
		return nil
	}

	var codes []string
	lowerURL := strings.ToLower(s.URL)
	for _, entry := range f.entries {
		if containsAny(text, entry.Keywords) || containsAny(lowerURL, entry.DomainPatterns) {
			codes = append(codes, entry.Code)
		}
	}
	return codes
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
