package domain

import (
	"sort"
	"strings"
	"time"
)

// DocumentVersion is stamped on every subscription document this service writes.
const DocumentVersion = "1.0"

// Subscriber is one email address and the set of countries it wants
// scholarship alerts for. Emails are stored lowercase; country codes uppercase.
type Subscriber struct {
	Email     string   `json:"email"`
	Countries []string `json:"countries"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at,omitempty"`
	Active    bool     `json:"active"`
}

// Normalize lowercases and trims the email and uppercases every country code.
func (s *Subscriber) Normalize() {
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	countries := make([]string, 0, len(s.Countries))
	for _, c := range s.Countries {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			countries = append(countries, c)
		}
	}
	s.Countries = countries
}

// MergeCountries unions the given codes into the subscriber's country set.
// The result is sorted so repeated merges produce identical documents.
func (s *Subscriber) MergeCountries(codes []string) {
	set := make(map[string]struct{}, len(s.Countries)+len(codes))
	for _, c := range s.Countries {
		set[c] = struct{}{}
	}
	for _, c := range codes {
		set[c] = struct{}{}
	}

	merged := make([]string, 0, len(set))
	for c := range set {
		merged = append(merged, c)
	}
	sort.Strings(merged)
	s.Countries = merged
}

// SubscriptionDocument is the single JSON document holding all subscriptions.
type SubscriptionDocument struct {
	Subscribers []Subscriber `json:"subscribers"`
	LastUpdated string       `json:"last_updated"`
	Version     string       `json:"version"`
}

// NewSubscriptionDocument returns the empty document shape used when no
// backing file exists yet.
func NewSubscriptionDocument() *SubscriptionDocument {
	return &SubscriptionDocument{
		Subscribers: []Subscriber{},
		Version:     DocumentVersion,
	}
}

// Timestamp formats t the way the document stores times.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
