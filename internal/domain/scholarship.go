package domain

// Scholarship is a single listing extracted from a source page or feed.
// The URL doubles as the identity used for new/seen comparison.
type Scholarship struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	SourceURL    string `json:"source_url,omitempty"`
	DiscoveredAt string `json:"discovered_at,omitempty"`
}
