package domain

// Country is one selectable entry in the read-only catalog. Codes are
// two-letter ISO codes, plus "EU" for union-wide programmes.
type Country struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}
