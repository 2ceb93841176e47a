package domain

import (
	"strings"
	"time"
)

// Provenance distinguishes wire-service news from social posts.
type Provenance string

const (
	ProvenanceWire   Provenance = "wire"
	ProvenanceSocial Provenance = "social"
)

// NewsItem is a normalized article. PublishedAt is always UTC; providers
// convert at the boundary so merged result sets have a total ordering.
type NewsItem struct {
	PublishedAt time.Time
	Sector      string
	Company     string
	Headline    string
	Summary     string
	Source      string
	URL         string
	Provenance  Provenance
}

// NormalizeHeadline is the dedup key for headlines.
func NormalizeHeadline(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// NormalizeURL is the dedup key for canonical URLs. Providers republish
// identical wire stories with only case differences in the URL.
func NormalizeURL(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}
