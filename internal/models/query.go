package models

import (
	"fmt"
	"strings"
)

const (
	// DefaultTopK is the number of matches returned when a query does not ask for a count.
	DefaultTopK = 3
	// MaxTopK caps how many matches one query may ask for.
	MaxTopK = 100
)

// MatchQuery is a free-text vibe query.
type MatchQuery struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
	// Filter is an optional CEL expression over `product`; only matching products are ranked.
	Filter string `json:"filter,omitempty"`
	// UseStore asks for the external vector store instead of local ranking.
	UseStore bool `json:"use_store,omitempty"`
}

// Validate trims the query, rejects empty ones, and applies the default and cap to TopK.
func (q *MatchQuery) Validate() error {
	return q.ValidateWith(DefaultTopK, MaxTopK)
}

// ValidateWith is Validate with explicit defaults.
func (q *MatchQuery) ValidateWith(defaultK, maxK int) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.TopK < 0 {
		return fmt.Errorf("top_k must not be negative, got %d", q.TopK)
	}
	if q.TopK == 0 {
		q.TopK = defaultK
	}
	if maxK > 0 && q.TopK > maxK {
		q.TopK = maxK
	}
	return nil
}
