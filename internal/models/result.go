package models

// MatchResult is one ranked product.
type MatchResult struct {
	ProductID   int      `json:"product_id"`
	ProductName string   `json:"product_name"`
	Score       float64  `json:"score"`
	Rank        int      `json:"rank"`
	Tags        []string `json:"tags,omitempty"`
}

// Source says where the ranking of a MatchResponse came from.
type Source string

const (
	SourceLocal Source = "local"
	SourceStore Source = "store"
)

// MatchResponse is the response for a match request.
type MatchResponse struct {
	Query   string         `json:"query"`
	Results []*MatchResult `json:"results"`
	// TopScore is the score of the first result, 0 when there are none.
	TopScore float64 `json:"top_score"`
	// Good reports TopScore strictly above the configured threshold.
	Good      bool   `json:"good"`
	Source    Source `json:"source"`
	QueryTime int64  `json:"query_time_ms"`
	// Warnings lists non-fatal problems, such as a store failure that fell back to local ranking.
	Warnings []string `json:"warnings,omitempty"`
}
