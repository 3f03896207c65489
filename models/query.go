package models

import (
	"github.com/google/uuid"
)

// QueryType classifies a natural-language query and selects the retrieval
// strategy set
type QueryType string

const (
	QueryTypeMetadata   QueryType = "metadata"
	QueryTypeNavigation QueryType = "navigation"
	QueryTypeContent    QueryType = "content"
	QueryTypeHybrid     QueryType = "hybrid"
)

// Strategy names reported in RoutedResponse.StrategiesUsed
const (
	StrategyMetadataLookup   = "metadata_lookup"
	StrategyDirectLookup     = "direct_lookup"
	StrategySemanticSearch   = "semantic_search"
	StrategySemanticFallback = "semantic_fallback"
)

// QuerySource identifies where part of an answer came from
type QuerySource struct {
	Kind       string    `json:"kind"` // "article", "chunk", "analysis"
	DocumentID uuid.UUID `json:"document_id"`
	Title      string    `json:"title"`
	Excerpt    string    `json:"excerpt,omitempty"`
	Similarity float64   `json:"similarity,omitempty"`
}

// RoutedResponse is the structured answer produced by the query router.
// A routing problem never surfaces as a transport failure; the worst case
// is Confidence 0 with an Explanation.
type RoutedResponse struct {
	Answer         string        `json:"answer"`
	Sources        []QuerySource `json:"sources"`
	Confidence     float64       `json:"confidence"`
	FromCache      bool          `json:"from_cache"`
	QueryType      QueryType     `json:"query_type"`
	StrategiesUsed []string      `json:"strategies_used"`
	Explanation    string        `json:"explanation,omitempty"`
}
