package model

// SearchRequest represents a search query request
type SearchRequest struct {
	Query       string            `json:"query"`
	Conditions  *SearchConditions `json:"conditions,omitempty"`
	TopK        int               `json:"top_k"`
	UseLexical  *bool             `json:"use_lexical,omitempty"`
	UseSemantic *bool             `json:"use_semantic,omitempty"`
	SessionID   string            `json:"session_id,omitempty"`
}

// LexicalEnabled defaults to true when the flag is omitted.
func (r *SearchRequest) LexicalEnabled() bool {
	return r.UseLexical == nil || *r.UseLexical
}

// SemanticEnabled defaults to true when the flag is omitted.
func (r *SearchRequest) SemanticEnabled() bool {
	return r.UseSemantic == nil || *r.UseSemantic
}

// SearchResponse represents a search result response
type SearchResponse struct {
	Results         []ListingSearchResult `json:"results"`
	Parsed          *SearchConditions     `json:"parsed"`
	TotalCandidates int                   `json:"total_candidates"`
	Degraded        []string              `json:"degraded,omitempty"`
	Took            int64                 `json:"took_ms"` // Response time in milliseconds
}

// AssistResponse is a search response plus the report built from it.
type AssistResponse struct {
	SearchResponse
	Summary      *SummaryStats `json:"summary"`
	Report       string        `json:"report"`
	ReportSource string        `json:"report_source"` // "llm" or "template"
}

// SummaryStats holds aggregate statistics over a ranked result set.
// Optional aggregates are nil when no row carries the field.
type SummaryStats struct {
	Count                int               `json:"count"`
	PriceMin             *float64          `json:"price_min,omitempty"`
	PriceMax             *float64          `json:"price_max,omitempty"`
	PriceAvg             *float64          `json:"price_avg,omitempty"`
	PriceMedian          *float64          `json:"price_median,omitempty"`
	UnitPriceAvg         *float64          `json:"unit_price_avg,omitempty"`
	AreaMin              *float64          `json:"area_min,omitempty"`
	AreaMax              *float64          `json:"area_max,omitempty"`
	AreaAvg              *float64          `json:"area_avg,omitempty"`
	BedroomsDistribution map[int]int       `json:"bedrooms_distribution,omitempty"`
	SubwayDistanceAvg    *float64          `json:"distance_to_subway_avg,omitempty"`
	SubwayDistanceMin    *float64          `json:"distance_to_subway_min,omitempty"`
	SchoolDistrictRatio  float64           `json:"school_district_ratio"`
	YearBuiltMin         *int              `json:"year_built_min,omitempty"`
	YearBuiltMax         *int              `json:"year_built_max,omitempty"`
	YearBuiltAvg         *float64          `json:"year_built_avg,omitempty"`
	Conditions           *SearchConditions `json:"conditions,omitempty"`
}

// SessionUploadRequest carries a catalog as JSON records.
type SessionUploadRequest struct {
	Listings []map[string]any `json:"listings" binding:"required"`
}

// SessionUploadResponse describes a freshly built session catalog.
type SessionUploadResponse struct {
	SessionID    string `json:"session_id"`
	Rows         int    `json:"rows"`
	Dropped      int    `json:"dropped"`
	Duplicates   int    `json:"duplicates"`
	LexicalTerms int    `json:"lexical_terms"`
	EmbeddingDim int    `json:"embedding_dim"`
	Took         int64  `json:"took_ms"`
}
