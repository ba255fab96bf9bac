package model

// QualityComponents holds the eight quality sub-scores, each in [0,1].
type QualityComponents struct {
	Price       float64 `json:"price"`
	Area        float64 `json:"area"`
	Age         float64 `json:"age"`
	Subway      float64 `json:"subway"`
	School      float64 `json:"school"`
	Floor       float64 `json:"floor"`
	Orientation float64 `json:"orientation"`
	Renovation  float64 `json:"renovation"`
}

// ScoreBundle is computed fresh per query. Quality depends on the query's own
// price and area targets, so bundles are never cached across queries.
type ScoreBundle struct {
	LexicalRaw          float64           `json:"lexical_raw"`
	SemanticRaw         float64           `json:"semantic_raw"`
	Quality             QualityComponents `json:"quality_components"`
	QualityScore        float64           `json:"quality"`
	LexicalNorm         float64           `json:"lexical"`
	SemanticNorm        float64           `json:"semantic"`
	PromotionMultiplier float64           `json:"promotion_multiplier"`
	Fused               float64           `json:"fused"`
}
