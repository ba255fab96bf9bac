package service

import (
	"math"
	"sort"

	"homerank/internal/model"
)

// Match reason constants
const (
	ReasonCityMatch       = "City match"
	ReasonDistrictMatch   = "District match"
	ReasonLayoutMatch     = "Layout match"
	ReasonPriceMatch      = "Price within budget"
	ReasonAreaMatch       = "Area fits"
	ReasonNearSubway      = "Near subway"
	ReasonSchoolDistrict  = "School district"
	ReasonContentRelevant = "Content relevant"
	ReasonSemanticMatch   = "Similar description"
	ReasonHighQuality     = "High overall quality"
	ReasonPromoted        = "Promoted"
	ReasonGeneralMatch    = "General match"
)

// nearSubwayKm is the distance under which a listing counts as near a station.
const nearSubwayKm = 1.0

// Candidate is a filtered listing with its raw retrieval scores. Rows a
// retrieval stage did not return carry 0.
type Candidate struct {
	Listing     *model.Listing
	LexicalRaw  float64
	SemanticRaw float64
}

// Ranker fuses quality and retrieval scores into the final ordering.
type Ranker struct {
	weights model.FusionWeights
	scorer  *QualityScorer
}

// NewRanker creates a new ranker with specified weights
func NewRanker(weights model.FusionWeights, scorer *QualityScorer) *Ranker {
	return &Ranker{weights: weights, scorer: scorer}
}

// Rank scores every candidate, sorts by fused score descending (equal scores
// keep input order) and keeps the first topK. topK <= 0 keeps all.
func (r *Ranker) Rank(candidates []Candidate, cond *model.SearchConditions, topK int) []model.ListingSearchResult {
	lexical := make([]float64, len(candidates))
	semantic := make([]float64, len(candidates))
	for i, c := range candidates {
		lexical[i] = c.LexicalRaw
		semantic[i] = c.SemanticRaw
	}
	lexical = minMaxNormalize(lexical)
	semantic = minMaxNormalize(semantic)

	results := make([]model.ListingSearchResult, 0, len(candidates))
	for i, c := range candidates {
		components, quality := r.scorer.Score(c.Listing, cond)
		bundle := model.ScoreBundle{
			LexicalRaw:          c.LexicalRaw,
			SemanticRaw:         c.SemanticRaw,
			Quality:             components,
			QualityScore:        quality,
			LexicalNorm:         lexical[i],
			SemanticNorm:        semantic[i],
			PromotionMultiplier: r.promotionMultiplier(c.Listing.PromotionWeight),
		}
		base := r.weights.Quality*bundle.QualityScore +
			r.weights.Lexical*bundle.LexicalNorm +
			r.weights.Semantic*bundle.SemanticNorm
		bundle.Fused = base * bundle.PromotionMultiplier

		results = append(results, model.ListingSearchResult{
			Listing:        *c.Listing,
			Score:          bundle.Fused,
			Scores:         bundle,
			MatchedReasons: r.generateMatchedReasons(c.Listing, cond, bundle),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// promotionMultiplier is 1 + cap*sqrt(w) with w clipped to [0,1].
func (r *Ranker) promotionMultiplier(weight *float64) float64 {
	w := 0.0
	if weight != nil {
		w = clip01(*weight)
	}
	return 1 + r.weights.PromotionBoostCap*math.Sqrt(w)
}

// minMaxNormalize scales values to [0,1]. A constant set maps to 0.
func minMaxNormalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo <= 0 {
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

// generateMatchedReasons generates human-readable reasons for why this listing matched
func (r *Ranker) generateMatchedReasons(l *model.Listing, cond *model.SearchConditions, s model.ScoreBundle) []string {
	reasons := []string{}

	if cond != nil {
		if cond.City != nil && l.City == *cond.City {
			reasons = append(reasons, ReasonCityMatch)
		}
		if len(cond.Districts) > 0 {
			for _, d := range cond.Districts {
				if l.District == d {
					reasons = append(reasons, ReasonDistrictMatch)
					break
				}
			}
		}
		if (cond.BedroomsExact != nil || cond.BedroomsMin != nil) && l.Bedrooms != nil {
			reasons = append(reasons, ReasonLayoutMatch)
		}
		if cond.HasPriceSignal() && s.Quality.Price > 0.8 {
			reasons = append(reasons, ReasonPriceMatch)
		}
		if cond.HasAreaSignal() && s.Quality.Area > 0.8 {
			reasons = append(reasons, ReasonAreaMatch)
		}
	}

	if l.DistanceToSubway != nil && *l.DistanceToSubway <= nearSubwayKm {
		reasons = append(reasons, ReasonNearSubway)
	}
	if l.SchoolDistrict != nil && *l.SchoolDistrict {
		reasons = append(reasons, ReasonSchoolDistrict)
	}
	if s.LexicalRaw > 0 && s.LexicalNorm > 0.1 {
		reasons = append(reasons, ReasonContentRelevant)
	}
	if s.SemanticNorm > 0.5 {
		reasons = append(reasons, ReasonSemanticMatch)
	}
	if s.QualityScore >= 0.75 {
		reasons = append(reasons, ReasonHighQuality)
	}
	if s.PromotionMultiplier > 1 {
		reasons = append(reasons, ReasonPromoted)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonGeneralMatch)
	}
	return reasons
}
