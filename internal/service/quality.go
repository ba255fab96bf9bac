package service

import (
	"math"
	"strings"

	"homerank/internal/model"
)

// Scoring windows and caps.
const (
	neutralScore = 0.5

	ageWindowStart = 1990.0
	ageWindowSpan  = 35.0 // 1990..2025

	subwayCapKm = 3.5
	schoolCapKm = 3.0

	// areaSaturation is the size at which an unconstrained area preference
	// stops growing.
	areaSaturation = 120.0
	// areaTolerance is the relative distance from the target at which the
	// area score falls to one half.
	areaTolerance = 0.25
	// priceOverrun is how far past a maximum price the score decays to zero.
	priceOverrun = 0.2
	// floorPenalty scales distance from mid-building; the top and bottom
	// floors keep 0.2.
	floorPenalty = 1.6
)

// QualityScorer computes the query-conditioned desirability of a listing
// from its structural attributes.
type QualityScorer struct {
	weights model.QualityWeights
}

// NewQualityScorer creates a scorer. Weights are expected to be validated
// at configuration load.
func NewQualityScorer(weights model.QualityWeights) *QualityScorer {
	return &QualityScorer{weights: weights}
}

// Score returns the eight components and their weighted aggregate, all in
// [0,1].
func (q *QualityScorer) Score(l *model.Listing, cond *model.SearchConditions) (model.QualityComponents, float64) {
	c := model.QualityComponents{
		Price:       priceScore(l.TotalPrice, cond),
		Area:        areaScore(l.Area, cond),
		Age:         ageScore(l.YearBuilt),
		Subway:      distanceScore(l.DistanceToSubway, subwayCapKm),
		School:      schoolScore(l),
		Floor:       floorScore(l.Floor, l.TotalFloors),
		Orientation: orientationScore(l.Orientation),
		Renovation:  renovationScore(l.Renovation),
	}
	w := q.weights
	total := w.Price*c.Price +
		w.Area*c.Area +
		w.Age*c.Age +
		w.Subway*c.Subway +
		w.School*c.School +
		w.Floor*c.Floor +
		w.Orientation*c.Orientation +
		w.Renovation*c.Renovation
	return c, clip01(total)
}

// priceScore rewards closeness to the requested budget.
func priceScore(price *float64, cond *model.SearchConditions) float64 {
	if price == nil || !cond.HasPriceSignal() {
		return neutralScore
	}
	p := *price

	switch {
	case cond.MinPrice != nil && cond.MaxPrice != nil:
		lo, hi := *cond.MinPrice, *cond.MaxPrice
		mid := (lo + hi) / 2
		span := math.Max(hi-lo, 0.2*mid)
		if span <= 0 {
			if p == mid {
				return 1
			}
			return 0
		}
		return clip01(1 - math.Abs(p-mid)/span)

	case cond.MaxPrice != nil:
		hi := *cond.MaxPrice
		if hi <= 0 {
			return 0
		}
		if p <= hi {
			return clip01(p / hi)
		}
		// Past the ceiling the score falls linearly to zero at 1.2x.
		return clip01(1 - (p-hi)/(priceOverrun*hi))

	default:
		lo := *cond.MinPrice
		if lo <= 0 {
			return 1
		}
		return clip01(1 - math.Abs(p-lo)/lo)
	}
}

// areaScore rewards closeness to the area target, or size itself when the
// query has no area signal.
func areaScore(area *float64, cond *model.SearchConditions) float64 {
	if area == nil {
		return neutralScore
	}
	a := *area

	target := 0.0
	switch {
	case cond.HasAreaSignal() && cond.MinArea != nil && cond.MaxArea != nil:
		target = (*cond.MinArea + *cond.MaxArea) / 2
	case cond.HasAreaSignal() && cond.MinArea != nil:
		target = *cond.MinArea
	case cond.HasAreaSignal():
		target = *cond.MaxArea
	}
	if target <= 0 {
		return clip01(a / areaSaturation)
	}

	d := (a - target) / (areaTolerance * target)
	return clip01(1 / (1 + d*d))
}

func ageScore(year *int) float64 {
	if year == nil {
		return neutralScore
	}
	return clip01((float64(*year) - ageWindowStart) / ageWindowSpan)
}

func distanceScore(km *float64, capKm float64) float64 {
	if km == nil {
		return neutralScore
	}
	return clip01(1 - *km/capKm)
}

func schoolScore(l *model.Listing) float64 {
	switch {
	case l.SchoolDistrict != nil && *l.SchoolDistrict:
		return 1
	case l.DistanceToSchool != nil:
		return distanceScore(l.DistanceToSchool, schoolCapKm)
	case l.SchoolDistrict != nil:
		return 0
	default:
		return neutralScore
	}
}

// floorScore peaks at mid-building.
func floorScore(floor, total *int) float64 {
	if floor == nil || total == nil || *total <= 1 {
		return neutralScore
	}
	r := clip01(float64(*floor-1) / float64(*total-1))
	return clip01(1 - math.Abs(r-0.5)*floorPenalty)
}

func orientationScore(o *string) float64 {
	if o == nil || strings.TrimSpace(*o) == "" {
		return neutralScore
	}
	s := strings.ToLower(*o)
	switch {
	case strings.Contains(s, "南") || strings.Contains(s, "south"):
		return 1.0
	case strings.Contains(s, "东") || strings.Contains(s, "西") ||
		strings.Contains(s, "east") || strings.Contains(s, "west"):
		return 0.7
	default:
		return 0.4
	}
}

func renovationScore(r *string) float64 {
	if r == nil {
		return neutralScore
	}
	s := strings.ToLower(*r)
	switch {
	case strings.Contains(s, "精装") || strings.Contains(s, "豪装") ||
		strings.Contains(s, "fully") || strings.Contains(s, "luxury"):
		return 1.0
	case strings.Contains(s, "简装") || strings.Contains(s, "basic") || strings.Contains(s, "simple"):
		return 0.6
	case strings.Contains(s, "毛坯") || strings.Contains(s, "shell") || strings.Contains(s, "bare"):
		return 0.3
	default:
		return neutralScore
	}
}

func clip01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
