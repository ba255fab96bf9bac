package service

import (
	"sort"

	"homerank/internal/model"
)

// Summarize computes aggregate statistics over ranked results. Aggregates
// over a field no row carries stay nil.
func Summarize(results []model.ListingSearchResult, cond *model.SearchConditions) *model.SummaryStats {
	stats := &model.SummaryStats{
		Count:      len(results),
		Conditions: cond,
	}
	if len(results) == 0 {
		return stats
	}

	var prices, unitPrices, areas, subway, years []float64
	bedrooms := make(map[int]int)
	school := 0
	for i := range results {
		l := &results[i].Listing
		prices = appendValue(prices, l.TotalPrice)
		unitPrices = appendValue(unitPrices, l.UnitPrice)
		areas = appendValue(areas, l.Area)
		subway = appendValue(subway, l.DistanceToSubway)
		if l.YearBuilt != nil {
			years = append(years, float64(*l.YearBuilt))
		}
		if l.Bedrooms != nil {
			bedrooms[*l.Bedrooms]++
		}
		if l.SchoolDistrict != nil && *l.SchoolDistrict {
			school++
		}
	}

	stats.PriceMin, stats.PriceMax, stats.PriceAvg = minMaxAvg(prices)
	stats.PriceMedian = median(prices)
	_, _, stats.UnitPriceAvg = minMaxAvg(unitPrices)
	stats.AreaMin, stats.AreaMax, stats.AreaAvg = minMaxAvg(areas)
	stats.SubwayDistanceMin, _, stats.SubwayDistanceAvg = minMaxAvg(subway)
	stats.SchoolDistrictRatio = float64(school) / float64(len(results))

	if len(bedrooms) > 0 {
		stats.BedroomsDistribution = bedrooms
	}
	if lo, hi, avg := minMaxAvg(years); lo != nil {
		minYear, maxYear := int(*lo), int(*hi)
		stats.YearBuiltMin = &minYear
		stats.YearBuiltMax = &maxYear
		stats.YearBuiltAvg = avg
	}
	return stats
}

func appendValue(values []float64, v *float64) []float64 {
	if v == nil {
		return values
	}
	return append(values, *v)
}

func minMaxAvg(values []float64) (lo, hi, avg *float64) {
	if len(values) == 0 {
		return nil, nil, nil
	}
	minV, maxV, sum := values[0], values[0], 0.0
	for _, v := range values {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		sum += v
	}
	mean := sum / float64(len(values))
	return &minV, &maxV, &mean
}

func median(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	m := sorted[mid]
	if len(sorted)%2 == 0 {
		m = (sorted[mid-1] + sorted[mid]) / 2
	}
	return &m
}
