package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights is returned when a ranking configuration is unusable.
var ErrInvalidWeights = errors.New("invalid ranking weights")

// QualityWeights weighs the eight quality components.
type QualityWeights struct {
	Price       float64 `json:"price" toml:"price"`
	Area        float64 `json:"area" toml:"area"`
	Age         float64 `json:"age" toml:"age"`
	Subway      float64 `json:"subway" toml:"subway"`
	School      float64 `json:"school" toml:"school"`
	Floor       float64 `json:"floor" toml:"floor"`
	Orientation float64 `json:"orientation" toml:"orientation"`
	Renovation  float64 `json:"renovation" toml:"renovation"`
}

// DefaultQualityWeights returns the stock component weights.
func DefaultQualityWeights() QualityWeights {
	return QualityWeights{
		Price:       0.20,
		Area:        0.15,
		Age:         0.10,
		Subway:      0.15,
		School:      0.15,
		Floor:       0.08,
		Orientation: 0.09,
		Renovation:  0.08,
	}
}

// Sum returns the total weight.
func (w QualityWeights) Sum() float64 {
	return w.Price + w.Area + w.Age + w.Subway + w.School + w.Floor + w.Orientation + w.Renovation
}

// Validate requires non-negative weights summing to 1 within tolerance.
func (w QualityWeights) Validate() error {
	for name, v := range map[string]float64{
		"price": w.Price, "area": w.Area, "age": w.Age, "subway": w.Subway,
		"school": w.School, "floor": w.Floor, "orientation": w.Orientation, "renovation": w.Renovation,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: quality weight %s is %g", ErrInvalidWeights, name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > 0.01 {
		return fmt.Errorf("%w: quality weights sum to %.3f, want 1.0", ErrInvalidWeights, sum)
	}
	return nil
}

// FusionWeights combines quality and the normalised retrieval scores.
type FusionWeights struct {
	Quality           float64 `json:"quality" toml:"quality"`
	Lexical           float64 `json:"lexical" toml:"lexical"`
	Semantic          float64 `json:"semantic" toml:"semantic"`
	PromotionBoostCap float64 `json:"promotion_boost_cap" toml:"promotion_boost_cap"`
}

// DefaultFusionWeights returns the stock fusion weights.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{
		Quality:           0.5,
		Lexical:           0.25,
		Semantic:          0.25,
		PromotionBoostCap: 0.2,
	}
}

// Validate requires non-negative base weights summing to at most 1 and a
// boost cap in [0, 1].
func (w FusionWeights) Validate() error {
	if w.Quality < 0 || w.Lexical < 0 || w.Semantic < 0 {
		return fmt.Errorf("%w: fusion weights must be non-negative", ErrInvalidWeights)
	}
	if sum := w.Quality + w.Lexical + w.Semantic; sum > 1.01 {
		return fmt.Errorf("%w: fusion weights sum to %.3f, want at most 1.0", ErrInvalidWeights, sum)
	}
	if w.PromotionBoostCap < 0 || w.PromotionBoostCap > 1 {
		return fmt.Errorf("%w: promotion boost cap %g outside [0, 1]", ErrInvalidWeights, w.PromotionBoostCap)
	}
	return nil
}
