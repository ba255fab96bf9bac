package model

import (
	"errors"
	"fmt"
)

// ErrInvalidConditions is returned when explicit conditions are inconsistent.
var ErrInvalidConditions = errors.New("invalid search conditions")

// SearchConditions represents the hard constraints and soft keyword hints of a
// query. Bounds are inclusive; a nil bound means unconstrained.
type SearchConditions struct {
	City             *string  `json:"city,omitempty" toml:"city"`
	Districts        []string `json:"districts,omitempty" toml:"districts"`
	MinPrice         *float64 `json:"min_price,omitempty" toml:"min_price"`
	MaxPrice         *float64 `json:"max_price,omitempty" toml:"max_price"`
	MinArea          *float64 `json:"min_area,omitempty" toml:"min_area"`
	MaxArea          *float64 `json:"max_area,omitempty" toml:"max_area"`
	BedroomsExact    *int     `json:"bedrooms_exact,omitempty" toml:"bedrooms_exact"`
	BedroomsMin      *int     `json:"bedrooms_min,omitempty" toml:"bedrooms_min"`
	LivingRoomsExact *int     `json:"livingrooms_exact,omitempty" toml:"livingrooms_exact"`
	SchoolDistrict   *bool    `json:"school_district,omitempty" toml:"school_district"`
	// Keywords are soft hints; they never filter.
	Keywords []string `json:"keywords"`
	Raw      string   `json:"raw,omitempty" toml:"-"`
}

// Validate checks bounds and counts of explicitly supplied conditions.
func (c *SearchConditions) Validate() error {
	if c == nil {
		return nil
	}
	if err := checkRange("price", c.MinPrice, c.MaxPrice); err != nil {
		return err
	}
	if err := checkRange("area", c.MinArea, c.MaxArea); err != nil {
		return err
	}
	for name, v := range map[string]*int{
		"bedrooms_exact":    c.BedroomsExact,
		"bedrooms_min":      c.BedroomsMin,
		"livingrooms_exact": c.LivingRoomsExact,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: %s must be non-negative", ErrInvalidConditions, name)
		}
	}
	return nil
}

// HasPriceSignal reports whether any price bound is present.
func (c *SearchConditions) HasPriceSignal() bool {
	return c != nil && (c.MinPrice != nil || c.MaxPrice != nil)
}

// HasAreaSignal reports whether any area bound is present.
func (c *SearchConditions) HasAreaSignal() bool {
	return c != nil && (c.MinArea != nil || c.MaxArea != nil)
}

func checkRange(name string, lo, hi *float64) error {
	if lo != nil && *lo < 0 {
		return fmt.Errorf("%w: min %s must be non-negative", ErrInvalidConditions, name)
	}
	if hi != nil && *hi < 0 {
		return fmt.Errorf("%w: max %s must be non-negative", ErrInvalidConditions, name)
	}
	if lo != nil && hi != nil && *lo > *hi {
		return fmt.Errorf("%w: min %s (%g) cannot be greater than max %s (%g)", ErrInvalidConditions, name, *lo, name, *hi)
	}
	return nil
}
