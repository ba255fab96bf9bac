package service

import (
	"homerank/internal/catalog"
	"homerank/internal/model"
)

// clause is one hard constraint. field names the schema column it reads;
// when the catalog does not carry it the clause is not applied.
type clause struct {
	field string
	match func(l *model.Listing) bool
}

// FilterEngine applies hard constraints to a catalog.
type FilterEngine struct{}

// NewFilterEngine creates a new filter engine
func NewFilterEngine() *FilterEngine {
	return &FilterEngine{}
}

// Apply returns the order-preserving subset of cat satisfying every clause
// of cond. The source catalog is not modified. A listing missing a value
// for an applicable clause does not match it.
func (f *FilterEngine) Apply(cat *catalog.Catalog, cond *model.SearchConditions) *catalog.Catalog {
	active := make([]clause, 0, 8)
	for _, c := range f.clauses(cond) {
		if cat.HasField(c.field) {
			active = append(active, c)
		}
	}
	return cat.Subset(func(l *model.Listing) bool {
		for _, c := range active {
			if !c.match(l) {
				return false
			}
		}
		return true
	})
}

func (f *FilterEngine) clauses(cond *model.SearchConditions) []clause {
	if cond == nil {
		return nil
	}
	var out []clause

	if cond.City != nil {
		city := *cond.City
		out = append(out, clause{model.FieldCity, func(l *model.Listing) bool {
			return l.City == city
		}})
	}
	if len(cond.Districts) > 0 {
		set := make(map[string]bool, len(cond.Districts))
		for _, d := range cond.Districts {
			set[d] = true
		}
		out = append(out, clause{model.FieldDistrict, func(l *model.Listing) bool {
			return set[l.District]
		}})
	}
	if cond.MinPrice != nil || cond.MaxPrice != nil {
		lo, hi := cond.MinPrice, cond.MaxPrice
		out = append(out, clause{model.FieldTotalPrice, func(l *model.Listing) bool {
			return inRange(l.TotalPrice, lo, hi)
		}})
	}
	if cond.MinArea != nil || cond.MaxArea != nil {
		lo, hi := cond.MinArea, cond.MaxArea
		out = append(out, clause{model.FieldArea, func(l *model.Listing) bool {
			return inRange(l.Area, lo, hi)
		}})
	}
	switch {
	case cond.BedroomsExact != nil:
		want := *cond.BedroomsExact
		out = append(out, clause{model.FieldBedrooms, func(l *model.Listing) bool {
			return l.Bedrooms != nil && *l.Bedrooms == want
		}})
	case cond.BedroomsMin != nil:
		least := *cond.BedroomsMin
		out = append(out, clause{model.FieldBedrooms, func(l *model.Listing) bool {
			return l.Bedrooms != nil && *l.Bedrooms >= least
		}})
	}
	if cond.LivingRoomsExact != nil {
		want := *cond.LivingRoomsExact
		out = append(out, clause{model.FieldLivingRooms, func(l *model.Listing) bool {
			return l.LivingRooms != nil && *l.LivingRooms == want
		}})
	}
	if cond.SchoolDistrict != nil {
		want := *cond.SchoolDistrict
		out = append(out, clause{model.FieldSchoolDistrict, func(l *model.Listing) bool {
			return l.SchoolDistrict != nil && *l.SchoolDistrict == want
		}})
	}
	return out
}

// inRange checks an inclusive range; nil bounds are open.
func inRange(v, lo, hi *float64) bool {
	if v == nil {
		return false
	}
	if lo != nil && *v < *lo {
		return false
	}
	if hi != nil && *v > *hi {
		return false
	}
	return true
}
