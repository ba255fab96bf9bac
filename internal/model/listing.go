package model

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
)

// Field names as they appear in catalog schemas, ingestion records and the
// listings table.
const (
	FieldID               = "id"
	FieldCity             = "city"
	FieldDistrict         = "district"
	FieldCommunity        = "community"
	FieldAddress          = "address"
	FieldTotalPrice       = "total_price"
	FieldUnitPrice        = "unit_price"
	FieldArea             = "area"
	FieldUsableArea       = "usable_area"
	FieldBedrooms         = "bedrooms"
	FieldLivingRooms      = "livingrooms"
	FieldBathrooms        = "bathrooms"
	FieldLayout           = "layout"
	FieldFloor            = "floor"
	FieldTotalFloors      = "total_floors"
	FieldOrientation      = "orientation"
	FieldBuildingType     = "building_type"
	FieldYearBuilt        = "year_built"
	FieldElevator         = "elevator"
	FieldParking          = "parking"
	FieldSchoolDistrict   = "school_district"
	FieldDistanceToSubway = "distance_to_subway"
	FieldNearestSubway    = "nearest_subway"
	FieldDistanceToSchool = "distance_to_school"
	FieldDistanceToPark   = "distance_to_park"
	FieldRenovation       = "renovation"
	FieldDescription      = "description"
	FieldCommunityIntro   = "community_intro"
	FieldSurrounding      = "surrounding"
	FieldTags             = "tags"
	FieldPromotionWeight  = "promotion_weight"
	FieldQualityScore     = "quality_score"
)

// Listing represents a property listing.
// Prices are in units of 10k (万), unit price in yuan per square metre,
// areas in square metres and distances in kilometres.
type Listing struct {
	ID               string    `json:"id" db:"id"`
	City             string    `json:"city" db:"city"`
	District         string    `json:"district" db:"district"`
	Community        *string   `json:"community,omitempty" db:"community"`
	Address          *string   `json:"address,omitempty" db:"address"`
	TotalPrice       *float64  `json:"total_price,omitempty" db:"total_price"`
	UnitPrice        *float64  `json:"unit_price,omitempty" db:"unit_price"`
	Area             *float64  `json:"area,omitempty" db:"area"`
	UsableArea       *float64  `json:"usable_area,omitempty" db:"usable_area"`
	Bedrooms         *int      `json:"bedrooms,omitempty" db:"bedrooms"`
	LivingRooms      *int      `json:"livingrooms,omitempty" db:"livingrooms"`
	Bathrooms        *int      `json:"bathrooms,omitempty" db:"bathrooms"`
	Layout           *string   `json:"layout,omitempty" db:"layout"`
	Floor            *int      `json:"floor,omitempty" db:"floor"`
	TotalFloors      *int      `json:"total_floors,omitempty" db:"total_floors"`
	Orientation      *string   `json:"orientation,omitempty" db:"orientation"`
	BuildingType     *string   `json:"building_type,omitempty" db:"building_type"`
	YearBuilt        *int      `json:"year_built,omitempty" db:"year_built"`
	Elevator         *bool     `json:"elevator,omitempty" db:"elevator"`
	Parking          *bool     `json:"parking,omitempty" db:"parking"`
	SchoolDistrict   *bool     `json:"school_district,omitempty" db:"school_district"`
	DistanceToSubway *float64  `json:"distance_to_subway,omitempty" db:"distance_to_subway"`
	NearestSubway    *string   `json:"nearest_subway,omitempty" db:"nearest_subway"`
	DistanceToSchool *float64  `json:"distance_to_school,omitempty" db:"distance_to_school"`
	DistanceToPark   *float64  `json:"distance_to_park,omitempty" db:"distance_to_park"`
	Renovation       *string   `json:"renovation,omitempty" db:"renovation"`
	Description      *string   `json:"description,omitempty" db:"description"`
	CommunityIntro   *string   `json:"community_intro,omitempty" db:"community_intro"`
	Surrounding      *string   `json:"surrounding,omitempty" db:"surrounding"`
	Tags             JSONArray `json:"tags,omitempty" db:"tags"`
	PromotionWeight  *float64  `json:"promotion_weight,omitempty" db:"promotion_weight"`
	QualityScore     *float64  `json:"quality_score,omitempty" db:"quality_score"`
}

// IndexText concatenates the free-text fields and tags used by both the
// lexical and the semantic index.
func (l *Listing) IndexText() string {
	parts := make([]string, 0, 3+len(l.Tags))
	for _, p := range []*string{l.Description, l.CommunityIntro, l.Surrounding} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	parts = append(parts, l.Tags...)
	return strings.Join(parts, " ")
}

// ListingSearchResult represents a ranked listing with its score breakdown
type ListingSearchResult struct {
	Listing
	Score          float64     `json:"score"`
	Scores         ScoreBundle `json:"scores"`
	MatchedReasons []string    `json:"matched_reasons"`
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), j)
	}
	return json.Unmarshal(bytes, j)
}
