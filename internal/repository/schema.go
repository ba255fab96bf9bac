package repository

import "homerank/internal/model"

// listingColumns are the listings table columns scanned into model.Listing.
var listingColumns = []string{
	model.FieldID,
	model.FieldCity,
	model.FieldDistrict,
	model.FieldCommunity,
	model.FieldAddress,
	model.FieldTotalPrice,
	model.FieldUnitPrice,
	model.FieldArea,
	model.FieldUsableArea,
	model.FieldBedrooms,
	model.FieldLivingRooms,
	model.FieldBathrooms,
	model.FieldLayout,
	model.FieldFloor,
	model.FieldTotalFloors,
	model.FieldOrientation,
	model.FieldBuildingType,
	model.FieldYearBuilt,
	model.FieldElevator,
	model.FieldParking,
	model.FieldSchoolDistrict,
	model.FieldDistanceToSubway,
	model.FieldNearestSubway,
	model.FieldDistanceToSchool,
	model.FieldDistanceToPark,
	model.FieldRenovation,
	model.FieldDescription,
	model.FieldCommunityIntro,
	model.FieldSurrounding,
	model.FieldTags,
	model.FieldPromotionWeight,
	model.FieldQualityScore,
}

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS listings (
		id                 TEXT PRIMARY KEY,
		city               TEXT NOT NULL,
		district           TEXT NOT NULL,
		community          TEXT,
		address            TEXT,
		total_price        DOUBLE PRECISION,
		unit_price         DOUBLE PRECISION,
		area               DOUBLE PRECISION,
		usable_area        DOUBLE PRECISION,
		bedrooms           INTEGER,
		livingrooms        INTEGER,
		bathrooms          INTEGER,
		layout             TEXT,
		floor              INTEGER,
		total_floors       INTEGER,
		orientation        TEXT,
		building_type      TEXT,
		year_built         INTEGER,
		elevator           BOOLEAN,
		parking            BOOLEAN,
		school_district    BOOLEAN,
		distance_to_subway DOUBLE PRECISION,
		nearest_subway     TEXT,
		distance_to_school DOUBLE PRECISION,
		distance_to_park   DOUBLE PRECISION,
		renovation         TEXT,
		description        TEXT,
		community_intro    TEXT,
		surrounding        TEXT,
		tags               JSONB,
		promotion_weight   DOUBLE PRECISION,
		quality_score      DOUBLE PRECISION
	)`,
	`ALTER TABLE listings ADD COLUMN IF NOT EXISTS embedding vector`,
	`CREATE TABLE IF NOT EXISTS index_artifacts (
		name       TEXT PRIMARY KEY,
		payload    JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS index_meta (
		name       TEXT PRIMARY KEY,
		version    INTEGER NOT NULL,
		model      TEXT NOT NULL,
		dim        INTEGER NOT NULL,
		row_count  INTEGER NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
