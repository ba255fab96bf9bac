package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"homerank/internal/catalog"
	"homerank/internal/index"
	"homerank/internal/model"
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }
func str(v string) *string   { return &v }
func boolp(v bool) *bool     { return &v }

func fixtureListings() []model.Listing {
	return []model.Listing{
		{
			ID: "BJ001", City: "北京", District: "海淀", Community: str("中关村花园"),
			TotalPrice: f64(500), Area: f64(60), Bedrooms: intp(1), LivingRooms: intp(1),
			Floor: intp(3), TotalFloors: intp(6), Orientation: str("南北"), YearBuilt: intp(2005),
			DistanceToSubway: f64(0.4), SchoolDistrict: boolp(true), Renovation: str("精装"),
			Description: str("近地铁 学区房 安静小区"), Tags: model.JSONArray{"近地铁", "学区"},
		},
		{
			ID: "BJ002", City: "北京", District: "朝阳", Community: str("望京新城"),
			TotalPrice: f64(1500), Area: f64(95), Bedrooms: intp(2), LivingRooms: intp(1),
			Floor: intp(10), TotalFloors: intp(20), Orientation: str("东"), YearBuilt: intp(2012),
			DistanceToSubway: f64(1.5), SchoolDistrict: boolp(false), Renovation: str("简装"),
			Description: str("two bedroom flat with park view"), PromotionWeight: f64(0.5),
		},
		{
			ID: "SH001", City: "上海", District: "浦东", Community: str("陆家嘴公寓"),
			TotalPrice: f64(3000), Area: f64(140), Bedrooms: intp(3), LivingRooms: intp(2),
			Floor: intp(25), TotalFloors: intp(30), Orientation: str("南"), YearBuilt: intp(2018),
			DistanceToSubway: f64(0.8), Renovation: str("精装"),
			Description: str("江景 高层 三室两厅"),
		},
	}
}

func fixtureCatalog() *catalog.Catalog {
	return catalog.New(fixtureListings(), nil)
}

// newTestService builds a search service over cat with both indexes built.
func newTestService(t *testing.T, cat *catalog.Catalog, opts ...SearchOption) (*SearchService, *catalog.Registry) {
	t.Helper()
	embedder := index.NewHashEmbedder(64)
	def := catalog.NewContext(catalog.DefaultName, cat, index.NewMemoryStore(), embedder)
	require.NoError(t, def.Build(context.Background()))

	registry := catalog.NewRegistry(def, embedder)
	svc := NewSearchService(
		registry,
		NewQueryParser(),
		NewFilterEngine(),
		NewRanker(model.DefaultFusionWeights(), NewQualityScorer(model.DefaultQualityWeights())),
		opts...,
	)
	return svc, registry
}
