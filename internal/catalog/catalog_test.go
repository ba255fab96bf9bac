package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homerank/internal/model"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func sampleListings() []model.Listing {
	return []model.Listing{
		{ID: "L1", City: "北京", District: "海淀", TotalPrice: f64(500), Description: str("quiet garden flat")},
		{ID: "L2", City: "北京", District: "朝阳", TotalPrice: f64(1500), Tags: model.JSONArray{"近地铁"}},
		{ID: "L3", City: "上海", District: "浦东", TotalPrice: f64(3000)},
	}
}

func TestNew(t *testing.T) {
	listings := append(sampleListings(), model.Listing{ID: "L1", City: "深圳", District: "南山"})
	c := New(listings, nil)

	assert.Equal(t, 3, c.Len(), "duplicate id keeps the first row")
	assert.Equal(t, []string{"L1", "L2", "L3"}, c.IDs())

	l, ok := c.Get("L1")
	require.True(t, ok)
	assert.Equal(t, "海淀", l.District)
	assert.Equal(t, 1, c.Position("L2"))
	assert.Equal(t, -1, c.Position("nope"))

	assert.True(t, c.HasField(model.FieldTotalPrice))
	assert.True(t, c.HasField(model.FieldTags))
	assert.True(t, c.HasField(model.FieldDescription))
	assert.False(t, c.HasField(model.FieldArea))
}

func TestNew_ExplicitFields(t *testing.T) {
	c := New(sampleListings(), []string{model.FieldArea})
	assert.True(t, c.HasField(model.FieldArea))
	assert.True(t, c.HasField(model.FieldCity))
	assert.False(t, c.HasField(model.FieldTotalPrice))
}

func TestSubset(t *testing.T) {
	c := New(sampleListings(), nil)
	sub := c.Subset(func(l *model.Listing) bool { return l.City == "北京" })

	assert.Equal(t, []string{"L1", "L2"}, sub.IDs())
	assert.Equal(t, c.Fields(), sub.Fields())
	assert.False(t, sub.Contains("L3"))
	assert.Equal(t, 3, c.Len(), "parent is untouched")

	empty := c.Subset(func(*model.Listing) bool { return false })
	assert.Equal(t, 0, empty.Len())
}

func TestDocuments(t *testing.T) {
	docs := New(sampleListings(), nil).Documents()
	require.Len(t, docs, 3)
	assert.Equal(t, "L1", docs[0].ID)
	assert.Equal(t, "quiet garden flat", docs[0].Text)
	assert.Equal(t, "近地铁", docs[1].Text)
	assert.Equal(t, "", docs[2].Text)
}
