package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryParser_EnglishBudgetQuery(t *testing.T) {
	cond := NewQueryParser().Parse("2 bedrooms near subway, budget around 300 (万)")

	require.NotNil(t, cond.BedroomsExact)
	assert.Equal(t, 2, *cond.BedroomsExact)
	require.True(t, cond.HasPriceSignal())
	require.NotNil(t, cond.MinPrice)
	assert.Equal(t, 300.0, *cond.MinPrice)
	assert.Contains(t, cond.Keywords, "地铁")
	assert.Equal(t, "2 bedrooms near subway, budget around 300 (万)", cond.Raw)
}

func TestQueryParser_ChineseQuery(t *testing.T) {
	cond := NewQueryParser().Parse("北京海淀三室一厅 500万 90平 近地铁 学区")

	require.NotNil(t, cond.City)
	assert.Equal(t, "北京", *cond.City)
	assert.Equal(t, []string{"海淀"}, cond.Districts)
	require.NotNil(t, cond.BedroomsExact)
	assert.Equal(t, 3, *cond.BedroomsExact)
	require.NotNil(t, cond.LivingRoomsExact)
	assert.Equal(t, 1, *cond.LivingRoomsExact)
	require.NotNil(t, cond.MinPrice)
	assert.Equal(t, 500.0, *cond.MinPrice)
	require.NotNil(t, cond.MinArea)
	assert.Equal(t, 90.0, *cond.MinArea)
	assert.Equal(t, []string{"地铁", "学区"}, cond.Keywords)
	assert.Nil(t, cond.SchoolDistrict, "school district is a soft keyword")
}

func TestQueryParser_DistrictWithoutCity(t *testing.T) {
	cond := NewQueryParser().Parse("浦东两居")

	assert.Nil(t, cond.City)
	assert.Equal(t, []string{"浦东"}, cond.Districts)
	require.NotNil(t, cond.BedroomsExact)
	assert.Equal(t, 2, *cond.BedroomsExact)
}

func TestQueryParser_FullWidthDigits(t *testing.T) {
	cond := NewQueryParser().Parse("３室 ４００万")

	require.NotNil(t, cond.BedroomsExact)
	assert.Equal(t, 3, *cond.BedroomsExact)
	require.NotNil(t, cond.MinPrice)
	assert.Equal(t, 400.0, *cond.MinPrice)
}

func TestQueryParser_NoSignal(t *testing.T) {
	for _, text := range []string{"", "   ", "hello there", "!!!"} {
		cond := NewQueryParser().Parse(text)
		require.NotNil(t, cond)
		assert.Nil(t, cond.City, text)
		assert.Empty(t, cond.Districts, text)
		assert.False(t, cond.HasPriceSignal(), text)
		assert.False(t, cond.HasAreaSignal(), text)
		assert.Nil(t, cond.BedroomsExact, text)
		assert.NotNil(t, cond.Keywords, text)
		assert.Empty(t, cond.Keywords, text)
	}
}

func TestQueryParser_Deterministic(t *testing.T) {
	p := NewQueryParser()
	text := "上海浦东 3室2厅 近公园 安静 2000万"
	first := p.Parse(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, p.Parse(text))
	}
}
