package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalColumn(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"城市", "city"},
		{" 总价(万) ", "total_price"},
		{"总价（万）", "total_price"},
		{"\ufeff编号", "id"},
		{"District", "district"},
		{"lat", "lat"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalColumn(tt.header))
		})
	}
}

func TestMatchKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"chinese", "安静的学区房，近地铁", []string{"地铁", "安静", "学区"}},
		{"english", "2 bedrooms near subway, park view", []string{"地铁", "公园", "景观"}},
		{"whole words only", "parking and a review", []string{}},
		{"school district", "school district flat", []string{"学校", "学区"}},
		{"none", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchKeywords(tt.text))
		})
	}
}

func TestCleanLLMText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "  a report \n", "a report"},
		{"fenced", "```markdown\n## Report\nok\n```", "## Report\nok"},
		{"control chars", "ok\x00\x07 done", "ok done"},
		{"bom", "\ufeffhello", "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanLLMText(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "南北...", Truncate("南北通透", 2))
}
