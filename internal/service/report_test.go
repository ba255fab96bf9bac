package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homerank/internal/model"
)

type stubLLM struct {
	enabled bool
	content string
	err     error
	calls   int
}

func (s *stubLLM) ChatCompletion(_ context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	resp := &ChatCompletionResponse{}
	resp.Choices = append(resp.Choices, struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	}{Message: ChatMessage{Role: "assistant", Content: s.content}})
	return resp, nil
}

func (s *stubLLM) IsEnabled() bool { return s.enabled }

func rankedFixture() []model.ListingSearchResult {
	listings := fixtureListings()
	return newTestRanker().Rank(candidates(listings, make([]float64, len(listings)), make([]float64, len(listings))), nil, 0)
}

func TestReportService_Branches(t *testing.T) {
	ctx := context.Background()
	in := ReportInput{Query: "北京", Results: rankedFixture()}

	tests := []struct {
		name       string
		producer   Reporter
		wantSource string
		wantText   string
	}{
		{"no producer", nil, ReportSourceTemplate, "总体结论："},
		{"disabled client", NewLLMReporter(&stubLLM{enabled: false}), ReportSourceTemplate, "总体结论："},
		{"client error", NewLLMReporter(&stubLLM{enabled: true, err: errors.New("boom")}), ReportSourceTemplate, "重点推荐："},
		{"empty completion", NewLLMReporter(&stubLLM{enabled: true, content: "```\n```"}), ReportSourceTemplate, "风险与建议："},
		{"llm text", NewLLMReporter(&stubLLM{enabled: true, content: "```markdown\n报告正文\n```"}), ReportSourceLLM, "报告正文"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, source := NewReportService(tt.producer, nil).Generate(ctx, in)
			assert.Equal(t, tt.wantSource, source)
			assert.Contains(t, text, tt.wantText)
		})
	}
}

func TestReportService_EmptyResults(t *testing.T) {
	llm := &stubLLM{enabled: true, content: "never used"}
	text, source := NewReportService(NewLLMReporter(llm), nil).Generate(context.Background(), ReportInput{Query: "x"})
	assert.Equal(t, emptyReport, text)
	assert.Equal(t, ReportSourceTemplate, source)
	assert.Zero(t, llm.calls)
}

func TestTemplateReporter(t *testing.T) {
	results := rankedFixture()
	text, err := TemplateReporter{}.Report(context.Background(), ReportInput{Results: results})
	require.NoError(t, err)

	assert.Contains(t, text, "共找到 3 套房源，价格区间 500 - 3000 万")
	assert.Contains(t, text, "户型分布：1室1套，2室1套，3室1套")
	assert.Contains(t, text, "- BJ001 | 北京海淀 中关村花园")
	assert.Contains(t, text, "学区占比 0.33")
}
