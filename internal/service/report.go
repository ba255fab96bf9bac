package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"homerank/internal/model"
	"homerank/internal/utils"
)

// ErrReportUnavailable is returned by a Reporter that cannot produce text.
var ErrReportUnavailable = errors.New("report producer unavailable")

// Report sources.
const (
	ReportSourceLLM      = "llm"
	ReportSourceTemplate = "template"
)

// emptyReport is returned whenever the result set is empty.
const emptyReport = "当前条件下没有找到合适的房源，建议放宽预算/面积/地段后再试。"

// reportHighlights is the number of listings quoted in a report.
const reportHighlights = 5

// ReportInput is everything a Reporter receives.
type ReportInput struct {
	Query      string
	Conditions *model.SearchConditions
	Results    []model.ListingSearchResult
	Summary    *model.SummaryStats
}

// Reporter turns ranked results into a text report.
type Reporter interface {
	Report(ctx context.Context, in ReportInput) (string, error)
}

// TemplateReporter renders a deterministic report from the summary.
type TemplateReporter struct{}

// Report implements Reporter. It never fails.
func (TemplateReporter) Report(_ context.Context, in ReportInput) (string, error) {
	if len(in.Results) == 0 {
		return emptyReport, nil
	}
	s := in.Summary
	if s == nil {
		s = Summarize(in.Results, in.Conditions)
	}

	var b strings.Builder
	b.WriteString("总体结论：\n")
	fmt.Fprintf(&b, "共找到 %d 套房源，价格区间 %s - %s 万，均价 %s 万，单价均值 %s 元/平。\n\n",
		s.Count, fmtFloat(s.PriceMin, 0), fmtFloat(s.PriceMax, 0), fmtFloat(s.PriceAvg, 1), fmtFloat(s.UnitPriceAvg, 0))

	b.WriteString("价格与户型分析：\n")
	fmt.Fprintf(&b, "面积区间 %s - %s 平，平均 %s 平；户型分布：%s\n\n",
		fmtFloat(s.AreaMin, 0), fmtFloat(s.AreaMax, 0), fmtFloat(s.AreaAvg, 1), fmtBedrooms(s.BedroomsDistribution))

	b.WriteString("地段与通勤：\n")
	fmt.Fprintf(&b, "距地铁均值 %s km，最小 %s km；学区占比 %.2f；建成年份 %s - %s。\n\n",
		fmtFloat(s.SubwayDistanceAvg, 2), fmtFloat(s.SubwayDistanceMin, 2), s.SchoolDistrictRatio,
		fmtInt(s.YearBuiltMin), fmtInt(s.YearBuiltMax))

	b.WriteString("重点推荐：\n")
	for i, r := range in.Results {
		if i == reportHighlights {
			break
		}
		fmt.Fprintf(&b, "- %s | %s%s %s | %s | 总价 %s 万\n",
			r.ID, r.City, r.District, deref(r.Community), deref(r.Layout), fmtFloat(r.TotalPrice, 0))
	}
	b.WriteString("\n风险与建议：\n")
	b.WriteString("如预算紧张或房龄偏老，可考虑放宽预算/面积或更远地段，或减少学区/地铁硬条件。")
	return b.String(), nil
}

// LLMReporter asks a chat model to write the report.
type LLMReporter struct {
	client LLMClient
}

// NewLLMReporter creates a reporter backed by client.
func NewLLMReporter(client LLMClient) *LLMReporter {
	return &LLMReporter{client: client}
}

const reportSystemPrompt = `你是一名房产分析师。根据用户需求、解析出的筛选条件、统计数据和候选房源，写一份简洁的中文分析报告。
报告包含：总体结论、价格与户型分析、地段与通勤、重点推荐（最多5套，引用房源编号）、风险与建议。
只依据给出的数据，不要编造房源或数字。直接输出报告正文。`

// Report implements Reporter.
func (r *LLMReporter) Report(ctx context.Context, in ReportInput) (string, error) {
	if r.client == nil || !r.client.IsEnabled() {
		return "", ErrReportUnavailable
	}

	payload, err := json.Marshal(map[string]any{
		"query":      in.Query,
		"conditions": in.Conditions,
		"summary":    in.Summary,
		"listings":   highlightRows(in.Results),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal report input: %w", err)
	}

	resp, err := r.client.ChatCompletion(ctx, ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: reportSystemPrompt},
			{Role: "user", Content: string(payload)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReportUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrReportUnavailable)
	}

	text := utils.CleanLLMText(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrReportUnavailable)
	}
	return text, nil
}

// ReportService picks between a remote producer and the local template.
type ReportService struct {
	producer Reporter
	fallback TemplateReporter
	logger   *slog.Logger
}

// NewReportService creates a report service. producer may be nil, in which
// case every report comes from the template.
func NewReportService(producer Reporter, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		producer: producer,
		logger:   logger.With("component", "report"),
	}
}

// Generate returns the report text and which branch produced it.
func (s *ReportService) Generate(ctx context.Context, in ReportInput) (string, string) {
	if len(in.Results) == 0 {
		return emptyReport, ReportSourceTemplate
	}
	if in.Summary == nil {
		in.Summary = Summarize(in.Results, in.Conditions)
	}

	if s.producer != nil {
		text, err := s.producer.Report(ctx, in)
		if err == nil {
			return text, ReportSourceLLM
		}
		s.logger.Warn("Report producer failed, using template", "error", err)
	}

	text, _ := s.fallback.Report(ctx, in)
	return text, ReportSourceTemplate
}

// highlightRows keeps the columns worth showing a model.
func highlightRows(results []model.ListingSearchResult) []map[string]any {
	n := min(len(results), reportHighlights)
	rows := make([]map[string]any, 0, n)
	for _, r := range results[:n] {
		rows = append(rows, map[string]any{
			"id":          r.ID,
			"city":        r.City,
			"district":    r.District,
			"community":   r.Community,
			"layout":      r.Layout,
			"total_price": r.TotalPrice,
			"area":        r.Area,
			"unit_price":  r.UnitPrice,
			"score":       r.Score,
			"reasons":     r.MatchedReasons,
		})
	}
	return rows
}

func fmtFloat(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, *v)
}

func fmtInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func fmtBedrooms(dist map[int]int) string {
	if len(dist) == 0 {
		return "-"
	}
	keys := make([]int, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%d室%d套", k, dist[k]))
	}
	return strings.Join(parts, "，")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
