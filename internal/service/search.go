package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"homerank/internal/catalog"
	"homerank/internal/index"
	"homerank/internal/model"
)

var (
	// ErrInvalidTopK is returned for a negative top_k.
	ErrInvalidTopK = errors.New("top_k must be a positive integer")

	// ErrListingNotFound is returned when a listing id is not in the catalog.
	ErrListingNotFound = errors.New("listing not found")
)

// Stage names reported in SearchResponse.Degraded.
const (
	StageLexical  = "lexical"
	StageSemantic = "semantic"
)

// Stream event names, in emission order.
const (
	EventStart    = "start"
	EventParsed   = "parsed"
	EventFiltered = "filtered"
	EventScored   = "scored"
	EventResults  = "results"
	EventDone     = "done"
)

// SearchService runs the parse, filter, retrieve and rank pipeline over a
// catalog context.
type SearchService struct {
	registry    *catalog.Registry
	parser      *QueryParser
	filter      *FilterEngine
	ranker      *Ranker
	reports     *ReportService
	defaultTopK int
	maxTopK     int
	logger      *slog.Logger
}

// SearchOption configures a SearchService.
type SearchOption func(*SearchService)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) SearchOption {
	return func(s *SearchService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTopKLimits sets the top_k used when a request omits it and the cap
// applied to larger values.
func WithTopKLimits(defaultTopK, maxTopK int) SearchOption {
	return func(s *SearchService) {
		s.defaultTopK = defaultTopK
		s.maxTopK = maxTopK
	}
}

// WithReportService sets the report producer used by Assist.
func WithReportService(reports *ReportService) SearchOption {
	return func(s *SearchService) { s.reports = reports }
}

// NewSearchService creates a new search service
func NewSearchService(
	registry *catalog.Registry,
	parser *QueryParser,
	filter *FilterEngine,
	ranker *Ranker,
	opts ...SearchOption,
) *SearchService {
	s := &SearchService{
		registry:    registry,
		parser:      parser,
		filter:      filter,
		ranker:      ranker,
		defaultTopK: 10,
		maxTopK:     100,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "search")
	if s.reports == nil {
		s.reports = NewReportService(nil, s.logger)
	}
	return s
}

// SearchEventCallback is called for streaming search events
type SearchEventCallback func(event string, data any) error

// RunOptions controls one pipeline run.
type RunOptions struct {
	TopK int
	// Conditions, when set, replace parsing entirely.
	Conditions  *model.SearchConditions
	UseLexical  bool
	UseSemantic bool
}

// Run executes the pipeline against cc. An empty filtered candidate set is a
// valid empty result; an unbuilt index is an error.
func (s *SearchService) Run(ctx context.Context, cc *catalog.Context, query string, opts RunOptions) (*model.SearchResponse, error) {
	return s.RunStream(ctx, cc, query, opts, nil)
}

// RunStream is Run with a callback invoked after every stage. A callback
// error aborts the run.
func (s *SearchService) RunStream(ctx context.Context, cc *catalog.Context, query string, opts RunOptions, callback SearchEventCallback) (*model.SearchResponse, error) {
	if callback == nil {
		callback = func(string, any) error { return nil }
	}
	if opts.TopK <= 0 {
		return nil, ErrInvalidTopK
	}

	if err := callback(EventStart, map[string]any{
		"query":   query,
		"context": cc.Name(),
		"top_k":   opts.TopK,
	}); err != nil {
		return nil, err
	}

	cond, err := s.conditions(query, opts.Conditions)
	if err != nil {
		return nil, err
	}
	if err := callback(EventParsed, cond); err != nil {
		return nil, err
	}

	candidates := s.filter.Apply(cc.Catalog(), cond)
	s.logger.Debug("Candidates filtered", "context", cc.Name(), "catalog", cc.Catalog().Len(), "candidates", candidates.Len())
	if err := callback(EventFiltered, map[string]any{"candidates": candidates.Len()}); err != nil {
		return nil, err
	}

	resp := &model.SearchResponse{
		Results:         []model.ListingSearchResult{},
		Parsed:          cond,
		TotalCandidates: candidates.Len(),
	}
	if candidates.Len() == 0 {
		if err := callback(EventResults, resp.Results); err != nil {
			return nil, err
		}
		return resp, nil
	}

	// Retrieval runs inside the candidate set with headroom for fusion.
	k := 2 * opts.TopK
	allow := candidates.Contains

	lexical := map[string]float64{}
	if opts.UseLexical {
		lex, err := cc.Lexical(ctx)
		if err != nil {
			return nil, err
		}
		for _, h := range lex.Search(query, k, allow) {
			lexical[h.ID] = h.Score
		}
	}

	semantic := map[string]float64{}
	if opts.UseSemantic {
		sem, err := cc.Semantic(ctx)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(query) != "" {
			hits, err := sem.Search(ctx, cc.Embedder(), query, k, allow)
			if err != nil {
				s.logger.Warn("Semantic scoring degraded", "context", cc.Name(), "error", err)
				resp.Degraded = append(resp.Degraded, StageSemantic)
			}
			// Similarity below zero ranks no better than not being retrieved.
			for _, h := range hits {
				semantic[h.ID] = max(h.Score, 0)
			}
		}
	}

	if err := callback(EventScored, map[string]any{
		"lexical_hits":  len(lexical),
		"semantic_hits": len(semantic),
		"degraded":      resp.Degraded,
	}); err != nil {
		return nil, err
	}

	pool := make([]Candidate, candidates.Len())
	for i := range pool {
		l := candidates.At(i)
		pool[i] = Candidate{
			Listing:     l,
			LexicalRaw:  lexical[l.ID],
			SemanticRaw: semantic[l.ID],
		}
	}
	resp.Results = s.ranker.Rank(pool, cond, opts.TopK)

	if err := callback(EventResults, resp.Results); err != nil {
		return nil, err
	}
	return resp, nil
}

// Search resolves the request's catalog context and runs the pipeline.
func (s *SearchService) Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error) {
	return s.search(ctx, req, nil)
}

// SearchStream performs a search, reporting each stage to callback and
// finishing with a done event.
func (s *SearchService) SearchStream(ctx context.Context, req *model.SearchRequest, callback SearchEventCallback) (*model.SearchResponse, error) {
	resp, err := s.search(ctx, req, callback)
	if err != nil {
		return nil, err
	}
	if err := callback(EventDone, map[string]any{
		"took_ms":  resp.Took,
		"count":    len(resp.Results),
		"degraded": resp.Degraded,
	}); err != nil {
		return nil, err
	}
	return resp, nil
}

// Assist runs a search and adds summary statistics and a report.
func (s *SearchService) Assist(ctx context.Context, req *model.SearchRequest) (*model.AssistResponse, error) {
	resp, err := s.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	summary := Summarize(resp.Results, resp.Parsed)
	text, source := s.reports.Generate(ctx, ReportInput{
		Query:      req.Query,
		Conditions: resp.Parsed,
		Results:    resp.Results,
		Summary:    summary,
	})
	return &model.AssistResponse{
		SearchResponse: *resp,
		Summary:        summary,
		Report:         text,
		ReportSource:   source,
	}, nil
}

// GetListing retrieves a single listing by id from the session catalog, or
// the default catalog when sessionID is empty.
func (s *SearchService) GetListing(sessionID, id string) (*model.Listing, error) {
	cc, err := s.registry.Resolve(sessionID)
	if err != nil {
		return nil, err
	}
	l, ok := cc.Catalog().Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrListingNotFound, id)
	}
	return l, nil
}

func (s *SearchService) search(ctx context.Context, req *model.SearchRequest, callback SearchEventCallback) (*model.SearchResponse, error) {
	startTime := time.Now()

	topK, err := s.topK(req.TopK)
	if err != nil {
		return nil, err
	}
	cc, err := s.registry.Resolve(req.SessionID)
	if err != nil {
		return nil, err
	}

	resp, err := s.RunStream(ctx, cc, req.Query, RunOptions{
		TopK:        topK,
		Conditions:  req.Conditions,
		UseLexical:  req.LexicalEnabled(),
		UseSemantic: req.SemanticEnabled(),
	}, callback)
	if err != nil {
		if errors.Is(err, index.ErrIndexNotBuilt) {
			s.logger.Error("Index not built", "context", cc.Name(), "error", err)
		}
		return nil, err
	}

	resp.Took = time.Since(startTime).Milliseconds()
	s.logger.Info("Search completed",
		"context", cc.Name(),
		"candidates", resp.TotalCandidates,
		"results", len(resp.Results),
		"degraded", resp.Degraded,
		"took_ms", resp.Took)
	return resp, nil
}

// topK applies the default and the cap. Zero means "use the default".
func (s *SearchService) topK(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, ErrInvalidTopK
	case requested == 0:
		return s.defaultTopK, nil
	case s.maxTopK > 0 && requested > s.maxTopK:
		return s.maxTopK, nil
	default:
		return requested, nil
	}
}

// conditions returns explicit conditions when given, otherwise the parse of
// query. Explicit conditions are validated and copied.
func (s *SearchService) conditions(query string, explicit *model.SearchConditions) (*model.SearchConditions, error) {
	if explicit == nil {
		return s.parser.Parse(query), nil
	}
	if err := explicit.Validate(); err != nil {
		return nil, err
	}
	cond := *explicit
	if cond.Keywords == nil {
		cond.Keywords = []string{}
	}
	if cond.Raw == "" {
		cond.Raw = query
	}
	return &cond, nil
}
