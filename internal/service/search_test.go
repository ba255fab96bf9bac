package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homerank/internal/catalog"
	"homerank/internal/index"
	"homerank/internal/model"
)

// brokenQueryEmbedder keeps the model id of a working embedder but fails on
// every call, as a remote embedder does when it goes down after the index
// was built.
type brokenQueryEmbedder struct {
	*index.HashEmbedder
}

func (brokenQueryEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding endpoint unavailable")
}

// axisEmbedder places the 江景 row and the query on +x, the park view row on
// -x and everything else in between, so some rows have negative similarity.
type axisEmbedder struct {
	query string
}

func (axisEmbedder) ModelName() string { return "axis-2" }
func (axisEmbedder) Dimensions() int   { return 2 }

func (e axisEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		switch {
		case text == e.query, strings.Contains(text, "江景"):
			out[i] = []float32{1, 0}
		case strings.Contains(text, "park view"):
			out[i] = []float32{-1, 0}
		default:
			out[i] = []float32{-0.6, 0.8}
		}
	}
	return out, nil
}

func TestRun_EmptyCatalog(t *testing.T) {
	empty := catalog.New(nil, nil)
	svc, registry := newTestService(t, empty)

	resp, err := svc.Run(context.Background(), registry.Default(), "北京 2室", RunOptions{TopK: 5, UseLexical: true, UseSemantic: true})
	require.NoError(t, err)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	require.NotNil(t, resp.Parsed)
	assert.Equal(t, "北京", *resp.Parsed.City)
}

func TestRun_EmptyCandidatesSkipIndexes(t *testing.T) {
	// Indexes are never built, yet a query filtered to nothing succeeds.
	cat := fixtureCatalog()
	embedder := index.NewHashEmbedder(16)
	def := catalog.NewContext(catalog.DefaultName, cat, index.NewMemoryStore(), embedder)
	svc := NewSearchService(catalog.NewRegistry(def, embedder), NewQueryParser(), NewFilterEngine(), newTestRanker())

	resp, err := svc.Run(context.Background(), def, "深圳 南山", RunOptions{TopK: 5, UseLexical: true, UseSemantic: true})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, resp.TotalCandidates)

	_, err = svc.Run(context.Background(), def, "北京", RunOptions{TopK: 5, UseLexical: true})
	assert.ErrorIs(t, err, index.ErrIndexNotBuilt)
}

func TestRun_ConcurrentQueriesShareLazyIndexes(t *testing.T) {
	ctx := context.Background()
	cat := fixtureCatalog()
	store := index.NewMemoryStore()
	embedder := index.NewHashEmbedder(64)
	require.NoError(t, catalog.NewContext("builder", cat, store, embedder).Build(ctx))

	// The default context has not loaded anything yet.
	def := catalog.NewContext(catalog.DefaultName, cat, store, embedder)
	svc := NewSearchService(catalog.NewRegistry(def, embedder), NewQueryParser(), NewFilterEngine(), newTestRanker())
	opts := RunOptions{TopK: 3, UseLexical: true, UseSemantic: true}

	const workers = 16
	results := make([][]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := svc.Run(ctx, def, "北京 近地铁 学区", opts)
			if err != nil {
				errs[i] = err
				return
			}
			for _, r := range resp.Results {
				results[i] = append(results[i], r.ID)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.NotEmpty(t, results[i])
		assert.Equal(t, results[0], results[i])
	}
}

func TestRun_NegativeSimilarityScoresAsUnretrieved(t *testing.T) {
	const query = "房源"
	embedder := axisEmbedder{query: query}
	def := catalog.NewContext(catalog.DefaultName, fixtureCatalog(), index.NewMemoryStore(), embedder)
	require.NoError(t, def.Build(context.Background()))
	svc := NewSearchService(catalog.NewRegistry(def, embedder), NewQueryParser(), NewFilterEngine(), newTestRanker())

	resp, err := svc.Run(context.Background(), def, query, RunOptions{TopK: 3, UseSemantic: true})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)

	byID := map[string]model.ScoreBundle{}
	for _, r := range resp.Results {
		byID[r.ID] = r.Scores
		assert.GreaterOrEqual(t, r.Scores.SemanticRaw, 0.0, r.ID)
	}
	assert.InDelta(t, 1.0, byID["SH001"].SemanticRaw, 1e-6)
	assert.InDelta(t, 1.0, byID["SH001"].SemanticNorm, 1e-9)
	assert.Zero(t, byID["BJ001"].SemanticNorm)
	assert.Zero(t, byID["BJ002"].SemanticNorm)
}

func TestRun_RanksFilteredCandidates(t *testing.T) {
	svc, registry := newTestService(t, fixtureCatalog())

	resp, err := svc.Run(context.Background(), registry.Default(), "北京 近地铁 学区", RunOptions{TopK: 5, UseLexical: true, UseSemantic: true})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalCandidates)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "BJ001", resp.Results[0].ID)
	assert.Greater(t, resp.Results[0].Scores.LexicalRaw, 0.0)
	for _, r := range resp.Results {
		assert.Equal(t, "北京", r.City)
	}
	assert.Empty(t, resp.Degraded)
}

func TestRun_ExplicitConditionsSkipParsing(t *testing.T) {
	svc, registry := newTestService(t, fixtureCatalog())

	explicit := &model.SearchConditions{MinPrice: f64(1000)}
	resp, err := svc.Run(context.Background(), registry.Default(), "北京 海淀", RunOptions{TopK: 10, Conditions: explicit, UseLexical: true})
	require.NoError(t, err)
	assert.Nil(t, resp.Parsed.City)
	assert.Equal(t, 2, resp.TotalCandidates)
	assert.NotNil(t, resp.Parsed.Keywords)

	_, err = svc.Run(context.Background(), registry.Default(), "", RunOptions{
		TopK:       10,
		Conditions: &model.SearchConditions{MinPrice: f64(10), MaxPrice: f64(5)},
	})
	assert.ErrorIs(t, err, model.ErrInvalidConditions)
}

func TestRun_SkippedStagesScoreZero(t *testing.T) {
	svc, registry := newTestService(t, fixtureCatalog())

	resp, err := svc.Run(context.Background(), registry.Default(), "近地铁", RunOptions{TopK: 3})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	for _, r := range resp.Results {
		assert.Zero(t, r.Scores.LexicalRaw)
		assert.Zero(t, r.Scores.SemanticRaw)
		assert.Zero(t, r.Scores.LexicalNorm)
	}
}

func TestRun_SemanticDegrades(t *testing.T) {
	ctx := context.Background()
	cat := fixtureCatalog()
	store := index.NewMemoryStore()
	hash := index.NewHashEmbedder(32)
	require.NoError(t, catalog.NewContext("builder", cat, store, hash).Build(ctx))

	broken := brokenQueryEmbedder{hash}
	def := catalog.NewContext(catalog.DefaultName, cat, store, broken)
	svc := NewSearchService(catalog.NewRegistry(def, broken), NewQueryParser(), NewFilterEngine(), newTestRanker())

	resp, err := svc.Run(ctx, def, "学区", RunOptions{TopK: 3, UseLexical: true, UseSemantic: true})
	require.NoError(t, err)
	assert.Equal(t, []string{StageSemantic}, resp.Degraded)
	assert.Len(t, resp.Results, 3)
}

func TestRun_InvalidTopK(t *testing.T) {
	svc, registry := newTestService(t, fixtureCatalog())
	_, err := svc.Run(context.Background(), registry.Default(), "x", RunOptions{TopK: 0})
	assert.ErrorIs(t, err, ErrInvalidTopK)
}

func TestRunStream_Events(t *testing.T) {
	svc, registry := newTestService(t, fixtureCatalog())

	var events []string
	_, err := svc.RunStream(context.Background(), registry.Default(), "上海", RunOptions{TopK: 2, UseLexical: true, UseSemantic: true},
		func(event string, data any) error {
			events = append(events, event)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{EventStart, EventParsed, EventFiltered, EventScored, EventResults}, events)

	stop := errors.New("client went away")
	_, err = svc.RunStream(context.Background(), registry.Default(), "上海", RunOptions{TopK: 2},
		func(event string, data any) error {
			if event == EventFiltered {
				return stop
			}
			return nil
		})
	assert.ErrorIs(t, err, stop)
}

func TestSearch_TopK(t *testing.T) {
	svc, _ := newTestService(t, fixtureCatalog(), WithTopKLimits(2, 2))
	ctx := context.Background()

	resp, err := svc.Search(ctx, &model.SearchRequest{Query: "房子"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2, "zero top_k uses the default")

	resp, err = svc.Search(ctx, &model.SearchRequest{Query: "房子", TopK: 50})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2, "top_k is capped")

	_, err = svc.Search(ctx, &model.SearchRequest{Query: "房子", TopK: -1})
	assert.ErrorIs(t, err, ErrInvalidTopK)
}

func TestSearch_Sessions(t *testing.T) {
	ctx := context.Background()
	svc, registry := newTestService(t, fixtureCatalog())

	_, err := svc.Search(ctx, &model.SearchRequest{Query: "x", SessionID: "missing"})
	assert.ErrorIs(t, err, catalog.ErrSessionNotFound)

	upload := catalog.New([]model.Listing{
		{ID: "U1", City: "深圳", District: "南山", TotalPrice: f64(800), Description: str("海景 公寓")},
	}, nil)
	sessions := NewSessionService(registry, nil)
	created, err := sessions.Create(ctx, upload, catalog.IngestReport{Rows: 1, Kept: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, created.Rows)
	assert.Equal(t, 64, created.EmbeddingDim)

	resp, err := svc.Search(ctx, &model.SearchRequest{Query: "海景", SessionID: created.SessionID})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "U1", resp.Results[0].ID)

	def, err := svc.Search(ctx, &model.SearchRequest{Query: "海景"})
	require.NoError(t, err)
	for _, r := range def.Results {
		assert.NotEqual(t, "U1", r.ID, "sessions never leak into the default catalog")
	}

	l, err := svc.GetListing(created.SessionID, "U1")
	require.NoError(t, err)
	assert.Equal(t, "南山", l.District)
	_, err = svc.GetListing("", "U1")
	assert.ErrorIs(t, err, ErrListingNotFound)

	require.NoError(t, sessions.Delete(created.SessionID))
	_, err = svc.GetListing(created.SessionID, "U1")
	assert.ErrorIs(t, err, catalog.ErrSessionNotFound)
}

func TestAssist_TemplateFallback(t *testing.T) {
	svc, _ := newTestService(t, fixtureCatalog())

	resp, err := svc.Assist(context.Background(), &model.SearchRequest{Query: "北京"})
	require.NoError(t, err)
	assert.Equal(t, ReportSourceTemplate, resp.ReportSource)
	assert.Contains(t, resp.Report, "共找到 2 套房源")
	require.NotNil(t, resp.Summary)
	assert.Equal(t, 2, resp.Summary.Count)

	none, err := svc.Assist(context.Background(), &model.SearchRequest{Query: "深圳"})
	require.NoError(t, err)
	assert.Equal(t, emptyReport, none.Report)
}
