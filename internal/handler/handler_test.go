package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homerank/internal/catalog"
	"homerank/internal/index"
	"homerank/internal/model"
	"homerank/internal/service"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func newTestRouter(t *testing.T, build bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat := catalog.New([]model.Listing{
		{ID: "L1", City: "北京", District: "海淀", TotalPrice: f64(500), Description: str("近地铁 学区")},
		{ID: "L2", City: "北京", District: "朝阳", TotalPrice: f64(1500), Description: str("大三居 公园")},
		{ID: "L3", City: "上海", District: "浦东", TotalPrice: f64(3000), Description: str("江景 高层")},
	}, nil)
	embedder := index.NewHashEmbedder(32)
	def := catalog.NewContext(catalog.DefaultName, cat, index.NewMemoryStore(), embedder)
	if build {
		require.NoError(t, def.Build(context.Background()))
	}
	registry := catalog.NewRegistry(def, embedder, catalog.WithMaxSessions(2))

	searchService := service.NewSearchService(
		registry,
		service.NewQueryParser(),
		service.NewFilterEngine(),
		service.NewRanker(model.DefaultFusionWeights(), service.NewQualityScorer(model.DefaultQualityWeights())),
	)
	searchHandler := NewSearchHandler(searchService)
	sessionHandler := NewSessionHandler(service.NewSessionService(registry, nil), 1<<20)

	router := gin.New()
	api := router.Group("/api/v1")
	api.POST("/search", searchHandler.Search)
	api.POST("/search/stream", searchHandler.SearchStream)
	api.POST("/assist", searchHandler.Assist)
	api.GET("/listings/:id", searchHandler.GetListing)
	api.POST("/sessions", sessionHandler.Create)
	api.DELETE("/sessions/:id", sessionHandler.Delete)
	return router
}

func doJSON(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSearch(t *testing.T) {
	router := newTestRouter(t, true)

	w := doJSON(router, http.MethodPost, "/api/v1/search", map[string]any{"query": "北京 近地铁", "top_k": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, "L1", resp.Results[0].ID)
	require.NotNil(t, resp.Parsed.City)
	assert.Equal(t, "北京", *resp.Parsed.City)
}

func TestSearch_Errors(t *testing.T) {
	router := newTestRouter(t, true)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"negative top_k", map[string]any{"query": "x", "top_k": -1}, http.StatusBadRequest},
		{"inverted price range", map[string]any{"query": "x", "conditions": map[string]any{"min_price": 10, "max_price": 1}}, http.StatusBadRequest},
		{"unknown session", map[string]any{"query": "x", "session_id": "nope"}, http.StatusNotFound},
		{"malformed body", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/api/v1/search", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestSearch_IndexNotBuilt(t *testing.T) {
	router := newTestRouter(t, false)

	w := doJSON(router, http.MethodPost, "/api/v1/search", map[string]any{"query": "北京"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// Nothing survives filtering, so no index is needed.
	w = doJSON(router, http.MethodPost, "/api/v1/search", map[string]any{"query": "深圳"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"results":[]`)
}

func TestSearchStream(t *testing.T) {
	router := newTestRouter(t, true)

	w := doJSON(router, http.MethodPost, "/api/v1/search/stream", map[string]any{"query": "上海"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	body := w.Body.String()
	var order []int
	for _, event := range []string{"start", "parsed", "filtered", "scored", "results", "done"} {
		idx := strings.Index(body, "event: "+event+"\n")
		require.NotEqual(t, -1, idx, event)
		order = append(order, idx)
	}
	assert.IsIncreasing(t, order)
	assert.NotContains(t, body, "event: error")
}

func TestSearchStream_Error(t *testing.T) {
	router := newTestRouter(t, false)

	w := doJSON(router, http.MethodPost, "/api/v1/search/stream", map[string]any{"query": "北京"})
	assert.Contains(t, w.Body.String(), "event: error")
}

func TestAssist(t *testing.T) {
	router := newTestRouter(t, true)

	w := doJSON(router, http.MethodPost, "/api/v1/assist", map[string]any{"query": "北京"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.AssistResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, service.ReportSourceTemplate, resp.ReportSource)
	assert.NotEmpty(t, resp.Report)
	assert.Equal(t, 2, resp.Summary.Count)
}

func TestGetListing(t *testing.T) {
	router := newTestRouter(t, true)

	w := doJSON(router, http.MethodGet, "/api/v1/listings/L2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"district":"朝阳"`)

	w = doJSON(router, http.MethodGet, "/api/v1/listings/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessions_JSONUpload(t *testing.T) {
	router := newTestRouter(t, true)

	w := doJSON(router, http.MethodPost, "/api/v1/sessions", map[string]any{
		"listings": []map[string]any{
			{"编号": "S1", "城市": "深圳", "区域": "南山", "总价": "800", "描述": "海景"},
			{"编号": "S2", "城市": "深圳", "区域": "福田"},
			{"编号": "S3", "城市": "深圳"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created model.SessionUploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 2, created.Rows)
	assert.Equal(t, 1, created.Dropped)

	w = doJSON(router, http.MethodPost, "/api/v1/search", map[string]any{"query": "海景", "session_id": created.SessionID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"S1"`)

	w = doJSON(router, http.MethodGet, "/api/v1/listings/S2?session_id="+created.SessionID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/v1/sessions/"+created.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(router, http.MethodDelete, "/api/v1/sessions/"+created.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessions_CSVUpload(t *testing.T) {
	router := newTestRouter(t, true)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "listings.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("id,city,district,total_price\nC1,北京,海淀,600\nC2,北京,朝阳,\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"rows":2`)
}

func TestSessions_Rejected(t *testing.T) {
	router := newTestRouter(t, true)

	w := doJSON(router, http.MethodPost, "/api/v1/sessions", map[string]any{"listings": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	one := map[string]any{"listings": []map[string]any{{"id": "X", "city": "北京", "district": "海淀"}}}
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/api/v1/sessions", one).Code)
	}
	w = doJSON(router, http.MethodPost, "/api/v1/sessions", one)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
