package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"homerank/internal/model"
	"homerank/internal/service"

	"github.com/gin-gonic/gin"
)

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	searchService *service.SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService *service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	req, ok := bindSearchRequest(c)
	if !ok {
		return
	}

	response, err := h.searchService.Search(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, "Search failed", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Assist handles POST /api/v1/assist
func (h *SearchHandler) Assist(c *gin.Context) {
	req, ok := bindSearchRequest(c)
	if !ok {
		return
	}

	response, err := h.searchService.Assist(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, "Assist failed", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// SearchStream handles POST /api/v1/search/stream - SSE streaming search
func (h *SearchHandler) SearchStream(c *gin.Context) {
	req, ok := bindSearchRequest(c)
	if !ok {
		return
	}

	// Create flusher for SSE
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	_, err := h.searchService.SearchStream(c.Request.Context(), req, func(event string, data any) error {
		if err := c.Request.Context().Err(); err != nil {
			return err
		}
		sendSSE(c, event, data)
		flusher.Flush()
		return nil
	})

	if err != nil {
		sendSSE(c, "error", map[string]any{"error": err.Error(), "status": statusFor(err)})
		flusher.Flush()
	}
}

func bindSearchRequest(c *gin.Context) (*model.SearchRequest, bool) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return nil, false
	}
	return &req, true
}

// sendSSE writes one event frame. Nil data is sent as an empty object.
func sendSSE(c *gin.Context, event string, data any) {
	payload := []byte("{}")
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			event, b = "error", []byte(`{"error":"JSON marshal failed"}`)
		}
		payload = b
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, payload)
}

// GetListing handles GET /api/v1/listings/:id[?session_id=]
func (h *SearchHandler) GetListing(c *gin.Context) {
	listing, err := h.searchService.GetListing(c.Query("session_id"), c.Param("id"))
	if err != nil {
		abortWithError(c, "Failed to get listing", err)
		return
	}

	c.JSON(http.StatusOK, listing)
}
