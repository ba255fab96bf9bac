package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"homerank/internal/catalog"
	"homerank/internal/model"
	"homerank/internal/service"

	"github.com/gin-gonic/gin"
)

// SessionHandler handles catalog uploads
type SessionHandler struct {
	sessions *service.SessionService
	maxBytes int64
}

// NewSessionHandler creates a session handler. Uploads larger than
// maxBytes are rejected; 0 means unlimited.
func NewSessionHandler(sessions *service.SessionService, maxBytes int64) *SessionHandler {
	return &SessionHandler{sessions: sessions, maxBytes: maxBytes}
}

// Create handles POST /api/v1/sessions. The catalog is either a JSON body
// {"listings": [...]} or a multipart "file" field holding CSV or JSON.
func (h *SessionHandler) Create(c *gin.Context) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}

	var (
		cat    *catalog.Catalog
		report catalog.IngestReport
		err    error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		cat, report, err = readUploadedFile(c)
	} else {
		var req model.SessionUploadRequest
		if err = c.ShouldBindJSON(&req); err == nil {
			cat, report = catalog.FromRecords(req.Listings)
		}
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload: " + err.Error()})
		return
	}

	response, err := h.sessions.Create(c.Request.Context(), cat, report)
	if err != nil {
		abortWithError(c, "Failed to create session", err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// Delete handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		abortWithError(c, "Failed to delete session", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func readUploadedFile(c *gin.Context) (*catalog.Catalog, catalog.IngestReport, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, catalog.IngestReport{}, err
	}
	f, err := header.Open()
	if err != nil {
		return nil, catalog.IngestReport{}, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".csv":
		return catalog.ReadCSV(f)
	case ".json":
		return catalog.ReadJSON(f)
	default:
		return nil, catalog.IngestReport{}, fmt.Errorf("unsupported file type %q", header.Filename)
	}
}
