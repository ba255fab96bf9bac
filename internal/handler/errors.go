package handler

import (
	"errors"
	"net/http"

	"homerank/internal/catalog"
	"homerank/internal/index"
	"homerank/internal/model"
	"homerank/internal/service"

	"github.com/gin-gonic/gin"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidTopK),
		errors.Is(err, model.ErrInvalidConditions),
		errors.Is(err, catalog.ErrEmptyUpload):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrSessionNotFound),
		errors.Is(err, service.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrTooManySessions):
		return http.StatusTooManyRequests
	case errors.Is(err, index.ErrIndexNotBuilt),
		errors.Is(err, index.ErrModelMismatch),
		errors.Is(err, index.ErrCorruptArtifact),
		errors.Is(err, index.ErrDimensionMismatch):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, prefix string, err error) {
	c.JSON(statusFor(err), gin.H{"error": prefix + ": " + err.Error()})
}
