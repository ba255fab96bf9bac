package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"homerank/internal/catalog"
	"homerank/internal/model"
)

// SessionService manages uploaded session catalogs.
type SessionService struct {
	registry *catalog.Registry
	logger   *slog.Logger
}

// NewSessionService creates a session service over registry.
func NewSessionService(registry *catalog.Registry, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		registry: registry,
		logger:   logger.With("component", "session"),
	}
}

// Create registers cat as a new session and builds its indexes.
func (s *SessionService) Create(ctx context.Context, cat *catalog.Catalog, report catalog.IngestReport) (*model.SessionUploadResponse, error) {
	startTime := time.Now()

	cc, err := s.registry.CreateSession(ctx, cat)
	if err != nil {
		return nil, err
	}
	lex, err := cc.Lexical(ctx)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", cc.Name(), err)
	}
	sem, err := cc.Semantic(ctx)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", cc.Name(), err)
	}

	resp := &model.SessionUploadResponse{
		SessionID:    cc.Name(),
		Rows:         cat.Len(),
		Dropped:      report.DroppedMissing,
		Duplicates:   report.Duplicates,
		LexicalTerms: lex.VocabularySize(),
		EmbeddingDim: sem.Dimensions(),
		Took:         time.Since(startTime).Milliseconds(),
	}
	s.logger.Info("Session catalog uploaded",
		"session_id", resp.SessionID,
		"rows", resp.Rows,
		"dropped", resp.Dropped,
		"duplicates", resp.Duplicates,
		"took_ms", resp.Took)
	return resp, nil
}

// Delete discards a session.
func (s *SessionService) Delete(id string) error {
	return s.registry.DeleteSession(id)
}
