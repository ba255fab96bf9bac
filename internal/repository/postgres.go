package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"homerank/internal/catalog"
	"homerank/internal/index"
	"homerank/internal/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Artifact names in index_artifacts and index_meta.
const (
	lexicalArtifact  = "lexical"
	semanticArtifact = "semantic"
)

// PostgresRepository handles database operations. It is both a catalog
// source and an index.ArtifactStore.
type PostgresRepository struct {
	db *sqlx.DB
}

// Ensure PostgresRepository implements index.ArtifactStore
var _ index.ArtifactStore = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", withSimpleProtocol(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute) // Shorter lifetime to avoid stale connections
	db.SetConnMaxIdleTime(2 * time.Minute) // Close idle connections sooner

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// withSimpleProtocol disables prepared statement caching to avoid "unnamed
// prepared statement does not exist" errors behind poolers.
func withSimpleProtocol(dsn string) string {
	if strings.Contains(dsn, "prefer_simple_protocol=") {
		return dsn
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		if !strings.Contains(dsn, "?") {
			return dsn + "?prefer_simple_protocol=true"
		}
		return dsn + "&prefer_simple_protocol=true"
	}
	// key=value form
	return strings.TrimSpace(dsn + " prefer_simple_protocol=true")
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the index tables and the embedding column if they
// do not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// LoadListings reads the listings table into a catalog, ordered by id. The
// schema is inferred from the values present.
func (r *PostgresRepository) LoadListings(ctx context.Context) (*catalog.Catalog, error) {
	query := fmt.Sprintf(`SELECT %s FROM listings ORDER BY id`, strings.Join(listingColumns, ", "))

	var listings []model.Listing
	if err := r.db.SelectContext(ctx, &listings, query); err != nil {
		return nil, fmt.Errorf("failed to fetch listings: %w", err)
	}
	return catalog.New(listings, nil), nil
}

// LoadLexical implements index.ArtifactStore.
func (r *PostgresRepository) LoadLexical(ctx context.Context) (*index.LexicalArtifact, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload, `SELECT payload FROM index_artifacts WHERE name = $1`, lexicalArtifact)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, index.ErrIndexNotBuilt
		}
		return nil, fmt.Errorf("failed to load lexical artifact: %w", err)
	}

	var a index.LexicalArtifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", index.ErrCorruptArtifact, err)
	}
	return &a, nil
}

// SaveLexical implements index.ArtifactStore.
func (r *PostgresRepository) SaveLexical(ctx context.Context, a *index.LexicalArtifact) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal lexical artifact: %w", err)
	}
	query := `
		INSERT INTO index_artifacts (name, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, lexicalArtifact, payload); err != nil {
		return fmt.Errorf("failed to save lexical artifact: %w", err)
	}
	return nil
}

type semanticMeta struct {
	Version int    `db:"version"`
	Model   string `db:"model"`
	Dim     int    `db:"dim"`
}

type embeddingRow struct {
	ID        string          `db:"id"`
	Embedding pgvector.Vector `db:"embedding"`
}

// LoadSemantic implements index.ArtifactStore. Vectors live in the
// listings.embedding column; rows without one are not part of the index.
func (r *PostgresRepository) LoadSemantic(ctx context.Context) (*index.SemanticArtifact, error) {
	var meta semanticMeta
	err := r.db.GetContext(ctx, &meta, `SELECT version, model, dim FROM index_meta WHERE name = $1`, semanticArtifact)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, index.ErrIndexNotBuilt
		}
		return nil, fmt.Errorf("failed to load semantic metadata: %w", err)
	}

	var rows []embeddingRow
	err = r.db.SelectContext(ctx, &rows, `SELECT id, embedding FROM listings WHERE embedding IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}

	a := &index.SemanticArtifact{
		Version: meta.Version,
		Model:   meta.Model,
		Dim:     meta.Dim,
		RowIDs:  make([]string, len(rows)),
		Vectors: make([][]float32, len(rows)),
	}
	for i, row := range rows {
		a.RowIDs[i] = row.ID
		a.Vectors[i] = row.Embedding.Slice()
	}
	return a, nil
}

// SaveSemantic implements index.ArtifactStore. Embeddings and metadata are
// replaced in one transaction.
func (r *PostgresRepository) SaveSemantic(ctx context.Context, a *index.SemanticArtifact) error {
	if len(a.RowIDs) != len(a.Vectors) {
		return fmt.Errorf("%w: %d ids for %d vectors", index.ErrCorruptArtifact, len(a.RowIDs), len(a.Vectors))
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE listings SET embedding = NULL WHERE embedding IS NOT NULL`); err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `UPDATE listings SET embedding = $1 WHERE id = $2`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, id := range a.RowIDs {
		res, err := stmt.ExecContext(ctx, pgvector.NewVector(a.Vectors[i]), id)
		if err != nil {
			return fmt.Errorf("listing %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("listing %s: not in listings table", id)
		}
	}

	query := `
		INSERT INTO index_meta (name, version, model, dim, row_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (name) DO UPDATE SET
			version = EXCLUDED.version, model = EXCLUDED.model, dim = EXCLUDED.dim,
			row_count = EXCLUDED.row_count, updated_at = NOW()
	`
	if _, err := tx.ExecContext(ctx, query, semanticArtifact, a.Version, a.Model, a.Dim, len(a.RowIDs)); err != nil {
		return fmt.Errorf("failed to save semantic metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
