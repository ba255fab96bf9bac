// Package app wires configuration into the catalog, artifact store and
// embedder shared by the server and the index CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"homerank/internal/catalog"
	"homerank/internal/config"
	"homerank/internal/index"
	"homerank/internal/model"
	"homerank/internal/repository"
	"homerank/internal/service"
)

// App holds the process-wide components.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Repo     *repository.PostgresRepository // nil unless postgres is configured
	OpenAI   *service.OpenAIClient
	Catalog  *catalog.Catalog
	Ingest   catalog.IngestReport
	Store    index.ArtifactStore
	Embedder index.Embedder
	Default  *catalog.Context
}

// New connects to the configured sources and loads the default catalog.
// Indexes are not loaded; the default context does that on first use.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if cfg.UsesPostgres() {
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			return nil, err
		}
		a.Repo = repo
		logger.Info("Connected to PostgreSQL database")
	}

	a.OpenAI = service.NewOpenAIClient(&cfg.OpenAI, logger)

	embedder, err := a.newEmbedder()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Embedder = embedder

	store, err := a.newStore()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	if err := a.loadCatalog(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Default = catalog.NewContext(catalog.DefaultName, a.Catalog, a.Store, a.Embedder,
		catalog.WithLogger(logger),
		catalog.WithLexicalConfig(a.LexicalConfig()))
	return a, nil
}

// LexicalConfig returns the configured vectorizer bounds.
func (a *App) LexicalConfig() index.LexicalConfig {
	return index.LexicalConfig{
		MaxFeatures: a.Config.Index.MaxFeatures,
		NGramMax:    a.Config.Index.NGramMax,
	}
}

// Registry creates the session registry around the default context.
func (a *App) Registry() *catalog.Registry {
	return catalog.NewRegistry(a.Default, a.Embedder,
		catalog.WithMaxSessions(a.Config.Search.MaxSessions),
		catalog.WithSessionTTL(a.Config.Search.SessionTTL),
		catalog.WithSessionLexicalConfig(a.LexicalConfig()),
		catalog.WithRegistryLogger(a.Logger))
}

// SearchService creates the query pipeline over registry.
func (a *App) SearchService(registry *catalog.Registry) *service.SearchService {
	var producer service.Reporter
	if a.OpenAI.IsEnabled() {
		producer = service.NewLLMReporter(a.OpenAI)
	}
	return service.NewSearchService(
		registry,
		service.NewQueryParser(),
		service.NewFilterEngine(),
		service.NewRanker(a.Config.Ranking.Fusion, service.NewQualityScorer(a.Config.Ranking.Quality)),
		service.WithLogger(a.Logger),
		service.WithTopKLimits(a.Config.Search.DefaultTopK, a.Config.Search.MaxTopK),
		service.WithReportService(service.NewReportService(producer, a.Logger)),
	)
}

// Close releases the database connection.
func (a *App) Close() {
	if a.Repo != nil {
		_ = a.Repo.Close()
	}
}

func (a *App) newEmbedder() (index.Embedder, error) {
	switch a.Config.Embedding.Provider {
	case "", "hash":
		return index.NewHashEmbedder(a.Config.Embedding.Dimensions), nil
	case "openai":
		if !a.OpenAI.IsEnabled() {
			return nil, fmt.Errorf("%w: embedding provider openai requires OPENAI_API_KEY", config.ErrInvalidConfig)
		}
		return service.NewOpenAIEmbedder(a.OpenAI), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", config.ErrInvalidConfig, a.Config.Embedding.Provider)
	}
}

func (a *App) newStore() (index.ArtifactStore, error) {
	switch a.Config.Index.Store {
	case "", "file":
		return index.NewFileStore(a.Config.Index.Dir), nil
	case "postgres":
		return a.Repo, nil
	default:
		return nil, fmt.Errorf("%w: unknown index store %q", config.ErrInvalidConfig, a.Config.Index.Store)
	}
}

func (a *App) loadCatalog(ctx context.Context) error {
	switch a.Config.Catalog.Source {
	case "", "file":
		if a.Config.Catalog.Path == "" {
			a.Catalog = catalog.New([]model.Listing{}, nil)
			a.Logger.Warn("No catalog path configured, default catalog is empty")
			return nil
		}
		cat, report, err := catalog.LoadFile(a.Config.Catalog.Path)
		if err != nil {
			return err
		}
		a.Catalog, a.Ingest = cat, report
		a.Logger.Info("Catalog loaded",
			"path", a.Config.Catalog.Path,
			"rows", report.Rows,
			"kept", report.Kept,
			"dropped", report.DroppedMissing,
			"duplicates", report.Duplicates)
	case "postgres":
		cat, err := a.Repo.LoadListings(ctx)
		if err != nil {
			return err
		}
		a.Catalog = cat
		a.Logger.Info("Catalog loaded from PostgreSQL", "rows", cat.Len())
	default:
		return fmt.Errorf("%w: unknown catalog source %q", config.ErrInvalidConfig, a.Config.Catalog.Source)
	}
	return nil
}
