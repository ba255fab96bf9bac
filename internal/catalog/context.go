package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"homerank/internal/index"
)

// Context owns a catalog and the two retrieval indexes built over it.
// Indexes are loaded from the artifact store on first use; a Context never
// shares index state with another Context.
type Context struct {
	name     string
	catalog  *Catalog
	store    index.ArtifactStore
	embedder index.Embedder
	lexCfg   index.LexicalConfig
	logger   *slog.Logger

	lexMu    sync.Mutex
	lexical  *index.LexicalIndex
	semMu    sync.Mutex
	semantic *index.SemanticIndex

	lastUsed atomic.Int64
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// WithLexicalConfig sets the vectorizer bounds used by Build.
func WithLexicalConfig(cfg index.LexicalConfig) Option {
	return func(c *Context) { c.lexCfg = cfg }
}

// NewContext creates a context over cat. Artifacts are read from and
// written to store; queries are embedded with embedder.
func NewContext(name string, cat *Catalog, store index.ArtifactStore, embedder index.Embedder, opts ...Option) *Context {
	c := &Context{
		name:     name,
		catalog:  cat,
		store:    store,
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "catalog", "context", name)
	c.Touch()
	return c
}

// Name identifies the context ("default" or a session id).
func (c *Context) Name() string { return c.name }

// Catalog returns the owned catalog.
func (c *Context) Catalog() *Catalog { return c.catalog }

// Embedder returns the embedder queries must be encoded with.
func (c *Context) Embedder() index.Embedder { return c.embedder }

// Touch records use of the context.
func (c *Context) Touch() { c.lastUsed.Store(time.Now().UnixNano()) }

// LastUsed returns the time of the last Touch.
func (c *Context) LastUsed() time.Time { return time.Unix(0, c.lastUsed.Load()) }

// Lexical returns the lexical index, loading it on first use. A missing or
// stale artifact yields index.ErrIndexNotBuilt; failures are not cached so
// a rebuilt artifact is picked up by the next call.
func (c *Context) Lexical(ctx context.Context) (*index.LexicalIndex, error) {
	c.lexMu.Lock()
	defer c.lexMu.Unlock()
	if c.lexical != nil {
		return c.lexical, nil
	}

	artifact, err := c.store.LoadLexical(ctx)
	if err != nil {
		return nil, fmt.Errorf("lexical index for %s: %w", c.name, err)
	}
	lex, err := index.LexicalFromArtifact(artifact)
	if err != nil {
		return nil, fmt.Errorf("lexical index for %s: %w", c.name, err)
	}
	if err := c.checkRows(lex.IDs()); err != nil {
		return nil, fmt.Errorf("lexical index for %s: %w", c.name, err)
	}

	c.logger.Info("Lexical index loaded", "rows", lex.Len(), "terms", lex.VocabularySize())
	c.lexical = lex
	return lex, nil
}

// Semantic returns the semantic index, loading it on first use. An artifact
// built with another embedding model yields index.ErrModelMismatch.
func (c *Context) Semantic(ctx context.Context) (*index.SemanticIndex, error) {
	c.semMu.Lock()
	defer c.semMu.Unlock()
	if c.semantic != nil {
		return c.semantic, nil
	}

	artifact, err := c.store.LoadSemantic(ctx)
	if err != nil {
		return nil, fmt.Errorf("semantic index for %s: %w", c.name, err)
	}
	sem, err := index.SemanticFromArtifact(artifact, c.embedder.ModelName())
	if err != nil {
		return nil, fmt.Errorf("semantic index for %s: %w", c.name, err)
	}
	if err := c.checkRows(sem.IDs()); err != nil {
		return nil, fmt.Errorf("semantic index for %s: %w", c.name, err)
	}

	c.logger.Info("Semantic index loaded", "rows", sem.Len(), "model", sem.Model(), "dim", sem.Dimensions())
	c.semantic = sem
	return sem, nil
}

// Build builds both indexes from the catalog in parallel, saves them to the
// store and installs them.
func (c *Context) Build(ctx context.Context) error {
	start := time.Now()
	docs := c.catalog.Documents()

	var lex *index.LexicalIndex
	var sem *index.SemanticIndex

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lex = index.BuildLexical(docs, c.lexCfg)
		if err := c.store.SaveLexical(gctx, lex.Artifact()); err != nil {
			return fmt.Errorf("failed to save lexical index: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sem, err = index.BuildSemantic(gctx, c.embedder, docs)
		if err != nil {
			return fmt.Errorf("failed to build semantic index: %w", err)
		}
		if err := c.store.SaveSemantic(gctx, sem.Artifact()); err != nil {
			return fmt.Errorf("failed to save semantic index: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	c.lexMu.Lock()
	c.lexical = lex
	c.lexMu.Unlock()
	c.semMu.Lock()
	c.semantic = sem
	c.semMu.Unlock()

	c.logger.Info("Indexes built",
		"rows", len(docs),
		"terms", lex.VocabularySize(),
		"model", sem.Model(),
		"dim", sem.Dimensions(),
		"took", time.Since(start))
	return nil
}

// checkRows rejects artifacts whose row mapping is not this catalog's.
func (c *Context) checkRows(ids []string) error {
	if !slices.Equal(ids, c.catalog.IDs()) {
		return fmt.Errorf("%w: artifact covers %d rows, catalog has %d or a different order",
			index.ErrIndexNotBuilt, len(ids), c.catalog.Len())
	}
	return nil
}
