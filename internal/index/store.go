package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ArtifactStore persists the two index artifacts of a catalog.
// Load methods return ErrIndexNotBuilt when the artifact does not exist.
type ArtifactStore interface {
	LoadLexical(ctx context.Context) (*LexicalArtifact, error)
	SaveLexical(ctx context.Context, a *LexicalArtifact) error
	LoadSemantic(ctx context.Context) (*SemanticArtifact, error)
	SaveSemantic(ctx context.Context, a *SemanticArtifact) error
}

const (
	lexicalFile  = "lexical.json"
	semanticFile = "semantic.json"
)

// FileStore keeps artifacts as JSON files in one directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir. The directory is created on
// first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the artifact directory.
func (s *FileStore) Dir() string { return s.dir }

// LoadLexical implements ArtifactStore.
func (s *FileStore) LoadLexical(ctx context.Context) (*LexicalArtifact, error) {
	var a LexicalArtifact
	if err := s.read(lexicalFile, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveLexical implements ArtifactStore.
func (s *FileStore) SaveLexical(ctx context.Context, a *LexicalArtifact) error {
	return s.write(lexicalFile, a)
}

// LoadSemantic implements ArtifactStore.
func (s *FileStore) LoadSemantic(ctx context.Context) (*SemanticArtifact, error) {
	var a SemanticArtifact
	if err := s.read(semanticFile, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveSemantic implements ArtifactStore.
func (s *FileStore) SaveSemantic(ctx context.Context, a *SemanticArtifact) error {
	return s.write(semanticFile, a)
}

func (s *FileStore) read(name string, v any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrIndexNotBuilt, path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptArtifact, path, err)
	}
	return nil
}

// write replaces the file atomically via a temp file in the same directory.
func (s *FileStore) write(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.dir, err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// MemoryStore keeps artifacts in memory. Session catalogs use it so their
// indexes never reach the default store.
type MemoryStore struct {
	lexical  *LexicalArtifact
	semantic *SemanticArtifact
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// LoadLexical implements ArtifactStore.
func (m *MemoryStore) LoadLexical(ctx context.Context) (*LexicalArtifact, error) {
	if m.lexical == nil {
		return nil, ErrIndexNotBuilt
	}
	return m.lexical, nil
}

// SaveLexical implements ArtifactStore.
func (m *MemoryStore) SaveLexical(ctx context.Context, a *LexicalArtifact) error {
	m.lexical = a
	return nil
}

// LoadSemantic implements ArtifactStore.
func (m *MemoryStore) LoadSemantic(ctx context.Context) (*SemanticArtifact, error) {
	if m.semantic == nil {
		return nil, ErrIndexNotBuilt
	}
	return m.semantic, nil
}

// SaveSemantic implements ArtifactStore.
func (m *MemoryStore) SaveSemantic(ctx context.Context, a *SemanticArtifact) error {
	m.semantic = a
	return nil
}
