package index

import "errors"

var (
	// ErrIndexNotBuilt indicates a required index artifact does not exist.
	// The index must be rebuilt out-of-band; callers should not retry.
	ErrIndexNotBuilt = errors.New("index not built")

	// ErrModelMismatch indicates a semantic artifact was built with a
	// different embedding model than the one configured.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrDimensionMismatch indicates vectors of unexpected dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrCorruptArtifact indicates an artifact that fails validation.
	ErrCorruptArtifact = errors.New("corrupt index artifact")
)
