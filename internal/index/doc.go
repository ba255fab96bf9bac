// Package index builds, persists and queries the per-catalog retrieval
// indexes: a TF-IDF term matrix for lexical relevance and a normalised
// vector store for semantic similarity. Both are rebuildable from the
// catalog text alone.
package index

// Document is one catalog row as seen by the indexes.
type Document struct {
	ID   string
	Text string
}

// Hit is a scored index row. Row is the position in the indexed corpus.
type Hit struct {
	Row   int
	ID    string
	Score float64
}
