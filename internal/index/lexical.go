package index

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Default vectorizer bounds.
const (
	DefaultMaxFeatures = 20000
	DefaultNGramMax    = 2
)

// LexicalConfig bounds the vectorizer vocabulary.
type LexicalConfig struct {
	MaxFeatures int `json:"max_features"`
	NGramMax    int `json:"ngram_max"`
}

func (c LexicalConfig) withDefaults() LexicalConfig {
	if c.MaxFeatures <= 0 {
		c.MaxFeatures = DefaultMaxFeatures
	}
	if c.NGramMax <= 0 {
		c.NGramMax = DefaultNGramMax
	}
	return c
}

// TermWeight is one non-zero cell of the term matrix.
type TermWeight struct {
	Term   int     `json:"t"`
	Weight float64 `json:"w"`
}

// LexicalIndex is a TF-IDF term matrix with L2-normalised rows.
type LexicalIndex struct {
	config LexicalConfig
	terms  []string
	vocab  map[string]int
	idf    []float64
	rows   [][]TermWeight
	ids    []string
}

// BuildLexical fits the vectorizer on docs and stores the term matrix.
func BuildLexical(docs []Document, cfg LexicalConfig) *LexicalIndex {
	cfg = cfg.withDefaults()

	features := make([][]string, len(docs))
	totals := make(map[string]int)
	for i, d := range docs {
		features[i] = ngrams(Tokenize(d.Text), cfg.NGramMax)
		for _, f := range features[i] {
			totals[f]++
		}
	}

	// Keep the most frequent terms; ties break alphabetically so the
	// vocabulary is deterministic.
	candidates := make([]string, 0, len(totals))
	for term := range totals {
		candidates = append(candidates, term)
	}
	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := totals[candidates[i]], totals[candidates[j]]
		if ci != cj {
			return ci > cj
		}
		return candidates[i] < candidates[j]
	})
	if len(candidates) > cfg.MaxFeatures {
		candidates = candidates[:cfg.MaxFeatures]
	}
	sort.Strings(candidates)

	vocab := make(map[string]int, len(candidates))
	for i, term := range candidates {
		vocab[term] = i
	}

	df := make([]int, len(candidates))
	counts := make([]map[int]int, len(docs))
	for i, fs := range features {
		counts[i] = make(map[int]int)
		for _, f := range fs {
			if t, ok := vocab[f]; ok {
				counts[i][t]++
			}
		}
		for t := range counts[i] {
			df[t]++
		}
	}

	n := float64(len(docs))
	idf := make([]float64, len(candidates))
	for t := range idf {
		idf[t] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	x := &LexicalIndex{
		config: cfg,
		terms:  candidates,
		vocab:  vocab,
		idf:    idf,
		rows:   make([][]TermWeight, len(docs)),
		ids:    make([]string, len(docs)),
	}
	for i, d := range docs {
		x.ids[i] = d.ID
		x.rows[i] = x.weigh(counts[i])
	}
	return x
}

// Len returns the number of indexed rows.
func (x *LexicalIndex) Len() int { return len(x.rows) }

// VocabularySize returns the number of retained features.
func (x *LexicalIndex) VocabularySize() int { return len(x.terms) }

// IDs returns the row-id mapping.
func (x *LexicalIndex) IDs() []string { return append([]string(nil), x.ids...) }

// Config returns the vectorizer configuration.
func (x *LexicalIndex) Config() LexicalConfig { return x.config }

// Search projects the query into the term space and returns up to k rows
// with positive cosine similarity, highest first. Equal scores keep corpus
// order. allow restricts the searched rows; nil searches all of them.
func (x *LexicalIndex) Search(query string, k int, allow func(id string) bool) []Hit {
	if k <= 0 || len(x.rows) == 0 {
		return nil
	}

	qcounts := make(map[int]int)
	for _, f := range ngrams(Tokenize(query), x.config.NGramMax) {
		if t, ok := x.vocab[f]; ok {
			qcounts[t]++
		}
	}
	if len(qcounts) == 0 {
		return nil
	}
	qvec := make(map[int]float64, len(qcounts))
	for _, tw := range x.weigh(qcounts) {
		qvec[tw.Term] = tw.Weight
	}

	hits := make([]Hit, 0)
	for row, cells := range x.rows {
		if allow != nil && !allow(x.ids[row]) {
			continue
		}
		var dot float64
		for _, c := range cells {
			if w, ok := qvec[c.Term]; ok {
				dot += w * c.Weight
			}
		}
		if dot > 0 {
			hits = append(hits, Hit{Row: row, ID: x.ids[row], Score: dot})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// weigh turns raw term counts into an L2-normalised tf-idf row sorted by term.
func (x *LexicalIndex) weigh(counts map[int]int) []TermWeight {
	row := make([]TermWeight, 0, len(counts))
	for t, c := range counts {
		row = append(row, TermWeight{Term: t, Weight: float64(c) * x.idf[t]})
	}
	sort.Slice(row, func(i, j int) bool { return row[i].Term < row[j].Term })

	var norm float64
	for _, tw := range row {
		norm += tw.Weight * tw.Weight
	}
	if norm == 0 {
		return row
	}
	norm = math.Sqrt(norm)
	for i := range row {
		row[i].Weight /= norm
	}
	return row
}

// ngrams returns the uni- to n-gram features of tokens, joined by a space.
func ngrams(tokens []string, n int) []string {
	out := make([]string, 0, len(tokens)*n)
	for size := 1; size <= n; size++ {
		for i := 0; i+size <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+size], " "))
		}
	}
	return out
}

// LexicalArtifact is the persisted form of a LexicalIndex.
type LexicalArtifact struct {
	Version    int            `json:"version"`
	Config     LexicalConfig  `json:"config"`
	Vocabulary []string       `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
	Matrix     [][]TermWeight `json:"matrix"`
	RowIDs     []string       `json:"row_ids"`
}

const lexicalArtifactVersion = 1

// Artifact exports the index for persistence.
func (x *LexicalIndex) Artifact() *LexicalArtifact {
	return &LexicalArtifact{
		Version:    lexicalArtifactVersion,
		Config:     x.config,
		Vocabulary: x.terms,
		IDF:        x.idf,
		Matrix:     x.rows,
		RowIDs:     x.ids,
	}
}

// LexicalFromArtifact restores an index from its persisted form.
func LexicalFromArtifact(a *LexicalArtifact) (*LexicalIndex, error) {
	if a == nil {
		return nil, ErrIndexNotBuilt
	}
	if a.Version != lexicalArtifactVersion {
		return nil, fmt.Errorf("%w: lexical version %d", ErrCorruptArtifact, a.Version)
	}
	if len(a.Vocabulary) != len(a.IDF) || len(a.Matrix) != len(a.RowIDs) {
		return nil, fmt.Errorf("%w: lexical shape mismatch", ErrCorruptArtifact)
	}
	vocab := make(map[string]int, len(a.Vocabulary))
	for i, term := range a.Vocabulary {
		vocab[term] = i
	}
	for _, row := range a.Matrix {
		for _, c := range row {
			if c.Term < 0 || c.Term >= len(a.Vocabulary) {
				return nil, fmt.Errorf("%w: term %d out of range", ErrCorruptArtifact, c.Term)
			}
		}
	}
	return &LexicalIndex{
		config: a.Config.withDefaults(),
		terms:  a.Vocabulary,
		vocab:  vocab,
		idf:    a.IDF,
		rows:   a.Matrix,
		ids:    a.RowIDs,
	}, nil
}
