package domain

import "fmt"

// VectorRecord is one embedding stored in the vector index.
// ID always equals ChunkID.
type VectorRecord struct {
	ID         string
	DocumentID string
	ChunkID    string
	Generation string
	Vector     []float32
}

// VectorHit is one nearest-neighbour result from the vector index.
type VectorHit struct {
	ChunkID    string
	DocumentID string
	Generation string

	// Similarity is the cosine similarity; higher is closer.
	Similarity float64
}

// VectorFilter selects vectors for deletion.
// Empty fields do not constrain the match; at least one must be set.
type VectorFilter struct {
	DocumentID        string
	Generation        string
	ExcludeGeneration string
	ChunkIDs          []string
}

// IsEmpty reports whether the filter would match every vector.
func (f VectorFilter) IsEmpty() bool {
	return f.DocumentID == "" && f.Generation == "" && f.ExcludeGeneration == "" && len(f.ChunkIDs) == 0
}

// RetrievedChunk is a chunk hydrated with its document title and rank score.
type RetrievedChunk struct {
	ChunkID    string
	DocumentID string
	Title      string
	PageFrom   int
	PageTo     int
	Text       string

	// Score is the vector similarity reported by the index.
	Score float64
}

// Citation points at the source of one context segment.
type Citation struct {
	DocumentID string
	Title      string
	PageFrom   int
	PageTo     int
}

// Label renders the citation the way it appears in the answer context.
func (c Citation) Label() string {
	return fmt.Sprintf("[%s | p.%d-%d]", c.Title, c.PageFrom, c.PageTo)
}

// Answer is a grounded LLM response with its citations.
type Answer struct {
	Question  string
	Text      string
	Citations []Citation
	Provider  AIProvider
	Model     string
}
