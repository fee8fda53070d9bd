package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"time"
)

// ErrCorpusNotFound is returned by Meta when a corpus has never been built.
var ErrCorpusNotFound = errors.New("corpus not found")

// Chunk is a contiguous span of source text prepared for embedding.
// Chunks are immutable once indexed.
type Chunk struct {
	// Stable identifier: {corpus}:{source}:{ordinal}
	ID string `json:"id"`

	Corpus  string `json:"corpus"`
	Source  string `json:"source"` // provenance (file path or manifest entry)
	Ordinal int    `json:"ordinal"`

	Title string `json:"title"`

	// Text is what gets embedded.
	Text string `json:"text"`

	// Payload is what a retrieval tool returns. Defaults to Text when empty.
	Payload string `json:"payload,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Content returns the payload, falling back to the embedded text.
func (c *Chunk) Content() string {
	if c.Payload != "" {
		return c.Payload
	}
	return c.Text
}

// Entry pairs a chunk with its embedding vector.
type Entry struct {
	Chunk
	Vector []float32 `json:"-"`
}

// ScoredEntry is a search hit.
type ScoredEntry struct {
	Entry
	Score    float32 `json:"score"`
	Distance float32 `json:"distance"`
}

// CorpusMeta describes one built corpus.
type CorpusMeta struct {
	Corpus      string    `json:"corpus"`
	ModelStamp  string    `json:"model_stamp"`
	Dimensions  int       `json:"dimensions"`
	ChunkCount  int       `json:"chunk_count"`
	SDKVersion  string    `json:"sdk_version,omitempty"`
	ContentHash string    `json:"content_hash"`
	BuiltAt     time.Time `json:"built_at"`
}

// Index is a nearest-neighbour store holding one or more corpora.
// Implementations must be safe for concurrent readers.
type Index interface {
	// Replace atomically swaps the contents of meta.Corpus for entries.
	Replace(ctx context.Context, meta CorpusMeta, entries []Entry) error

	// Search returns up to k entries of corpus ordered by cosine similarity,
	// most similar first. Ties are broken by chunk id.
	Search(ctx context.Context, corpus string, vector []float32, k int) ([]ScoredEntry, error)

	// Meta returns ErrCorpusNotFound if corpus was never built.
	Meta(ctx context.Context, corpus string) (*CorpusMeta, error)

	Stats(ctx context.Context) ([]CorpusMeta, error)

	Close() error
}

// ContentHash fingerprints a set of chunks independent of their order.
func ContentHash(chunks []Chunk) string {
	sorted := make([]Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	h := sha256.New()
	for _, c := range sorted {
		h.Write([]byte(c.ID))
		h.Write([]byte{0})
		h.Write([]byte(c.Text))
		h.Write([]byte{0})
		h.Write([]byte(c.Payload))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
