// Package retrieval answers the example-code and documentation search tools
// from a built vector index.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tecton-ai/tecton-mcp/internal/apperr"
	"github.com/tecton-ai/tecton-mcp/internal/config"
	"github.com/tecton-ai/tecton-mcp/internal/observability"
	"github.com/tecton-ai/tecton-mcp/internal/store"
)

// Kind selects how results are post-processed and rendered.
type Kind string

const (
	KindExamples Kind = "examples"
	KindDocs     Kind = "docs"
)

// Search types.
const (
	SearchSimilarity = "similarity"
	SearchMMR        = "mmr"
)

// Embedder is the query-side view of embedding.Service.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelStamp() string
}

// Options configures a Handler.
type Options struct {
	DefaultLimit int
	MaxLimit     int
	SearchType   string
	FetchK       int
	Lambda       float64
}

// DefaultOptions returns the stock retrieval settings.
func DefaultOptions() Options {
	return Options{
		DefaultLimit: 10,
		MaxLimit:     50,
		SearchType:   SearchMMR,
		FetchK:       20,
		Lambda:       0.5,
	}
}

// OptionsFromConfig converts the retrieval config section.
func OptionsFromConfig(cfg config.RetrievalConfig) Options {
	opts := DefaultOptions()
	if cfg.DefaultLimit > 0 {
		opts.DefaultLimit = cfg.DefaultLimit
	}
	if cfg.MaxLimit > 0 {
		opts.MaxLimit = cfg.MaxLimit
	}
	if cfg.SearchType != "" {
		opts.SearchType = cfg.SearchType
	}
	if cfg.FetchK > 0 {
		opts.FetchK = cfg.FetchK
	}
	if cfg.MMRLambda != nil {
		opts.Lambda = *cfg.MMRLambda
	}
	return opts
}

// Request is one tool invocation.
type Request struct {
	Query string
	Limit int
}

// Result is a single retrieved chunk.
type Result struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Response holds results ordered by non-increasing score.
type Response struct {
	Corpus  string   `json:"corpus"`
	Kind    Kind     `json:"kind"`
	Results []Result `json:"results"`
}

// Handler serves similarity queries against one corpus.
type Handler struct {
	embedder Embedder
	index    store.Index
	corpus   string
	kind     Kind
	opts     Options

	meta    *store.CorpusMeta
	metaErr error
}

// NewHandler creates a handler and loads the corpus metadata once. A missing
// corpus does not fail construction; every query then reports it.
func NewHandler(ctx context.Context, embedder Embedder, index store.Index, corpus string, kind Kind, opts Options) *Handler {
	h := &Handler{
		embedder: embedder,
		index:    index,
		corpus:   corpus,
		kind:     kind,
		opts:     opts,
	}
	h.meta, h.metaErr = index.Meta(ctx, corpus)
	if h.metaErr != nil {
		slog.Warn("Corpus not available", "corpus", corpus, "error", h.metaErr)
		return h
	}
	if stamp := embedder.ModelStamp(); h.meta.ModelStamp != stamp {
		slog.Warn("Index built with a different embedding model",
			"corpus", corpus, "index_model", h.meta.ModelStamp, "query_model", stamp)
	}
	return h
}

// Corpus returns the corpus name this handler queries.
func (h *Handler) Corpus() string {
	return h.corpus
}

// Kind returns the handler kind.
func (h *Handler) Kind() Kind {
	return h.kind
}

// Meta returns the corpus metadata loaded at construction.
func (h *Handler) Meta() (*store.CorpusMeta, error) {
	return h.meta, h.metaErr
}

// Query embeds the request and returns the nearest chunks.
func (h *Handler) Query(ctx context.Context, req Request) (resp *Response, err error) {
	op := "search " + h.corpus
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperr.Input(op, "query must not be empty")
	}
	limit := h.limit(req.Limit)

	ctx, span := observability.StartSpan(ctx, "retrieval.Query",
		attribute.String("corpus", h.corpus),
		attribute.String("search_type", h.opts.SearchType),
		attribute.Int("limit", limit),
	)
	defer func() {
		observability.RecordError(span, err)
		span.End()
	}()

	if h.metaErr != nil {
		return nil, apperr.Unavailable(op, h.metaErr)
	}
	if stamp := h.embedder.ModelStamp(); h.meta.ModelStamp != stamp {
		return nil, apperr.Unavailable(op, fmt.Errorf("%w: index has %s, embedder has %s",
			apperr.ErrModelMismatch, h.meta.ModelStamp, stamp))
	}

	start := time.Now()
	vector, err := h.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperr.Unavailable(op, fmt.Errorf("embed query: %w", err))
	}

	fetch := limit
	if h.opts.SearchType == SearchMMR {
		fetch = max(h.opts.FetchK, limit)
	}
	if h.kind == KindExamples {
		// Duplicate code is collapsed after search; over-fetch to keep the limit.
		fetch *= 2
	}
	candidates, err := h.index.Search(ctx, h.corpus, vector, fetch)
	if err != nil {
		return nil, apperr.Unavailable(op, fmt.Errorf("search index: %w", err))
	}

	if h.kind == KindExamples {
		candidates = dedupeByContent(candidates)
	}
	if h.opts.SearchType == SearchMMR {
		candidates = mmrSelect(candidates, limit, h.opts.Lambda)
	}
	sortByScore(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	resp = &Response{Corpus: h.corpus, Kind: h.kind, Results: make([]Result, len(candidates))}
	for i, c := range candidates {
		resp.Results[i] = Result{
			ID:       c.ID,
			Content:  c.Content(),
			Score:    c.Score,
			Metadata: c.Metadata,
		}
	}

	span.SetAttributes(attribute.Int("results", len(resp.Results)))
	slog.Debug("Query served",
		"corpus", h.corpus,
		"results", len(resp.Results),
		"duration", time.Since(start).Round(time.Microsecond).String(),
	)
	return resp, nil
}

func (h *Handler) limit(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = h.opts.DefaultLimit
	}
	if h.opts.MaxLimit > 0 && limit > h.opts.MaxLimit {
		limit = h.opts.MaxLimit
	}
	return limit
}

// dedupeByContent keeps the first (highest scoring) entry for each payload.
func dedupeByContent(entries []store.ScoredEntry) []store.ScoredEntry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]store.ScoredEntry, 0, len(entries))
	for _, e := range entries {
		key := strings.TrimSpace(e.Content())
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

func sortByScore(entries []store.ScoredEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ID < entries[j].ID
	})
}
