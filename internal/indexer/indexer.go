package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tecton-ai/tecton-mcp/internal/config"
	"github.com/tecton-ai/tecton-mcp/internal/corpus"
	"github.com/tecton-ai/tecton-mcp/internal/observability"
	"github.com/tecton-ai/tecton-mcp/internal/store"
)

// ErrEmptyCorpus is returned when a source yields no chunks. The index is
// left untouched.
var ErrEmptyCorpus = errors.New("corpus is empty")

// ErrNoSources is returned by SourceFor when a corpus has no configured input.
var ErrNoSources = errors.New("no sources configured")

// Embedder is the part of embedding.Service the builder needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelStamp() string
	Dimensions() int
}

// Source produces the chunks of one corpus.
type Source func() ([]store.Chunk, error)

// Options tunes a Builder.
type Options struct {
	SDKVersion string
	BatchSize  int
	Progress   ProgressReporter
}

// Builder turns source corpora into index entries. Every build is a full
// replace of one corpus.
type Builder struct {
	embedder   Embedder
	index      store.Index
	sdkVersion string
	batchSize  int
	progress   ProgressReporter
	now        func() time.Time
}

// NewBuilder creates a builder writing into index.
func NewBuilder(embedder Embedder, index store.Index, opts Options) *Builder {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 64
	}
	progress := opts.Progress
	if progress == nil {
		progress = noProgress{}
	}
	return &Builder{
		embedder:   embedder,
		index:      index,
		sdkVersion: opts.SDKVersion,
		batchSize:  batch,
		progress:   progress,
		now:        time.Now,
	}
}

// Build reads src, embeds every chunk and replaces corpus in the index.
func (b *Builder) Build(ctx context.Context, corpusName string, src Source) (meta *store.CorpusMeta, err error) {
	ctx, span := observability.StartSpan(ctx, "indexer.Build", attribute.String("corpus", corpusName))
	defer func() {
		observability.RecordError(span, err)
		span.End()
	}()

	start := time.Now()
	slog.Info("Reading corpus", "corpus", corpusName)
	chunks, err := src()
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", corpusName, err)
	}

	chunks = b.prepare(corpusName, chunks)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCorpus, corpusName)
	}
	slog.Info("Chunked corpus", "corpus", corpusName, "chunks", len(chunks))

	entries, err := b.embed(ctx, corpusName, chunks)
	if err != nil {
		return nil, err
	}

	m := store.CorpusMeta{
		Corpus:      corpusName,
		ModelStamp:  b.embedder.ModelStamp(),
		Dimensions:  b.embedder.Dimensions(),
		ChunkCount:  len(entries),
		SDKVersion:  b.sdkVersion,
		ContentHash: store.ContentHash(chunks),
		BuiltAt:     b.now().UTC(),
	}
	if err := b.index.Replace(ctx, m, entries); err != nil {
		return nil, fmt.Errorf("failed to write corpus %s: %w", corpusName, err)
	}

	span.SetAttributes(attribute.Int("chunks", len(entries)))
	slog.Info("Built corpus",
		"corpus", corpusName,
		"chunks", len(entries),
		"model", m.ModelStamp,
		"content_hash", m.ContentHash,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return &m, nil
}

// prepare drops empty and duplicate chunks and stamps the corpus name.
func (b *Builder) prepare(corpusName string, chunks []store.Chunk) []store.Chunk {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]store.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			slog.Debug("Skipping empty chunk", "id", c.ID)
			continue
		}
		if _, dup := seen[c.ID]; dup {
			slog.Warn("Skipping duplicate chunk id", "id", c.ID)
			continue
		}
		seen[c.ID] = struct{}{}
		c.Corpus = corpusName
		out = append(out, c)
	}
	return out
}

func (b *Builder) embed(ctx context.Context, corpusName string, chunks []store.Chunk) ([]store.Entry, error) {
	b.progress.Start(len(chunks), "embedding "+corpusName)
	defer b.progress.Finish()

	entries := make([]store.Entry, 0, len(chunks))
	for i := 0; i < len(chunks); i += b.batchSize {
		end := min(i+b.batchSize, len(chunks))
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}
		vectors, err := b.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed %s chunks %d-%d: %w", corpusName, i, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}
		for j, c := range batch {
			entries = append(entries, store.Entry{Chunk: c, Vector: vectors[j]})
		}
		b.progress.Add(len(batch))
		slog.Debug("Embedded batch", "corpus", corpusName, "from", i, "to", end)
	}
	return entries, nil
}

// SourceFor returns the configured source of corpusName.
func SourceFor(cfg *config.Config, corpusName string) (Source, error) {
	switch corpusName {
	case config.CorpusDocs:
		if cfg.Sources.Docs.Dir == "" {
			return nil, fmt.Errorf("%w for %s", ErrNoSources, corpusName)
		}
		opts := corpus.DocsOptions{
			Dir:      cfg.Sources.Docs.Dir,
			BaseURL:  cfg.Sources.Docs.BaseURL,
			Patterns: cfg.Sources.Docs.Patterns,
		}
		return func() ([]store.Chunk, error) { return corpus.ReadDocs(opts) }, nil
	case config.CorpusExamplesRift:
		return examplesSource(corpusName, cfg.Sources.ExamplesRift)
	case config.CorpusExamplesSpark:
		return examplesSource(corpusName, cfg.Sources.ExamplesSpark)
	default:
		return nil, fmt.Errorf("unknown corpus: %s", corpusName)
	}
}

func examplesSource(corpusName string, paths []string) (Source, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoSources, corpusName)
	}
	return func() ([]store.Chunk, error) { return corpus.ReadExamples(corpusName, paths) }, nil
}

// Corpora lists every corpus name in build order.
func Corpora() []string {
	return []string{config.CorpusExamplesRift, config.CorpusExamplesSpark, config.CorpusDocs}
}
