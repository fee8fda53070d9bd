package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/tecton-ai/tecton-mcp/internal/config"
)

// Service provides embedding generation functionality
type Service struct {
	cfg    *config.EmbeddingConfig
	client Client
	cache  *Cache
	stamp  string
}

// Client is the interface for embedding API clients
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// NewService creates a new embedding service
func NewService(cfg *config.EmbeddingConfig) (*Service, error) {
	var client Client
	var err error

	switch cfg.Provider {
	case "hash":
		client = NewHashClient(cfg.Dimensions)
	case "openai":
		client, err = NewOpenAIClient(cfg)
	case "ollama":
		client, err = NewOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	svc := NewServiceWithClient(cfg, client)

	if cfg.Cache && cfg.Provider != "hash" {
		cache, err := OpenCache(cfg.CachePath)
		if err != nil {
			// The cache only saves remote calls; run without it.
			slog.Warn("embedding cache unavailable", "path", cfg.CachePath, "error", err)
		} else {
			svc.cache = cache
		}
	}

	return svc, nil
}

// NewServiceWithClient wraps an existing client, used by tests and by callers
// that construct their own provider.
func NewServiceWithClient(cfg *config.EmbeddingConfig, client Client) *Service {
	return &Service{
		cfg:    cfg,
		client: client,
		stamp:  Stamp(cfg.Provider, cfg.Model, client.Dimensions()),
	}
}

// Stamp identifies the model a vector came from: provider/model@dimensions.
func Stamp(provider, model string, dimensions int) string {
	return fmt.Sprintf("%s/%s@%d", provider, model, dimensions)
}

// ModelStamp returns the stamp recorded with every index built by this service.
func (s *Service) ModelStamp() string {
	return s.stamp
}

// Close releases the embedding cache, if any.
func (s *Service) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

// Embed generates an embedding for a single text
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}
	if s.cache != nil {
		if vec, ok := s.cache.Get(s.stamp, text); ok && s.checkDimensions(vec) == nil {
			return vec, nil
		}
	}
	vec, err := s.client.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := s.checkDimensions(vec); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Put(s.stamp, []string{text}, [][]float32{vec}); err != nil {
			slog.Warn("embedding cache write failed", "error", err)
		}
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts. Output order matches input;
// empty texts get a nil vector.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))

	// Filter out empty and cached texts
	pendingTexts := make([]string, 0, len(texts))
	pendingIndices := make([]int, 0, len(texts))
	for i, text := range texts {
		if text == "" {
			continue
		}
		if s.cache != nil {
			if vec, ok := s.cache.Get(s.stamp, text); ok && s.checkDimensions(vec) == nil {
				results[i] = vec
				continue
			}
		}
		pendingTexts = append(pendingTexts, text)
		pendingIndices = append(pendingIndices, i)
	}

	if len(pendingTexts) == 0 {
		for _, r := range results {
			if r != nil {
				return results, nil
			}
		}
		return nil, fmt.Errorf("no valid texts to embed")
	}

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	for i := 0; i < len(pendingTexts); i += batchSize {
		end := i + batchSize
		if end > len(pendingTexts) {
			end = len(pendingTexts)
		}

		batch := pendingTexts[i:end]
		embeddings, err := s.client.EmbedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", i, end, err)
		}
		if len(embeddings) != len(batch) {
			return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(embeddings), len(batch))
		}

		for j, emb := range embeddings {
			if err := s.checkDimensions(emb); err != nil {
				return nil, err
			}
			results[pendingIndices[i+j]] = emb
		}

		if s.cache != nil {
			if err := s.cache.Put(s.stamp, batch, embeddings); err != nil {
				slog.Warn("embedding cache write failed", "error", err)
			}
		}
	}

	return results, nil
}

// Dimensions returns the dimension of the embeddings
func (s *Service) Dimensions() int {
	return s.client.Dimensions()
}

func (s *Service) checkDimensions(vec []float32) error {
	if want := s.client.Dimensions(); want > 0 && len(vec) != want {
		return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), want)
	}
	for i, v := range vec {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("embedding component %d is not finite", i)
		}
	}
	return nil
}

// Similarity computes cosine similarity between two vectors
func Similarity(a, b []float32) float32 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("vector dimension mismatch: %d vs %d", len(a), len(b)))
	}

	var dotProduct float32
	var normA float32
	var normB float32

	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// L2Distance computes L2 (Euclidean) distance between two vectors
func L2Distance(a, b []float32) float32 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("vector dimension mismatch: %d vs %d", len(a), len(b)))
	}

	var sum float32
	for i := 0; i < len(a); i++ {
		diff := a[i] - b[i]
		sum += diff * diff
	}

	return float32(math.Sqrt(float64(sum)))
}

// Normalize scales v to unit length in place. Zero vectors are left unchanged.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
