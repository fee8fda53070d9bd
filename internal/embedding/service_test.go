package embedding

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/tecton-ai/tecton-mcp/internal/config"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float32
	}{
		{
			name:     "identical vectors",
			a:        []float32{1, 2, 3},
			b:        []float32{1, 2, 3},
			expected: 1.0,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1, 0, 0},
			b:        []float32{0, 1, 0},
			expected: 0.0,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1, 1, 1},
			b:        []float32{-1, -1, -1},
			expected: -1.0,
		},
		{
			name:     "similar vectors",
			a:        []float32{1, 2, 3},
			b:        []float32{1.1, 2.1, 3.1},
			expected: 0.999, // Approximately
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Similarity(tt.a, tt.b)
			diff := result - tt.expected
			if diff < 0 {
				diff = -diff
			}
			if diff > 0.001 {
				t.Errorf("Similarity() = %v, want %v (diff: %v)", result, tt.expected, diff)
			}
		})
	}
}

func TestL2Distance(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float32
	}{
		{
			name:     "identical vectors",
			a:        []float32{1, 2, 3},
			b:        []float32{1, 2, 3},
			expected: 0.0,
		},
		{
			name:     "different vectors",
			a:        []float32{0, 0, 0},
			b:        []float32{3, 4, 0},
			expected: 5.0,
		},
		{
			name:     "unit distance",
			a:        []float32{0, 0},
			b:        []float32{1, 0},
			expected: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := L2Distance(tt.a, tt.b)
			diff := result - tt.expected
			if diff < 0 {
				diff = -diff
			}
			if diff > 0.001 {
				t.Errorf("L2Distance() = %v, want %v (diff: %v)", result, tt.expected, diff)
			}
		})
	}
}

func TestSimilarityPanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for dimension mismatch")
		}
	}()

	Similarity([]float32{1, 2}, []float32{1, 2, 3})
}

func TestL2DistancePanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for dimension mismatch")
		}
	}()

	L2Distance([]float32{1, 2}, []float32{1, 2, 3})
}

type countingClient struct {
	dims  int
	calls int
	texts []string
}

func (c *countingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (c *countingClient) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.texts = append(c.texts, texts...)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, c.dims)
		v[0] = float32(len(t))
		out[i] = v
	}
	return out, nil
}

func (c *countingClient) Dimensions() int { return c.dims }

func TestEmbedBatchOrderAndEmpty(t *testing.T) {
	client := &countingClient{dims: 2}
	svc := NewServiceWithClient(&config.EmbeddingConfig{Provider: "test", Model: "m", BatchSize: 2}, client)

	out, err := svc.EmbedBatch(context.Background(), []string{"a", "", "bbb", "cc", "dddd"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(out) != 5 {
		t.Fatalf("expected 5 results, got %d", len(out))
	}
	if out[1] != nil {
		t.Errorf("empty text should map to nil vector")
	}
	want := []float32{1, 0, 3, 2, 4}
	for i, w := range want {
		if i == 1 {
			continue
		}
		if out[i][0] != w {
			t.Errorf("out[%d][0] = %v, want %v", i, out[i][0], w)
		}
	}
	if client.calls != 2 {
		t.Errorf("expected 2 batches of size 2, got %d calls", client.calls)
	}
}

func TestEmbedRejectsEmpty(t *testing.T) {
	svc := NewServiceWithClient(&config.EmbeddingConfig{Provider: "test", Model: "m"}, &countingClient{dims: 2})
	if _, err := svc.Embed(context.Background(), ""); err == nil {
		t.Error("expected error for empty text")
	}
	if _, err := svc.EmbedBatch(context.Background(), []string{"", ""}); err == nil {
		t.Error("expected error when every text is empty")
	}
}

func TestEmbedDimensionCheck(t *testing.T) {
	svc := NewServiceWithClient(&config.EmbeddingConfig{Provider: "test", Model: "m"}, &badDimsClient{})
	if _, err := svc.Embed(context.Background(), "x"); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

type badDimsClient struct{}

func (badDimsClient) Embed(context.Context, string) ([]float32, error) { return []float32{1}, nil }
func (badDimsClient) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}
func (badDimsClient) Dimensions() int { return 3 }

func TestModelStamp(t *testing.T) {
	svc, err := NewService(&config.EmbeddingConfig{Provider: "hash", Model: "feature-hash-v1", Dimensions: 64, BatchSize: 8})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if got := svc.ModelStamp(); got != "hash/feature-hash-v1@64" {
		t.Errorf("ModelStamp() = %q", got)
	}
	if _, err := NewService(&config.EmbeddingConfig{Provider: "volcengine"}); err == nil {
		t.Error("expected unsupported provider error")
	}
}

func TestServiceUsesCache(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	client := &countingClient{dims: 2}
	svc := NewServiceWithClient(&config.EmbeddingConfig{Provider: "test", Model: "m", BatchSize: 10}, client)
	svc.cache = cache

	ctx := context.Background()
	if _, err := svc.EmbedBatch(ctx, []string{"alpha", "beta"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"}); err != nil {
		t.Fatal(err)
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 client calls, got %d", client.calls)
	}
	if got := client.texts[len(client.texts)-1]; got != "gamma" || len(client.texts) != 3 {
		t.Errorf("second call should only embed the uncached text, got %v", client.texts)
	}
	if _, err := svc.Embed(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	if client.calls != 2 {
		t.Errorf("cached Embed should not call the client")
	}
}

type nonFiniteClient struct{ bad float32 }

func (c nonFiniteClient) Embed(context.Context, string) ([]float32, error) {
	return []float32{c.bad, 0}, nil
}
func (c nonFiniteClient) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0, c.bad}
	}
	return out, nil
}
func (nonFiniteClient) Dimensions() int { return 2 }

func TestEmbedRejectsNonFinite(t *testing.T) {
	tests := []struct {
		name string
		bad  float32
	}{
		{name: "nan", bad: float32(math.NaN())},
		{name: "positive inf", bad: float32(math.Inf(1))},
		{name: "negative inf", bad: float32(math.Inf(-1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewServiceWithClient(&config.EmbeddingConfig{Provider: "test", Model: "m"}, nonFiniteClient{bad: tt.bad})
			if _, err := svc.Embed(context.Background(), "x"); err == nil {
				t.Error("Embed accepted a non-finite vector")
			}
			if _, err := svc.EmbedBatch(context.Background(), []string{"x", "y"}); err == nil {
				t.Error("EmbedBatch accepted a non-finite vector")
			}
		})
	}
}

func TestServiceReembedsInvalidCacheEntries(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	client := &countingClient{dims: 2}
	svc := NewServiceWithClient(&config.EmbeddingConfig{Provider: "test", Model: "m", BatchSize: 10}, client)
	svc.cache = cache

	stale := [][]float32{{1, 2, 3}, {float32(math.NaN()), 0}}
	if err := cache.Put(svc.stamp, []string{"alpha", "beta"}, stale); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	vec, err := svc.Embed(ctx, "alpha")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 2 || vec[0] != 5 {
		t.Errorf("Embed returned cached vector %v", vec)
	}

	out, err := svc.EmbedBatch(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if out[1][0] != 4 {
		t.Errorf("EmbedBatch returned cached vector %v", out[1])
	}
	if client.calls != 2 {
		t.Errorf("expected 2 client calls, got %d", client.calls)
	}
	if got := client.texts[len(client.texts)-1]; got != "beta" || len(client.texts) != 2 {
		t.Errorf("only the invalid entry should be re-embedded, got %v", client.texts)
	}
}
