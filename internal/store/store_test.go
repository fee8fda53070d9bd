package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	pb "github.com/qdrant/go-client/qdrant"

	"github.com/tecton-ai/tecton-mcp/internal/config"
)

func TestBlobRoundTrip(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3e-8}
	out, err := blobToVector(vectorToBlob(in))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("got %v, want %v", out, in)
	}
	if _, err := blobToVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func TestVectorStringRoundTrip(t *testing.T) {
	in := []float32{0.1, -2, 3.5}
	s := vectorToString(in)
	if s != "[0.1,-2,3.5]" {
		t.Errorf("vectorToString = %q", s)
	}
	out, err := parseVectorString(s)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("got %v, want %v", out, in)
	}
	for _, bad := range []string{"0.1,2", "[a,b]"} {
		if _, err := parseVectorString(bad); err == nil {
			t.Errorf("parseVectorString(%q) should fail", bad)
		}
	}
}

func TestRankResults(t *testing.T) {
	in := []ScoredEntry{
		{Entry: Entry{Chunk: Chunk{ID: "b"}}, Score: 0.5},
		{Entry: Entry{Chunk: Chunk{ID: "c"}}, Score: 0.9},
		{Entry: Entry{Chunk: Chunk{ID: "a"}}, Score: 0.5},
	}
	out := rankResults(in, 2)
	if len(out) != 2 || out[0].ID != "c" || out[1].ID != "a" {
		t.Errorf("unexpected ranking: %+v", out)
	}
}

func TestContentHashOrderIndependent(t *testing.T) {
	a := []Chunk{{ID: "1", Text: "x"}, {ID: "2", Text: "y"}}
	b := []Chunk{{ID: "2", Text: "y"}, {ID: "1", Text: "x"}}
	if ContentHash(a) != ContentHash(b) {
		t.Error("hash depends on order")
	}
	c := []Chunk{{ID: "1", Text: "x"}, {ID: "2", Text: "z"}}
	if ContentHash(a) == ContentHash(c) {
		t.Error("hash ignores text")
	}
}

func TestChunkContent(t *testing.T) {
	c := Chunk{Text: "embedded"}
	if c.Content() != "embedded" {
		t.Errorf("Content() = %q", c.Content())
	}
	c.Payload = "returned"
	if c.Content() != "returned" {
		t.Errorf("Content() = %q", c.Content())
	}
}

func TestManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings_meta.json")
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest on missing file: %v", err)
	}
	if _, _, ok := m.Get("docs"); ok {
		t.Fatal("empty manifest returned a corpus")
	}

	meta := CorpusMeta{Corpus: "docs", ModelStamp: "openai/text-embedding-3-small@1536", Dimensions: 1536, SDKVersion: "1.1.0", BuiltAt: time.Now().UTC()}
	prev, err := m.Put(meta, "tecton_docs_1")
	if err != nil || prev != "" {
		t.Fatalf("Put = %q, %v", prev, err)
	}
	prev, err = m.Put(meta, "tecton_docs_2")
	if err != nil || prev != "tecton_docs_1" {
		t.Fatalf("second Put = %q, %v", prev, err)
	}

	reloaded, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	got, collection, ok := reloaded.Get("docs")
	if !ok || collection != "tecton_docs_2" || got.ModelStamp != meta.ModelStamp {
		t.Errorf("reloaded = %+v, %q, %v", got, collection, ok)
	}
	if reloaded.data.EmbeddingModel != meta.ModelStamp || reloaded.data.TectonVersion != "1.1.0" {
		t.Errorf("top-level fields not written: %+v", reloaded.data)
	}
	if all := reloaded.All(); len(all) != 1 {
		t.Errorf("All() = %d entries", len(all))
	}
}

func TestQdrantPointRoundTrip(t *testing.T) {
	e := Entry{
		Chunk: Chunk{
			ID: "docs:a.md:2", Source: "a.md", Ordinal: 2, Title: "A / B",
			Text: "text", Payload: "payload", Metadata: map[string]string{"url": "u"},
		},
		Vector: []float32{1, 2},
	}
	pt := toPoint(e)
	if pt.GetId().GetUuid() != pointID(e.ID) {
		t.Error("point id not derived from chunk id")
	}
	if pointID(e.ID) != pointID("docs:a.md:2") || pointID("x") == pointID("y") {
		t.Error("point ids must be deterministic and distinct")
	}

	got := fromPayload(pt.GetPayload())
	want := e.Chunk
	if !reflect.DeepEqual(got.Chunk, want) {
		t.Errorf("fromPayload = %+v, want %+v", got.Chunk, want)
	}

	out := &pb.VectorsOutput{VectorsOptions: &pb.VectorsOutput_Vector{Vector: &pb.VectorOutput{Data: []float32{3, 4}}}}
	if v := outputVector(out); !reflect.DeepEqual(v, []float32{3, 4}) {
		t.Errorf("outputVector = %v", v)
	}
}

func TestOpenIndexUnsupported(t *testing.T) {
	if _, err := OpenIndex(context.Background(), config.StoreConfig{Backend: "faiss"}); err == nil {
		t.Error("expected unsupported backend error")
	}
	idx, err := OpenIndex(context.Background(), config.StoreConfig{Backend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	if err != nil {
		t.Fatal(err)
	}
	idx.Close()
}
