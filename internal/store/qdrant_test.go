package store

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

type fakePoints struct {
	pb.PointsClient
	byCollection map[string][]*pb.PointStruct
	failUpsert   bool
}

func (f *fakePoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	if f.failUpsert {
		return nil, errors.New("upsert unavailable")
	}
	f.byCollection[in.GetCollectionName()] = append(f.byCollection[in.GetCollectionName()], in.GetPoints()...)
	return &pb.PointsOperationResponse{}, nil
}

func (f *fakePoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	var out []*pb.ScoredPoint
	for _, pt := range f.byCollection[in.GetCollectionName()] {
		data := pt.GetVectors().GetVector().GetData()
		var score float32
		for i := range data {
			score += data[i] * in.GetVector()[i]
		}
		out = append(out, &pb.ScoredPoint{
			Payload: pt.GetPayload(),
			Score:   score,
			Vectors: &pb.VectorsOutput{VectorsOptions: &pb.VectorsOutput_Vector{Vector: &pb.VectorOutput{Data: data}}},
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if uint64(len(out)) > in.GetLimit() {
		out = out[:in.GetLimit()]
	}
	return &pb.SearchResponse{Result: out}, nil
}

type fakeCollections struct {
	pb.CollectionsClient
	created []string
	deleted []string
}

func (f *fakeCollections) Create(_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	f.created = append(f.created, in.GetCollectionName())
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func (f *fakeCollections) Delete(_ context.Context, in *pb.DeleteCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	f.deleted = append(f.deleted, in.GetCollectionName())
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func newFakeQdrant(t *testing.T) (*QdrantIndex, *fakePoints, *fakeCollections) {
	t.Helper()
	m, err := LoadManifest(filepath.Join(t.TempDir(), "embeddings_meta.json"))
	if err != nil {
		t.Fatal(err)
	}
	points := &fakePoints{byCollection: map[string][]*pb.PointStruct{}}
	collections := &fakeCollections{}
	return &QdrantIndex{points: points, collections: collections, prefix: "tecton_", manifest: m}, points, collections
}

func TestQdrantReplaceSwitchesCollection(t *testing.T) {
	q, points, collections := newFakeQdrant(t)
	ctx := context.Background()

	first := testMeta("docs")
	if err := q.Replace(ctx, first, testEntries()); err != nil {
		t.Fatalf("first Replace: %v", err)
	}
	firstName := q.collectionName(first)
	if _, live, _ := q.manifest.Get("docs"); live != firstName {
		t.Fatalf("manifest collection = %q, want %q", live, firstName)
	}

	results, err := q.Search(ctx, "docs", []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].ID != "docs:a.md:0" || results[0].Corpus != "docs" {
		t.Fatalf("unexpected results %+v", results)
	}
	if results[0].Metadata["url"] != "https://x/a" {
		t.Errorf("payload metadata lost: %+v", results[0].Metadata)
	}

	second := testMeta("docs")
	second.BuiltAt = first.BuiltAt.Add(time.Hour)
	if err := q.Replace(ctx, second, testEntries()[2:]); err != nil {
		t.Fatalf("second Replace: %v", err)
	}
	secondName := q.collectionName(second)
	if _, live, _ := q.manifest.Get("docs"); live != secondName {
		t.Errorf("manifest collection = %q, want %q", live, secondName)
	}
	if len(collections.deleted) != 1 || collections.deleted[0] != firstName {
		t.Errorf("previous collection not dropped: %v", collections.deleted)
	}
	meta, err := q.Meta(ctx, "docs")
	if err != nil || meta.ChunkCount != 1 {
		t.Errorf("Meta = %+v, %v", meta, err)
	}

	// A failed build drops its own collection and keeps serving the last one.
	points.failUpsert = true
	third := testMeta("docs")
	third.BuiltAt = second.BuiltAt.Add(time.Hour)
	if err := q.Replace(ctx, third, testEntries()); err == nil {
		t.Fatal("expected upsert failure")
	}
	if _, live, _ := q.manifest.Get("docs"); live != secondName {
		t.Errorf("failed build switched the manifest to %q", live)
	}
	if last := collections.deleted[len(collections.deleted)-1]; last != q.collectionName(third) {
		t.Errorf("failed collection not dropped, last delete = %q", last)
	}
	if len(collections.created) != 3 {
		t.Errorf("created = %v", collections.created)
	}
}

func TestQdrantSearchErrors(t *testing.T) {
	q, _, _ := newFakeQdrant(t)
	ctx := context.Background()

	if _, err := q.Search(ctx, "docs", []float32{1, 0, 0}, 5); !errors.Is(err, ErrCorpusNotFound) {
		t.Errorf("expected ErrCorpusNotFound, got %v", err)
	}
	if err := q.Replace(ctx, testMeta("docs"), testEntries()); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Search(ctx, "docs", []float32{1, 0}, 5); err == nil {
		t.Error("expected dimension mismatch error")
	}
	if got, err := q.Search(ctx, "docs", []float32{1, 0, 0}, 0); err != nil || got != nil {
		t.Errorf("k=0 = %v, %v", got, err)
	}
}
