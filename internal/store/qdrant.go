package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const qdrantUpsertBatch = 256

// Payload keys written with every point.
const (
	payloadID      = "chunk_id"
	payloadSource  = "source"
	payloadOrdinal = "ordinal"
	payloadTitle   = "title"
	payloadText    = "text"
	payloadContent = "content"
	payloadMetaPfx = "meta_"
)

// QdrantIndex stores each corpus build in its own Qdrant collection. The
// manifest records which collection currently serves a corpus, so a rebuild
// becomes visible only once it is fully written.
type QdrantIndex struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	apiKey      string
	prefix      string
	manifest    *Manifest
}

// NewQdrant connects to Qdrant's gRPC port.
func NewQdrant(host string, port int, apiKey, prefix string, manifest *Manifest) (*QdrantIndex, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &QdrantIndex{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		apiKey:      apiKey,
		prefix:      prefix,
		manifest:    manifest,
	}, nil
}

func (q *QdrantIndex) withKey(ctx context.Context) context.Context {
	if q.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", q.apiKey)
}

// collectionName is unique per build so the previous build keeps serving
// until the manifest is switched.
func (q *QdrantIndex) collectionName(meta CorpusMeta) string {
	return fmt.Sprintf("%s%s_%d", q.prefix, meta.Corpus, meta.BuiltAt.UnixNano())
}

func (q *QdrantIndex) Replace(ctx context.Context, meta CorpusMeta, entries []Entry) error {
	if err := validateEntries(meta, entries); err != nil {
		return err
	}
	meta.ChunkCount = len(entries)
	ctx = q.withKey(ctx)

	name := q.collectionName(meta)
	_, err := q.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{
			Size:     uint64(meta.Dimensions),
			Distance: pb.Distance_Cosine,
		}}},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection %s: %w", name, err)
	}

	wait := true
	for start := 0; start < len(entries); start += qdrantUpsertBatch {
		end := min(start+qdrantUpsertBatch, len(entries))
		points := make([]*pb.PointStruct, 0, end-start)
		for _, e := range entries[start:end] {
			points = append(points, toPoint(e))
		}
		if _, err := q.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: name,
			Wait:           &wait,
			Points:         points,
		}); err != nil {
			q.dropCollection(ctx, name)
			return fmt.Errorf("qdrant upsert into %s: %w", name, err)
		}
	}

	prev, err := q.manifest.Put(meta, name)
	if err != nil {
		q.dropCollection(ctx, name)
		return err
	}
	if prev != "" && prev != name {
		q.dropCollection(ctx, prev)
	}
	return nil
}

func (q *QdrantIndex) dropCollection(ctx context.Context, name string) {
	_, _ = q.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name})
}

func (q *QdrantIndex) Search(ctx context.Context, corpus string, vector []float32, k int) ([]ScoredEntry, error) {
	meta, collection, ok := q.manifest.Get(corpus)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, corpus)
	}
	if meta.Dimensions != len(vector) {
		return nil, fmt.Errorf("query has %d dimensions, corpus %s has %d", len(vector), corpus, meta.Dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	resp, err := q.points.Search(q.withKey(ctx), &pb.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search %s: %w", collection, err)
	}

	results := make([]ScoredEntry, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		e := fromPayload(pt.GetPayload())
		e.Corpus = corpus
		e.Vector = outputVector(pt.GetVectors())
		results = append(results, ScoredEntry{Entry: e, Score: pt.GetScore(), Distance: 1 - pt.GetScore()})
	}
	return rankResults(results, k), nil
}

func (q *QdrantIndex) Meta(_ context.Context, corpus string) (*CorpusMeta, error) {
	meta, _, ok := q.manifest.Get(corpus)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, corpus)
	}
	return &meta, nil
}

func (q *QdrantIndex) Stats(_ context.Context) ([]CorpusMeta, error) {
	return q.manifest.All(), nil
}

func (q *QdrantIndex) Close() error {
	return q.conn.Close()
}

// pointID derives a stable UUID from the chunk id.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("tecton-mcp:"+chunkID)).String()
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func toPoint(e Entry) *pb.PointStruct {
	payload := map[string]*pb.Value{
		payloadID:      stringValue(e.ID),
		payloadSource:  stringValue(e.Source),
		payloadOrdinal: {Kind: &pb.Value_IntegerValue{IntegerValue: int64(e.Ordinal)}},
		payloadTitle:   stringValue(e.Title),
		payloadText:    stringValue(e.Text),
		payloadContent: stringValue(e.Payload),
	}
	for k, v := range e.Metadata {
		payload[payloadMetaPfx+k] = stringValue(v)
	}
	return &pb.PointStruct{
		Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(e.ID)}},
		Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: e.Vector}}},
		Payload: payload,
	}
}

func fromPayload(payload map[string]*pb.Value) Entry {
	var e Entry
	for k, v := range payload {
		switch k {
		case payloadID:
			e.ID = v.GetStringValue()
		case payloadSource:
			e.Source = v.GetStringValue()
		case payloadOrdinal:
			e.Ordinal = int(v.GetIntegerValue())
		case payloadTitle:
			e.Title = v.GetStringValue()
		case payloadText:
			e.Text = v.GetStringValue()
		case payloadContent:
			e.Payload = v.GetStringValue()
		default:
			if name, ok := strings.CutPrefix(k, payloadMetaPfx); ok {
				if e.Metadata == nil {
					e.Metadata = make(map[string]string)
				}
				e.Metadata[name] = v.GetStringValue()
			}
		}
	}
	return e
}

func outputVector(v *pb.VectorsOutput) []float32 {
	out := v.GetVector()
	if dense := out.GetDense(); dense != nil {
		return dense.GetData()
	}
	return out.GetData()
}

var _ Index = (*QdrantIndex)(nil)
