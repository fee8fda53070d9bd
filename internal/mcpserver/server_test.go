package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tecton-ai/tecton-mcp/internal/app"
	"github.com/tecton-ai/tecton-mcp/internal/config"
	"github.com/tecton-ai/tecton-mcp/internal/embedding"
	"github.com/tecton-ai/tecton-mcp/internal/indexer"
	"github.com/tecton-ai/tecton-mcp/internal/reference"
	"github.com/tecton-ai/tecton-mcp/internal/retrieval"
	"github.com/tecton-ai/tecton-mcp/internal/store"
)

func newTestApp(t *testing.T) *app.AppContext {
	t.Helper()
	ctx := context.Background()
	cfg := config.DefaultConfig()

	idx, err := store.OpenSQLiteIndex(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteIndex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	svc := embedding.NewServiceWithClient(&cfg.Embedding, embedding.NewHashClient(cfg.Embedding.Dimensions))
	b := indexer.NewBuilder(svc, idx, indexer.Options{})

	examples := []store.Chunk{
		{ID: "ex:1", Text: "Example of batch_feature_view. user transaction counts",
			Payload: "@batch_feature_view(sources=[transactions])\ndef user_txn_counts(transactions):\n    return transactions"},
		{ID: "ex:2", Text: "Example of Entity. user entity",
			Payload: "user = Entity(name='user', join_keys=[Field('user_id', String)])"},
	}
	docs := []store.Chunk{
		{ID: "docs:1", Text: "Entities\n\nAn Entity is a business concept", Payload: "An Entity is a business concept",
			Metadata: map[string]string{"url": "https://docs.tecton.ai/docs/defining-features/entities", "header": "Entities"}},
	}
	for corpus, chunks := range map[string][]store.Chunk{config.CorpusExamplesRift: examples, config.CorpusDocs: docs} {
		if _, err := b.Build(ctx, corpus, func() ([]store.Chunk, error) { return chunks, nil }); err != nil {
			t.Fatalf("Build %s: %v", corpus, err)
		}
	}

	table, err := reference.New("1.1.0", []reference.Entry{
		{Name: "Attribute", Type: reference.TypeClass, Module: "tecton.framework.feature", ImportFrom: "tecton",
			Declaration: "class Attribute(name: str, dtype: SdkDataType)"},
		{Name: "Entity", Type: reference.TypeClass, Module: "tecton.framework.entity", ImportFrom: "tecton",
			Declaration: "class Entity(name: str, join_keys: List[Field])"},
	})
	if err != nil {
		t.Fatalf("reference.New: %v", err)
	}
	t.Cleanup(func() { table.Close() })

	opts := retrieval.DefaultOptions()
	return &app.AppContext{
		Config:    cfg,
		Embedder:  svc,
		Index:     idx,
		Examples:  retrieval.NewHandler(ctx, svc, idx, config.CorpusExamplesRift, retrieval.KindExamples, opts),
		Docs:      retrieval.NewHandler(ctx, svc, idx, config.CorpusDocs, retrieval.KindDocs, opts),
		Reference: table,
	}
}

func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := s.MCP().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callText(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool %s: %v", name, err)
	}
	var b strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String(), res.IsError
}

func TestListTools(t *testing.T) {
	s := New(newTestApp(t), "test")
	cs := connect(t, s)

	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	got := map[string]string{}
	for _, tool := range res.Tools {
		got[tool.Name] = tool.Description
	}
	for _, name := range []string{ToolExamples, ToolDocs, ToolFullReference, ToolQueryReference} {
		if _, ok := got[name]; !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
	if !strings.Contains(got[ToolQueryReference], "Attribute, Entity") {
		t.Errorf("reference tool description should list names:\n%s", got[ToolQueryReference])
	}
}

func TestSearchTools(t *testing.T) {
	cs := connect(t, New(newTestApp(t), "test"))

	text, isErr := callText(t, cs, ToolExamples, map[string]any{"query": "batch feature view", "limit": 1})
	if isErr {
		t.Fatalf("examples tool error: %s", text)
	}
	if !strings.HasPrefix(text, "==== Python Code Example ====\n\n") {
		t.Errorf("unexpected examples text:\n%s", text)
	}
	if strings.Count(text, "==== Python Code Example ====") != 1 {
		t.Errorf("limit not honoured:\n%s", text)
	}

	text, isErr = callText(t, cs, ToolDocs, map[string]any{"query": "what is an entity"})
	if isErr {
		t.Fatalf("docs tool error: %s", text)
	}
	if !strings.Contains(text, "Source URL: https://docs.tecton.ai/docs/defining-features/entities") ||
		!strings.Contains(text, "Section Header: Entities") {
		t.Errorf("unexpected docs text:\n%s", text)
	}

	text, isErr = callText(t, cs, ToolExamples, map[string]any{"query": "   "})
	if !isErr {
		t.Fatal("expected tool error for empty query")
	}
	if !strings.HasPrefix(text, "InputError") {
		t.Errorf("error should carry its kind: %s", text)
	}
}

func TestReferenceTools(t *testing.T) {
	cs := connect(t, New(newTestApp(t), "test"))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolQueryReference,
		Arguments: map[string]any{"class_names": []string{"Attribute", "NotARealClass"}},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error")
	}

	raw, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	var out ReferenceOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode structured content: %v", err)
	}
	if len(out.Entries) != 1 {
		t.Fatalf("expected exactly 1 entry, got %v", out.Entries)
	}
	if _, ok := out.Entries["Attribute"]; !ok {
		t.Error("Attribute missing from entries")
	}
	if len(out.Missing) != 1 || out.Missing[0] != "NotARealClass" {
		t.Errorf("missing = %v", out.Missing)
	}

	text, isErr := callText(t, cs, ToolFullReference, nil)
	if isErr {
		t.Fatalf("full reference error: %s", text)
	}
	if !strings.Contains(text, "- Attribute\n- Entity") {
		t.Errorf("full reference should list every name:\n%s", text)
	}

	text, _ = callText(t, cs, ToolQueryReference, map[string]any{})
	if !strings.Contains(text, "Class: Entity") {
		t.Errorf("empty lookup should return the whole table:\n%s", text)
	}
}

func TestRunSmokeTest(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	s := New(newTestApp(t), "test")
	if err := s.Run(context.Background(), RunOptions{SmokeTest: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	logs := buf.String()
	initIdx := strings.Index(logs, "Tecton MCP Server initialized")
	doneIdx := strings.Index(logs, "smoke test complete, exiting")
	if initIdx < 0 || doneIdx < 0 || doneIdx < initIdx {
		t.Errorf("unexpected smoke test logs:\n%s", logs)
	}
}

func TestFeatureServiceToolsSkippedWithoutClient(t *testing.T) {
	a := newTestApp(t)
	a.Config.Tecton.FeatureServices = []config.FeatureServiceConfig{{Name: "fraud_detection"}}
	s := New(a, "test")
	for _, name := range s.Tools() {
		if name == "fraud_detection_tool" {
			t.Fatal("feature service tool registered without a client")
		}
	}
}

func TestHealthz(t *testing.T) {
	s := New(newTestApp(t), "test")
	resp, err := s.newHTTPApp().Test(httptest.NewRequest("GET", "/healthz", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"status":"healthy"`) {
		t.Errorf("body = %s", body)
	}
}

func TestFeatureServiceDescription(t *testing.T) {
	got := featureServiceDescription("Fraud signals", []string{"user_txn.count_7d: int64"})
	if got != "Fraud signals\nFeatures: user_txn.count_7d: int64" {
		t.Errorf("description = %q", got)
	}
	if !strings.Contains(featureServiceDescription("", nil), "Feature Service") {
		t.Error("empty description should fall back to a default")
	}
}
