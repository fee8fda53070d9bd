package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tecton-ai/tecton-mcp/internal/config"
)

func TestInitTracing_NoEndpoint(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracing(ctx, config.TracingConfig{ServiceName: "test"}, "dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp.Tracer() == nil {
		t.Fatal("expected non-nil tracer")
	}
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestTracerProvider_Shutdown_NilProvider(t *testing.T) {
	tp := &TracerProvider{}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected nil error for nil provider, got: %v", err)
	}
}

func TestSpans(t *testing.T) {
	ctx := context.Background()

	ctx, outer := StartToolSpan(ctx, "query_documentation_index_tool")
	ctx, inner := StartSpan(ctx, "retrieval.Query", attribute.String("corpus", "docs"))
	_, client := StartClientSpan(ctx, "featureservice.GetFeatures")

	// Must not panic on either branch.
	RecordError(client, nil)
	RecordError(client, errors.New("boom"))

	client.End()
	inner.End()
	outer.End()
}
