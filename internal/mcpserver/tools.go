package mcpserver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tecton-ai/tecton-mcp/internal/featureservice"
	"github.com/tecton-ai/tecton-mcp/internal/observability"
	"github.com/tecton-ai/tecton-mcp/internal/retrieval"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func (s *Server) examplesTool(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	return s.search(ctx, ToolExamples, s.app.Examples, input)
}

func (s *Server) docsTool(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	return s.search(ctx, ToolDocs, s.app.Docs, input)
}

func (s *Server) search(ctx context.Context, tool string, h *retrieval.Handler, input SearchInput) (_ *mcp.CallToolResult, _ SearchOutput, err error) {
	ctx, span := observability.StartToolSpan(ctx, tool)
	defer func() {
		observability.RecordError(span, err)
		span.End()
	}()

	slog.Info("Received query", "tool", tool, "query", input.Query, "limit", input.Limit)
	resp, err := h.Query(ctx, retrieval.Request{Query: input.Query, Limit: input.Limit})
	if err != nil {
		slog.Warn("Query failed", "tool", tool, "error", err)
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Corpus:  resp.Corpus,
		Count:   len(resp.Results),
		Results: make([]SearchResultItem, len(resp.Results)),
	}
	for i, r := range resp.Results {
		output.Results[i] = SearchResultItem{
			ID:       r.ID,
			Score:    r.Score,
			Content:  r.Content,
			Metadata: r.Metadata,
		}
	}
	return textResult(resp.Text()), output, nil
}

func (s *Server) fullReferenceTool(ctx context.Context, _ *mcp.CallToolRequest, _ FullReferenceInput) (*mcp.CallToolResult, FullReferenceOutput, error) {
	_, span := observability.StartToolSpan(ctx, ToolFullReference)
	defer span.End()

	table := s.app.Reference
	return textResult(table.Full()), FullReferenceOutput{
		Count:      table.Len(),
		SDKVersion: table.SDKVersion(),
	}, nil
}

func (s *Server) queryReferenceTool(ctx context.Context, _ *mcp.CallToolRequest, input ReferenceInput) (*mcp.CallToolResult, ReferenceOutput, error) {
	_, span := observability.StartToolSpan(ctx, ToolQueryReference)
	defer span.End()

	slog.Info("Fetching Tecton SDK reference", "class_names", input.ClassNames)
	res := s.app.Reference.Lookup(input.ClassNames)

	output := ReferenceOutput{
		Entries:  res.Entries(),
		Missing:  res.Missing(),
		Expanded: res.Expanded,
	}
	for _, item := range res.Items {
		if item.Present || len(item.Suggestions) == 0 {
			continue
		}
		if output.Suggestions == nil {
			output.Suggestions = make(map[string][]string)
		}
		output.Suggestions[item.Name] = item.Suggestions
	}
	span.SetAttributes(
		attribute.Int("requested", len(res.Items)),
		attribute.Int("missing", len(output.Missing)),
	)
	return textResult(res.Text()), output, nil
}

func (s *Server) featureServiceTool(name string) mcp.ToolHandlerFor[FeatureServiceInput, FeatureServiceOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input FeatureServiceInput) (_ *mcp.CallToolResult, _ FeatureServiceOutput, err error) {
		ctx, span := observability.StartToolSpan(ctx, name+"_tool")
		defer func() {
			observability.RecordError(span, err)
			span.End()
		}()

		resp, err := s.app.Features.GetFeatures(ctx, featureservice.Request{
			FeatureService:    name,
			JoinKeyMap:        input.JoinKeyMap,
			RequestContextMap: input.RequestContextMap,
		})
		if err != nil {
			return nil, FeatureServiceOutput{}, err
		}
		return nil, FeatureServiceOutput{FeatureService: name, Features: resp.Values()}, nil
	}
}

func featureServiceDescription(description string, features []string) string {
	desc := strings.TrimSpace(description)
	if desc == "" {
		desc = "Fetches online feature values from a Tecton Feature Service."
	}
	if len(features) > 0 {
		desc += "\nFeatures: " + strings.Join(features, ", ")
	}
	return desc
}
