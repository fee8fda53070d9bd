// Package featureservice calls a deployed Tecton feature server for online
// feature values.
package featureservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tecton-ai/tecton-mcp/internal/apperr"
	"github.com/tecton-ai/tecton-mcp/internal/config"
	"github.com/tecton-ai/tecton-mcp/internal/observability"
)

const getFeaturesPath = "/api/v1/feature-service/get-features"

// Client talks to the feature server HTTP API.
type Client struct {
	baseURL   string
	apiKey    string
	workspace string
	client    *http.Client
}

// Request asks one feature service for the features of a join key.
type Request struct {
	FeatureService    string
	Workspace         string
	JoinKeyMap        map[string]any
	RequestContextMap map[string]any
}

type getFeaturesParams struct {
	FeatureServiceName string         `json:"feature_service_name"`
	WorkspaceName      string         `json:"workspace_name"`
	JoinKeyMap         map[string]any `json:"join_key_map"`
	RequestContextMap  map[string]any `json:"request_context_map,omitempty"`
	MetadataOptions    map[string]any `json:"metadata_options,omitempty"`
}

type getFeaturesRequest struct {
	Params getFeaturesParams `json:"params"`
}

// FeatureMetadata describes one returned feature column.
type FeatureMetadata struct {
	Name     string `json:"name"`
	DataType struct {
		Type string `json:"type"`
	} `json:"dataType"`
}

// Response is the decoded get-features reply.
type Response struct {
	Result struct {
		Features []any `json:"features"`
	} `json:"result"`
	Metadata struct {
		Features []FeatureMetadata `json:"features"`
	} `json:"metadata"`
}

// Values pairs feature names with their values. Unnamed columns get their
// position as a name.
func (r *Response) Values() map[string]any {
	out := make(map[string]any, len(r.Result.Features))
	for i, v := range r.Result.Features {
		name := fmt.Sprintf("feature_%d", i)
		if i < len(r.Metadata.Features) && r.Metadata.Features[i].Name != "" {
			name = r.Metadata.Features[i].Name
		}
		out[name] = v
	}
	return out
}

// NewClient creates a client from the tecton config section.
func NewClient(cfg config.TectonConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("tecton url is not configured")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tecton api_key is not configured")
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		apiKey:    cfg.APIKey,
		workspace: cfg.Workspace,
		client:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// GetFeatures fetches online features for one join key.
func (c *Client) GetFeatures(ctx context.Context, req Request) (resp *Response, err error) {
	op := "get features " + req.FeatureService
	if req.FeatureService == "" {
		return nil, apperr.Input(op, "feature service name is required")
	}
	if len(req.JoinKeyMap) == 0 {
		return nil, apperr.Input(op, "join_key_map must not be empty")
	}
	workspace := req.Workspace
	if workspace == "" {
		workspace = c.workspace
	}
	if workspace == "" {
		return nil, apperr.Input(op, "workspace is required")
	}

	ctx, span := observability.StartClientSpan(ctx, "featureservice.GetFeatures",
		attribute.String("feature_service", req.FeatureService),
		attribute.String("workspace", workspace),
	)
	defer func() {
		observability.RecordError(span, err)
		span.End()
	}()

	body, err := json.Marshal(getFeaturesRequest{Params: getFeaturesParams{
		FeatureServiceName: req.FeatureService,
		WorkspaceName:      workspace,
		JoinKeyMap:         req.JoinKeyMap,
		RequestContextMap:  req.RequestContextMap,
		MetadataOptions:    map[string]any{"includeNames": true, "includeDataTypes": true},
	}})
	if err != nil {
		return nil, apperr.Input(op, "encode request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+getFeaturesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Tecton-key "+c.apiKey)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, apperr.Unavailable(op, fmt.Errorf("failed to send request: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, apperr.Unavailable(op, fmt.Errorf("failed to read response: %w", err))
	}
	span.SetAttributes(attribute.Int("http.status_code", httpResp.StatusCode))
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, apperr.Unavailable(op, fmt.Errorf("feature server returned status %d: %s",
			httpResp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, apperr.Unavailable(op, fmt.Errorf("failed to parse response: %w", err))
	}
	return &out, nil
}
