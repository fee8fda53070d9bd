package featureservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tecton-ai/tecton-mcp/internal/apperr"
	"github.com/tecton-ai/tecton-mcp/internal/config"
)

func TestGetFeatures(t *testing.T) {
	var got getFeaturesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != getFeaturesPath {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Tecton-key secret" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"result": {"features": [3, "gold"]},
			"metadata": {"features": [
				{"name": "user_txn.count_7d", "dataType": {"type": "int64"}},
				{"name": "user_profile.tier", "dataType": {"type": "string"}}
			]}
		}`))
	}))
	defer srv.Close()

	c, err := NewClient(config.TectonConfig{URL: srv.URL + "/", APIKey: "secret", Workspace: "prod"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	resp, err := c.GetFeatures(context.Background(), Request{
		FeatureService: "fraud_detection",
		JoinKeyMap:     map[string]any{"user_id": "u1"},
	})
	if err != nil {
		t.Fatalf("GetFeatures: %v", err)
	}

	if got.Params.FeatureServiceName != "fraud_detection" || got.Params.WorkspaceName != "prod" {
		t.Errorf("unexpected params: %+v", got.Params)
	}
	if got.Params.JoinKeyMap["user_id"] != "u1" {
		t.Errorf("join key map = %v", got.Params.JoinKeyMap)
	}

	values := resp.Values()
	if values["user_profile.tier"] != "gold" {
		t.Errorf("values = %v", values)
	}
	if v, ok := values["user_txn.count_7d"].(float64); !ok || v != 3 {
		t.Errorf("count = %v", values["user_txn.count_7d"])
	}
}

func TestGetFeaturesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "feature service not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewClient(config.TectonConfig{URL: srv.URL, APIKey: "k", Workspace: "prod"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = c.GetFeatures(context.Background(), Request{FeatureService: "fs", JoinKeyMap: map[string]any{"id": 1}})
	if !errors.Is(err, apperr.ErrBackendUnavailable) {
		t.Fatalf("expected BackendUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "feature service not found") {
		t.Errorf("error should carry status and body: %v", err)
	}

	_, err = c.GetFeatures(context.Background(), Request{FeatureService: "fs"})
	if !errors.Is(err, apperr.ErrInput) {
		t.Errorf("empty join keys: expected InputError, got %v", err)
	}
}

func TestNewClientRequiresConfig(t *testing.T) {
	if _, err := NewClient(config.TectonConfig{APIKey: "k"}); err == nil {
		t.Error("expected error without url")
	}
	if _, err := NewClient(config.TectonConfig{URL: "https://x.tecton.ai"}); err == nil {
		t.Error("expected error without api key")
	}
}

func TestValuesUnnamed(t *testing.T) {
	var r Response
	r.Result.Features = []any{1.0, 2.0}
	values := r.Values()
	if values["feature_0"] != 1.0 || values["feature_1"] != 2.0 {
		t.Errorf("values = %v", values)
	}
}
