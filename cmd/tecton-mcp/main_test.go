package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// writeConfig lays out sources and a config file under a temp dir.
func writeConfig(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "examples", "manifest.yaml"), `
- name: Transaction counts
  description: Rolling count of transactions per user with a batch feature view.
  code: |
    @batch_feature_view(features=[Aggregate(input_column=Field("amt", Float64), function="count", time_window=TimeWindow(window_size=timedelta(days=1)))])
    def user_txn_counts(transactions):
        return transactions
- name: Stream features
  description: Streaming features from a Kafka source.
  code: |
    @stream_feature_view(source=transactions_stream)
    def user_stream(transactions):
        return transactions
`)
	writeFile(t, filepath.Join(root, "docs", "intro.md"), "# Intro\n\nTecton is a feature platform.\n\n## Entities\n\nAn entity is a join key.\n")

	refPath, err := filepath.Abs(filepath.Join("..", "..", "internal", "reference", "testdata", "sdk_reference.json"))
	if err != nil {
		t.Fatal(err)
	}

	cfgPath := filepath.Join(root, "config.yaml")
	writeFile(t, cfgPath, `
data_dir: `+filepath.Join(root, "data")+`
embedding:
  provider: hash
  dimensions: 256
store:
  backend: sqlite
reference:
  path: `+refPath+`
sources:
  examples_rift:
    - `+filepath.Join(root, "examples")+`
  docs:
    dir: `+filepath.Join(root, "docs")+`
log:
  level: error
`)
	return cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := &cli{}
	defer c.close()
	root := newRootCmd(c)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "tecton-mcp version ") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	out, err := run(t, "--config", path, "init")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "Wrote config template") {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("template not written: %v", err)
	}

	out, err = run(t, "--config", path, "init")
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	if !strings.Contains(out, "already exists") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestMissingExplicitConfig(t *testing.T) {
	if _, err := run(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "stats"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestIndexSearchStats(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := run(t, "--config", cfgPath, "index", "--no-progress")
	if err != nil {
		t.Fatalf("index: %v\n%s", err, out)
	}
	for _, want := range []string{"Indexed examples_rift", "Indexed docs"} {
		if !strings.Contains(out, want) {
			t.Errorf("index output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "examples_spark") {
		t.Errorf("unconfigured corpus should be skipped:\n%s", out)
	}

	out, err = run(t, "--config", cfgPath, "search", "kafka", "stream", "--limit", "1")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.HasPrefix(out, "==== Python Code Example ====") {
		t.Errorf("unexpected search output:\n%s", out)
	}
	if strings.Count(out, "==== Python Code Example ====") != 1 {
		t.Errorf("expected exactly one result:\n%s", out)
	}

	out, err = run(t, "--config", cfgPath, "search", "entity join key", "--corpus", "docs", "--json")
	if err != nil {
		t.Fatalf("search docs: %v", err)
	}
	var resp struct {
		Corpus  string `json:"corpus"`
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("search json: %v\n%s", err, out)
	}
	if resp.Corpus != "docs" || len(resp.Results) == 0 {
		t.Errorf("unexpected docs response: %+v", resp)
	}

	out, err = run(t, "--config", cfgPath, "stats", "--json")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var metas []struct {
		Corpus     string `json:"corpus"`
		ChunkCount int    `json:"chunk_count"`
	}
	if err := json.Unmarshal([]byte(out), &metas); err != nil {
		t.Fatalf("stats json: %v\n%s", err, out)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 corpora, got %+v", metas)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	cfgPath := writeConfig(t)
	if _, err := run(t, "--config", cfgPath, "index", "--no-progress", "--corpus", "examples_rift"); err != nil {
		t.Fatalf("index: %v", err)
	}
	if _, err := run(t, "--config", cfgPath, "search", "   "); err == nil {
		t.Error("expected error for blank query")
	}
}

func TestIndexUnknownCorpus(t *testing.T) {
	cfgPath := writeConfig(t)
	if _, err := run(t, "--config", cfgPath, "index", "--corpus", "nope", "--no-progress"); err == nil {
		t.Error("expected error for unknown corpus")
	}
}

func TestReferenceCommand(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := run(t, "--config", cfgPath, "reference", "Entity", "NotARealClass")
	if err != nil {
		t.Fatalf("reference: %v", err)
	}
	if !strings.Contains(out, "Entity") || !strings.Contains(out, "NotARealClass") {
		t.Errorf("unexpected reference output:\n%s", out)
	}

	out, err = run(t, "--config", cfgPath, "reference", "--json", "Entity")
	if err != nil {
		t.Fatalf("reference json: %v", err)
	}
	var payload referenceJSON
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("reference json: %v\n%s", err, out)
	}
	if _, ok := payload.Entries["Entity"]; !ok {
		t.Errorf("Entity missing from %+v", payload.Entries)
	}
}
