// Package reference serves the pre-extracted Tecton SDK reference table.
package reference

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry types.
const (
	TypeClass    = "Class"
	TypeFunction = "Function"
)

// AggregationModule holds the aggregation helpers pulled in by "Aggregate".
const AggregationModule = "tecton.aggregation_functions"

// ExcludedNames are public SDK names that are never served: session and
// login helpers, workspace getters and internal model types.
var ExcludedNames = map[string]struct{}{
	"set_tecton_spark_session": {}, "resource_provider": {}, "login": {}, "logout": {},
	"list_workspaces": {}, "get_workspace": {}, "get_transformation": {}, "get_feature_view": {},
	"get_feature_table": {}, "get_entity": {}, "get_data_source": {}, "get_caller_identity": {},
	"get_feature_service": {}, "get_current_workspace": {}, "complete_login": {},
	"TectonValidationError": {}, "StrictModel": {}, "StrictFrozenModel": {},
	"MaterializedFeatureView": {}, "MaterializationJob": {}, "MaterializationContext": {},
	"MaterializationAttempt": {}, "LoggingConfig": {}, "Inference": {},
	"FeatureMetadata": {}, "FeatureReference": {},
}

// Entry is one SDK class or function.
type Entry struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"`
	Module      string   `json:"module" yaml:"module"`
	ImportFrom  string   `json:"import_from,omitempty" yaml:"import_from,omitempty"`
	Declaration string   `json:"declaration" yaml:"declaration"`
	Deps        []string `json:"deps,omitempty" yaml:"deps,omitempty"`
}

// Import returns the recommended import path.
func (e *Entry) Import() string {
	if e.ImportFrom != "" {
		return e.ImportFrom
	}
	return e.Module
}

type tableFile struct {
	SDKVersion string  `json:"sdk_version" yaml:"sdk_version"`
	Entries    []Entry `json:"entries" yaml:"entries"`
}

// Table is the immutable reference table. It is safe for concurrent reads.
type Table struct {
	sdkVersion string
	entries    map[string]*Entry
	names      []string
	suggester  *suggester
}

// Load reads a reference table from a JSON or YAML file. The file is either
// a list of entries or an object with "sdk_version" and "entries".
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference table: %w", err)
	}

	var file tableFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := decodeJSON(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse reference table %s: %w", path, err)
		}
	default:
		if err := decodeYAML(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse reference table %s: %w", path, err)
		}
	}
	return New(file.SDKVersion, file.Entries)
}

func decodeJSON(data []byte, file *tableFile) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, &file.Entries)
	}
	return json.Unmarshal(data, file)
}

func decodeYAML(data []byte, file *tableFile) error {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		return node.Content[0].Decode(&file.Entries)
	}
	return node.Decode(file)
}

// New builds a table from entries. Excluded and underscore-prefixed names are
// dropped; a duplicate name is an error.
func New(sdkVersion string, entries []Entry) (*Table, error) {
	t := &Table{
		sdkVersion: sdkVersion,
		entries:    make(map[string]*Entry, len(entries)),
	}
	for i := range entries {
		e := entries[i]
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			return nil, fmt.Errorf("reference entry %d has no name", i)
		}
		if strings.HasPrefix(e.Name, "_") {
			continue
		}
		if _, skip := ExcludedNames[e.Name]; skip {
			continue
		}
		if _, dup := t.entries[e.Name]; dup {
			return nil, fmt.Errorf("duplicate reference entry: %s", e.Name)
		}
		if e.Type == "" {
			e.Type = TypeClass
		}
		t.entries[e.Name] = &e
		t.names = append(t.names, e.Name)
	}
	sort.Strings(t.names)

	s, err := newSuggester(t.names)
	if err != nil {
		return nil, err
	}
	t.suggester = s
	return t, nil
}

// SDKVersion returns the SDK version the table was extracted from.
func (t *Table) SDKVersion() string {
	return t.sdkVersion
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.names)
}

// Names returns every entry name, sorted.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Get returns the entry for name.
func (t *Table) Get(name string) (*Entry, bool) {
	e, ok := t.entries[name]
	return e, ok
}

// Close releases the suggestion index.
func (t *Table) Close() error {
	if t.suggester == nil {
		return nil
	}
	return t.suggester.Close()
}
