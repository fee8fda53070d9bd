package mcpserver

// SearchInput defines inputs for the example and documentation search tools.
type SearchInput struct {
	Query string `json:"query" jsonschema:"natural language search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default 10, max 50)"`
}

// SearchResultItem is one retrieved chunk.
type SearchResultItem struct {
	ID       string            `json:"id"`
	Score    float32           `json:"score"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchOutput is the structured result of a search tool.
type SearchOutput struct {
	Corpus  string             `json:"corpus"`
	Count   int                `json:"count"`
	Results []SearchResultItem `json:"results"`
}

// FullReferenceInput takes no arguments.
type FullReferenceInput struct{}

// FullReferenceOutput summarises the full reference dump.
type FullReferenceOutput struct {
	Count      int    `json:"count"`
	SDKVersion string `json:"sdk_version,omitempty"`
}

// ReferenceInput defines inputs for query_tecton_sdk_reference_tool.
type ReferenceInput struct {
	ClassNames []string `json:"class_names,omitempty" jsonschema:"Tecton SDK class or function names to look up"`
}

// ReferenceOutput maps each known requested name to its reference text.
type ReferenceOutput struct {
	Entries     map[string]string   `json:"entries,omitempty"`
	Missing     []string            `json:"missing,omitempty"`
	Expanded    []string            `json:"expanded,omitempty"`
	Suggestions map[string][]string `json:"suggestions,omitempty"`
}

// FeatureServiceInput defines inputs for a feature service tool.
type FeatureServiceInput struct {
	JoinKeyMap        map[string]any `json:"join_key_map" jsonschema:"join key names mapped to their values"`
	RequestContextMap map[string]any `json:"request_context_map,omitempty" jsonschema:"request-time context values"`
}

// FeatureServiceOutput holds feature values keyed by feature name.
type FeatureServiceOutput struct {
	FeatureService string         `json:"feature_service"`
	Features       map[string]any `json:"features,omitempty"`
}
