package reference

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// MaxSuggestions caps "did you mean" candidates per unknown name.
const MaxSuggestions = 3

type nameDoc struct {
	Name  string `json:"name"`
	Parts string `json:"parts"`
}

// suggester is an in-memory fuzzy index over reference names.
type suggester struct {
	index bleve.Index
}

func newSuggester(names []string) (*suggester, error) {
	index, err := bleve.NewMemOnly(buildNameMapping())
	if err != nil {
		return nil, fmt.Errorf("create suggestion index: %w", err)
	}
	batch := index.NewBatch()
	for _, name := range names {
		doc := nameDoc{
			Name:  strings.ToLower(name),
			Parts: strings.Join(nameParts(name), " "),
		}
		if err := batch.Index(name, doc); err != nil {
			index.Close()
			return nil, fmt.Errorf("index name %s: %w", name, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return nil, fmt.Errorf("build suggestion index: %w", err)
	}
	return &suggester{index: index}, nil
}

func buildNameMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = "keyword"
	nameField.Store = false
	docMapping.AddFieldMappingsAt("name", nameField)

	partsField := bleve.NewTextFieldMapping()
	partsField.Analyzer = "standard"
	partsField.Store = false
	docMapping.AddFieldMappingsAt("parts", partsField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Suggest returns up to limit known names close to name.
func (s *suggester) Suggest(name string, limit int) []string {
	name = strings.TrimSpace(name)
	if name == "" || limit <= 0 {
		return nil
	}

	fuzzy := bleve.NewFuzzyQuery(strings.ToLower(name))
	fuzzy.SetField("name")
	fuzzy.SetFuzziness(2)
	fuzzy.SetBoost(3.0)

	queries := []blevequery.Query{fuzzy}
	if parts := nameParts(name); len(parts) > 0 {
		partsQuery := bleve.NewMatchQuery(strings.Join(parts, " "))
		partsQuery.SetField("parts")
		partsQuery.SetFuzziness(1)
		queries = append(queries, partsQuery)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(queries...), limit, 0, false)
	res, err := s.index.Search(req)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, hit.ID)
	}
	return out
}

func (s *suggester) Close() error {
	return s.index.Close()
}

// nameParts splits snake_case and CamelCase names into lower-case words.
func nameParts(name string) []string {
	var parts []string
	for _, piece := range strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '.' || unicode.IsSpace(r)
	}) {
		runes := []rune(piece)
		start := 0
		for i := 1; i < len(runes); i++ {
			if unicode.IsUpper(runes[i]) && !unicode.IsUpper(runes[i-1]) {
				parts = append(parts, strings.ToLower(string(runes[start:i])))
				start = i
			}
		}
		parts = append(parts, strings.ToLower(string(runes[start:])))
	}
	return parts
}
