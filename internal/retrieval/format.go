package retrieval

import "strings"

// NoResults is the tool text for an empty result set.
const NoResults = "No results found."

const (
	exampleHeader = "==== Python Code Example ====\n\n"
	docsHeader    = "==== Documentation Snippet ===="
	docsSeparator = "\n\n---\n\n"
)

// Text renders the response as tool text content.
func (r *Response) Text() string {
	if r == nil || len(r.Results) == 0 {
		return NoResults
	}
	if r.Kind == KindDocs {
		return formatDocs(r.Results)
	}
	return formatExamples(r.Results)
}

func formatExamples(results []Result) string {
	blocks := make([]string, len(results))
	for i, res := range results {
		blocks[i] = exampleHeader + res.Content
	}
	return strings.Join(blocks, "\n\n")
}

func formatDocs(results []Result) string {
	blocks := make([]string, len(results))
	for i, res := range results {
		var b strings.Builder
		b.WriteString(docsHeader)
		b.WriteString("\nSource URL: ")
		b.WriteString(metaOr(res.Metadata, "url"))
		b.WriteString("\nSection Header: ")
		b.WriteString(metaOr(res.Metadata, "header"))
		b.WriteString("\n\n")
		b.WriteString(res.Content)
		blocks[i] = b.String()
	}
	return strings.Join(blocks, docsSeparator)
}

func metaOr(md map[string]string, key string) string {
	if v := md[key]; v != "" {
		return v
	}
	return "N/A"
}
