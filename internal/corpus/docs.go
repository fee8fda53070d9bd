package corpus

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tecton-ai/tecton-mcp/internal/config"
	"github.com/tecton-ai/tecton-mcp/internal/store"
)

// Metadata keys set on documentation chunks.
const (
	MetaURL        = "url"
	MetaHeader     = "header"
	MetaSourceFile = "source_file"
	MetaWordLength = "word_length"
)

// DocsOptions locates the documentation tree.
type DocsOptions struct {
	Dir      string
	BaseURL  string
	Patterns []string
}

// ReadDocs walks the documentation tree and returns one chunk per section.
func ReadDocs(opts DocsOptions) ([]store.Chunk, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("docs directory is not configured")
	}
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = []string{"**/*.md", "**/*.mdx"}
	}
	files, err := walkFiles(opts.Dir, patterns)
	if err != nil {
		return nil, err
	}

	var chunks []store.Chunk
	for _, rel := range files {
		src, err := os.ReadFile(filepath.Join(opts.Dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rel, err)
		}
		chunks = append(chunks, docChunks(rel, src, opts.BaseURL)...)
	}
	return chunks, nil
}

func docChunks(rel string, src []byte, baseURL string) []store.Chunk {
	fm, body := splitFrontMatter(src)
	url := docURL(baseURL, rel, fm)
	pageTitle := fm["title"]

	sections := ChunkMarkdown(body)
	chunks := make([]store.Chunk, 0, len(sections))
	for i, sec := range sections {
		header := sec.Header
		if header == "" {
			header = pageTitle
		}
		title := sec.Title
		if title == "" {
			title = pageTitle
		}
		content := strings.TrimSpace(sec.Content)

		text := content
		if title != "" {
			text = title + "\n\n" + content
		}
		chunks = append(chunks, store.Chunk{
			ID:      chunkID(config.CorpusDocs, rel, i),
			Corpus:  config.CorpusDocs,
			Source:  rel,
			Ordinal: i,
			Title:   title,
			Text:    text,
			Payload: content,
			Metadata: map[string]string{
				MetaURL:        url,
				MetaHeader:     header,
				MetaSourceFile: rel,
				MetaWordLength: strconv.Itoa(len(strings.Fields(content))),
			},
		})
	}
	return chunks
}

// splitFrontMatter separates a leading "---" YAML block from the body.
// Only scalar string values are kept.
func splitFrontMatter(src []byte) (map[string]string, []byte) {
	fm := map[string]string{}
	text := bytes.TrimPrefix(src, []byte("\ufeff"))
	if !bytes.HasPrefix(text, []byte("---\n")) && !bytes.HasPrefix(text, []byte("---\r\n")) {
		return fm, src
	}
	rest := text[bytes.IndexByte(text, '\n')+1:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return fm, src
	}
	block := rest[:end]
	body := rest[end+len("\n---"):]
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(block, &raw); err != nil {
		return fm, body
	}
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			fm[k] = val
		case int, float64, bool:
			fm[k] = fmt.Sprint(val)
		}
	}
	return fm, body
}

// docURL derives the public URL for a page. Front matter "url" wins, then
// "slug", then the file path without its extension.
func docURL(baseURL, rel string, fm map[string]string) string {
	if u := fm["url"]; u != "" {
		return u
	}
	base := strings.TrimRight(baseURL, "/")
	if slug := fm["slug"]; slug != "" {
		if strings.HasPrefix(slug, "http://") || strings.HasPrefix(slug, "https://") {
			return slug
		}
		return base + "/" + strings.TrimLeft(slug, "/")
	}
	p := strings.TrimSuffix(rel, path.Ext(rel))
	if path.Base(p) == "index" {
		p = path.Dir(p)
		if p == "." {
			p = ""
		}
	}
	if p == "" {
		return base
	}
	return base + "/" + p
}
