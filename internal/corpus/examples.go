package corpus

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tecton-ai/tecton-mcp/internal/store"
)

// Metadata keys set on example chunks.
const (
	MetaName     = "name"
	MetaKind     = "kind"
	MetaTitle    = "title"
	MetaLanguage = "language"
)

var examplePatterns = []string{"**/*.py", "**/*.yaml", "**/*.yml", "**/*.json"}

// ExampleRecord is one entry of an examples manifest.
type ExampleRecord struct {
	Name        string `yaml:"name" json:"name"`
	Text        string `yaml:"text" json:"text"`
	Description string `yaml:"description" json:"description"`
	Code        string `yaml:"code" json:"code"`
	Source      string `yaml:"source" json:"source"`
}

// summary is the text that gets embedded.
func (r ExampleRecord) summary() string {
	if r.Text != "" {
		return r.Text
	}
	desc := strings.TrimSpace(r.Description)
	switch {
	case r.Name != "" && desc != "":
		return fmt.Sprintf("Example of %s. %s", r.Name, desc)
	case r.Name != "":
		return "Example of " + r.Name + "."
	default:
		return desc
	}
}

// ReadExamples reads example code for corpus from each path. A path may be a
// manifest file, a Python file, or a directory containing either.
func ReadExamples(corpus string, paths []string) ([]store.Chunk, error) {
	var chunks []store.Chunk
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("examples source %s: %w", root, err)
		}
		if !info.IsDir() {
			got, err := readExampleFile(corpus, root, filepath.ToSlash(filepath.Base(root)))
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, got...)
			continue
		}

		files, err := walkFiles(root, examplePatterns)
		if err != nil {
			return nil, err
		}
		prefix := filepath.ToSlash(filepath.Base(filepath.Clean(root)))
		for _, rel := range files {
			got, err := readExampleFile(corpus, filepath.Join(root, filepath.FromSlash(rel)), prefix+"/"+rel)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, got...)
		}
	}
	return chunks, nil
}

func readExampleFile(corpus, file, source string) ([]store.Chunk, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	switch strings.ToLower(path.Ext(source)) {
	case ".py":
		return pythonExamples(corpus, source, string(data)), nil
	case ".yaml", ".yml", ".json":
		records, err := parseManifest(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		return manifestExamples(corpus, source, records), nil
	default:
		return nil, nil
	}
}

// parseManifest accepts either a bare list of records or {examples: [...]}.
// JSON is valid YAML, so one decoder covers both.
func parseManifest(data []byte) ([]ExampleRecord, error) {
	var list []ExampleRecord
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Examples []ExampleRecord `yaml:"examples"`
	}
	if err := yaml.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Examples, nil
}

func manifestExamples(corpus, source string, records []ExampleRecord) []store.Chunk {
	var chunks []store.Chunk
	for _, r := range records {
		code := strings.TrimSpace(r.Code)
		summary := r.summary()
		if code == "" || summary == "" {
			continue
		}
		src := source
		if r.Source != "" {
			src = r.Source
		}
		ordinal := len(chunks)
		chunks = append(chunks, store.Chunk{
			ID:      chunkID(corpus, source, ordinal),
			Corpus:  corpus,
			Source:  src,
			Ordinal: ordinal,
			Title:   summary,
			Text:    summary,
			Payload: code,
			Metadata: map[string]string{
				MetaName:     r.Name,
				MetaTitle:    summary,
				MetaLanguage: "python",
			},
		})
	}
	return chunks
}

func pythonExamples(corpus, source, src string) []store.Chunk {
	decls, imports := SplitPython(src)
	header := strings.Join(imports, "\n")

	chunks := make([]store.Chunk, 0, len(decls))
	for i, d := range decls {
		code := d.Source
		if header != "" {
			code = header + "\n\n\n" + d.Source
		}
		title := fmt.Sprintf("Example of %s (%s)", d.Name, path.Base(source))
		chunks = append(chunks, store.Chunk{
			ID:      chunkID(corpus, source, i),
			Corpus:  corpus,
			Source:  source,
			Ordinal: i,
			Title:   title,
			Text:    title + "\n" + d.Summary,
			Payload: code,
			Metadata: map[string]string{
				MetaName:     d.Name,
				MetaKind:     d.Kind,
				MetaTitle:    title,
				MetaLanguage: "python",
			},
		})
	}
	return chunks
}
