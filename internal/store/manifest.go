package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Manifest is the embeddings_meta.json file written next to an external
// vector store. It records which model built each corpus and where the
// corpus lives.
type Manifest struct {
	path string

	mu   sync.RWMutex
	data manifestFile
}

type manifestFile struct {
	EmbeddingModel string                   `json:"embedding_model"`
	TectonVersion  string                   `json:"tecton_version,omitempty"`
	Corpora        map[string]manifestEntry `json:"corpora"`
}

type manifestEntry struct {
	CorpusMeta
	Collection string `json:"collection,omitempty"`
}

// LoadManifest reads the manifest at path. A missing file yields an empty manifest.
func LoadManifest(path string) (*Manifest, error) {
	m := &Manifest{path: path, data: manifestFile{Corpora: map[string]manifestEntry{}}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m.data); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if m.data.Corpora == nil {
		m.data.Corpora = map[string]manifestEntry{}
	}
	return m, nil
}

// Get returns the metadata and backing collection for corpus.
func (m *Manifest) Get(corpus string) (CorpusMeta, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data.Corpora[corpus]
	return e.CorpusMeta, e.Collection, ok
}

// Put records corpus and persists the manifest. It returns the collection
// previously recorded for the corpus, if any.
func (m *Manifest) Put(meta CorpusMeta, collection string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.data.Corpora[meta.Corpus].Collection
	m.data.Corpora[meta.Corpus] = manifestEntry{CorpusMeta: meta, Collection: collection}
	m.data.EmbeddingModel = meta.ModelStamp
	if meta.SDKVersion != "" {
		m.data.TectonVersion = meta.SDKVersion
	}
	if err := m.save(); err != nil {
		return "", err
	}
	return prev, nil
}

// All returns every recorded corpus sorted by name.
func (m *Manifest) All() []CorpusMeta {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CorpusMeta, 0, len(m.data.Corpora))
	for _, e := range m.data.Corpora {
		out = append(out, e.CorpusMeta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Corpus < out[j].Corpus })
	return out
}

func (m *Manifest) save() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	data, err := json.MarshalIndent(m.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}
