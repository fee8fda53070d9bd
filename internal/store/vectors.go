package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/tecton-ai/tecton-mcp/internal/embedding"
)

// vectorToBlob converts a float32 slice to a little-endian binary blob
func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:i*4+4], math.Float32bits(v))
	}
	return blob
}

// blobToVector converts a binary blob back to a float32 slice
func blobToVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("blob size %d is not a multiple of 4", len(blob))
	}

	vector := make([]float32, len(blob)/4)
	for i := 0; i < len(vector); i++ {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4 : i*4+4]))
	}
	return vector, nil
}

// scoreEntry computes cosine similarity of entry against query.
func scoreEntry(query []float32, e Entry) ScoredEntry {
	score := embedding.Similarity(query, e.Vector)
	return ScoredEntry{Entry: e, Score: score, Distance: 1 - score}
}

// rankResults sorts by score descending, breaking ties by chunk id, and keeps
// at most k results.
func rankResults(results []ScoredEntry, k int) []ScoredEntry {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

func validateEntries(meta CorpusMeta, entries []Entry) error {
	if meta.Corpus == "" {
		return fmt.Errorf("corpus name is required")
	}
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("entry %d has no id", i)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("duplicate entry id %q", e.ID)
		}
		seen[e.ID] = struct{}{}
		if len(e.Vector) != meta.Dimensions {
			return fmt.Errorf("entry %q has %d dimensions, corpus expects %d", e.ID, len(e.Vector), meta.Dimensions)
		}
	}
	return nil
}
