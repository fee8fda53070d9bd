package retrieval

import (
	"github.com/tecton-ai/tecton-mcp/internal/embedding"
	"github.com/tecton-ai/tecton-mcp/internal/store"
)

// mmrSelect picks k candidates by Maximal Marginal Relevance:
//
//	MMR(c) = λ * relevance(c) - (1-λ) * max_similarity(c, selected)
//
// Relevance is the candidate's score against the query and similarity is the
// cosine between candidate vectors. Candidates are expected in descending
// score order; ties on MMR keep the earlier candidate.
func mmrSelect(candidates []store.ScoredEntry, k int, lambda float64) []store.ScoredEntry {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	selected := make([]store.ScoredEntry, 0, k)
	remaining := make([]store.ScoredEntry, len(candidates))
	copy(remaining, candidates)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		bestMMR := -1e9

		for i, candidate := range remaining {
			maxSim := 0.0
			for _, sel := range selected {
				if sim := vectorSimilarity(candidate.Vector, sel.Vector); sim > maxSim {
					maxSim = sim
				}
			}

			mmr := lambda*float64(candidate.Score) - (1-lambda)*maxSim
			if mmr > bestMMR {
				bestMMR = mmr
				bestIdx = i
			}
		}
		if bestIdx == -1 {
			break
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

func vectorSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	return float64(embedding.Similarity(a, b))
}
