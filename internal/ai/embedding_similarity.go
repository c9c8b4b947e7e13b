package ai

import (
	"context"
	"fmt"
	"math"
)

// EmbeddingSimilarity groups keywords by greedy cosine assignment over their
// embedding vectors. Given the same embeddings and input order the grouping is
// deterministic, which makes it a middle ground between the lexical heuristic
// and full LLM clustering: semantic, but auditable.
type EmbeddingSimilarity struct {
	Embedder Embedder

	// MinCosine is the similarity at or above which a keyword joins an
	// existing group's seed instead of opening a new one. Zero means the
	// default.
	MinCosine float64
}

const defaultMinCosine = 0.75

func (s EmbeddingSimilarity) Group(ctx context.Context, keywords []string, targetClusters int) (map[string]int, error) {
	if s.Embedder == nil {
		return nil, fmt.Errorf("embedding similarity: no embedder configured")
	}
	minCosine := s.MinCosine
	if minCosine <= 0 {
		minCosine = defaultMinCosine
	}

	vectors := make([][]float32, len(keywords))
	for i, kw := range keywords {
		vec, err := s.Embedder.GenerateEmbedding(ctx, kw)
		if err != nil {
			return nil, fmt.Errorf("embedding %q: %w", kw, err)
		}
		vectors[i] = vec
	}

	assignment := make(map[string]int, len(keywords))
	var seedVecs [][]float32

	for i, kw := range keywords {
		if _, done := assignment[kw]; done {
			continue
		}

		bestIdx := -1
		bestScore := -1.0
		for gi, seed := range seedVecs {
			score := cosine(vectors[i], seed)
			if score > bestScore {
				bestScore = score
				bestIdx = gi
			}
		}

		switch {
		case bestIdx >= 0 && bestScore >= minCosine:
			assignment[kw] = bestIdx
		case targetClusters <= 0 || len(seedVecs) < targetClusters:
			assignment[kw] = len(seedVecs)
			seedVecs = append(seedVecs, vectors[i])
		case bestIdx >= 0:
			assignment[kw] = bestIdx
		default:
			assignment[kw] = 0
		}
	}

	return assignment, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
