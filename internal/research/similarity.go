package research

import (
	"context"
	"strings"
)

// SimilarityCapability is the single pluggable dependency of the clusterer:
// it decides which keywords belong together. Implementations range from the
// lexical heuristic below to LLM-backed bindings in internal/ai. Group must
// return a cluster index for every keyword it was given; targetClusters is an
// upper bound, not a guarantee.
type SimilarityCapability interface {
	Group(ctx context.Context, keywords []string, targetClusters int) (map[string]int, error)
}

// LexicalSimilarity groups keywords by token overlap (Jaccard). It needs no
// network, is fully deterministic for a fixed input order, and serves as the
// offline default and the test stub for the clusterer.
type LexicalSimilarity struct {
	// MinOverlap is the Jaccard score at or above which a keyword joins an
	// existing group instead of opening a new one. Zero means the default.
	MinOverlap float64
}

const defaultMinOverlap = 0.3

func (l LexicalSimilarity) Group(_ context.Context, keywords []string, targetClusters int) (map[string]int, error) {
	minOverlap := l.MinOverlap
	if minOverlap <= 0 {
		minOverlap = defaultMinOverlap
	}

	assignment := make(map[string]int, len(keywords))
	var seeds [][]string // token sets of each group's first member

	for _, kw := range keywords {
		if _, done := assignment[kw]; done {
			continue
		}
		tokens := strings.Fields(kw)

		bestIdx := -1
		bestScore := 0.0
		for i, seed := range seeds {
			score := jaccard(tokens, seed)
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		switch {
		case bestIdx >= 0 && bestScore >= minOverlap:
			assignment[kw] = bestIdx
		case targetClusters <= 0 || len(seeds) < targetClusters:
			assignment[kw] = len(seeds)
			seeds = append(seeds, tokens)
		case bestIdx >= 0:
			assignment[kw] = bestIdx
		default:
			// No token overlap with any group and no room for a new one.
			assignment[kw] = 0
		}
	}

	return assignment, nil
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	shared := 0
	union := len(set)
	seen := make(map[string]struct{}, len(b))
	for _, t := range b {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := set[t]; ok {
			shared++
		} else {
			union++
		}
	}
	return float64(shared) / float64(union)
}
