package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Completer is the slice of OllamaClient the LLM similarity binding needs.
type Completer interface {
	GenerateCompletion(ctx context.Context, prompt string, jsonMode bool) (string, error)
}

// LLMSimilarity groups keywords by asking a language model for topic clusters.
// It satisfies the clusterer's SimilarityCapability contract: the returned
// mapping covers every input keyword, and hallucinated keywords are discarded.
// Any transport or parse failure is returned as-is so the clusterer can flag
// the capability as unavailable.
type LLMSimilarity struct {
	Client Completer
}

type llmClusterResponse struct {
	Clusters []struct {
		Name     string   `json:"name"`
		Keywords []string `json:"keywords"`
	} `json:"clusters"`
}

func (s LLMSimilarity) Group(ctx context.Context, keywords []string, targetClusters int) (map[string]int, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("llm similarity: no client configured")
	}
	if len(keywords) == 0 {
		return map[string]int{}, nil
	}

	var list strings.Builder
	for _, kw := range keywords {
		list.WriteString("- ")
		list.WriteString(kw)
		list.WriteString("\n")
	}

	prompt := fmt.Sprintf(`You are an expert in keyword research and search intent analysis. Group the following keywords into at most %d clusters by topic and search intent.

KEYWORDS:
%s
Return a JSON object with this format:
{
  "clusters": [
    {"name": "cluster topic", "keywords": ["keyword one", "keyword two"]}
  ]
}

Rules:
1. Use ONLY keywords from the list above, spelled exactly as given.
2. Every keyword must appear in exactly one cluster.
3. Do not invent new keywords.
4. RESPOND ONLY WITH JSON.`, targetClusters, list.String())

	resp, err := s.Client.GenerateCompletion(ctx, prompt, true)
	if err != nil {
		return nil, err
	}

	var parsed llmClusterResponse
	if err := json.Unmarshal([]byte(resp), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse cluster json: %w. Response: %s", err, resp)
	}

	// Canonical lookup so near-miss casing from the model still matches.
	canonical := make(map[string]string, len(keywords))
	for _, kw := range keywords {
		canonical[strings.ToLower(strings.TrimSpace(kw))] = kw
	}

	assignment := make(map[string]int, len(keywords))
	next := 0
	for _, cluster := range parsed.Clusters {
		used := false
		for _, kw := range cluster.Keywords {
			orig, ok := canonical[strings.ToLower(strings.TrimSpace(kw))]
			if !ok {
				continue // hallucinated keyword
			}
			if _, dup := assignment[orig]; dup {
				continue // first cluster wins
			}
			assignment[orig] = next
			used = true
		}
		if used {
			next++
		}
	}

	// The model occasionally drops keywords despite the prompt. Each leftover
	// gets its own group so the caller never loses a keyword.
	for _, kw := range keywords {
		if _, ok := assignment[kw]; !ok {
			assignment[kw] = next
			next++
		}
	}

	return assignment, nil
}
