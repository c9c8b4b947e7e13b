package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/david/keyword-scout/internal/ai"
	"github.com/david/keyword-scout/internal/models"
	"github.com/david/keyword-scout/internal/research"
)

// executeResearch runs one research profile end to end: pull keyword metrics
// for the site and every competitor, run the analysis pipeline, and persist
// the run. Provider and validation errors mark the run failed; a similarity
// outage keeps the gap result and marks the run degraded. The stored row is
// the durable record, the background job entry is only for polling.
func (s *Server) executeResearch(ctx context.Context, runID uuid.UUID, profile research.ProfileConfig) (*models.KeywordResearchResult, error) {
	run := &models.ResearchRun{
		ID:          runID,
		ProfileID:   profile.ID,
		SiteDomain:  profile.SiteDomain,
		Competitors: profile.Competitor,
		Status:      "running",
		StartedAt:   time.Now(),
	}
	if err := s.Store.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	result, err := s.runProfile(ctx, profile)
	if err != nil {
		// A similarity outage leaves the gap analysis intact; keep it and
		// close the run as degraded instead of throwing the gaps away.
		if errors.Is(err, research.ErrSimilarityUnavailable) && result != nil {
			return s.degradeRun(ctx, runID, result, err)
		}
		if failErr := s.Store.FailRun(ctx, runID, err.Error()); failErr != nil {
			log.Printf("Failed to mark run %s failed: %v", runID, failErr)
		}
		return nil, err
	}

	embeddings := s.labelEmbeddings(ctx, result.Clusters)
	if err := s.Store.SaveResult(ctx, runID, result, embeddings); err != nil {
		if failErr := s.Store.FailRun(ctx, runID, err.Error()); failErr != nil {
			log.Printf("Failed to mark run %s failed: %v", runID, failErr)
		}
		return nil, err
	}

	if err := s.Store.CompleteRun(ctx, runID, len(result.Clusters), len(result.Gaps)); err != nil {
		return nil, err
	}
	return result, nil
}

// degradeRun persists the gap-only result of a run whose clustering backend
// was down: clustering unavailable, gap analysis unaffected.
func (s *Server) degradeRun(ctx context.Context, runID uuid.UUID, result *models.KeywordResearchResult, cause error) (*models.KeywordResearchResult, error) {
	if err := s.Store.SaveResult(ctx, runID, result, nil); err != nil {
		if failErr := s.Store.FailRun(ctx, runID, err.Error()); failErr != nil {
			log.Printf("Failed to mark run %s failed: %v", runID, failErr)
		}
		return nil, err
	}
	if err := s.Store.DegradeRun(ctx, runID, cause.Error(), len(result.Gaps)); err != nil {
		return nil, err
	}
	log.Printf("Run %s degraded: clustering unavailable, gap analysis unaffected (%d gaps): %v", runID, len(result.Gaps), cause)
	return result, nil
}

func (s *Server) runProfile(ctx context.Context, profile research.ProfileConfig) (*models.KeywordResearchResult, error) {
	siteRaw, err := s.Provider.KeywordsForSite(ctx, profile.SiteDomain, profile.Country, profile.Language, profile.KeywordLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch keywords for %s: %w", profile.SiteDomain, err)
	}

	competitorRaw := make(map[string][]models.RawKeywordInput, len(profile.Competitor))
	for _, domain := range profile.Competitor {
		raw, err := s.Provider.KeywordsForSite(ctx, domain, profile.Country, profile.Language, profile.KeywordLimit)
		if err != nil {
			return nil, fmt.Errorf("fetch keywords for competitor %s: %w", domain, err)
		}
		competitorRaw[domain] = raw
	}

	req := research.ResearchRequest{
		SiteRaw:        siteRaw,
		CompetitorRaw:  competitorRaw,
		TargetClusters: profile.TargetClusters,
		MinGapVolume:   *profile.MinGapVolume,
		MaxGapResults:  profile.MaxGapResults,
	}

	return research.RunKeywordResearch(ctx, req, s.similarityFor(profile.Similarity))
}

func (s *Server) similarityFor(name string) research.SimilarityCapability {
	switch name {
	case "llm":
		return ai.LLMSimilarity{Client: s.AI}
	case "embedding":
		return ai.EmbeddingSimilarity{Embedder: s.AI}
	default:
		return research.LexicalSimilarity{}
	}
}

// labelEmbeddings embeds cluster labels for the semantic-lookup column.
// Best effort: a dead embedding backend must not fail the run.
func (s *Server) labelEmbeddings(ctx context.Context, clusters []models.KeywordCluster) map[string][]float32 {
	if len(clusters) == 0 {
		return nil
	}
	out := make(map[string][]float32, len(clusters))
	for _, cluster := range clusters {
		embCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		vec, err := s.AI.GenerateEmbedding(embCtx, cluster.Label)
		cancel()
		if err != nil {
			log.Printf("Skipping label embedding for %q: %v", cluster.Label, err)
			continue
		}
		out[cluster.Label] = vec
	}
	return out
}
