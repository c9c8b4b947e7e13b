package research

import (
	"context"
	"errors"
	"sort"

	"github.com/david/keyword-scout/internal/models"
)

// SelfSite is the owner tag attached to the subject site's records.
const SelfSite = "self"

// ResearchRequest carries one full research run's inputs.
type ResearchRequest struct {
	SiteRaw        []models.RawKeywordInput
	CompetitorRaw  map[string][]models.RawKeywordInput
	TargetClusters int
	MinGapVolume   int
	MaxGapResults  int
}

// RunKeywordResearch is the single entry point external schedulers and the API
// layer call. It normalizes the site's raw metrics once, shares those
// canonical records between the clusterer and the gap analyzer, and iterates
// competitors in sorted-id order so both analyses see the same deterministic
// view. Validation errors propagate unchanged. A capability failure during
// clustering returns the gap result alongside ErrSimilarityUnavailable: gap
// analysis has no dependency on the capability, so the caller can degrade to a
// gap-only run instead of losing everything. Retry policy stays with the
// caller.
func RunKeywordResearch(ctx context.Context, req ResearchRequest, similarity SimilarityCapability) (*models.KeywordResearchResult, error) {
	siteRecords, err := Normalize(req.SiteRaw, SelfSite)
	if err != nil {
		return nil, err
	}

	competitorIDs := make([]string, 0, len(req.CompetitorRaw))
	for id := range req.CompetitorRaw {
		competitorIDs = append(competitorIDs, id)
	}
	sort.Strings(competitorIDs)

	competitorRecords := make(map[string][]models.KeywordRecord, len(competitorIDs))
	for _, id := range competitorIDs {
		recs, err := Normalize(req.CompetitorRaw[id], id)
		if err != nil {
			return nil, err
		}
		competitorRecords[id] = recs
	}

	gaps, err := FindGaps(siteRecords, competitorRecords, req.MinGapVolume, req.MaxGapResults)
	if err != nil {
		return nil, err
	}

	clusters, err := Cluster(ctx, siteRecords, req.TargetClusters, similarity)
	if err != nil {
		if errors.Is(err, ErrSimilarityUnavailable) {
			return &models.KeywordResearchResult{Gaps: gaps}, err
		}
		return nil, err
	}

	return &models.KeywordResearchResult{Clusters: clusters, Gaps: gaps}, nil
}
