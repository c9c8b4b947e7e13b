package research

import (
	"context"
	"errors"
	"testing"

	"github.com/david/keyword-scout/internal/models"
)

func TestRunKeywordResearch(t *testing.T) {
	req := ResearchRequest{
		SiteRaw: []models.RawKeywordInput{
			{Text: "SEO Tools", SearchVolume: 100},
			{Text: "seo tools", SearchVolume: 250},
			{Text: "keyword research", SearchVolume: 80, Intent: models.IntentInformational},
		},
		CompetitorRaw: map[string][]models.RawKeywordInput{
			"competitor-a.com": {
				{Text: "seo tools", SearchVolume: 300},
				{Text: "rank tracker", SearchVolume: 500},
			},
			"competitor-b.com": {
				{Text: "rank tracker", SearchVolume: 450},
			},
		},
		TargetClusters: 3,
		MinGapVolume:   0,
		MaxGapResults:  10,
	}

	result, err := RunKeywordResearch(context.Background(), req, LexicalSimilarity{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Gaps) != 1 {
		t.Fatalf("expected 1 gap, got %+v", result.Gaps)
	}
	gap := result.Gaps[0]
	if gap.Keyword.Text != "rank tracker" || gap.SearchVolume != 500 || gap.CompetitorCount != 2 {
		t.Errorf("unexpected gap: %+v", gap)
	}

	memberCount := 0
	for _, c := range result.Clusters {
		memberCount += len(c.Members)
	}
	// Two site keywords after dedup: "seo tools" and "keyword research".
	if memberCount != 2 {
		t.Errorf("expected 2 clustered site keywords, got %d", memberCount)
	}
}

func TestRunKeywordResearchPropagatesInvalidArgument(t *testing.T) {
	req := ResearchRequest{
		SiteRaw:        []models.RawKeywordInput{{Text: "seo tools", SearchVolume: 10}},
		TargetClusters: 2,
		MinGapVolume:   0,
		MaxGapResults:  0,
	}

	_, err := RunKeywordResearch(context.Background(), req, LexicalSimilarity{})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRunKeywordResearchPropagatesCapabilityFailure(t *testing.T) {
	req := ResearchRequest{
		SiteRaw:        []models.RawKeywordInput{{Text: "seo tools", SearchVolume: 10}},
		TargetClusters: 2,
		MinGapVolume:   0,
		MaxGapResults:  10,
	}

	_, err := RunKeywordResearch(context.Background(), req, stubSimilarity{err: errors.New("model timeout")})
	if !errors.Is(err, ErrSimilarityUnavailable) {
		t.Errorf("expected ErrSimilarityUnavailable, got %v", err)
	}
}

func TestRunKeywordResearchKeepsGapsOnCapabilityFailure(t *testing.T) {
	req := ResearchRequest{
		SiteRaw: []models.RawKeywordInput{{Text: "seo tools", SearchVolume: 100}},
		CompetitorRaw: map[string][]models.RawKeywordInput{
			"competitor-a.com": {{Text: "rank tracker", SearchVolume: 500}},
		},
		TargetClusters: 2,
		MinGapVolume:   0,
		MaxGapResults:  10,
	}

	result, err := RunKeywordResearch(context.Background(), req, stubSimilarity{err: errors.New("connection refused")})
	if !errors.Is(err, ErrSimilarityUnavailable) {
		t.Fatalf("expected ErrSimilarityUnavailable, got %v", err)
	}
	// Gap analysis does not depend on the capability; its result must survive
	// the outage so the caller can degrade to a gap-only run.
	if result == nil {
		t.Fatal("expected partial result alongside the error, got nil")
	}
	if len(result.Gaps) != 1 || result.Gaps[0].Keyword.Text != "rank tracker" {
		t.Errorf("expected the computed gap to be preserved, got %+v", result.Gaps)
	}
	if len(result.Clusters) != 0 {
		t.Errorf("expected no clusters on capability failure, got %d", len(result.Clusters))
	}
}
