package research

import (
	"context"
	"sort"

	"github.com/david/keyword-scout/internal/models"
)

// contentTypeByIntent is the fixed mapping from a cluster's dominant intent to
// its recommended content format.
var contentTypeByIntent = map[models.Intent]models.ContentType{
	models.IntentInformational: models.ContentBlog,
	models.IntentCommercial:    models.ContentComparison,
	models.IntentTransactional: models.ContentProduct,
	models.IntentNavigational:  models.ContentLanding,
	models.IntentUnknown:       models.ContentBlog,
}

// Defaults applied when a member carries no competition or difficulty value,
// so a sparse cluster still gets a comparable opportunity score.
const (
	missingCompetition = 0.5
	missingDifficulty  = 50.0
)

// Cluster groups the site's records into topic clusters. The semantic grouping
// decision is delegated to the capability; everything after that call is
// deterministic aggregation and must come out identical no matter which
// capability produced the grouping. A capability failure surfaces as
// ErrSimilarityUnavailable with the cause attached; there is no internal
// fallback here. Degrading to singletons is a caller policy.
func Cluster(ctx context.Context, records []models.KeywordRecord, targetClusters int, similarity SimilarityCapability) ([]models.KeywordCluster, error) {
	if targetClusters <= 0 {
		return nil, invalidArgf("target clusters must be positive, got %d", targetClusters)
	}
	if similarity == nil {
		return nil, invalidArgf("similarity capability is required")
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Distinct texts, sorted before the capability call for determinism.
	seen := make(map[string]struct{}, len(records))
	texts := make([]string, 0, len(records))
	for _, r := range records {
		if _, dup := seen[r.Text]; dup {
			continue
		}
		seen[r.Text] = struct{}{}
		texts = append(texts, r.Text)
	}
	sort.Strings(texts)

	assignment, err := similarity.Group(ctx, texts, targetClusters)
	if err != nil {
		return nil, similarityUnavailable(err)
	}

	// A text the capability failed to place still belongs somewhere: give each
	// one a fresh singleton group so no keyword is silently dropped.
	maxIdx := -1
	for _, idx := range assignment {
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	placed := make(map[string]int, len(texts))
	for _, text := range texts {
		idx, ok := assignment[text]
		if !ok {
			maxIdx++
			idx = maxIdx
		}
		placed[text] = idx
	}

	groups := make(map[int][]models.KeywordRecord)
	for _, r := range records {
		idx := placed[r.Text]
		groups[idx] = append(groups[idx], r)
	}

	clusters := make([]models.KeywordCluster, 0, len(groups))
	for _, members := range groups {
		// Empty indices from the capability simply produce no group here;
		// targetClusters is an upper bound, not a guarantee.
		clusters = append(clusters, buildCluster(members))
	}

	sort.Slice(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]
		if a.OpportunityScore != b.OpportunityScore {
			return a.OpportunityScore > b.OpportunityScore
		}
		if a.TotalVolume != b.TotalVolume {
			return a.TotalVolume > b.TotalVolume
		}
		return a.Label < b.Label
	})

	return clusters, nil
}

func buildCluster(members []models.KeywordRecord) models.KeywordCluster {
	sort.Slice(members, func(i, j int) bool {
		if members[i].SearchVolume != members[j].SearchVolume {
			return members[i].SearchVolume > members[j].SearchVolume
		}
		return members[i].Text < members[j].Text
	})

	totalVolume := 0
	compSum := 0.0
	diffScoreSum := 0.0
	diffSum := 0.0
	diffCount := 0
	for _, m := range members {
		totalVolume += m.SearchVolume
		if m.Competition != nil {
			compSum += *m.Competition
		} else {
			compSum += missingCompetition
		}
		if m.Difficulty != nil {
			diffScoreSum += float64(*m.Difficulty)
			diffSum += float64(*m.Difficulty)
			diffCount++
		} else {
			diffScoreSum += missingDifficulty
		}
	}

	var avgDifficulty *float64
	if diffCount > 0 {
		v := diffSum / float64(diffCount)
		avgDifficulty = &v
	}

	intent := dominantIntent(members)

	n := float64(len(members))
	avgCompetition := compSum / n
	avgDifficultyOrDefault := diffScoreSum / n
	score := float64(totalVolume) * (1 - avgCompetition) / (1 + avgDifficultyOrDefault/100)

	return models.KeywordCluster{
		Label:                  members[0].Text,
		Intent:                 intent,
		Members:                members,
		TotalVolume:            totalVolume,
		AvgDifficulty:          avgDifficulty,
		RecommendedContentType: contentTypeByIntent[intent],
		OpportunityScore:       score,
	}
}

// dominantIntent is a majority vote across members, excluding unknown unless
// every member is unknown. Ties break toward the intent with more combined
// search volume, then alphabetically.
func dominantIntent(members []models.KeywordRecord) models.Intent {
	counts := make(map[models.Intent]int)
	volumes := make(map[models.Intent]int)
	for _, m := range members {
		if m.Intent == models.IntentUnknown {
			continue
		}
		counts[m.Intent]++
		volumes[m.Intent] += m.SearchVolume
	}
	if len(counts) == 0 {
		return models.IntentUnknown
	}

	best := models.Intent("")
	for intent := range counts {
		if best == "" {
			best = intent
			continue
		}
		if counts[intent] != counts[best] {
			if counts[intent] > counts[best] {
				best = intent
			}
			continue
		}
		if volumes[intent] != volumes[best] {
			if volumes[intent] > volumes[best] {
				best = intent
			}
			continue
		}
		if intent < best {
			best = intent
		}
	}
	return best
}
