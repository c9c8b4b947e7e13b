package research

import (
	"sort"

	"github.com/david/keyword-scout/internal/models"
)

// FindGaps ranks keywords competitors hold that the site does not. The site
// owns a keyword regardless of its own volume; position-based filtering, if
// wanted, is a pre-filter the caller applies to siteRecords. minVolume drops
// individual competitor rows below the threshold before aggregation, so the
// reported volume is the max among qualifying rows. Competitor iteration is
// sorted by id, which fixes the first-seen order of the Competitors list and
// makes re-runs byte-identical.
func FindGaps(siteRecords []models.KeywordRecord, competitorRecordsBySite map[string][]models.KeywordRecord, minVolume, maxResults int) ([]models.KeywordGap, error) {
	if minVolume < 0 {
		return nil, invalidArgf("min volume must not be negative, got %d", minVolume)
	}
	if maxResults <= 0 {
		return nil, invalidArgf("max results must be positive, got %d", maxResults)
	}

	owned := make(map[models.KeywordKey]struct{}, len(siteRecords))
	for _, r := range siteRecords {
		owned[r.Key()] = struct{}{}
	}

	competitorIDs := make([]string, 0, len(competitorRecordsBySite))
	for id := range competitorRecordsBySite {
		competitorIDs = append(competitorIDs, id)
	}
	sort.Strings(competitorIDs)

	gapsByKey := make(map[models.KeywordKey]*models.KeywordGap)
	var order []models.KeywordKey

	for _, compID := range competitorIDs {
		for _, rec := range competitorRecordsBySite[compID] {
			key := rec.Key()
			if _, has := owned[key]; has {
				continue
			}
			if rec.SearchVolume < minVolume {
				continue
			}

			gap, ok := gapsByKey[key]
			if !ok {
				gap = &models.KeywordGap{Keyword: key, Intent: models.IntentUnknown}
				gapsByKey[key] = gap
				order = append(order, key)
			}
			if rec.SearchVolume > gap.SearchVolume {
				gap.SearchVolume = rec.SearchVolume
			}
			if gap.Difficulty == nil && rec.Difficulty != nil {
				d := *rec.Difficulty
				gap.Difficulty = &d
			}
			if gap.Intent == models.IntentUnknown && rec.Intent != models.IntentUnknown {
				gap.Intent = rec.Intent
			}
			if !containsString(gap.Competitors, compID) {
				gap.Competitors = append(gap.Competitors, compID)
			}
		}
	}

	gaps := make([]models.KeywordGap, 0, len(order))
	for _, key := range order {
		gap := gapsByKey[key]
		gap.CompetitorCount = len(gap.Competitors)
		gap.PriorityScore = float64(gap.SearchVolume) * float64(gap.CompetitorCount)
		gaps = append(gaps, *gap)
	}

	sort.Slice(gaps, func(i, j int) bool {
		a, b := gaps[i], gaps[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if a.SearchVolume != b.SearchVolume {
			return a.SearchVolume > b.SearchVolume
		}
		return a.Keyword.Text < b.Keyword.Text
	})

	if len(gaps) > maxResults {
		gaps = gaps[:maxResults]
	}
	return gaps, nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
