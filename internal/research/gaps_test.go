package research

import (
	"errors"
	"reflect"
	"testing"

	"github.com/david/keyword-scout/internal/models"
)

func compRec(text string, volume int, site string) models.KeywordRecord {
	return models.KeywordRecord{
		Text: text, Language: "en", Country: "US",
		SearchVolume: volume, Intent: models.IntentUnknown, SourceSite: site,
	}
}

func TestFindGapsValidation(t *testing.T) {
	tests := []struct {
		name       string
		minVolume  int
		maxResults int
	}{
		{"negative min volume", -1, 10},
		{"zero max results", 0, 0},
		{"negative max results", 0, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindGaps(nil, nil, tt.minVolume, tt.maxResults)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestFindGapsExcludesOwnedKeywords(t *testing.T) {
	site := []models.KeywordRecord{compRec("seo tools", 100, "self")}
	competitors := map[string][]models.KeywordRecord{
		"C1": {
			compRec("seo tools", 100, "C1"),
			compRec("rank tracker", 500, "C1"),
		},
	}

	gaps, err := FindGaps(site, competitors, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gaps) != 1 {
		t.Fatalf("expected exactly 1 gap, got %d", len(gaps))
	}
	gap := gaps[0]
	if gap.Keyword.Text != "rank tracker" {
		t.Errorf("expected gap %q, got %q", "rank tracker", gap.Keyword.Text)
	}
	if gap.SearchVolume != 500 || gap.CompetitorCount != 1 || gap.PriorityScore != 500 {
		t.Errorf("unexpected gap aggregation: %+v", gap)
	}
	if len(gap.Competitors) != 1 || gap.Competitors[0] != "C1" {
		t.Errorf("expected competitors [C1], got %v", gap.Competitors)
	}
}

func TestFindGapsMergesAcrossCompetitors(t *testing.T) {
	competitors := map[string][]models.KeywordRecord{
		"C1": {compRec("link building", 200, "C1")},
		"C2": {compRec("link building", 300, "C2")},
	}

	gaps, err := FindGaps(nil, competitors, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gaps) != 1 {
		t.Fatalf("expected a single merged gap, got %d", len(gaps))
	}
	gap := gaps[0]
	if gap.SearchVolume != 300 {
		t.Errorf("expected max volume 300, got %d", gap.SearchVolume)
	}
	if gap.CompetitorCount != 2 {
		t.Errorf("expected competitor count 2, got %d", gap.CompetitorCount)
	}
	if gap.PriorityScore != 600 {
		t.Errorf("expected priority 600, got %.0f", gap.PriorityScore)
	}
	if !reflect.DeepEqual(gap.Competitors, []string{"C1", "C2"}) {
		t.Errorf("expected competitors in sorted-id order, got %v", gap.Competitors)
	}
}

func TestFindGapsEmptySiteOwnsNothing(t *testing.T) {
	competitors := map[string][]models.KeywordRecord{
		"C1": {
			compRec("alpha", 10, "C1"),
			compRec("beta", 20, "C1"),
			compRec("gamma", 30, "C1"),
		},
	}

	gaps, err := FindGaps(nil, competitors, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gaps) != 3 {
		t.Errorf("expected every competitor keyword to be a gap, got %d", len(gaps))
	}
}

func TestFindGapsMinVolumeFiltersInputRows(t *testing.T) {
	competitors := map[string][]models.KeywordRecord{
		"C1": {
			compRec("low only", 40, "C1"),
			compRec("mixed volume", 40, "C1"),
		},
		"C2": {compRec("mixed volume", 100, "C2")},
	}

	gaps, err := FindGaps(nil, competitors, 50, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gaps) != 1 {
		t.Fatalf("expected only the qualifying keyword, got %+v", gaps)
	}
	gap := gaps[0]
	if gap.Keyword.Text != "mixed volume" {
		t.Errorf("expected %q, got %q", "mixed volume", gap.Keyword.Text)
	}
	// C1's sub-threshold row is dropped before aggregation, so only C2 counts.
	if gap.CompetitorCount != 1 || gap.SearchVolume != 100 {
		t.Errorf("expected volume 100 from a single competitor, got %+v", gap)
	}
	if !reflect.DeepEqual(gap.Competitors, []string{"C2"}) {
		t.Errorf("expected competitors [C2], got %v", gap.Competitors)
	}
}

func TestFindGapsTruncation(t *testing.T) {
	competitors := map[string][]models.KeywordRecord{
		"C1": {
			compRec("kw one", 100, "C1"),
			compRec("kw two", 200, "C1"),
			compRec("kw three", 300, "C1"),
			compRec("kw four", 400, "C1"),
			compRec("kw five", 500, "C1"),
		},
	}

	gaps, err := FindGaps(nil, competitors, 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gaps) != 1 {
		t.Fatalf("expected truncation to 1 result, got %d", len(gaps))
	}
	if gaps[0].Keyword.Text != "kw five" {
		t.Errorf("expected the highest-priority gap to survive truncation, got %q", gaps[0].Keyword.Text)
	}

	// No truncation when the true gap count fits.
	gaps, err = FindGaps(nil, competitors, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gaps) != 5 {
		t.Errorf("expected the full set when under max results, got %d", len(gaps))
	}
}

func TestFindGapsRankingOrder(t *testing.T) {
	competitors := map[string][]models.KeywordRecord{
		"C1": {
			compRec("shared keyword", 100, "C1"),
			compRec("big solo", 300, "C1"),
			compRec("apple pie", 50, "C1"),
			compRec("zebra stripes", 50, "C1"),
		},
		"C2": {compRec("shared keyword", 90, "C2")},
	}

	gaps, err := FindGaps(nil, competitors, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	for _, g := range gaps {
		got = append(got, g.Keyword.Text)
	}
	// Priorities: big solo 300, shared keyword 200 (100 x 2), then the two
	// 50-volume singles tie on priority and volume and fall back to text.
	want := []string{"big solo", "shared keyword", "apple pie", "zebra stripes"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected order %v, got %v", want, got)
	}
}

func TestFindGapsDeterministic(t *testing.T) {
	site := []models.KeywordRecord{compRec("owned", 10, "self")}
	competitors := map[string][]models.KeywordRecord{
		"C2": {compRec("beta", 20, "C2"), compRec("owned", 99, "C2")},
		"C1": {compRec("alpha", 20, "C1"), compRec("beta", 20, "C1")},
		"C3": {compRec("gamma", 5, "C3")},
	}

	first, err := FindGaps(site, competitors, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := FindGaps(site, competitors, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-running with identical inputs produced different output:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestFindGapsMetadataFirstNonNull(t *testing.T) {
	withMeta := compRec("target keyword", 100, "C2")
	withMeta.Difficulty = iptr(45)
	withMeta.Intent = models.IntentCommercial

	competitors := map[string][]models.KeywordRecord{
		"C1": {compRec("target keyword", 200, "C1")},
		"C2": {withMeta},
	}

	gaps, err := FindGaps(nil, competitors, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gap := gaps[0]
	if gap.Difficulty == nil || *gap.Difficulty != 45 {
		t.Errorf("expected first non-null difficulty 45, got %v", gap.Difficulty)
	}
	if gap.Intent != models.IntentCommercial {
		t.Errorf("expected first non-unknown intent, got %s", gap.Intent)
	}
	if gap.SearchVolume != 200 {
		t.Errorf("expected max volume 200, got %d", gap.SearchVolume)
	}
}
