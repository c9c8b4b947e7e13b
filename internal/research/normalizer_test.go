package research

import (
	"errors"
	"reflect"
	"testing"

	"github.com/david/keyword-scout/internal/models"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestNormalizeRejectsEmptySourceSite(t *testing.T) {
	for _, site := range []string{"", "   "} {
		_, err := Normalize([]models.RawKeywordInput{{Text: "seo tools"}}, site)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("source site %q: expected ErrInvalidArgument, got %v", site, err)
		}
	}
}

func TestNormalizeDropsBlankRows(t *testing.T) {
	records, err := Normalize([]models.RawKeywordInput{
		{Text: ""},
		{Text: "   "},
		{Text: "\t\n"},
		{Text: "rank tracker", SearchVolume: 10},
	}, "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Text != "rank tracker" {
		t.Errorf("expected only the valid row to survive, got %+v", records)
	}
}

func TestNormalizeCleansAndDefaults(t *testing.T) {
	records, err := Normalize([]models.RawKeywordInput{
		{Text: "  SEO   Tools ", Language: " EN ", Country: " us ", SearchVolume: -5},
	}, "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Text != "seo tools" {
		t.Errorf("expected cleaned text %q, got %q", "seo tools", rec.Text)
	}
	if rec.Language != "en" || rec.Country != "US" {
		t.Errorf("expected en/US, got %s/%s", rec.Language, rec.Country)
	}
	if rec.SearchVolume != 0 {
		t.Errorf("expected negative volume clamped to 0, got %d", rec.SearchVolume)
	}
	if rec.Intent != models.IntentUnknown {
		t.Errorf("expected unknown intent, got %s", rec.Intent)
	}
	if rec.SourceSite != "example.com" {
		t.Errorf("expected source site preserved, got %q", rec.SourceSite)
	}
}

func TestNormalizeMergesDuplicates(t *testing.T) {
	records, err := Normalize([]models.RawKeywordInput{
		{Text: "seo tools", SearchVolume: 100, Competition: fptr(0.4)},
		{Text: "SEO tools", SearchVolume: 300, CPC: fptr(1.25), Intent: models.IntentCommercial},
		{Text: "seo  tools", SearchVolume: 200, Difficulty: iptr(35), Intent: models.IntentInformational},
	}, "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected duplicates merged into 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.SearchVolume != 300 {
		t.Errorf("expected max volume 300, got %d", rec.SearchVolume)
	}
	if rec.CPC == nil || *rec.CPC != 1.25 {
		t.Errorf("expected first non-null CPC 1.25, got %v", rec.CPC)
	}
	if rec.Competition == nil || *rec.Competition != 0.4 {
		t.Errorf("expected first non-null competition 0.4, got %v", rec.Competition)
	}
	if rec.Difficulty == nil || *rec.Difficulty != 35 {
		t.Errorf("expected first non-null difficulty 35, got %v", rec.Difficulty)
	}
	if rec.Intent != models.IntentCommercial {
		t.Errorf("expected first non-unknown intent commercial, got %s", rec.Intent)
	}
}

func TestNormalizeDistinctMarketsStaySeparate(t *testing.T) {
	records, err := Normalize([]models.RawKeywordInput{
		{Text: "seo tools", Country: "US", SearchVolume: 100},
		{Text: "seo tools", Country: "GB", SearchVolume: 80},
		{Text: "seo tools", Language: "es", SearchVolume: 40},
	}, "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 distinct (text, language, country) records, got %d", len(records))
	}
}

func TestNormalizeIgnoresOutOfRangeMetrics(t *testing.T) {
	records, err := Normalize([]models.RawKeywordInput{
		{Text: "seo tools", CPC: fptr(-1), Competition: fptr(1.5), Difficulty: iptr(150)},
		{Text: "seo tools", CPC: fptr(2.5), Competition: fptr(0.7), Difficulty: iptr(60)},
	}, "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := records[0]
	if rec.CPC == nil || *rec.CPC != 2.5 {
		t.Errorf("expected out-of-range CPC skipped, got %v", rec.CPC)
	}
	if rec.Competition == nil || *rec.Competition != 0.7 {
		t.Errorf("expected out-of-range competition skipped, got %v", rec.Competition)
	}
	if rec.Difficulty == nil || *rec.Difficulty != 60 {
		t.Errorf("expected out-of-range difficulty skipped, got %v", rec.Difficulty)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	raw := []models.RawKeywordInput{
		{Text: "Rank Tracker", SearchVolume: 500, Intent: models.IntentCommercial},
		{Text: "rank tracker", SearchVolume: 200, Difficulty: iptr(40)},
		{Text: "seo audit", SearchVolume: 90},
	}

	first, err := Normalize(raw, "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Feed the canonical records back through as raw inputs.
	roundTrip := make([]models.RawKeywordInput, 0, len(first))
	for _, r := range first {
		roundTrip = append(roundTrip, models.RawKeywordInput{
			Text: r.Text, Language: r.Language, Country: r.Country,
			SearchVolume: r.SearchVolume, CPC: r.CPC, Competition: r.Competition,
			Difficulty: r.Difficulty, Intent: r.Intent,
		})
	}
	second, err := Normalize(roundTrip, "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalize is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestNormalizePermutationInvariant(t *testing.T) {
	base := []models.RawKeywordInput{
		{Text: "seo tools", SearchVolume: 100, Difficulty: iptr(30)},
		{Text: "seo tools", SearchVolume: 300},
		{Text: "rank tracker", SearchVolume: 500, Intent: models.IntentCommercial},
		{Text: "seo audit", SearchVolume: 90},
	}
	permutations := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{1, 3, 0, 2},
		{2, 0, 3, 1},
	}

	var want []models.KeywordRecord
	for i, perm := range permutations {
		shuffled := make([]models.RawKeywordInput, len(base))
		for j, idx := range perm {
			shuffled[j] = base[idx]
		}
		got, err := Normalize(shuffled, "example.com")
		if err != nil {
			t.Fatalf("permutation %d: unexpected error: %v", i, err)
		}
		if want == nil {
			want = got
			continue
		}
		if !reflect.DeepEqual(want, got) {
			t.Errorf("permutation %d produced different records:\nwant: %+v\ngot:  %+v", i, want, got)
		}
	}
}
