package research

import (
	"sort"
	"strings"

	"github.com/david/keyword-scout/internal/models"
)

const (
	defaultLanguage = "en"
	defaultCountry  = "US"
)

// Normalize converts raw provider entries into canonical KeywordRecords for a
// single owner site. Malformed rows (blank text after cleaning) are dropped,
// never fatal: noisy provider data must not abort a research run. Duplicate
// (text, language, country) rows merge by max search volume and first
// non-null for every other field.
func Normalize(raw []models.RawKeywordInput, sourceSite string) ([]models.KeywordRecord, error) {
	if strings.TrimSpace(sourceSite) == "" {
		return nil, invalidArgf("source site must not be empty")
	}

	type bucket struct {
		rec models.KeywordRecord
	}
	byKey := make(map[models.KeywordKey]*bucket)

	for _, in := range raw {
		text := cleanKeywordText(in.Text)
		if text == "" {
			continue
		}

		lang := strings.ToLower(strings.TrimSpace(in.Language))
		if lang == "" {
			lang = defaultLanguage
		}
		country := strings.ToUpper(strings.TrimSpace(in.Country))
		if country == "" {
			country = defaultCountry
		}

		volume := in.SearchVolume
		if volume < 0 {
			volume = 0
		}

		key := models.KeywordKey{Text: text, Language: lang, Country: country}
		b, ok := byKey[key]
		if !ok {
			b = &bucket{rec: models.KeywordRecord{
				Text:       text,
				Language:   lang,
				Country:    country,
				Intent:     models.IntentUnknown,
				SourceSite: sourceSite,
			}}
			byKey[key] = b
		}

		if volume > b.rec.SearchVolume {
			b.rec.SearchVolume = volume
		}
		if b.rec.CPC == nil && in.CPC != nil && *in.CPC >= 0 {
			cpc := *in.CPC
			b.rec.CPC = &cpc
		}
		if b.rec.Competition == nil && in.Competition != nil && *in.Competition >= 0 && *in.Competition <= 1 {
			comp := *in.Competition
			b.rec.Competition = &comp
		}
		if b.rec.Difficulty == nil && in.Difficulty != nil && *in.Difficulty >= 0 && *in.Difficulty <= 100 {
			diff := *in.Difficulty
			b.rec.Difficulty = &diff
		}
		if b.rec.Intent == models.IntentUnknown {
			if intent := normalizeIntent(in.Intent); intent != models.IntentUnknown {
				b.rec.Intent = intent
			}
		}
	}

	records := make([]models.KeywordRecord, 0, len(byKey))
	for _, b := range byKey {
		records = append(records, b.rec)
	}
	// Canonical output order so two runs over the same bag compare equal.
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Text != b.Text {
			return a.Text < b.Text
		}
		if a.Language != b.Language {
			return a.Language < b.Language
		}
		return a.Country < b.Country
	})

	return records, nil
}

// cleanKeywordText lowercases and collapses internal whitespace to single
// spaces.
func cleanKeywordText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func normalizeIntent(in models.Intent) models.Intent {
	switch models.Intent(strings.ToLower(strings.TrimSpace(string(in)))) {
	case models.IntentInformational:
		return models.IntentInformational
	case models.IntentNavigational:
		return models.IntentNavigational
	case models.IntentCommercial:
		return models.IntentCommercial
	case models.IntentTransactional:
		return models.IntentTransactional
	default:
		return models.IntentUnknown
	}
}
