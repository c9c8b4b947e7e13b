package provider

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// Upper bound on candidate seeds per page; anything past this is noise.
const maxSeedsPerPage = 25

var stripTags = bluemonday.StrictPolicy()

// ExtractSeedKeywords pulls candidate seed keywords from one page of the
// subject site: the title, the keywords meta tag, and the h1/h2 headings.
// This is parsing only: fetching the page is the PageFetcher's job, and
// expanding seeds into metric-bearing keywords is the provider's.
func ExtractSeedKeywords(html []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	var candidates []string

	if title := cleanSeed(doc.Find("title").First().Text()); title != "" {
		candidates = append(candidates, title)
	}

	if content, ok := doc.Find(`meta[name="keywords"]`).First().Attr("content"); ok {
		for _, part := range strings.Split(content, ",") {
			if seed := cleanSeed(part); seed != "" {
				candidates = append(candidates, seed)
			}
		}
	}

	doc.Find("h1, h2").Each(func(_ int, sel *goquery.Selection) {
		inner, err := sel.Html()
		if err != nil {
			return
		}
		// Headings sometimes carry inline markup; strip it before tokenizing.
		if seed := cleanSeed(stripTags.Sanitize(inner)); seed != "" {
			candidates = append(candidates, seed)
		}
	})

	seen := make(map[string]struct{}, len(candidates))
	seeds := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		seeds = append(seeds, c)
		if len(seeds) == maxSeedsPerPage {
			break
		}
	}
	return seeds, nil
}

// cleanSeed lowercases, collapses whitespace, and rejects fragments that are
// too short or too long to be useful seeds.
func cleanSeed(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	words := strings.Count(s, " ") + 1
	if len(s) < 3 || words > 10 {
		return ""
	}
	return s
}
