package models

// Intent is the presumed purpose behind a search query.
type Intent string

const (
	IntentInformational Intent = "informational"
	IntentNavigational  Intent = "navigational"
	IntentCommercial    Intent = "commercial"
	IntentTransactional Intent = "transactional"
	IntentUnknown       Intent = "unknown"
)

// ContentType is the recommended content format for a keyword cluster.
type ContentType string

const (
	ContentBlog       ContentType = "blog"
	ContentLanding    ContentType = "landing"
	ContentProduct    ContentType = "product"
	ContentComparison ContentType = "comparison"
	ContentFAQ        ContentType = "faq"
)

// RawKeywordInput is the untrusted, unnormalized shape as received from the
// metrics provider. Everything except Text is optional; inconsistently typed
// provider payloads are coerced into this at the integration boundary.
type RawKeywordInput struct {
	Text         string   `json:"text"`
	Language     string   `json:"language,omitempty"`
	Country      string   `json:"country,omitempty"`
	SearchVolume int      `json:"search_volume,omitempty"`
	CPC          *float64 `json:"cpc,omitempty"`
	Competition  *float64 `json:"competition,omitempty"`
	Difficulty   *int     `json:"difficulty,omitempty"`
	Intent       Intent   `json:"intent,omitempty"`
}

// KeywordRecord is the canonical, deduplicated representation of one keyword
// for one site in one market. (Text, Language, Country, SourceSite) is unique
// within a normalization run.
type KeywordRecord struct {
	Text         string   `json:"text"`
	Language     string   `json:"language"`
	Country      string   `json:"country"`
	SearchVolume int      `json:"search_volume"`
	CPC          *float64 `json:"cpc"`
	Competition  *float64 `json:"competition"`
	Difficulty   *int     `json:"difficulty"`
	Intent       Intent   `json:"intent"`
	SourceSite   string   `json:"source_site"`
}

// Key identifies the keyword independent of its owner.
func (r KeywordRecord) Key() KeywordKey {
	return KeywordKey{Text: r.Text, Language: r.Language, Country: r.Country}
}

// KeywordKey is the (text, language, country) identity tuple.
type KeywordKey struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Country  string `json:"country"`
}

// KeywordCluster groups the site's keywords sharing a topic. Immutable after
// construction; a re-run reclusters from scratch.
type KeywordCluster struct {
	Label                  string          `json:"label"`
	Intent                 Intent          `json:"intent"`
	Members                []KeywordRecord `json:"members"` // descending search volume
	TotalVolume            int             `json:"total_volume"`
	AvgDifficulty          *float64        `json:"avg_difficulty"`
	RecommendedContentType ContentType     `json:"recommended_content_type"`
	OpportunityScore       float64         `json:"opportunity_score"`
}

// KeywordGap is a keyword at least one competitor holds that the site does not.
type KeywordGap struct {
	Keyword         KeywordKey `json:"keyword"`
	SearchVolume    int        `json:"search_volume"` // max across competitors
	Difficulty      *int       `json:"difficulty"`    // first non-null, informational only
	Intent          Intent     `json:"intent"`        // first non-unknown, informational only
	CompetitorCount int        `json:"competitor_count"`
	Competitors     []string   `json:"competitors"` // first-seen order
	PriorityScore   float64    `json:"priority_score"`
}

// KeywordResearchResult bundles the two analyses over one set of inputs.
type KeywordResearchResult struct {
	Clusters []KeywordCluster `json:"clusters"`
	Gaps     []KeywordGap     `json:"gaps"`
}
