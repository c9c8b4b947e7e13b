package provider

import (
	"context"

	"github.com/david/keyword-scout/internal/models"
)

// MetricsProvider supplies raw keyword metrics per domain or seed set. The
// research core is agnostic to pagination, rate limits, and retries; those
// stay behind this interface.
type MetricsProvider interface {
	// KeywordsForSite returns the keywords a domain currently ranks for.
	KeywordsForSite(ctx context.Context, domain, country, language string, limit int) ([]models.RawKeywordInput, error)

	// RelatedKeywords expands seed keywords into related candidates.
	RelatedKeywords(ctx context.Context, seeds []string, country, language string, limit int) ([]models.RawKeywordInput, error)
}
