package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
)

// FetchedPage is the raw result of fetching one URL.
type FetchedPage struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	FetchedAt   time.Time
}

// PageFetcher retrieves a single page of a site for seed extraction. Colly
// handles rate limiting and robots.txt so we stay polite even when a profile
// points at several pages of the same domain.
type PageFetcher struct {
	UserAgent      string
	RequestTimeout time.Duration
	DomainDelay    time.Duration
	MaxBodySize    int
}

func NewPageFetcher() *PageFetcher {
	return &PageFetcher{
		UserAgent:      "keyword-scout/1.0 (+https://github.com/david/keyword-scout)",
		RequestTimeout: 30 * time.Second,
		DomainDelay:    1 * time.Second,
		MaxBodySize:    5 * 1024 * 1024,
	}
}

func (f *PageFetcher) Fetch(ctx context.Context, targetURL string) (*FetchedPage, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	c := colly.NewCollector(
		colly.UserAgent(f.UserAgent),
		colly.MaxBodySize(f.MaxBodySize),
		colly.AllowedDomains(parsed.Hostname()),
		colly.DetectCharset(),
	)
	c.Limit(&colly.LimitRule{
		DomainGlob: "*",
		Delay:      f.DomainDelay,
	})
	c.SetRequestTimeout(f.RequestTimeout)

	// First outcome wins: response, fetch error, or context cancellation.
	// The buffered channel with a non-blocking send means a late loser can
	// neither block nor overwrite the result.
	type outcome struct {
		page *FetchedPage
		err  error
	}
	results := make(chan outcome, 1)
	complete := func(o outcome) {
		select {
		case results <- o:
		default:
		}
	}

	c.OnResponse(func(r *colly.Response) {
		body := make([]byte, len(r.Body))
		copy(body, r.Body)
		complete(outcome{page: &FetchedPage{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        body,
			FetchedAt:   time.Now(),
		}})
	})
	c.OnError(func(r *colly.Response, err error) {
		complete(outcome{err: fmt.Errorf("fetch failed: %w", err)})
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			complete(outcome{err: ctx.Err()})
		case <-done:
		}
	}()

	if err := c.Visit(targetURL); err != nil {
		return nil, fmt.Errorf("visit failed: %w", err)
	}

	// Visit is synchronous, so by now a callback (or the ctx watcher) has
	// delivered an outcome.
	select {
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		return res.page, nil
	default:
		return nil, fmt.Errorf("no response received for %s", targetURL)
	}
}
