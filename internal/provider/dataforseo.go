package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/david/keyword-scout/internal/models"
)

// DataForSEOClient talks to the DataForSEO Labs API. Credentials come from
// the environment unless set explicitly; all endpoints use the "live" task
// mode so a single POST returns results synchronously.
type DataForSEOClient struct {
	BaseURL  string
	Login    string
	Password string

	httpClient *http.Client
}

func NewDataForSEOClient() *DataForSEOClient {
	return &DataForSEOClient{
		BaseURL:    "https://api.dataforseo.com/v3",
		Login:      os.Getenv("DATAFORSEO_LOGIN"),
		Password:   os.Getenv("DATAFORSEO_PASSWORD"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Response envelope shared by the Labs endpoints: tasks -> result -> items.

type labsResponse struct {
	Tasks []struct {
		Result []struct {
			Items []labsItem `json:"items"`
		} `json:"result"`
	} `json:"tasks"`
}

type labsItem struct {
	Keyword           string       `json:"keyword"`
	KeywordData       *labsItem    `json:"keyword_data,omitempty"` // related_keywords nests here
	KeywordInfo       *keywordInfo `json:"keyword_info,omitempty"`
	KeywordProperties *struct {
		KeywordDifficulty *int `json:"keyword_difficulty"`
	} `json:"keyword_properties,omitempty"`
}

type keywordInfo struct {
	SearchVolume     *int     `json:"search_volume"`
	CPC              *float64 `json:"cpc"`
	Competition      *float64 `json:"competition"`
	SearchIntentInfo *struct {
		Informational bool `json:"informational"`
		Navigational  bool `json:"navigational"`
		Commercial    bool `json:"commercial"`
		Transactional bool `json:"transactional"`
	} `json:"search_intent_info,omitempty"`
}

func (c *DataForSEOClient) KeywordsForSite(ctx context.Context, domain, country, language string, limit int) ([]models.RawKeywordInput, error) {
	payload := []map[string]interface{}{{
		"target":             domain,
		"location_code":      locationCode(country),
		"language_code":      language,
		"include_subdomains": true,
		"limit":              limit,
	}}

	body, err := c.request(ctx, "/dataforseo_labs/google/keywords_for_site/live", payload)
	if err != nil {
		return nil, err
	}
	return parseLabsKeywords(body, language, country)
}

func (c *DataForSEOClient) RelatedKeywords(ctx context.Context, seeds []string, country, language string, limit int) ([]models.RawKeywordInput, error) {
	payload := []map[string]interface{}{{
		"keywords":             seeds,
		"location_code":        locationCode(country),
		"language_code":        language,
		"limit":                limit,
		"include_seed_keyword": true,
	}}

	body, err := c.request(ctx, "/dataforseo_labs/google/related_keywords/live", payload)
	if err != nil {
		return nil, err
	}
	return parseLabsKeywords(body, language, country)
}

func (c *DataForSEOClient) request(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(c.Login + ":" + c.Password))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataforseo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dataforseo returned status: %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return buf.Bytes(), nil
}

// parseLabsKeywords flattens the tasks/result/items envelope into raw keyword
// inputs. Rows without a keyword text are kept as empty entries and left for
// the normalizer to drop; the parser never fails on a single bad item.
func parseLabsKeywords(body []byte, language, country string) ([]models.RawKeywordInput, error) {
	var parsed labsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode dataforseo response: %w", err)
	}

	var out []models.RawKeywordInput
	for _, task := range parsed.Tasks {
		for _, result := range task.Result {
			for _, item := range result.Items {
				data := item
				if item.KeywordData != nil {
					data = *item.KeywordData
				}
				out = append(out, rawFromItem(data, language, country))
			}
		}
	}
	return out, nil
}

func rawFromItem(item labsItem, language, country string) models.RawKeywordInput {
	raw := models.RawKeywordInput{
		Text:     item.Keyword,
		Language: language,
		Country:  country,
		Intent:   models.IntentUnknown,
	}

	if info := item.KeywordInfo; info != nil {
		if info.SearchVolume != nil {
			raw.SearchVolume = *info.SearchVolume
		}
		raw.CPC = info.CPC
		raw.Competition = info.Competition
		if si := info.SearchIntentInfo; si != nil {
			switch {
			case si.Informational:
				raw.Intent = models.IntentInformational
			case si.Navigational:
				raw.Intent = models.IntentNavigational
			case si.Commercial:
				raw.Intent = models.IntentCommercial
			case si.Transactional:
				raw.Intent = models.IntentTransactional
			}
		}
	}
	if props := item.KeywordProperties; props != nil {
		raw.Difficulty = props.KeywordDifficulty
	}

	return raw
}

var locationCodes = map[string]int{
	"US": 2840,
	"GB": 2826,
	"CA": 2124,
	"AU": 2036,
	"DE": 2276,
	"FR": 2250,
	"ES": 2724,
	"IT": 2380,
	"BR": 2076,
	"MX": 2484,
}

func locationCode(country string) int {
	if code, ok := locationCodes[strings.ToUpper(country)]; ok {
		return code
	}
	return locationCodes["US"]
}
