package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cryptex-ai/cryptex/internal/logger"
	"github.com/cryptex-ai/cryptex/internal/models"
)

// NewsFeed polls NewsAPI for fresh crypto headlines and records them as
// catalyst events. Headlines that mention no recognized asset are skipped.
type NewsFeed struct {
	baseURL    string
	apiKey     string
	query      string
	pageSize   int
	httpClient *http.Client
	sink       EventSink
}

// NewNewsFeed creates the news catalyst feed.
func NewNewsFeed(baseURL, apiKey, query string, pageSize int, timeout time.Duration, sink EventSink) *NewsFeed {
	if query == "" {
		query = "crypto"
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return &NewsFeed{
		baseURL:    baseURL,
		apiKey:     apiKey,
		query:      query,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
		sink:       sink,
	}
}

// Name implements Feed.
func (f *NewsFeed) Name() string { return "newsapi" }

type newsArticle struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	PublishedAt string `json:"publishedAt"`
	Description string `json:"description"`
}

type newsResponse struct {
	Status   string        `json:"status"`
	Articles []newsArticle `json:"articles"`
}

// Poll fetches the latest headlines, tags them with asset symbols, and
// stores the tagged ones as catalysts.
func (f *NewsFeed) Poll(ctx context.Context) ([]string, error) {
	q := url.Values{}
	q.Set("q", f.query)
	q.Set("language", "en")
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", strconv.Itoa(f.pageSize))
	q.Set("apiKey", f.apiKey)
	endpoint := f.baseURL + "/v2/everything?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news API returned status %d", resp.StatusCode)
	}

	var parsed newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode news response: %w", err)
	}

	var assets []string
	for _, article := range parsed.Articles {
		tags := TagAssets(article.Title)
		if len(tags) == 0 {
			continue
		}
		raw, err := json.Marshal(article)
		if err != nil {
			logger.Debug("Skipping unmarshalable article %q: %v", article.Title, err)
			continue
		}
		catalyst := models.CatalystEvent{
			Headline:   article.Title,
			Source:     article.Source.Name,
			AssetTags:  tags,
			RawPayload: raw,
		}
		if err := f.sink.InsertCatalyst(ctx, &catalyst); err != nil {
			logger.Warn("Failed to store catalyst %q: %v", article.Title, err)
			continue
		}
		assets = append(assets, tags...)
	}
	return assets, nil
}
