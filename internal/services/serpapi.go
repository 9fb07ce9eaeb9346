package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

// SerpAPIClient queries serpapi.com with the google engine.
type SerpAPIClient struct {
	apiKey     string
	engine     string
	httpClient *http.Client
	baseURL    string
	tracker    IUsageTracker
}

type SerpAPIClientOption = func(client *SerpAPIClient) error

func NewSerpAPIClient(apiKey string, opts ...SerpAPIClientOption) (*SerpAPIClient, error) {
	c := &SerpAPIClient{
		apiKey:     apiKey,
		engine:     "google",
		httpClient: defaultHTTPClient(30 * time.Second),
		baseURL:    "https://serpapi.com/search.json",
		tracker:    noopTracker{},
	}
	if err := applyFuncOptions(c, opts...); err != nil {
		return nil, fmt.Errorf("failed to apply options: %w", err)
	}
	return c, nil
}

func WithSerpAPIBaseURL(url string) SerpAPIClientOption {
	return func(c *SerpAPIClient) error {
		c.baseURL = url
		return nil
	}
}

func WithSerpAPIUsageTracker(tracker IUsageTracker) SerpAPIClientOption {
	return func(c *SerpAPIClient) error {
		c.tracker = tracker
		return nil
	}
}

type serpAPIResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
	} `json:"organic_results"`
}

func (c *SerpAPIClient) Search(ctx context.Context, query string, num int) (*models.SearchResults, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("engine", c.engine)
	params.Set("q", query)
	if num > 0 {
		params.Set("num", strconv.Itoa(num))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	c.tracker.AddSearchQueries(ctx, 1)

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError("serpapi", resp)
	}

	var raw serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, newDecodeError("serpapi", err)
	}
	// serpapi reports "no results" through the error field with a 200.
	if raw.Error != "" && len(raw.OrganicResults) == 0 && !isNoResults(raw.Error) {
		return nil, &ServiceError{Service: "serpapi", Body: raw.Error}
	}

	result := &models.SearchResults{Query: query}
	for _, o := range raw.OrganicResults {
		result.Organic = append(result.Organic, models.OrganicResult{
			Title:    o.Title,
			Link:     o.Link,
			Snippet:  o.Snippet,
			Position: o.Position,
		})
	}
	return result, nil
}

func isNoResults(msg string) bool {
	return msg == "Google hasn't returned any results for this query."
}
