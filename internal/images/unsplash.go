// Package images maps free-text keywords to illustrative image URLs,
// backed by the Unsplash search API with an in-memory cache and a
// deterministic offline fallback.
package images

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client handles Unsplash search API interactions.
type Client struct {
	accessKey  string
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new Unsplash API client.
func NewClient(accessKey string) *Client {
	return &Client{
		accessKey:  accessKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    "https://api.unsplash.com",
	}
}

// NewClientWithBaseURL creates a client against a custom endpoint.
// Used by tests to point at a stub server.
func NewClientWithBaseURL(accessKey, baseURL string) *Client {
	c := NewClient(accessKey)
	c.baseURL = baseURL
	return c
}

// searchResponse models the slice of the Unsplash search payload we use.
type searchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
			Small   string `json:"small"`
			Thumb   string `json:"thumb"`
		} `json:"urls"`
	} `json:"results"`
}

// Search returns the sized URL of the top photo matching the query.
func (c *Client) Search(ctx context.Context, query string, size Size) (string, error) {
	endpoint := fmt.Sprintf("%s/search/photos?query=%s&per_page=1",
		c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unsplash API error (status %d): %s", resp.StatusCode, string(body))
	}

	var search searchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(search.Results) == 0 {
		return "", fmt.Errorf("no photos found for query %q", query)
	}

	urls := search.Results[0].URLs
	switch size {
	case SizeSmall:
		return urls.Small, nil
	case SizeThumb:
		return urls.Thumb, nil
	default:
		return urls.Regular, nil
	}
}
