// Package places queries a geonames-style autocomplete service for the
// place field when remote lookup is enabled.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"newsdesk/api/internal/article"
)

// Client talks to the configured autocomplete endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// remotePlace is the wire shape of the upstream service.
type remotePlace struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Region      string `json:"region"`
	CountryCode string `json:"country_code"`
}

// Autocomplete returns place suggestions for a partial name, shaped as
// subject entries ready to store on the article.
func (c *Client) Autocomplete(ctx context.Context, name, lang string) ([]article.Subject, error) {
	query := url.Values{}
	query.Set("name", name)
	if lang != "" {
		query.Set("lang", lang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build places request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query places: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places service returned %d", resp.StatusCode)
	}

	var payload struct {
		Items []remotePlace `json:"_items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode places response: %w", err)
	}

	suggestions := make([]article.Subject, 0, len(payload.Items))
	for _, item := range payload.Items {
		suggestions = append(suggestions, article.Subject{
			QCode: item.Code,
			Name:  item.Name,
		})
	}
	return suggestions, nil
}
