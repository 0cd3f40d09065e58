package ratings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/reelscout/backend/internal/domain"
)

const sourceName = "ratings"

// Client searches the ratings provider's movie index.
type Client struct {
	fetcher domain.Fetcher
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

var _ domain.RatingsSource = (*Client)(nil)

// NewClient creates a ratings client.
func NewClient(fetcher domain.Fetcher, apiKey, baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		fetcher: fetcher,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With("component", "ratings"),
	}
}

type searchResponse struct {
	Movies []movieResult `json:"movies"`
}

type movieResult struct {
	Title   string `json:"title"`
	Ratings struct {
		CriticsScore  int `json:"critics_score"`
		AudienceScore int `json:"audience_score"`
	} `json:"ratings"`
	CriticsConsensus string `json:"critics_consensus"`
}

// SearchRatings returns the provider's candidates for title in result order.
func (c *Client) SearchRatings(ctx context.Context, title string) ([]domain.RatingCandidate, error) {
	params := url.Values{}
	params.Add("q", title)
	params.Add("apikey", c.apiKey)
	reqURL := fmt.Sprintf("%s/movies.json?%s", c.baseURL, params.Encode())

	resp, err := c.fetcher.Fetch(ctx, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", title, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("search %q: %w", title, &domain.StatusError{Source: sourceName, StatusCode: resp.StatusCode})
	}

	var parsed searchResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(resp.Body))), &parsed); err != nil {
		return nil, fmt.Errorf("search %q: %w: %v", title, domain.ErrDecode, err)
	}

	candidates := make([]domain.RatingCandidate, 0, len(parsed.Movies))
	for _, m := range parsed.Movies {
		candidates = append(candidates, domain.RatingCandidate{
			Title:            m.Title,
			CriticsScore:     m.Ratings.CriticsScore,
			AudienceScore:    m.Ratings.AudienceScore,
			CriticsConsensus: m.CriticsConsensus,
		})
	}
	c.logger.Debug("ratings search", "query", title, "candidates", len(candidates))
	return candidates, nil
}
