package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vulnradar/vulnradar/internal/config"
	"github.com/vulnradar/vulnradar/internal/errors"
	"github.com/vulnradar/vulnradar/internal/types"
)

// Client talks to the NVD CVE API 2.0.
type Client struct {
	baseURL   string
	apiKey    string
	pageSize  int
	userAgent string
	client    *http.Client
}

// NewClient creates a feed client from configuration.
func NewClient(cfg config.FeedConfig) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		pageSize:  cfg.PageSize,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// FetchByKeyword queries the feed for CVEs matching a keyword and returns
// the converted candidates. Rejected CVEs are dropped here so callers never
// see them.
func (c *Client) FetchByKeyword(ctx context.Context, keyword string) ([]types.Vulnerability, error) {
	query := url.Values{}
	query.Set("keywordSearch", keyword)
	query.Set("resultsPerPage", strconv.Itoa(c.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.NewPermanentf("building feed request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.NewTransientf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		// NVD signals throttling with 403 as well as 429.
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("feed throttled with status %d: %w", resp.StatusCode, errors.ErrRateLimit)
	case resp.StatusCode >= 500:
		return nil, errors.NewTransientf("feed returned %d", resp.StatusCode)
	default:
		return nil, errors.NewPermanentf("feed returned %d", resp.StatusCode)
	}

	var envelope nvdResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, errors.NewTransientf("decoding feed response: %w", err)
	}

	candidates := make([]types.Vulnerability, 0, len(envelope.Vulnerabilities))
	for _, item := range envelope.Vulnerabilities {
		if isRejected(item.CVE) {
			continue
		}
		candidates = append(candidates, convert(item.CVE))
	}
	return candidates, nil
}
