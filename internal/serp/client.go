// Package serp provides a typed client for the SERP data provider.
package serp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// CallTimeout bounds a single provider call, independent of any
	// request-level deadline.
	CallTimeout = 20 * time.Second

	// retryBackoff is the pause before the single retry allowed on a
	// timeout or a 429.
	retryBackoff = 1500 * time.Millisecond

	trendLookbackDays = 30
	rankingLimit      = 20
)

// ErrRateLimited signals an upstream 429.
var ErrRateLimited = errors.New("provider rate limited")

// Client talks to the SERP data provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	backoff    time.Duration
}

// NewClient creates a SERP provider client. maxRPS throttles outbound calls
// across all concurrent pipeline invocations sharing this client.
func NewClient(baseURL, apiKey string, maxRPS float64) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: CallTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(maxRPS), int(maxRPS)+1),
		backoff:    retryBackoff,
	}
}

// Available reports whether the client is configured with a credential.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

// OrganicItem is one entry in the provider's organic result list.
type OrganicItem struct {
	Position              int     `json:"position"`
	URL                   string  `json:"url"`
	Title                 string  `json:"title"`
	EstimatedTrafficValue float64 `json:"etv"`
	Type                  string  `json:"type"`
}

// OrganicResult is the decoded payload of the organic ranking endpoint.
type OrganicResult struct {
	Items             []OrganicItem `json:"items"`
	KeywordDifficulty int           `json:"keyword_difficulty"`
	ItemTypes         []string      `json:"item_types"`
}

// RankObservation is one (date, domain, position) sighting in the rank
// history endpoint's lookback window. Observations arrive oldest first.
type RankObservation struct {
	Date     string `json:"date"`
	Domain   string `json:"domain"`
	Position int    `json:"position"`
}

type rankHistoryResult struct {
	Observations []RankObservation `json:"observations"`
}

// FeatureItem is one SERP element with its type tag.
type FeatureItem struct {
	Type     string `json:"type"`
	Position int    `json:"position"`
}

// FeatureScan is the decoded payload of the feature scan endpoint.
type FeatureScan struct {
	Items     []FeatureItem `json:"items"`
	ItemTypes []string      `json:"item_types"`
}

// FetchOrganic retrieves the top organic results for a keyword.
func (c *Client) FetchOrganic(ctx context.Context, keyword string) (*OrganicResult, error) {
	query := url.Values{}
	query.Set("keyword", keyword)
	query.Set("limit", fmt.Sprintf("%d", rankingLimit))

	var result OrganicResult
	if err := c.getJSON(ctx, "/v1/serp/organic", query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchRankHistory retrieves rank observations for a keyword over the
// 30-day lookback window.
func (c *Client) FetchRankHistory(ctx context.Context, keyword string) ([]RankObservation, error) {
	query := url.Values{}
	query.Set("keyword", keyword)
	query.Set("days", fmt.Sprintf("%d", trendLookbackDays))

	var result rankHistoryResult
	if err := c.getJSON(ctx, "/v1/serp/history", query, &result); err != nil {
		return nil, err
	}
	return result.Observations, nil
}

// FetchFeatures retrieves the SERP feature scan for a keyword.
func (c *Client) FetchFeatures(ctx context.Context, keyword string) (*FeatureScan, error) {
	query := url.Values{}
	query.Set("keyword", keyword)

	var result FeatureScan
	if err := c.getJSON(ctx, "/v1/serp/features", query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// getJSON performs one provider call with the per-call timeout, retrying
// once after a short backoff when the failure was a timeout or a 429.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			log.Debug().Str("path", path).Msg("Retrying provider call")
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.doOnce(ctx, path, query, out)
		if err == nil {
			return nil
		}
		lastErr = err

		// Never retry once the caller's own deadline is gone.
		if ctx.Err() != nil {
			return err
		}
		if !retryable(err) {
			return err
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, path string, query url.Values, out any) error {
	callCtx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	if err := c.limiter.Wait(callCtx); err != nil {
		return err
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w", path, ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return false
}
