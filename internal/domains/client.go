package domains

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DomainStatus is the decoded registrar answer for one domain.
type DomainStatus struct {
	Available   bool    `json:"available"`
	Premium     bool    `json:"premium"`
	BasePrice   float64 `json:"price"`
	BaseRenewal float64 `json:"renewal_price"`
	Currency    string  `json:"currency"`
}

// RegistrarClient queries the domain registry API.
type RegistrarClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewRegistrarClient creates a registrar client.
func NewRegistrarClient(baseURL, apiKey string) *RegistrarClient {
	return &RegistrarClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Available reports whether the client is configured with a credential.
func (c *RegistrarClient) Available() bool {
	return c.apiKey != ""
}

// Check queries live availability for a domain.
func (c *RegistrarClient) Check(ctx context.Context, domain string) (*DomainStatus, error) {
	query := url.Values{}
	query.Set("domain", domain)

	reqURL := fmt.Sprintf("%s/v1/availability?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var status DomainStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode registry response: %w", err)
	}
	if status.Currency == "" {
		status.Currency = "USD"
	}
	return &status, nil
}
