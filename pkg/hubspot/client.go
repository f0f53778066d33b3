// Package hubspot provides a client for the HubSpot CRM companies API,
// used as the freshness cache for generated descriptions.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.hubapi.com"

// ErrNotFound is returned when no company record matches the domain.
var ErrNotFound = eris.New("hubspot: company not found")

// Client performs CRM company operations.
type Client interface {
	// FindByDomain looks up a company record by its bare domain.
	FindByDomain(ctx context.Context, domain string) (*Company, error)
	// UpdateCompany patches properties on an existing company record.
	UpdateCompany(ctx context.Context, id string, properties map[string]string) error
}

// Company is a CRM company record.
type Company struct {
	ID          string
	Domain      string
	Description string
	UpdatedAt   time.Time
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit throttles requests to rps per second. HubSpot enforces
// burst limits per private app token.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a HubSpot client authenticated with a private app token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchResponse struct {
	Results []struct {
		ID         string `json:"id"`
		UpdatedAt  string `json:"updatedAt"`
		Properties struct {
			Domain      string `json:"domain"`
			Description string `json:"description"`
		} `json:"properties"`
	} `json:"results"`
}

func (c *httpClient) FindByDomain(ctx context.Context, domain string) (*Company, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "hubspot: rate limit")
	}

	reqBody := searchRequest{
		FilterGroups: []filterGroup{{
			Filters: []filter{{PropertyName: "domain", Operator: "EQ", Value: domain}},
		}},
		Properties: []string{"domain", "description"},
		Limit:      1,
	}

	var result searchResponse
	if err := c.post(ctx, "/crm/v3/objects/companies/search", reqBody, &result); err != nil {
		return nil, eris.Wrap(err, "hubspot: search companies")
	}

	if len(result.Results) == 0 {
		return nil, ErrNotFound
	}

	r := result.Results[0]
	company := &Company{
		ID:          r.ID,
		Domain:      r.Properties.Domain,
		Description: r.Properties.Description,
	}
	if ts, err := time.Parse(time.RFC3339, r.UpdatedAt); err == nil {
		company.UpdatedAt = ts
	}
	return company, nil
}

func (c *httpClient) UpdateCompany(ctx context.Context, id string, properties map[string]string) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "hubspot: rate limit")
	}

	payload, err := json.Marshal(map[string]any{"properties": properties})
	if err != nil {
		return eris.Wrap(err, "hubspot: marshal properties")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		c.baseURL+"/crm/v3/objects/companies/"+id, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "hubspot: create request")
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "hubspot: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return eris.Errorf("hubspot: update company %s: status %d: %s", id, resp.StatusCode, string(body))
	}
	return nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}

func (c *httpClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
}
