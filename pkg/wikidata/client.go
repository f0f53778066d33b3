// Package wikidata provides a client for knowledge-graph entity lookups
// against the Wikidata action API.
package wikidata

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://www.wikidata.org/w/api.php"

// officialWebsiteProperty is the Wikidata property for an entity's
// declared official website.
const officialWebsiteProperty = "P856"

// ErrNotFound is returned when no entity matches the label or the matched
// entity declares no official website.
var ErrNotFound = eris.New("wikidata: not found")

// Client performs Wikidata entity lookups.
type Client interface {
	// LookupOfficialSite finds an entity whose label exactly matches the
	// given name and returns its declared official-website URL. Returns
	// ErrNotFound when no exact-label entity exists or the entity has no
	// official-website claim.
	LookupOfficialSite(ctx context.Context, label string) (string, error)
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

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Wikidata client. The action API requires no key.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchEntitiesResponse struct {
	Search []struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	} `json:"search"`
}

type claimsResponse struct {
	Claims map[string][]struct {
		Mainsnak struct {
			Datavalue struct {
				Value json.RawMessage `json:"value"`
			} `json:"datavalue"`
		} `json:"mainsnak"`
	} `json:"claims"`
}

func (c *httpClient) LookupOfficialSite(ctx context.Context, label string) (string, error) {
	entityID, err := c.searchEntity(ctx, label)
	if err != nil {
		return "", err
	}

	var claims claimsResponse
	params := url.Values{
		"action":   {"wbgetclaims"},
		"entity":   {entityID},
		"property": {officialWebsiteProperty},
		"format":   {"json"},
	}
	if err := c.get(ctx, params, &claims); err != nil {
		return "", eris.Wrap(err, "wikidata: get claims")
	}

	for _, claim := range claims.Claims[officialWebsiteProperty] {
		var site string
		if err := json.Unmarshal(claim.Mainsnak.Datavalue.Value, &site); err != nil {
			continue
		}
		if site != "" {
			return site, nil
		}
	}
	return "", ErrNotFound
}

// searchEntity returns the ID of the first entity whose label matches the
// query exactly (case-insensitive).
func (c *httpClient) searchEntity(ctx context.Context, label string) (string, error) {
	var result searchEntitiesResponse
	params := url.Values{
		"action":   {"wbsearchentities"},
		"search":   {label},
		"language": {"en"},
		"type":     {"item"},
		"format":   {"json"},
	}
	if err := c.get(ctx, params, &result); err != nil {
		return "", eris.Wrap(err, "wikidata: search entities")
	}

	for _, hit := range result.Search {
		if strings.EqualFold(hit.Label, strings.TrimSpace(label)) {
			return hit.ID, nil
		}
	}
	return "", ErrNotFound
}

func (c *httpClient) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
