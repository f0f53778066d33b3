// Package scrapingbee provides a client for the ScrapingBee remote
// browser-rendering proxy. It is the escalation path for sites that reject
// direct HTTP clients or require JavaScript to render.
package scrapingbee

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://app.scrapingbee.com/api/v1"

// Client fetches pages through the rendering proxy.
type Client interface {
	// Fetch retrieves a URL through the proxy. With render JS enabled the
	// proxy runs a headless browser and returns the rendered document.
	Fetch(ctx context.Context, targetURL string, opts ...FetchOption) (*FetchResult, error)
}

// FetchResult is the proxied response for one URL.
type FetchResult struct {
	HTML        string
	StatusCode  int
	ResolvedURL string
}

// FetchOption configures a fetch request.
type FetchOption func(*fetchOpts)

type fetchOpts struct {
	renderJS bool
}

// WithRenderJS enables headless-browser rendering for the request.
func WithRenderJS() FetchOption {
	return func(o *fetchOpts) {
		o.renderJS = true
	}
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
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a ScrapingBee client. Rendering is slow; the default
// timeout is generous.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Fetch(ctx context.Context, targetURL string, opts ...FetchOption) (*FetchResult, error) {
	var fo fetchOpts
	for _, opt := range opts {
		opt(&fo)
	}

	params := url.Values{
		"api_key":   {c.apiKey},
		"url":       {targetURL},
		"render_js": {strconv.FormatBool(fo.renderJS)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrapingbee: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "scrapingbee: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, eris.Wrap(err, "scrapingbee: read response")
	}

	// 4xx/5xx from the API itself (bad key, no credits) rather than the
	// target site carries a JSON error payload.
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("scrapingbee: status %d: %s", resp.StatusCode, string(body))
	}

	result := &FetchResult{
		HTML:        string(body),
		StatusCode:  resp.StatusCode,
		ResolvedURL: resp.Header.Get("Spb-Resolved-Url"),
	}
	if result.ResolvedURL == "" {
		result.ResolvedURL = targetURL
	}

	// The proxy reports the upstream status separately when it differs.
	if s := resp.Header.Get("Spb-Initial-Status-Code"); s != "" {
		if code, convErr := strconv.Atoi(s); convErr == nil {
			result.StatusCode = code
		}
	}

	return result, nil
}
