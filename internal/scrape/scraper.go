// Package scrape provides chained page fetching: a free local HTTP scraper
// falling through to the remote browser-rendering proxy when blocked.
package scrape

import "context"

// Page holds the fetched content of one URL.
type Page struct {
	URL        string
	FinalURL   string
	Title      string
	Text       string
	HTML       string
	StatusCode int
}

// Result holds a scraped page with its source.
type Result struct {
	Page   Page
	Source string // e.g. "local_http", "scrapingbee"
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
}
