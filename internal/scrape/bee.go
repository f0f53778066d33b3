package scrape

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/kostichs/company-enricher/pkg/scrapingbee"
)

// BeeAdapter wraps a ScrapingBee client as a Scraper with JS rendering
// enabled. It is the last resort in the chain: expensive, but gets past
// bot walls and JS-only shells.
type BeeAdapter struct {
	client scrapingbee.Client
}

// NewBeeAdapter creates a BeeAdapter from a ScrapingBee client.
func NewBeeAdapter(client scrapingbee.Client) *BeeAdapter {
	return &BeeAdapter{client: client}
}

// Name implements Scraper.
func (b *BeeAdapter) Name() string { return "scrapingbee" }

// Scrape fetches a single URL through the rendering proxy.
func (b *BeeAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := b.client.Fetch(ctx, targetURL, scrapingbee.WithRenderJS())
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("scrapingbee: upstream status %d", resp.StatusCode)
	}
	if len(resp.HTML) < 100 {
		return nil, eris.New("scrapingbee: empty page")
	}

	return &Result{
		Page: Page{
			URL:        targetURL,
			FinalURL:   resp.ResolvedURL,
			Title:      ExtractTitle([]byte(resp.HTML)),
			Text:       StripHTML(resp.HTML),
			HTML:       resp.HTML,
			StatusCode: resp.StatusCode,
		},
		Source: "scrapingbee",
	}, nil
}
