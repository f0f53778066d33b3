package describe

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kostichs/company-enricher/internal/scrape"
	"github.com/kostichs/company-enricher/pkg/anthropic"
)

type scraperFunc func(ctx context.Context, url string) (*scrape.Result, error)

func (f scraperFunc) Scrape(ctx context.Context, url string) (*scrape.Result, error) {
	return f(ctx, url)
}

func (scraperFunc) Name() string { return "stub" }

type stubAI struct {
	reply string
	err   error
	got   anthropic.MessageRequest
}

func (s *stubAI) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &anthropic.MessageResponse{
		Model:   req.Model,
		Content: []anthropic.ContentBlock{{Type: "text", Text: s.reply}},
	}, nil
}

func textChain(text string) *scrape.Chain {
	return scrape.NewChain(scraperFunc(func(_ context.Context, url string) (*scrape.Result, error) {
		return &scrape.Result{Page: scrape.Page{URL: url, Text: text}, Source: "stub"}, nil
	}))
}

func TestDescribe(t *testing.T) {
	ai := &stubAI{reply: "Acme builds industrial robots for warehouses."}
	d := New(textChain("Acme Robotics. We build robots. Warehouses love us."), ai, "claude-haiku-4-5-20251001")

	got, err := d.Describe(context.Background(), "Acme Robotics", "https://acme.com", "")
	require.NoError(t, err)
	assert.Equal(t, "Acme builds industrial robots for warehouses.", got)
	assert.Equal(t, "claude-haiku-4-5-20251001", ai.got.Model)
	assert.Contains(t, ai.got.Messages[0].Content, "We build robots")
}

func TestDescribeTruncatesLongPages(t *testing.T) {
	ai := &stubAI{reply: "Summary."}
	long := strings.Repeat("lorem ipsum ", 2000)
	d := New(textChain(long), ai, "m")

	_, err := d.Describe(context.Background(), "Acme", "https://acme.com", "")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(ai.got.Messages[0].Content), homepageMaxChars+500,
		"page text is capped before prompting")
}

func TestDescribeTruncatesOnRuneBoundary(t *testing.T) {
	ai := &stubAI{reply: "Summary."}
	// 3-byte runes that do not divide the cap evenly, so a byte-index cut
	// would land mid-rune.
	long := strings.Repeat("€", homepageMaxChars)
	d := New(textChain(long), ai, "m")

	_, err := d.Describe(context.Background(), "Acme", "https://acme.com", "")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(ai.got.Messages[0].Content),
		"truncated prompt must stay valid UTF-8")
}

func TestDescribeIncludesProfileContext(t *testing.T) {
	ai := &stubAI{reply: "Acme builds robots."}
	d := New(textChain("Acme Robotics."), ai, "m")

	_, err := d.Describe(context.Background(), "Acme", "https://acme.com",
		"https://www.linkedin.com/company/acme/")
	require.NoError(t, err)
	assert.Contains(t, ai.got.Messages[0].Content, "https://www.linkedin.com/company/acme/")
}

func TestDescribeScrapeFailure(t *testing.T) {
	chain := scrape.NewChain(scraperFunc(func(context.Context, string) (*scrape.Result, error) {
		return nil, eris.New("connection refused")
	}))
	d := New(chain, &stubAI{reply: "x"}, "m")

	_, err := d.Describe(context.Background(), "Acme", "https://acme.com", "")
	assert.Error(t, err)
}

func TestDescribeEmptyPage(t *testing.T) {
	d := New(textChain("   "), &stubAI{reply: "x"}, "m")

	_, err := d.Describe(context.Background(), "Acme", "https://acme.com", "")
	assert.Error(t, err)
}

func TestDescribeHTMLFallback(t *testing.T) {
	chain := scrape.NewChain(scraperFunc(func(_ context.Context, url string) (*scrape.Result, error) {
		return &scrape.Result{Page: scrape.Page{
			URL:  url,
			HTML: "<html><body><h1>Acme</h1><p>We build robots.</p></body></html>",
		}}, nil
	}))
	ai := &stubAI{reply: "Acme builds robots."}
	d := New(chain, ai, "m")

	got, err := d.Describe(context.Background(), "Acme", "https://acme.com", "")
	require.NoError(t, err)
	assert.Equal(t, "Acme builds robots.", got)
	assert.Contains(t, ai.got.Messages[0].Content, "We build robots.")
}

type flakyAI struct {
	failures int
	calls    int
	reply    string
}

func (s *flakyAI) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, eris.New("api: status 503: overloaded")
	}
	return &anthropic.MessageResponse{
		Model:   req.Model,
		Content: []anthropic.ContentBlock{{Type: "text", Text: s.reply}},
	}, nil
}

func TestDescribeRetriesTransientFailures(t *testing.T) {
	ai := &flakyAI{failures: 1, reply: "Acme builds robots."}
	d := New(textChain("Acme Robotics."), ai, "m")

	got, err := d.Describe(context.Background(), "Acme", "https://acme.com", "")
	require.NoError(t, err)
	assert.Equal(t, "Acme builds robots.", got)
	assert.Equal(t, 2, ai.calls)
}

func TestDescribeDisabled(t *testing.T) {
	var d *Describer
	got, err := d.Describe(context.Background(), "Acme", "https://acme.com", "")
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.Nil(t, New(nil, nil, "m"))
}
