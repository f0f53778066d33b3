package resolve

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kostichs/company-enricher/internal/model"
	"github.com/kostichs/company-enricher/internal/scrape"
	"github.com/kostichs/company-enricher/pkg/anthropic"
	"github.com/kostichs/company-enricher/pkg/serper"
	"github.com/kostichs/company-enricher/pkg/wikidata"
)

type stubSearch struct {
	responses map[string]*serper.SearchResponse
	err       error
	queries   []string
}

func (s *stubSearch) Search(_ context.Context, query string, _ ...serper.SearchOption) (*serper.SearchResponse, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	if resp, ok := s.responses[query]; ok {
		return resp, nil
	}
	return &serper.SearchResponse{}, nil
}

type stubWikidata struct {
	site string
	err  error
}

func (s *stubWikidata) LookupOfficialSite(context.Context, string) (string, error) {
	return s.site, s.err
}

type stubAI struct {
	reply string
	err   error
}

func (s *stubAI) CreateMessage(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: s.reply}},
	}, nil
}

type stubProber struct {
	live   map[string]string // probed URL -> final URL
	probed []string
}

func (s *stubProber) Probe(_ context.Context, url string) model.LivenessResult {
	s.probed = append(s.probed, url)
	if final, ok := s.live[url]; ok {
		return model.LivenessResult{IsLive: true, FinalURL: final}
	}
	return model.LivenessResult{Error: "connection refused"}
}

type scraperFunc func(ctx context.Context, url string) (*scrape.Result, error)

func (f scraperFunc) Scrape(ctx context.Context, url string) (*scrape.Result, error) {
	return f(ctx, url)
}

func (scraperFunc) Name() string { return "stub" }

func htmlScraper(html string) *scrape.Chain {
	return scrape.NewChain(scraperFunc(func(_ context.Context, url string) (*scrape.Result, error) {
		return &scrape.Result{Page: scrape.Page{URL: url, HTML: html}, Source: "stub"}, nil
	}))
}

func TestResolveHomepageSeedShortCircuits(t *testing.T) {
	kg := &stubWikidata{site: "https://never-consulted.example"}
	r := New(Deps{Wikidata: kg, Search: &stubSearch{}})

	got := r.ResolveHomepage(context.Background(), &model.CompanyRecord{
		Name:         "Acme",
		SeedURL:      "https://acme.example",
		SeedVerified: true,
	})

	assert.Equal(t, "https://acme.example", got.URL)
	assert.Equal(t, model.MethodSeed, got.Method)
	assert.True(t, got.Verified)
}

func TestResolveHomepageStructuredLookup(t *testing.T) {
	r := New(Deps{
		Wikidata: &stubWikidata{site: "https://www.acme.com"},
		Search:   &stubSearch{},
	})

	got := r.ResolveHomepage(context.Background(), &model.CompanyRecord{Name: "Acme"})

	assert.Equal(t, "https://www.acme.com", got.URL)
	assert.Equal(t, model.MethodStructuredLookup, got.Method)
	assert.False(t, got.Verified)
}

func TestResolveHomepageTLDProbe(t *testing.T) {
	prober := &stubProber{live: map[string]string{
		"https://acme.io": "https://acme.io/",
	}}
	r := New(Deps{
		Wikidata: &stubWikidata{err: wikidata.ErrNotFound},
		Prober:   prober,
		Search:   &stubSearch{},
	})

	got := r.ResolveHomepage(context.Background(), &model.CompanyRecord{Name: "Acme Inc."})

	assert.Equal(t, "https://acme.io/", got.URL)
	assert.Equal(t, model.MethodTLDProbe, got.Method)
	assert.True(t, got.Verified, "a probed hit needs no second liveness check")
	// com is tried before io.
	require.GreaterOrEqual(t, len(prober.probed), 2)
	assert.Equal(t, "https://acme.com", prober.probed[0])
}

func TestResolveHomepageMaxTLDProbes(t *testing.T) {
	prober := &stubProber{}
	r := New(Deps{Prober: prober, MaxTLDProbes: 3})

	got := r.ResolveHomepage(context.Background(), &model.CompanyRecord{Name: "Acme"})

	assert.Len(t, prober.probed, 3)
	assert.Equal(t, model.MethodSynthetic, got.Method)
}

func TestResolveHomepageSearchRankInfobox(t *testing.T) {
	search := &stubSearch{responses: map[string]*serper.SearchResponse{
		"Acme Robotics company": {Organic: []serper.SearchResult{
			{Title: "Acme Robotics - Wikipedia", Link: "https://en.wikipedia.org/wiki/Acme_Robotics", Position: 1},
			{Title: "Acme Robotics careers", Link: "https://jobs.example/acme", Position: 2},
		}},
	}}
	chain := htmlScraper(`<html><body>
		<table class="infobox"><tbody>
			<tr><th>Industry</th><td>Robotics</td></tr>
			<tr><th>Website</th><td><a href="https://www.acmerobotics.com" class="external">acmerobotics.com</a></td></tr>
		</tbody></table>
	</body></html>`)
	r := New(Deps{
		Wikidata: &stubWikidata{err: wikidata.ErrNotFound},
		Search:   search,
		Chain:    chain,
	})

	got := r.ResolveHomepage(context.Background(), &model.CompanyRecord{Name: "Acme Robotics"})

	assert.Equal(t, "https://www.acmerobotics.com", got.URL)
	assert.Equal(t, model.MethodSearchRank, got.Method)
	assert.False(t, got.Verified)
}

func TestResolveHomepageSearchRankArticleFallback(t *testing.T) {
	// Article matched but its info box has no website row: the article
	// link itself is returned rather than nothing.
	search := &stubSearch{responses: map[string]*serper.SearchResponse{
		"Acme company": {Organic: []serper.SearchResult{
			{Title: "Acme - Wikipedia", Link: "https://en.wikipedia.org/wiki/Acme", Position: 1},
		}},
	}}
	r := New(Deps{
		Search: search,
		Chain:  htmlScraper("<html><body><p>no infobox</p></body></html>"),
	})

	got := r.ResolveHomepage(context.Background(), &model.CompanyRecord{Name: "Acme"})

	assert.Equal(t, "https://en.wikipedia.org/wiki/Acme", got.URL)
	assert.Equal(t, model.MethodSearchRank, got.Method)
}

func TestResolveHomepageSearchRankTopHitFallback(t *testing.T) {
	// No encyclopedia article in the results: the top organic hit wins,
	// skipping blacklisted hosts.
	search := &stubSearch{responses: map[string]*serper.SearchResponse{
		"Acme company": {Organic: []serper.SearchResult{
			{Title: "Acme videos", Link: "https://www.youtube.com/acme", Position: 1},
			{Title: "Acme | LinkedIn", Link: "https://www.linkedin.com/company/acme/", Position: 2},
			{Title: "Acme", Link: "https://acme.example", Position: 3},
		}},
	}}
	r := New(Deps{Search: search})

	got := r.ResolveHomepage(context.Background(), &model.CompanyRecord{Name: "Acme"})

	assert.Equal(t, "https://acme.example", got.URL)
	assert.Equal(t, model.MethodSearchRank, got.Method)
}

func TestResolveHomepageModelAdjudication(t *testing.T) {
	search := &stubSearch{responses: map[string]*serper.SearchResponse{
		"Mercury company": {Organic: []serper.SearchResult{
			{Title: "Mercury (planet) - Wikipedia", Link: "https://en.wikipedia.org/wiki/Mercury_(planet)", Position: 1},
			{Title: "Mercury (company) - Wikipedia", Link: "https://en.wikipedia.org/wiki/Mercury_(company)", Position: 2},
		}},
	}}
	chain := htmlScraper(`<table class="infobox"><tr><th>Website</th><td><a href="https://mercury.example">site</a></td></tr></table>`)
	r := New(Deps{
		Search:  search,
		AI:      &stubAI{reply: "2"},
		AIModel: "claude-haiku-4-5-20251001",
		Chain:   chain,
	})

	got := r.ResolveHomepage(context.Background(), &model.CompanyRecord{Name: "Mercury"})

	assert.Equal(t, "https://mercury.example", got.URL)
	assert.Equal(t, model.MethodSearchRank, got.Method)
}

func TestResolveHomepageSyntheticFallback(t *testing.T) {
	r := New(Deps{
		Wikidata: &stubWikidata{err: wikidata.ErrNotFound},
		Search:   &stubSearch{err: eris.New("serper: rate limited")},
	})

	got := r.ResolveHomepage(context.Background(), &model.CompanyRecord{Name: "Acme Robotics Inc."})

	assert.Equal(t, "https://www.acmerobotics.com", got.URL)
	assert.Equal(t, model.MethodSynthetic, got.Method)
	assert.False(t, got.Verified)
}

func TestResolveHomepageCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := &stubProber{}
	r := New(Deps{Prober: prober, Search: &stubSearch{}})
	got := r.ResolveHomepage(ctx, &model.CompanyRecord{Name: "Acme"})

	assert.Equal(t, model.MethodNone, got.Method)
	assert.Empty(t, prober.probed)
}
