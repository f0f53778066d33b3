// Package resolve decides a company's canonical official website and its
// professional-network profile URL from nothing but the company name.
package resolve

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kostichs/company-enricher/internal/model"
	"github.com/kostichs/company-enricher/internal/scrape"
	"github.com/kostichs/company-enricher/pkg/anthropic"
	"github.com/kostichs/company-enricher/pkg/serper"
	"github.com/kostichs/company-enricher/pkg/wikidata"
)

// Prober confirms a URL is reachable. Satisfied by *probe.Prober.
type Prober interface {
	Probe(ctx context.Context, url string) model.LivenessResult
}

// Deps carries the collaborators the resolver consumes. Wikidata, AI, and
// Chain are optional; a nil collaborator disables its strategy tier.
type Deps struct {
	Wikidata     wikidata.Client
	Search       serper.Client
	AI           anthropic.Client
	AIModel      string
	Prober       Prober
	Chain        *scrape.Chain
	MaxTLDProbes int
	MaxResults   int
}

// Resolver runs the ordered homepage strategy chain and the profile-URL
// ranking.
type Resolver struct {
	deps Deps
}

// New creates a Resolver.
func New(deps Deps) *Resolver {
	if deps.MaxTLDProbes <= 0 || deps.MaxTLDProbes > len(commonTLDs) {
		deps.MaxTLDProbes = len(commonTLDs)
	}
	if deps.MaxResults <= 0 {
		deps.MaxResults = 10
	}
	return &Resolver{deps: deps}
}

// Homepage is the outcome of homepage resolution. Verified means the URL
// was confirmed live during resolution and needs no second probe.
type Homepage struct {
	URL      string
	Method   model.ResolutionMethod
	Verified bool
}

// ResolveHomepage produces the single best-guess homepage for a company
// name. A caller-supplied seed URL short-circuits every lookup strategy.
// The chain never comes back empty: when all strategies miss it synthesizes
// a placeholder that is tagged as such and never claimed validated.
func (r *Resolver) ResolveHomepage(ctx context.Context, rec *model.CompanyRecord) Homepage {
	log := zap.L().With(zap.String("company", rec.Name))

	if rec.SeedURL != "" {
		return Homepage{URL: rec.SeedURL, Method: model.MethodSeed, Verified: rec.SeedVerified}
	}

	// Tier 1: knowledge-graph declared official website.
	if r.deps.Wikidata != nil {
		site, err := r.deps.Wikidata.LookupOfficialSite(ctx, rec.Name)
		switch {
		case err == nil && site != "":
			log.Debug("resolve: homepage via structured lookup", zap.String("url", site))
			return Homepage{URL: site, Method: model.MethodStructuredLookup}
		case err != nil && !eris.Is(err, wikidata.ErrNotFound):
			log.Warn("resolve: structured lookup failed", zap.Error(err))
		}
		if ctx.Err() != nil {
			return Homepage{Method: model.MethodNone}
		}
	}

	// Tier 2: probe synthesized slug.<tld> candidates.
	if url, ok := r.probeTLDs(ctx, rec.Name); ok {
		log.Debug("resolve: homepage via tld probe", zap.String("url", url))
		return Homepage{URL: url, Method: model.MethodTLDProbe, Verified: true}
	}
	if ctx.Err() != nil {
		return Homepage{Method: model.MethodNone}
	}

	// Tier 3: web search, encyclopedia ranking, info-box verification.
	if r.deps.Search != nil {
		if url, ok := r.searchRank(ctx, rec.Name); ok {
			log.Debug("resolve: homepage via search rank", zap.String("url", url))
			return Homepage{URL: url, Method: model.MethodSearchRank}
		}
	}

	// Last resort: synthesize a placeholder. Tagged synthetic, never
	// claimed validated.
	slug := Slugify(rec.Name)
	if slug == "" {
		return Homepage{Method: model.MethodNone}
	}
	return Homepage{
		URL:    fmt.Sprintf("https://www.%s.com", slug),
		Method: model.MethodSynthetic,
	}
}

// probeTLDs synthesizes slug.<tld> for the ordered TLD list and probes each
// until one answers.
func (r *Resolver) probeTLDs(ctx context.Context, name string) (string, bool) {
	if r.deps.Prober == nil {
		return "", false
	}
	slug := Slugify(name)
	if slug == "" {
		return "", false
	}

	for _, tld := range commonTLDs[:r.deps.MaxTLDProbes] {
		if ctx.Err() != nil {
			return "", false
		}
		candidate := fmt.Sprintf("https://%s.%s", slug, tld)
		res := r.deps.Prober.Probe(ctx, candidate)
		if res.IsLive {
			return res.FinalURL, true
		}
	}
	return "", false
}
