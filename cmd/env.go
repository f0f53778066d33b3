package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kostichs/company-enricher/internal/describe"
	"github.com/kostichs/company-enricher/internal/freshness"
	"github.com/kostichs/company-enricher/internal/model"
	"github.com/kostichs/company-enricher/internal/probe"
	"github.com/kostichs/company-enricher/internal/resolve"
	"github.com/kostichs/company-enricher/internal/scrape"
	"github.com/kostichs/company-enricher/internal/store"
	"github.com/kostichs/company-enricher/pkg/anthropic"
	"github.com/kostichs/company-enricher/pkg/hubspot"
	"github.com/kostichs/company-enricher/pkg/scrapingbee"
	"github.com/kostichs/company-enricher/pkg/serper"
	"github.com/kostichs/company-enricher/pkg/wikidata"
)

// env bundles everything a batch command needs.
type env struct {
	store     store.Store
	prober    *probe.Prober
	resolver  *resolve.Resolver
	describer *describe.Describer
	gateway   *freshness.Gateway
	cacheTTL  time.Duration
}

func (e *env) Close() {
	if e.store != nil {
		e.store.Close() //nolint:errcheck
	}
}

// completeRun records the terminal run status on a fresh context so a
// cancelled batch still gets bookkeeping.
func completeRun(e *env, runID string, status model.RunStatus) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.store.CompleteRun(ctx, runID, status)
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initEnv wires clients according to configuration. Collaborators without
// credentials are left nil and their strategies are skipped at runtime.
func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	var browser scrapingbee.Client
	if cfg.ScrapingBee.Key != "" {
		browser = scrapingbee.NewClient(cfg.ScrapingBee.Key, scrapingbee.WithBaseURL(cfg.ScrapingBee.BaseURL))
	}

	prober := probe.New(
		probe.WithBrowser(browser),
		probe.WithTimeouts(
			time.Duration(cfg.Probe.TimeoutSecs)*time.Second,
			time.Duration(cfg.Probe.ExtendedTimeoutSecs)*time.Second,
		),
	)

	scrapers := []scrape.Scraper{scrape.NewLocalScraper()}
	if browser != nil {
		scrapers = append(scrapers, scrape.NewBeeAdapter(browser))
	}
	chain := scrape.NewChain(scrapers...)

	var search serper.Client
	if cfg.Serper.Key != "" {
		search = serper.NewClient(cfg.Serper.Key,
			serper.WithBaseURL(cfg.Serper.BaseURL),
			serper.WithRateLimit(cfg.Serper.RPS),
		)
	}

	var ai anthropic.Client
	if cfg.Anthropic.Key != "" {
		ai = anthropic.NewClient(cfg.Anthropic.Key)
	}

	resolver := resolve.New(resolve.Deps{
		Wikidata:     wikidata.NewClient(wikidata.WithBaseURL(cfg.Wikidata.BaseURL)),
		Search:       search,
		AI:           ai,
		AIModel:      cfg.Anthropic.HaikuModel,
		Prober:       prober,
		Chain:        chain,
		MaxTLDProbes: cfg.Resolve.MaxTLDProbes,
		MaxResults:   cfg.Serper.MaxResults,
	})

	var gateway *freshness.Gateway
	if cfg.HubSpot.Token != "" {
		crm := hubspot.NewClient(cfg.HubSpot.Token,
			hubspot.WithBaseURL(cfg.HubSpot.BaseURL),
			hubspot.WithRateLimit(cfg.HubSpot.RPS),
		)
		gateway = freshness.New(crm, time.Duration(cfg.HubSpot.TTLHours)*time.Hour)
	}

	ttl := time.Duration(cfg.HubSpot.TTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}

	return &env{
		store:     st,
		prober:    prober,
		resolver:  resolver,
		describer: describe.New(chain, ai, cfg.Anthropic.SonnetModel),
		gateway:   gateway,
		cacheTTL:  ttl,
	}, nil
}
