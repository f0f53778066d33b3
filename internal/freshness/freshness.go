// Package freshness gates enrichment behind the CRM: a company whose CRM
// record was updated within the freshness window is returned as-is instead
// of being re-enriched.
package freshness

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kostichs/company-enricher/internal/resilience"
	"github.com/kostichs/company-enricher/internal/urlnorm"
	"github.com/kostichs/company-enricher/pkg/hubspot"
)

// Gateway answers "is this company fresh enough to skip?" against the CRM.
// A nil CRM client disables the gate entirely.
type Gateway struct {
	crm hubspot.Client
	ttl time.Duration
	now func() time.Time
}

// New creates a Gateway with the given freshness window.
func New(crm hubspot.Client, ttl time.Duration) *Gateway {
	return &Gateway{crm: crm, ttl: ttl, now: time.Now}
}

// Cached is a CRM record recent enough to reuse.
type Cached struct {
	CRMID       string
	Domain      string
	Description string
	UpdatedAt   time.Time
}

// Check looks up the company's domain in the CRM. It returns a Cached
// record when one exists and was updated within the freshness window, and
// (nil, nil) when the company is unknown or stale. Lookup failures degrade
// to a miss so a flaky CRM never blocks enrichment.
func (g *Gateway) Check(ctx context.Context, resolvedURL string) (*Cached, error) {
	if g.crm == nil || g.ttl <= 0 {
		return nil, nil
	}
	domain := urlnorm.Normalize(resolvedURL)
	if domain == "" {
		return nil, nil
	}

	company, err := g.findByDomain(ctx, domain)
	if err != nil {
		if eris.Is(err, hubspot.ErrNotFound) {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		zap.L().Warn("freshness: crm lookup failed, treating as miss",
			zap.String("domain", domain), zap.Error(err))
		return nil, nil
	}

	age := g.now().Sub(company.UpdatedAt)
	if age > g.ttl {
		zap.L().Debug("freshness: record stale",
			zap.String("domain", domain), zap.Duration("age", age))
		return nil, nil
	}
	return &Cached{
		CRMID:       company.ID,
		Domain:      company.Domain,
		Description: company.Description,
		UpdatedAt:   company.UpdatedAt,
	}, nil
}

// WriteBack pushes enrichment results to the CRM record so the next run
// sees them as fresh. Best effort: failures are logged, not fatal.
func (g *Gateway) WriteBack(ctx context.Context, crmID string, properties map[string]string) {
	if g.crm == nil || crmID == "" || len(properties) == 0 {
		return
	}
	if err := g.crm.UpdateCompany(ctx, crmID, properties); err != nil {
		zap.L().Warn("freshness: crm write-back failed",
			zap.String("crm_id", crmID), zap.Error(err))
	}
}

// WriteBackByDomain looks the company up by its resolved URL's domain and
// pushes properties to it. Companies absent from the CRM are skipped; this
// gateway enriches existing records, it does not create them.
func (g *Gateway) WriteBackByDomain(ctx context.Context, resolvedURL string, properties map[string]string) {
	if g.crm == nil || len(properties) == 0 {
		return
	}
	domain := urlnorm.Normalize(resolvedURL)
	if domain == "" {
		return
	}
	company, err := g.findByDomain(ctx, domain)
	if err != nil {
		if !eris.Is(err, hubspot.ErrNotFound) {
			zap.L().Warn("freshness: crm lookup for write-back failed",
				zap.String("domain", domain), zap.Error(err))
		}
		return
	}
	g.WriteBack(ctx, company.ID, properties)
}

func (g *Gateway) findByDomain(ctx context.Context, domain string) (*hubspot.Company, error) {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("hubspot", "find_by_domain")
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*hubspot.Company, error) {
		return g.crm.FindByDomain(ctx, domain)
	})
}
