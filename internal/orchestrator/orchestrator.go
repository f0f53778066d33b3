// Package orchestrator drives enrichment of a whole batch: bounded
// concurrency over per-record tasks, duplicate-domain tagging, and a single
// writer that makes completed records durable in completion order.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kostichs/company-enricher/internal/dedup"
	"github.com/kostichs/company-enricher/internal/freshness"
	"github.com/kostichs/company-enricher/internal/model"
	"github.com/kostichs/company-enricher/internal/resolve"
	"github.com/kostichs/company-enricher/internal/store"
	"github.com/kostichs/company-enricher/internal/urlnorm"
)

// Resolver produces homepage and profile candidates for a company name.
// Satisfied by *resolve.Resolver.
type Resolver interface {
	ResolveHomepage(ctx context.Context, rec *model.CompanyRecord) resolve.Homepage
	ResolveProfile(ctx context.Context, name string) (string, bool)
}

// Prober confirms a URL is reachable. Satisfied by *probe.Prober.
type Prober interface {
	Probe(ctx context.Context, url string) model.LivenessResult
}

// Describer drafts a company description from its homepage. Satisfied by
// *describe.Describer.
type Describer interface {
	Describe(ctx context.Context, name, homepageURL, profileURL string) (string, error)
}

// Deps carries the orchestrator's collaborators. Gateway, Describer, and
// Store are optional.
type Deps struct {
	Resolver  Resolver
	Prober    Prober
	Describer Describer
	Gateway   *freshness.Gateway
	Store     store.Store
}

// Config tunes one batch invocation.
type Config struct {
	Concurrency int
	CacheTTL    time.Duration
	RunID       string
}

// Summary aggregates what one Run emitted.
type Summary struct {
	Emitted  int
	ByStatus map[model.RecordStatus]int
}

// Progress is a point-in-time view of a running batch.
type Progress struct {
	Total    int   `json:"total"`
	Emitted  int   `json:"emitted"`
	InFlight []int `json:"in_flight,omitempty"`
}

// Orchestrator processes company records under a concurrency cap. All
// output goes through one writer goroutine; record tasks never touch the
// output files.
type Orchestrator struct {
	deps    Deps
	cfg     Config
	writer  *Writer
	reg     *taskRegistry
	domains *dedup.Registry

	// Liveness results are cached per batch only. A valid row must mean the
	// URL answered during this invocation, so probe results never persist
	// across runs.
	probeMu sync.Mutex
	probes  map[string]model.LivenessResult

	total   atomic.Int64
	emitted atomic.Int64
}

// New creates an Orchestrator writing through w.
func New(w *Writer, deps Deps, cfg Config) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	return &Orchestrator{
		deps:    deps,
		cfg:     cfg,
		writer:  w,
		reg:     newTaskRegistry(),
		domains: dedup.NewRegistry(),
		probes:  make(map[string]model.LivenessResult),
	}
}

// Progress reports batch progress. Safe to call concurrently with Run.
func (o *Orchestrator) Progress() Progress {
	return Progress{
		Total:    int(o.total.Load()),
		Emitted:  int(o.emitted.Load()),
		InFlight: o.reg.indexes(),
	}
}

// Run enriches every record and returns once all admitted records have
// been flushed. Per-record failures become status=error rows; only
// cancellation stops the batch, and even then every record that entered
// processing is still flushed exactly once before Run returns.
func (o *Orchestrator) Run(ctx context.Context, records []*model.CompanyRecord) (*Summary, error) {
	o.total.Store(int64(len(records)))
	summary := &Summary{ByStatus: make(map[model.RecordStatus]int)}

	results := make(chan *model.CompanyRecord, o.cfg.Concurrency)
	writerDone := make(chan error, 1)

	// The writer drains until the channel closes, regardless of ctx, so a
	// cancelled producer can never wedge behind a stopped consumer.
	go func() {
		var firstErr error
		for rec := range results {
			if err := o.writer.Emit(rec); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				zap.L().Error("orchestrator: emit failed",
					zap.Int("index", rec.Index), zap.Error(err))
				continue
			}
			o.emitted.Add(1)
			summary.Emitted++
			summary.ByStatus[rec.Status]++
			o.recordProgress()
		}
		writerDone <- firstErr
	}()

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)

	for _, rec := range records {
		// Cancellation stops admission; records already admitted run to
		// their next cancellation point and are still flushed.
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			o.process(ctx, rec)
			results <- rec
			return nil
		})
	}

	g.Wait() //nolint:errcheck // tasks never return errors
	close(results)
	writeErr := <-writerDone

	if writeErr != nil {
		return summary, writeErr
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// Process runs the enrichment stages for a single record without emitting
// it. The caller owns persistence; used by the webhook surface, which runs
// its own writer queue.
func (o *Orchestrator) Process(ctx context.Context, rec *model.CompanyRecord) {
	o.total.Add(1)
	o.process(ctx, rec)
}

// recordProgress persists the emitted counter, best effort.
func (o *Orchestrator) recordProgress() {
	if o.deps.Store == nil || o.cfg.RunID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.deps.Store.UpdateRunProgress(ctx, o.cfg.RunID, int(o.emitted.Load())); err != nil {
		zap.L().Debug("orchestrator: progress update failed", zap.Error(err))
	}
}

// process takes one record from pending to a terminal status. Panics and
// errors stay inside this boundary; a cancelled record keeps whatever
// partial status it reached.
func (o *Orchestrator) process(ctx context.Context, rec *model.CompanyRecord) {
	o.reg.insert(rec.Index, rec.Name)
	defer o.reg.remove(rec.Index)

	log := zap.L().With(zap.Int("index", rec.Index), zap.String("company", rec.Name))
	defer func() {
		if r := recover(); r != nil {
			rec.Status = model.StatusError
			rec.ErrorDetail = fmt.Sprintf("panic: %v", r)
			log.Error("orchestrator: record task panicked", zap.Any("panic", r))
		}
	}()

	if ctx.Err() != nil {
		rec.ErrorDetail = "cancelled"
		return
	}

	// Freshness gate: a seed whose CRM record is recent enough is taken
	// as-is, no resolution or probing.
	if o.deps.Gateway != nil && rec.SeedURL != "" {
		if cached, err := o.deps.Gateway.Check(ctx, rec.SeedURL); err == nil && cached != nil {
			rec.ResolvedURL = rec.SeedURL
			rec.ResolutionMethod = model.MethodSeed
			rec.Description = cached.Description
			o.finishValid(ctx, rec, log)
			return
		}
	}

	hp := o.deps.Resolver.ResolveHomepage(ctx, rec)
	if ctx.Err() != nil {
		rec.ErrorDetail = "cancelled"
		return
	}
	if hp.URL == "" {
		rec.Status = model.StatusError
		rec.ErrorDetail = "no homepage candidate"
		return
	}
	rec.ResolvedURL = hp.URL
	rec.ResolutionMethod = hp.Method

	if !hp.Verified {
		res := o.probeWithCache(ctx, rec.ResolvedURL)
		if ctx.Err() != nil {
			rec.ErrorDetail = "cancelled"
			return
		}
		if !res.IsLive {
			rec.Status = model.StatusDeadURL
			rec.ErrorDetail = res.Error
			return
		}
		if res.FinalURL != "" {
			rec.ResolvedURL = res.FinalURL
		}
	}

	o.finishValid(ctx, rec, log)
}

// finishValid runs the post-liveness stages: duplicate tagging, profile
// lookup, description, CRM write-back.
func (o *Orchestrator) finishValid(ctx context.Context, rec *model.CompanyRecord, log *zap.Logger) {
	if owner, dup := o.domains.Claim(rec.ResolvedURL, rec.Index); dup {
		rec.Status = model.StatusDuplicate
		rec.DuplicateOf = owner
		return
	}
	rec.Status = model.StatusValid

	o.resolveProfile(ctx, rec, log)

	// A non-empty description at this point came from the freshness gate.
	crmDescription := rec.Description != ""

	// A fresh CRM description for the resolved domain saves the scrape and
	// completion, even when the record arrived without a seed.
	if rec.Description == "" && o.deps.Gateway != nil {
		if cached, err := o.deps.Gateway.Check(ctx, rec.ResolvedURL); err == nil && cached != nil && cached.Description != "" {
			rec.Description = cached.Description
			crmDescription = true
		}
	}

	if rec.Description == "" && o.deps.Describer != nil {
		desc, err := o.deps.Describer.Describe(ctx, rec.Name, rec.ResolvedURL, rec.ProfileURL)
		if err != nil {
			log.Debug("orchestrator: description skipped", zap.Error(err))
		} else {
			rec.Description = desc
		}
	}

	if o.deps.Gateway != nil {
		props := make(map[string]string)
		if rec.Description != "" && !crmDescription {
			props["description"] = rec.Description
		}
		if rec.ProfileURL != "" {
			props["linkedin_company_page"] = rec.ProfileURL
		}
		o.deps.Gateway.WriteBackByDomain(ctx, rec.ResolvedURL, props)
	}
}

// probeWithCache probes a URL, reusing the result when another record in
// this batch already probed the same domain.
func (o *Orchestrator) probeWithCache(ctx context.Context, url string) model.LivenessResult {
	domain := urlnorm.Normalize(url)
	if domain == "" {
		return o.deps.Prober.Probe(ctx, url)
	}

	o.probeMu.Lock()
	cached, ok := o.probes[domain]
	o.probeMu.Unlock()
	if ok {
		return cached
	}

	res := o.deps.Prober.Probe(ctx, url)
	if ctx.Err() == nil {
		o.probeMu.Lock()
		o.probes[domain] = res
		o.probeMu.Unlock()
	}
	return res
}

func (o *Orchestrator) resolveProfile(ctx context.Context, rec *model.CompanyRecord, log *zap.Logger) {
	domain := urlnorm.Normalize(rec.ResolvedURL)
	if o.deps.Store != nil && domain != "" {
		if cached, err := o.deps.Store.GetCachedProfile(ctx, domain); err == nil && cached != "" {
			rec.ProfileURL = cached
			return
		}
	}

	profile, ok := o.deps.Resolver.ResolveProfile(ctx, rec.Name)
	if !ok {
		return
	}
	rec.ProfileURL = profile

	if o.deps.Store != nil && domain != "" && ctx.Err() == nil {
		if err := o.deps.Store.SetCachedProfile(ctx, domain, profile, o.cfg.CacheTTL); err != nil {
			log.Debug("orchestrator: profile cache write failed", zap.Error(err))
		}
	}
}
