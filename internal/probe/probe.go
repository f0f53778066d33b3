// Package probe determines whether a URL is actually reachable, following
// redirects across both schemes with a remote-browser escalation path. A
// 403 means the server exists and answered; it is never treated as absence.
package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kostichs/company-enricher/internal/model"
	"github.com/kostichs/company-enricher/pkg/scrapingbee"
)

const userAgent = "Mozilla/5.0 (compatible; EnricherBot/1.0)"

// Prober runs the layered liveness protocol: direct HEAD/GET over both
// schemes, bare-domain retry, then rendering-proxy escalation.
type Prober struct {
	http     *http.Client
	resolver *net.Resolver
	browser  scrapingbee.Client
	timeout  time.Duration
	extended time.Duration
}

// Option configures a Prober.
type Option func(*Prober)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Prober) {
		p.http = hc
	}
}

// WithBrowser enables the remote-browser escalation stage.
func WithBrowser(client scrapingbee.Client) Option {
	return func(p *Prober) {
		p.browser = client
	}
}

// WithTimeouts sets the per-attempt timeout and the extended timeout used
// for the GET retry after a HEAD timeout.
func WithTimeouts(timeout, extended time.Duration) Option {
	return func(p *Prober) {
		p.timeout = timeout
		p.extended = extended
	}
}

// New creates a Prober. Timeouts are enforced per attempt via context, so
// the underlying client carries no global deadline.
func New(opts ...Option) *Prober {
	p := &Prober{
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 4,
			},
		},
		resolver: net.DefaultResolver,
		timeout:  10 * time.Second,
		extended: 25 * time.Second,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// outcome classifies one direct attempt.
type outcome int

const (
	outcomeLive outcome = iota
	outcomeDead         // conclusive for this URL, worth an alternate-scheme retry
	outcomeFailed
)

// Probe runs the full liveness ladder for one URL.
func (p *Prober) Probe(ctx context.Context, rawURL string) model.LivenessResult {
	log := zap.L().With(zap.String("url", rawURL))

	target, err := ensureScheme(rawURL)
	if err != nil {
		return model.LivenessResult{Error: err.Error()}
	}

	// A failed DNS pre-check is advisory only: some environments block
	// outbound DNS while the HTTP layer still succeeds through a proxy.
	if host := hostOf(target); host != "" {
		if _, dnsErr := p.resolver.LookupHost(ctx, host); dnsErr != nil {
			log.Debug("probe: dns pre-check failed, continuing", zap.Error(dnsErr))
		}
	}

	var lastErr string
	keep := func(err error) {
		if err != nil && err.Error() != "" {
			lastErr = err.Error()
		}
	}

	// Stage 1: direct attempts, original then alternate scheme.
	for _, u := range []string{target, swapScheme(target)} {
		out, final, attemptErr := p.attempt(ctx, u)
		keep(attemptErr)
		if out == outcomeLive {
			return model.LivenessResult{IsLive: true, FinalURL: final}
		}
		if ctx.Err() != nil {
			return model.LivenessResult{Error: ctx.Err().Error()}
		}
	}

	// Stage 2: bare registrable domain. Many hosts reject deep paths but
	// serve the root.
	if bare := bareDomainURL(target); bare != "" && bare != target {
		for _, u := range []string{bare, swapScheme(bare)} {
			out, final, attemptErr := p.attempt(ctx, u)
			keep(attemptErr)
			if out == outcomeLive {
				return model.LivenessResult{IsLive: true, FinalURL: final}
			}
			if ctx.Err() != nil {
				return model.LivenessResult{Error: ctx.Err().Error()}
			}
		}
	}

	// Stage 3: remote-browser escalation.
	if p.browser != nil {
		res, fetchErr := p.browser.Fetch(ctx, target, scrapingbee.WithRenderJS())
		if fetchErr != nil {
			keep(fetchErr)
		} else if res.StatusCode >= 200 && res.StatusCode < 400 {
			log.Info("probe: live via browser escalation",
				zap.Int("status", res.StatusCode),
				zap.String("final_url", res.ResolvedURL),
			)
			return model.LivenessResult{IsLive: true, FinalURL: res.ResolvedURL}
		} else {
			keep(eris.Errorf("browser fetch: upstream status %d", res.StatusCode))
		}
	}

	if lastErr == "" {
		lastErr = "unreachable"
	}
	return model.LivenessResult{Error: lastErr}
}

// attempt issues one HEAD request (with a GET retry on timeout) and
// classifies the response.
func (p *Prober) attempt(ctx context.Context, target string) (outcome, string, error) {
	status, final, err := p.request(ctx, http.MethodHead, target, p.timeout)
	if err != nil {
		if isTimeout(err) {
			// Some servers stall HEAD but answer GET; retry once with the
			// extended timeout.
			status, final, err = p.request(ctx, http.MethodGet, target, p.extended)
		}
		if err != nil {
			return outcomeFailed, "", err
		}
	}

	switch {
	case status >= 200 && status < 400:
		return outcomeLive, final, nil
	case status == http.StatusForbidden:
		// Server answered; presumed bot-blocking, not absence.
		return outcomeLive, final, nil
	case status == http.StatusNotFound:
		return outcomeDead, "", eris.Errorf("probe %s: status 404", target)
	case status >= 500:
		return outcomeDead, "", eris.Errorf("probe %s: status %d", target, status)
	default:
		return outcomeDead, "", eris.Errorf("probe %s: status %d", target, status)
	}
}

func (p *Prober) request(ctx context.Context, method, target string, timeout time.Duration) (int, string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, method, target, nil)
	if err != nil {
		return 0, "", eris.Wrapf(err, "probe %s: create request", target)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	return resp.StatusCode, resp.Request.URL.String(), nil
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(err.Error(), "deadline exceeded")
}

// ensureScheme prepends https:// when the URL carries no scheme.
func ensureScheme(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", eris.New("probe: empty url")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	if _, err := url.Parse(s); err != nil {
		return "", eris.Wrapf(err, "probe: parse url %s", raw)
	}
	return s, nil
}

// swapScheme flips https and http.
func swapScheme(target string) string {
	if strings.HasPrefix(target, "https://") {
		return "http://" + strings.TrimPrefix(target, "https://")
	}
	if strings.HasPrefix(target, "http://") {
		return "https://" + strings.TrimPrefix(target, "http://")
	}
	return target
}

// bareDomainURL reduces a URL to scheme + host, dropping any path or query.
// Returns "" when the URL has no parseable host.
func bareDomainURL(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func hostOf(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
