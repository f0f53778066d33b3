package resolve

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/kostichs/company-enricher/internal/model"
	"github.com/kostichs/company-enricher/pkg/serper"
)

var profileSections = map[string]struct{}{
	"company":  {},
	"school":   {},
	"showcase": {},
}

// ResolveProfile finds the company's LinkedIn page via web search and
// heuristic scoring. Returns ok=false when nothing plausible surfaces;
// profile resolution is best-effort and never fails a record.
func (r *Resolver) ResolveProfile(ctx context.Context, name string) (string, bool) {
	if r.deps.Search == nil {
		return "", false
	}
	log := zap.L().With(zap.String("company", name))

	resp, err := r.deps.Search.Search(ctx, fmt.Sprintf("%s linkedin company", name), serper.WithNum(r.deps.MaxResults))
	if err != nil {
		log.Warn("resolve: profile search failed", zap.Error(err))
		return "", false
	}

	candidates := profileCandidates(resp.Organic, name)
	best := Best(candidates)
	if best == nil {
		return "", false
	}
	canonical, ok := canonicalProfileURL(best.URL)
	if !ok {
		return "", false
	}
	log.Debug("resolve: profile selected",
		zap.String("url", canonical), zap.Float64("score", best.Score))
	return canonical, true
}

// profileCandidates filters search hits down to LinkedIn organization pages
// and scores each against the company name.
func profileCandidates(hits []serper.SearchResult, name string) []model.RankedCandidate {
	tokens := Tokens(name)
	fullSlug := strings.Join(tokens, "-")

	var out []model.RankedCandidate
	for _, hit := range hits {
		section, slug, ok := profileParts(hit.Link)
		if !ok {
			continue
		}

		score := 0.0
		if section == "company" {
			score += 20
		}
		if fullSlug != "" && strings.Contains(slug, fullSlug) {
			score += 15
		} else if containsToken(slug, name) {
			score += 7
		}
		lowered := strings.ToLower(hit.Title + " " + hit.Link)
		if strings.Contains(lowered, "jobs") || strings.Contains(lowered, "careers") {
			score -= 5
		}

		out = append(out, model.RankedCandidate{URL: hit.Link, Score: score, Evidence: []string{hit.Title}})
	}
	return out
}

// profileParts extracts the section and slug from a LinkedIn organization
// URL, rejecting everything else.
func profileParts(rawURL string) (section, slug string, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "linkedin.com" && !strings.HasSuffix(host, ".linkedin.com") {
		return "", "", false
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) < 2 {
		return "", "", false
	}
	section = strings.ToLower(segs[0])
	if _, known := profileSections[section]; !known {
		return "", "", false
	}
	return section, strings.ToLower(segs[1]), true
}

// canonicalProfileURL rewrites a profile hit to the stable
// https://www.linkedin.com/<section>/<slug>/ form, dropping regional
// subdomains, query strings, and trailing path noise.
func canonicalProfileURL(rawURL string) (string, bool) {
	section, slug, ok := profileParts(rawURL)
	if !ok || slug == "" {
		return "", false
	}
	return fmt.Sprintf("https://www.linkedin.com/%s/%s/", section, slug), true
}
