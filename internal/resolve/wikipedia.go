package resolve

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kostichs/company-enricher/internal/model"
	"github.com/kostichs/company-enricher/internal/urlnorm"
	"github.com/kostichs/company-enricher/pkg/anthropic"
	"github.com/kostichs/company-enricher/pkg/serper"
)

// Domains that can rank well for a company-name query but are never the
// company's own site.
var resultBlacklist = map[string]struct{}{
	"wikipedia.org":  {},
	"wikimedia.org":  {},
	"wiktionary.org": {},
	"youtube.com":    {},
	"vimeo.com":      {},
	"facebook.com":   {},
	"instagram.com":  {},
	"twitter.com":    {},
	"x.com":          {},
	"tiktok.com":     {},
	"linkedin.com":   {},
	"reddit.com":     {},
	"google.com":     {},
	"bing.com":       {},
	"yahoo.com":      {},
	"duckduckgo.com": {},
	"crunchbase.com": {},
	"bloomberg.com":  {},
	"reuters.com":    {},
	"forbes.com":     {},
}

func blacklisted(rawURL string) bool {
	domain := urlnorm.Normalize(rawURL)
	_, ok := resultBlacklist[domain]
	return ok
}

// searchRank runs the search, rank, verify tier: find the company's
// encyclopedia article among the results, then read the official-website
// link out of its info box. When no article matches, fall back to the top
// non-blacklisted organic hit.
func (r *Resolver) searchRank(ctx context.Context, name string) (string, bool) {
	log := zap.L().With(zap.String("company", name))

	resp, err := r.deps.Search.Search(ctx, fmt.Sprintf("%s company", name), serper.WithNum(r.deps.MaxResults))
	if err != nil {
		log.Warn("resolve: search failed", zap.Error(err))
		return "", false
	}
	if len(resp.Organic) == 0 {
		return "", false
	}

	candidates := wikiCandidates(resp.Organic, name)
	if article, ok := r.pickArticle(ctx, name, candidates); ok {
		if site, ok := r.officialSiteFromArticle(ctx, article); ok {
			return site, true
		}
		// No info-box website row. The article link itself is still a
		// verified identity match, so surface it rather than nothing.
		return article, true
	}

	for _, hit := range resp.Organic {
		if hit.Link == "" || blacklisted(hit.Link) {
			continue
		}
		return hit.Link, true
	}
	return "", false
}

// wikiCandidates extracts encyclopedia article hits and scores each article
// title against the company name.
func wikiCandidates(hits []serper.SearchResult, name string) []model.RankedCandidate {
	var out []model.RankedCandidate
	for _, hit := range hits {
		if !strings.Contains(hit.Link, "wikipedia.org/wiki/") {
			continue
		}
		title := articleTitle(hit.Link)
		out = append(out, model.RankedCandidate{
			URL:      hit.Link,
			Score:    overlapScore(title, name),
			Evidence: []string{title},
		})
	}
	return out
}

// articleTitle recovers a readable title from an article URL path.
func articleTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) == 0 {
		return ""
	}
	last, err := url.PathUnescape(segs[len(segs)-1])
	if err != nil {
		last = segs[len(segs)-1]
	}
	return strings.ReplaceAll(last, "_", " ")
}

// pickArticle chooses the article that is about the company itself. The
// language model adjudicates when configured; score ranking is the
// fallback and the tie-breaker.
func (r *Resolver) pickArticle(ctx context.Context, name string, candidates []model.RankedCandidate) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	if r.deps.AI != nil {
		if url, ok := r.askModel(ctx, name, candidates); ok {
			return url, true
		}
	}
	best := Best(candidates)
	if best == nil {
		return "", false
	}
	return best.URL, true
}

func (r *Resolver) askModel(ctx context.Context, name string, candidates []model.RankedCandidate) (string, bool) {
	var sb strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, strings.Join(c.Evidence, "; "), c.URL)
	}
	prompt := fmt.Sprintf("Company: %s\n\nCandidate encyclopedia articles:\n%s\nWhich number is the article about the company itself, not a person, product, or unrelated topic? Reply with just the number, or NONE if no article matches.", name, sb.String())

	resp, err := r.deps.AI.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     r.deps.AIModel,
		MaxTokens: 10,
		System:    "You match company names to encyclopedia articles.",
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		zap.L().Warn("resolve: article adjudication failed", zap.Error(err))
		return "", false
	}
	answer := strings.TrimSpace(resp.Text())
	if strings.EqualFold(answer, "NONE") {
		return "", false
	}
	n, err := strconv.Atoi(strings.Trim(answer, "."))
	if err != nil || n < 1 || n > len(candidates) {
		return "", false
	}
	return candidates[n-1].URL, true
}

// officialSiteFromArticle scrapes the article and reads the official
// website out of the info box.
func (r *Resolver) officialSiteFromArticle(ctx context.Context, articleURL string) (string, bool) {
	if r.deps.Chain == nil {
		return "", false
	}
	res, err := r.deps.Chain.Scrape(ctx, articleURL)
	if err != nil {
		zap.L().Warn("resolve: article scrape failed", zap.String("url", articleURL), zap.Error(err))
		return "", false
	}
	return infoboxWebsite(res.Page.HTML)
}

// infoboxWebsite finds the Website row of an article info box and returns
// its external link.
func infoboxWebsite(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	var site string
	doc.Find("table.infobox tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		label := strings.ToLower(strings.TrimSpace(row.Find("th").First().Text()))
		if !strings.Contains(label, "website") {
			return true
		}
		row.Find("td a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
				site = href
				return false
			}
			return true
		})
		return site == ""
	})
	if site == "" {
		return "", false
	}
	return site, true
}
