// Package describe drafts a short factual company description from the
// company's own homepage content.
package describe

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kostichs/company-enricher/internal/resilience"
	"github.com/kostichs/company-enricher/internal/scrape"
	"github.com/kostichs/company-enricher/pkg/anthropic"
)

const (
	// homepageMaxChars bounds the page text sent to the model.
	homepageMaxChars  = 8000
	describeMaxTokens = 300
)

// Describer turns a homepage into a two-to-three sentence description.
type Describer struct {
	chain *scrape.Chain
	ai    anthropic.Client
	model string
}

// New creates a Describer. Returns nil when the model client is absent;
// callers treat a nil Describer as the feature being switched off.
func New(chain *scrape.Chain, ai anthropic.Client, model string) *Describer {
	if ai == nil || chain == nil {
		return nil
	}
	return &Describer{chain: chain, ai: ai, model: model}
}

// Describe scrapes the homepage and asks the model for a grounded summary.
// A non-empty profileURL is passed to the model as extra identity context.
func (d *Describer) Describe(ctx context.Context, name, homepageURL, profileURL string) (string, error) {
	if d == nil {
		return "", nil
	}

	res, err := d.chain.Scrape(ctx, homepageURL)
	if err != nil {
		return "", eris.Wrapf(err, "describe: scrape %s", homepageURL)
	}

	text := res.Page.Text
	if text == "" {
		text = scrape.StripHTML(res.Page.HTML)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", eris.Errorf("describe: no text content at %s", homepageURL)
	}
	if len(text) > homepageMaxChars {
		cut := homepageMaxChars
		// Back up to a rune boundary so the prompt stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	prompt := fmt.Sprintf(`Write a 2-3 sentence factual description of the company %q based only on its homepage content below. State what the company does, its market, and anything notable. No marketing language, no speculation beyond the page.`, name)
	if profileURL != "" {
		prompt += fmt.Sprintf("\n\nThe company's LinkedIn page is %s; use it only to confirm which organization the homepage belongs to.", profileURL)
	}
	prompt += fmt.Sprintf("\n\nHomepage content:\n%s", text)

	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("anthropic", "describe")
	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return d.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     d.model,
			MaxTokens: describeMaxTokens,
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		return "", eris.Wrapf(err, "describe: completion for %s", name)
	}
	resp.Usage.LogCost(resp.Model, "describe")

	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", eris.Errorf("describe: empty completion for %s", name)
	}
	zap.L().Debug("describe: generated",
		zap.String("company", name), zap.Int("chars", len(out)))
	return out, nil
}
