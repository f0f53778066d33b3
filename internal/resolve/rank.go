package resolve

import (
	"sort"
	"strings"

	"github.com/kostichs/company-enricher/internal/model"
)

// Best returns the highest-scoring candidate. Ties keep first-seen order
// (stable sort). Returns nil for an empty list.
func Best(candidates []model.RankedCandidate) *model.RankedCandidate {
	if len(candidates) == 0 {
		return nil
	}
	ranked := make([]model.RankedCandidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return &ranked[0]
}

// overlapScore measures prefix-anchored token overlap between a candidate
// label (a page title or URL slug) and the company name. If the first
// candidate token does not match the first name token the score is 0.
// Otherwise each sequential token match adds 1 and each unmatched trailing
// candidate token subtracts 0.5, floored at zero.
func overlapScore(candidate, name string) float64 {
	ct := Tokens(candidate)
	nt := Tokens(name)
	if len(ct) == 0 || len(nt) == 0 {
		return 0
	}
	if ct[0] != nt[0] {
		return 0
	}

	var score float64
	i := 0
	for ; i < len(ct) && i < len(nt); i++ {
		if ct[i] != nt[i] {
			break
		}
		score++
	}
	// Trailing candidate tokens beyond the match dilute confidence.
	score -= 0.5 * float64(len(ct)-i)
	if score < 0 {
		return 0
	}
	return score
}

// containsToken reports whether the haystack contains any single token of
// the name.
func containsToken(haystack, name string) bool {
	h := strings.ToLower(haystack)
	for _, tok := range Tokens(name) {
		if strings.Contains(h, tok) {
			return true
		}
	}
	return false
}
