package resolve

import (
	"regexp"
	"strings"
)

// legalSuffixPattern matches common legal entity suffixes appended to
// company names.
var legalSuffixPattern = regexp.MustCompile(`(?i)[,\s]+(inc\.?|incorporated|llc\.?|l\.l\.c\.?|ltd\.?|limited|corp\.?|corporation|co\.?|company|gmbh|ag|s\.?a\.?|plc|llp|lp|pllc|pc|oy|ab|bv|nv|srl|sas|pty)\s*$`)

// parentheticalPattern strips trailing parenthetical qualifiers such as
// "(acquired by X)".
var parentheticalPattern = regexp.MustCompile(`\s*\([^)]*\)`)

var nonSlugPattern = regexp.MustCompile(`[^a-z0-9-]+`)

// Slugify reduces a company name to a bare domain label: legal suffixes and
// parenthetical text stripped, lower-cased, everything but word characters
// and hyphens removed.
func Slugify(name string) string {
	s := strings.TrimSpace(name)
	s = parentheticalPattern.ReplaceAllString(s, "")
	// Suffixes can stack ("Acme Holdings, LLC Inc"); strip repeatedly.
	for {
		stripped := legalSuffixPattern.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "&", "and")
	s = strings.ReplaceAll(s, " ", "")
	s = nonSlugPattern.ReplaceAllString(s, "")
	return strings.Trim(s, "-")
}

// Tokens splits a name into normalized lower-case word tokens for
// overlap scoring.
func Tokens(name string) []string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = parentheticalPattern.ReplaceAllString(s, "")
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// commonTLDs is the ordered probe list for synthesized domains, most
// common first.
var commonTLDs = []string{
	"com", "io", "co", "net", "org", "ai", "app", "dev", "tech",
	"us", "uk", "co.uk", "de", "fr", "it", "es", "nl", "ca", "au", "com.au",
	"ch", "se", "no", "dk", "fi", "jp", "in", "biz", "info", "eu",
}
