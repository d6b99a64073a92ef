package sv

import (
	"strings"
	"unicode"

	"github.com/xrash/smetrics"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalFormTokens maps the spelled-out Swedish legal form to its
// abbreviation. Every spelled-out form found in a name is removed;
// when several occur, the one listed last here is reported.
var legalFormTokens = []struct {
	full string
	abbr string
}{
	{"AKTIEBOLAG", "AB"},
	{"HANDELSBOLAG", "HB"},
	{"KOMMANDITBOLAG", "KB"},
	{"EKONOMISK FORENING", "EK FOR"},
	{"IDEELL FORENING", "IDEELL FOR"},
	{"ENSKILD FIRMA", "EF"},
}

var statusMarkers = []string{
	"I LIKVIDATION",
	"I KONKURS",
	"UNDER REKONSTRUKTION",
	"(PUBL)",
}

// NormalizeCompanyName upper-cases, strips accents, removes status
// markers and trailing legal-form suffixes, collapses whitespace, and
// returns the normalized matching key alongside the legal form it
// detected (abbreviated form, empty if none matched).
func NormalizeCompanyName(input string) (normalized string, legalForm string) {
	s := strings.ToUpper(strings.TrimSpace(input))
	s = stripAccents(s)

	for _, marker := range statusMarkers {
		s = strings.ReplaceAll(s, marker, "")
	}

	for _, lf := range legalFormTokens {
		if strings.Contains(s, lf.full) {
			legalForm = lf.abbr
			s = strings.ReplaceAll(s, lf.full, "")
		}
	}
	// An already-abbreviated trailing legal form (e.g. "VOLVO AB") is
	// still reported even though there's nothing left to strip out of
	// the name body beyond the token itself.
	if legalForm == "" {
		for _, lf := range legalFormTokens {
			if hasTrailingToken(s, lf.abbr) {
				legalForm = lf.abbr
				s = strings.TrimSuffix(strings.TrimSpace(s), lf.abbr)
			}
		}
	}

	s = stripPunctuationExceptAmpersand(s)
	normalized = collapseWhitespace(s)
	return normalized, legalForm
}

// CompanyNameSimilarity scores two already-normalized company names
// via a blend of Jaro-Winkler (string-level) and Jaccard (token-set)
// similarity.
func CompanyNameSimilarity(a, b string) float64 {
	jw := smetrics.JaroWinkler(a, b, 0.7, 4)
	jac := tokenJaccard(a, b)
	return 0.6*jw + 0.4*jac
}

// NameJaroWinkler returns the raw Jaro-Winkler similarity between two
// already-normalized names, for callers that need the component score
// rather than CompanyNameSimilarity's blend (e.g. person-name scoring,
// which weights Jaro-Winkler and token Jaccard separately).
func NameJaroWinkler(a, b string) float64 {
	return smetrics.JaroWinkler(a, b, 0.7, 4)
}

// NameTokenJaccard returns the Jaccard similarity of the whitespace
// token sets of two already-normalized names.
func NameTokenJaccard(a, b string) float64 {
	return tokenJaccard(a, b)
}

func tokenJaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA)
	for tok := range setB {
		if !setA[tok] {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

func hasTrailingToken(s, token string) bool {
	trimmed := strings.TrimSpace(s)
	return strings.HasSuffix(trimmed, " "+token) || trimmed == token
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func stripPunctuationExceptAmpersand(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '&' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
