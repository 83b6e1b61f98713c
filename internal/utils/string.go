package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var punctuationPattern = regexp.MustCompile(`[\[\]\(,;:.\|/\\]+`)

// Normalize folds case, transliterates accented characters and collapses
// punctuation and runs of whitespace to single spaces. Used to prepare
// subject lines for marker matching and fuzzy comparison, never for the
// wire representation.
func Normalize(s string) string {
	s = cases.Fold().String(s)
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}
	s = strings.TrimSpace(s)
	s = punctuationPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// ConsumeRegex removes the first match of re from s. It returns the trimmed
// token captured by the last participating group (the whole match when the
// pattern captures nothing) and the string with the matched span cut out.
// The remainder is otherwise untouched, surrounding text included.
func ConsumeRegex(re *regexp.Regexp, s string) (string, string) {
	match := re.FindStringSubmatchIndex(s)
	if match == nil {
		return "", s
	}
	start, end := match[0], match[1]
	token := s[start:end]
	for group := len(match)/2 - 1; group >= 1; group-- {
		if match[2*group] >= 0 {
			token = s[match[2*group]:match[2*group+1]]
			break
		}
	}
	return strings.TrimSpace(token), s[:start] + s[end:]
}

// Variants returns the normalized form of each value, for building fuzzy
// subject lookups.
func Variants(values ...string) []string {
	variants := make([]string, 0, len(values))
	for _, value := range values {
		variants = append(variants, Normalize(value))
	}
	return variants
}

// PatternVariants joins the regex-quoted values into a single alternation.
func PatternVariants(values ...string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, regexp.QuoteMeta(value))
	}
	return strings.Join(quoted, "|")
}
