package enrichment

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern        = regexp.MustCompile(`(?i)(?:http[^\s\p{Z}]+|www\.[^\s\p{Z}]+)`)
	mentionPattern    = regexp.MustCompile(`@[\p{L}\p{N}_]+`)
	hashtagPattern    = regexp.MustCompile(`#+([\p{L}\p{N}_]+)`)
	whitespacePattern = regexp.MustCompile(`[\s\p{Z}]+`)

	apostropheReplacer = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")
)

// NormalizeBasic strips URL-like tokens and collapses whitespace. It never fails; invalid
// UTF-8 is dropped before matching.
func NormalizeBasic(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.ToValidUTF8(raw, "")
	s = urlPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeLexical produces the canonical form used for keyword matching: lowercase,
// diacritics folded, no URLs or mentions, hashtags unwrapped.
func NormalizeLexical(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.ToValidUTF8(raw, "")
	s = foldDiacritics(strings.ToLower(s))
	s = apostropheReplacer.Replace(s)
	s = NormalizeBasic(s)
	s = hashtagPattern.ReplaceAllString(s, "$1")
	// Unwrapping can rejoin a URL split by '#' ("htt#p://x").
	s = urlPattern.ReplaceAllString(s, " ")
	s = mentionPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// foldDiacritics decomposes, drops combining marks and recomposes. Transformers carry
// state, so each call builds its own chain.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
