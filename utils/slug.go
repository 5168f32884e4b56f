package utils

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s, folds accents to ASCII and joins the remaining
// alphanumeric runs with single hyphens. A title with no usable characters
// becomes "book".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	out := nonSlugChars.ReplaceAllString(strings.ToLower(folded), "-")
	out = strings.Trim(out, "-")
	if out == "" {
		return "book"
	}
	return out
}

// SlugCandidate returns base for attempt 0 and base-N afterwards.
func SlugCandidate(base string, attempt int) string {
	if attempt == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(attempt)
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
