package catalog

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	invalidRe    = regexp.MustCompile(`[^a-z0-9_-]+`)
	dashesRe     = regexp.MustCompile(`-{2,}`)
)

// Slugify turns a product name into a url-safe slug ("Camiseta Básica" -> "camiseta-basica").
// Names with nothing usable get a time based fallback.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}

	s := strings.ToLower(strings.TrimSpace(plain))
	s = whitespaceRe.ReplaceAllString(s, "-")
	s = invalidRe.ReplaceAllString(s, "")
	s = dashesRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if s == "" {
		return fmt.Sprintf("produto-%d", time.Now().UnixMilli())
	}
	return s
}
