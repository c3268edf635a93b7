// Package fuzzy prepares loosely typed user input for catalog searches and
// shapes artist credits the way tagging hosts display them.
package fuzzy

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/unicode/norm"
)

// ArtistSeparator joins multiple artist credits.
const ArtistSeparator = ", "

var (
	nonWordRegex       = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
	mediumMarkerRegex  = regexp.MustCompile(`(?i)\b(CD|disc)\s*\d+`)
	whitespaceRegex    = regexp.MustCompile(`\s+`)
	disambiguatorRegex = regexp.MustCompile(` \(\d+\)$`)
	articleRegex       = regexp.MustCompile(`(?i)^(.*?), (a|an|the)$`)
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// SanitizeQuery turns free text into a search query: NFC composed, every run
// of non-word characters replaced by a space, medium markers such as "CD 2"
// or "disc1" removed and whitespace collapsed.
func (n *Normalizer) SanitizeQuery(query string) string {
	query = norm.NFC.String(query)
	query = nonWordRegex.ReplaceAllString(query, " ")
	query = mediumMarkerRegex.ReplaceAllString(query, "")
	query = whitespaceRegex.ReplaceAllString(query, " ")
	return strings.TrimSpace(query)
}

// NormalizeArtist drops a numeric disambiguation suffix ("Name (2)") and
// moves a trailing article to the front ("Beatles, The" becomes "The Beatles").
func (n *Normalizer) NormalizeArtist(name string) string {
	name = disambiguatorRegex.ReplaceAllString(name, "")
	return articleRegex.ReplaceAllString(name, "$2 $1")
}

// JoinArtists normalizes each credit and joins them with ArtistSeparator.
// Empty names are skipped.
func (n *Normalizer) JoinArtists(names []string) string {
	normalized := lo.FilterMap(names, func(name string, _ int) (string, bool) {
		name = n.NormalizeArtist(strings.TrimSpace(name))
		return name, name != ""
	})
	return strings.Join(normalized, ArtistSeparator)
}
