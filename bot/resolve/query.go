package resolve

import (
	"regexp"
	"strings"
)

var (
	featRe       = regexp.MustCompile(`(?i)\s*[(\[][^)\]]*(?:feat\.?|ft\.?|featuring)[^)\]]*[)\]]`)
	decorationRe = regexp.MustCompile(`(?i)\s*[(\[][^)\]]*(?:remaster(?:ed)?|live|mono|stereo|version|edit)[^)\]]*[)\]]`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// searchQuery builds a free-text video search query from track
// metadata. Featuring credits and edition decorations are stripped
// from the title to keep the query close to the canonical recording.
func searchQuery(title, artist string) string {
	title = featRe.ReplaceAllString(title, "")
	title = decorationRe.ReplaceAllString(title, "")
	query := strings.TrimSpace(title) + " " + strings.TrimSpace(artist)
	return strings.TrimSpace(spaceRe.ReplaceAllString(query, " "))
}
