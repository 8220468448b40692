package wiki

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// flavorSkipPhrases mark text that is ability prose or page chrome rather
// than flavor.
var flavorSkipPhrases = []string{
	"you start", "each night", "once per game", "if you",
	"when you", "navigation", "jump to", "edit", "main page",
}

var quotedFlavorPattern = regexp.MustCompile(`"([^"]{20,200})"`)

const (
	minFlavorLength = 20
	maxFlavorLength = 200
)

// Flavor extracts a character's flavor quote from its wiki page. Flavor
// lives in an italicized paragraph near the top of the article, usually
// inside a blockquote. Returns "" when no plausible candidate is found.
func Flavor(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", err
	}

	selectors := []string{
		"blockquote p i",
		"p > i",
		"p > em",
		`[class*="flavor"]`,
	}
	for _, sel := range selectors {
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if candidate, ok := acceptFlavor(s.Text()); ok {
				found = candidate
				return false
			}
			return true
		})
		if found != "" {
			return found, nil
		}
	}

	// Last resort: a quoted sentence in the page text.
	for _, m := range quotedFlavorPattern.FindAllStringSubmatch(doc.Text(), -1) {
		if candidate, ok := acceptFlavor(m[1]); ok {
			return candidate, nil
		}
	}
	return "", nil
}

func acceptFlavor(text string) (string, bool) {
	flavor := strings.TrimSpace(sanitize(text))
	if len(flavor) < minFlavorLength || len(flavor) > maxFlavorLength {
		return "", false
	}
	lower := strings.ToLower(flavor)
	for _, skip := range flavorSkipPhrases {
		if strings.Contains(lower, skip) {
			return "", false
		}
	}
	return flavor, true
}
