package scrape

import (
	"regexp"
	"strings"
)

// DefaultIconBaseURL is the script tool origin that icon paths resolve
// against.
const DefaultIconBaseURL = "https://script.bloodontheclocktower.com/"

var (
	editionPattern = regexp.MustCompile(`/icons/([^/]+)/`)
	iconIDPattern  = regexp.MustCompile(`/icons/[^/]+/([a-z]+?)(?:_[ge])?\.webp`)
)

// EditionFromIcon extracts the edition from an icon path, e.g.
// "src/assets/icons/tb/washerwoman_g.webp" yields "tb".
func EditionFromIcon(iconSrc string) string {
	if m := editionPattern.FindStringSubmatch(iconSrc); m != nil {
		return m[1]
	}
	return "unknown"
}

// CharacterIDFromIcon extracts the character id from an icon path, dropping
// the alignment suffix, e.g. "icons/tb/spy_e.webp" yields "spy". Returns ""
// for non-character entries like dusk and dawn markers.
func CharacterIDFromIcon(iconSrc string) string {
	if m := iconIDPattern.FindStringSubmatch(iconSrc); m != nil {
		return m[1]
	}
	return ""
}

// FullIconURL resolves a relative icon path against the script tool origin.
func FullIconURL(baseURL, iconSrc string) string {
	if strings.HasPrefix(iconSrc, "http") {
		return iconSrc
	}
	clean := strings.TrimLeft(iconSrc, "./")
	if !strings.HasPrefix(clean, "src/") {
		clean = "src/" + clean
	}
	return baseURL + clean
}

// LocalImagePath is the packaged on-disk path for a character icon,
// preserving the upstream file extension.
func LocalImagePath(edition, charID, iconSrc string) string {
	ext := ".webp"
	if i := strings.LastIndex(iconSrc, "."); i >= 0 {
		ext = iconSrc[i:]
	}
	return "icons/" + edition + "/" + charID + ext
}
