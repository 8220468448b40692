// Package wiki derives reminder tokens and flavor text from character
// wiki pages. Pages are fetched through the shared validated fetcher and
// parsed with goquery.
package wiki

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/phauks/botc-data-sync/internal/catalog"
)

// DefaultBaseURL is the character wiki root.
const DefaultBaseURL = "https://wiki.bloodontheclocktower.com"

// namePattern accepts letters, digits, spaces, hyphens, apostrophes, and
// Latin-1 accented characters. Anything else is rejected before a URL is
// ever built.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-'À-ÿ]+$`)

const maxNameLength = 100

// urlReplacer mirrors the wiki's article naming: spaces become underscores
// and apostrophes are percent-encoded.
var urlReplacer = strings.NewReplacer(" ", "_", "'", "%27")

// Client fetches and parses character wiki pages.
type Client struct {
	fetcher catalog.Fetcher
	baseURL string
}

// NewClient builds a Client. An empty baseURL uses DefaultBaseURL.
func NewClient(fetcher catalog.Fetcher, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{fetcher: fetcher, baseURL: strings.TrimRight(baseURL, "/")}
}

// PageURL converts a character name to its wiki article URL. Names that
// fail validation return a catalog.ValidationError and no URL.
func (c *Client) PageURL(name string) (string, error) {
	if name == "" || len(name) > maxNameLength {
		return "", &catalog.ValidationError{ID: name, Reason: "character name length out of range"}
	}
	if !namePattern.MatchString(name) {
		return "", &catalog.ValidationError{ID: name, Reason: "character name contains disallowed characters"}
	}
	return fmt.Sprintf("%s/%s", c.baseURL, urlReplacer.Replace(name)), nil
}

// FetchPage retrieves the raw HTML for a character's wiki page.
func (c *Client) FetchPage(ctx context.Context, name string) ([]byte, error) {
	url, err := c.PageURL(name)
	if err != nil {
		return nil, err
	}
	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch wiki page for %q: %w", name, err)
	}
	return body, nil
}

// sanitize strips control characters and bounds the text length. Wiki
// markup is untrusted input.
func sanitize(text string) string {
	const maxLen = 10000
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r >= 32 || r == '\n' || r == '\t' || r == '\r' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	return out
}
