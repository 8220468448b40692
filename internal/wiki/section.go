package wiki

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HowToRun extracts the "How to Run" section text from a wiki page. The
// section holds the storyteller instructions that name reminder tokens.
// Returns "" when the page has no such section.
func HowToRun(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse wiki page: %w", err)
	}

	var heading *goquery.Selection
	doc.Find("h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToUpper(strings.TrimSpace(s.Text())), "HOW TO RUN") {
			heading = s
			return false
		}
		return true
	})
	if heading == nil {
		return "", nil
	}

	level := headingLevel(goquery.NodeName(heading))
	var parts []string
	for sib := heading.Next(); sib.Length() > 0; sib = sib.Next() {
		name := goquery.NodeName(sib)
		if l := headingLevel(name); l > 0 && l <= level {
			break
		}
		text := sanitize(strings.TrimSpace(sib.Text()))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func headingLevel(name string) int {
	switch name {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	default:
		return 0
	}
}
