package wiki

import (
	"fmt"
	"regexp"
	"strings"
)

// infoTokenExclusions are storyteller info tokens, not reminder tokens.
// A candidate containing any of these phrases is discarded.
var infoTokenExclusions = []string{
	"YOU ARE",
	"THIS PLAYER IS",
	"THESE ARE YOUR MINIONS",
	"THIS IS THE DEMON",
	"THESE CHARACTERS ARE NOT IN PLAY",
	"THIS CHARACTER SELECTED YOU",
	"DID YOU NOMINATE TODAY",
	"DID YOU VOTE TODAY",
}

// tokenOverrides pins reminder lists for characters whose wiki text defeats
// extraction. Duplicates mean multiple physical tokens. Prefer improving the
// extraction over growing this map.
var tokenOverrides = map[string][]string{
	"lunatic":     {"CHOSEN", "CHOSEN", "CHOSEN"},
	"po":          {"3 ATTACKS", "DEAD", "DEAD", "DEAD"},
	"juggler":     {"CORRECT", "CORRECT", "CORRECT", "CORRECT", "CORRECT"},
	"zenomancer":  {"GOAL", "GOAL", "GOAL"},
	"alhadikhia":  {"1", "2", "3"},
	"leviathan":   {"DAY 1", "DAY 2", "DAY 3", "DAY 4", "DAY 5", "GOOD PLAYER EXECUTED"},
	"ojo":         {"DEAD"},
	"yaggababble": {"DEAD", "DEAD", "DEAD"},
}

var (
	// "the Demon's DEAD reminder" marks a token owned by another character.
	otherCharTokenPattern = regexp.MustCompile(`the\s+(\w+)'s\s+([A-Z0-9][A-Z0-9\s:]*[A-Z0-9]|[A-Z]{2,})\s+reminder`)

	tokenPatterns = []*regexp.Regexp{
		// "the X reminder token" / "X reminder"
		regexp.MustCompile(`\b([A-Z0-9][A-Z0-9\s:']*[A-Z0-9]|[A-Z]{2,})\s+reminder(?:\s+token)?`),
		// "marked X" / "mark them with the X"
		regexp.MustCompile(`(?:marked?(?:\s+them)?(?:\s+with)?(?:\s+the)?)\s+([A-Z0-9][A-Z0-9\s:']*[A-Z0-9]|[A-Z]{2,})`),
		// "put the X reminder"
		regexp.MustCompile(`put\s+(?:the\s+)?(?:\w+'s\s+)?([A-Z0-9][A-Z0-9\s:']*[A-Z0-9]|[A-Z]{2,})\s+reminder`),
	}

	possessiveSuffix = regexp.MustCompile(`'S$`)
)

// ExtractTokens pulls reminder token names from "How to Run" text. charName
// distinguishes this character's tokens from tokens it places for others.
// Order of first occurrence is preserved.
func ExtractTokens(text, charName string) []string {
	nameKey := strings.NewReplacer(" ", "", "-", "").Replace(strings.ToLower(charName))

	otherOwned := map[string]bool{}
	for _, m := range otherCharTokenPattern.FindAllStringSubmatch(text, -1) {
		owner := strings.ToLower(m[1])
		token := strings.ToUpper(strings.TrimSpace(m[2]))
		if owner != nameKey && !strings.Contains(nameKey, owner) {
			otherOwned[token] = true
		}
	}

	seen := map[string]bool{}
	var tokens []string
	for _, pattern := range tokenPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			token := strings.ToUpper(strings.TrimSpace(m[1]))
			token = possessiveSuffix.ReplaceAllString(token, "")
			if seen[token] {
				continue
			}
			seen[token] = true
			if isInfoToken(token) || otherOwned[token] {
				continue
			}
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func isInfoToken(token string) bool {
	for _, excl := range infoTokenExclusions {
		if token == excl || strings.Contains(token, excl) {
			return true
		}
	}
	return false
}

var numberWords = []struct {
	word  string
	count int
}{
	{"one", 1}, {"two", 2}, {"three", 3}, {"four", 4}, {"five", 5},
	{"1", 1}, {"2", 2}, {"3", 3}, {"4", 4}, {"5", 5},
}

// InferTokenCount decides how many copies of a token the section calls for.
// "each player" phrasing defaults to 3, bare plurals to 2, otherwise 1.
func InferTokenCount(text, token string) int {
	quoted := regexp.QuoteMeta(token)

	for _, nw := range numberWords {
		p := regexp.MustCompile(fmt.Sprintf(`(?i)%s\s+(?:chosen\s+)?players?\s+with\s+(?:a\s+)?%s\s+reminders?`, nw.word, quoted))
		if p.MatchString(text) {
			return nw.count
		}
	}
	for _, nw := range numberWords {
		p := regexp.MustCompile(fmt.Sprintf(`(?i)(?:mark\s+)?%s\s+of\s+them\s+with\s+(?:a\s+)?%s\s+reminder`, nw.word, quoted))
		if p.MatchString(text) {
			return nw.count
		}
	}

	eachPlayer := []string{
		fmt.Sprintf(`(?i)%s\s+reminder(?:s)?\s+on\s+each\s+player`, quoted),
		fmt.Sprintf(`(?i)put\s+(?:a\s+)?%s\s+reminder\s+on\s+each`, quoted),
	}
	for _, expr := range eachPlayer {
		if regexp.MustCompile(expr).MatchString(text) {
			return 3
		}
	}

	if regexp.MustCompile(fmt.Sprintf(`(?i)%s\s+reminders\b`, quoted)).MatchString(text) {
		return 2
	}
	return 1
}

// Reminders extracts the expanded reminder token list for a character from
// its wiki page HTML. Overrides win over extraction. An empty result is
// valid; many characters have no tokens.
func Reminders(charID, charName string, html []byte) ([]string, error) {
	if override, ok := tokenOverrides[charID]; ok {
		out := make([]string, len(override))
		copy(out, override)
		return out, nil
	}

	section, err := HowToRun(html)
	if err != nil {
		return nil, err
	}
	if section == "" {
		return nil, nil
	}

	var expanded []string
	for _, token := range ExtractTokens(section, charName) {
		count := InferTokenCount(section, token)
		for i := 0; i < count; i++ {
			expanded = append(expanded, token)
		}
	}
	return expanded, nil
}
