// Package setupflag classifies characters that alter game setup.
//
// Most setup-altering characters announce it in bracketed ability text, so
// pattern rules catch new characters automatically. A small override set
// covers characters whose abilities use plain prose instead.
package setupflag

import (
	"regexp"
	"strings"
)

// overrides lists characters that alter setup without bracket text.
var overrides = map[string]string{
	"drunk":        "false identity stated in prose",
	"sentinel":     "may add or remove an outsider without brackets",
	"deusexfiasco": "storyteller behavior change without brackets",
}

// Rule pairs a detection predicate with the rationale it reports.
type Rule struct {
	Name      string
	Rationale string
	Match     func(id, ability string) bool
}

var falseIdentityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`you do not know you are`),
	regexp.MustCompile(`you think you are`),
	regexp.MustCompile(`you think you have`),
}

var bracketPattern = regexp.MustCompile(`\[[^\]]*(?:outsider|townsfolk|minion|demon|evil|good)[^\]]*\]`)

// Rules is the ordered rule list. First match wins.
var Rules = []Rule{
	{
		Name:      "override",
		Rationale: "known setup character without detectable ability text",
		Match: func(id, _ string) bool {
			_, ok := overrides[id]
			return ok
		},
	},
	{
		Name:      "false_identity",
		Rationale: "ability gives the player a false identity",
		Match: func(_, ability string) bool {
			for _, p := range falseIdentityPatterns {
				if p.MatchString(ability) {
					return true
				}
			}
			return false
		},
	},
	{
		Name:      "bracket_text",
		Rationale: "bracketed setup modification in ability text",
		Match: func(_, ability string) bool {
			return bracketPattern.MatchString(ability)
		},
	},
}

// Classifier applies the ordered rules.
type Classifier struct{}

// New returns a Classifier.
func New() *Classifier {
	return &Classifier{}
}

// Setup reports whether the character alters the game setup.
func (c *Classifier) Setup(id, ability string) bool {
	flagged, _ := Classify(id, ability)
	return flagged
}

// Classify returns the flag plus the name of the rule that decided it.
func Classify(id, ability string) (bool, string) {
	lower := strings.ToLower(ability)
	for _, rule := range Rules {
		if rule.Match(id, lower) {
			return true, rule.Name
		}
	}
	return false, ""
}
