// Package schema validates character records against the official script
// schema limits before publication.
package schema

import (
	"fmt"
	"regexp"

	"github.com/phauks/botc-data-sync/internal/catalog"
)

// Field length limits from the published script schema.
const (
	MaxIDLength          = 50
	MaxNameLength        = 30
	MaxEditionLength     = 50
	MaxAbilityLength     = 250
	MaxFlavorLength      = 500
	MaxNightReminder     = 500
	MaxReminderTokens    = 20
	MaxReminderLength    = 30
	MaxGlobalReminderLen = 25
)

var idPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Validate checks one record and returns every violation found. A nil
// result means the record passes.
func Validate(c catalog.Character) []error {
	var errs []error
	fail := func(reason string) {
		errs = append(errs, &catalog.ValidationError{ID: c.ID, Reason: reason})
	}

	switch {
	case c.ID == "":
		fail("id is required")
	case len(c.ID) > MaxIDLength:
		fail(fmt.Sprintf("id exceeds %d characters", MaxIDLength))
	case !idPattern.MatchString(c.ID):
		fail("id must be lowercase alphanumeric")
	}

	switch {
	case c.Name == "":
		fail("name is required")
	case len(c.Name) > MaxNameLength:
		fail(fmt.Sprintf("name exceeds %d characters", MaxNameLength))
	}

	if _, ok := catalog.ValidTeams[c.Team]; !ok {
		fail(fmt.Sprintf("unknown team %q", c.Team))
	}

	switch {
	case c.Ability == "":
		fail("ability is required")
	case len(c.Ability) > MaxAbilityLength:
		fail(fmt.Sprintf("ability exceeds %d characters", MaxAbilityLength))
	}

	if len(c.Edition) > MaxEditionLength {
		fail(fmt.Sprintf("edition exceeds %d characters", MaxEditionLength))
	}
	if len(c.Flavor) > MaxFlavorLength {
		fail(fmt.Sprintf("flavor exceeds %d characters", MaxFlavorLength))
	}
	if len(c.FirstNightReminder) > MaxNightReminder {
		fail(fmt.Sprintf("firstNightReminder exceeds %d characters", MaxNightReminder))
	}
	if len(c.OtherNightReminder) > MaxNightReminder {
		fail(fmt.Sprintf("otherNightReminder exceeds %d characters", MaxNightReminder))
	}
	if c.FirstNight < 0 || c.OtherNight < 0 {
		fail("night order must not be negative")
	}

	if len(c.Reminders) > MaxReminderTokens {
		fail(fmt.Sprintf("more than %d reminder tokens", MaxReminderTokens))
	}
	for _, token := range c.Reminders {
		if len(token) > MaxReminderLength {
			fail(fmt.Sprintf("reminder token %q exceeds %d characters", token, MaxReminderLength))
			break
		}
	}
	if len(c.RemindersGlobal) > MaxReminderTokens {
		fail(fmt.Sprintf("more than %d global reminder tokens", MaxReminderTokens))
	}
	for _, token := range c.RemindersGlobal {
		if len(token) > MaxGlobalReminderLen {
			fail(fmt.Sprintf("global reminder token %q exceeds %d characters", token, MaxGlobalReminderLen))
			break
		}
	}

	for _, jinx := range c.Jinxes {
		if jinx.ID == "" || jinx.Reason == "" {
			fail("jinx entries require both id and reason")
			break
		}
	}

	return errs
}

// ValidateAll runs Validate over the whole set and aggregates violations
// keyed by character id.
func ValidateAll(cat catalog.Catalog) map[string][]error {
	violations := map[string][]error{}
	for id, char := range cat {
		if errs := Validate(*char); len(errs) > 0 {
			violations[id] = errs
		}
	}
	return violations
}
