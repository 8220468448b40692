// Package staleness decides, per character and per secondary field class,
// whether this run must refetch from the wiki or can carry the previous
// value forward. Pure decision logic, no I/O.
package staleness

import "github.com/phauks/botc-data-sync/internal/catalog"

// Decision is the outcome for one (character, field class) pair.
type Decision int

// Decision values.
const (
	Preserve Decision = iota
	Refetch
)

func (d Decision) String() string {
	if d == Refetch {
		return "refetch"
	}
	return "preserve"
}

// FieldClass selects which secondary field group a decision applies to.
type FieldClass int

// Secondary field classes fetched from the wiki.
const (
	Reminders FieldClass = iota
	Flavor
)

// triggerChanged reports whether any field in the triggering set differs
// between the fresh core record and the previous snapshot. Name changes move
// the wiki URL; ability changes may change reminder tokens and flavor.
func triggerChanged(fresh catalog.CoreRecord, previous catalog.Character) bool {
	return fresh.Name != previous.Name || fresh.Ability != previous.Ability
}

// Decide returns Refetch when the previous record is absent, when the target
// field class was never successfully fetched (or is empty for flavor), or
// when a triggering core field changed. Otherwise the previous value is safe
// to carry forward.
func Decide(fresh catalog.CoreRecord, previous *catalog.Character, class FieldClass) Decision {
	if previous == nil {
		return Refetch
	}
	switch class {
	case Reminders:
		// Empty token lists are valid, so absence is tracked by the
		// explicit fetched marker rather than by len(Reminders).
		if !previous.RemindersFetched {
			return Refetch
		}
	case Flavor:
		if !previous.FlavorFetched || previous.Flavor == "" {
			return Refetch
		}
	}
	if triggerChanged(fresh, *previous) {
		return Refetch
	}
	return Preserve
}
