// Package catalog defines core types shared across subsystems.
package catalog

import (
	"sort"
	"time"
)

// Team classifies a character within an edition.
type Team string

// Team values exposed by the script tool's character listing.
const (
	TeamTownsfolk Team = "townsfolk"
	TeamOutsider  Team = "outsider"
	TeamMinion    Team = "minion"
	TeamDemon     Team = "demon"
	TeamTraveller Team = "traveller"
	TeamFabled    Team = "fabled"
)

// ValidTeams enumerates the accepted team tags.
var ValidTeams = map[Team]struct{}{
	TeamTownsfolk: {},
	TeamOutsider:  {},
	TeamMinion:    {},
	TeamDemon:     {},
	TeamTraveller: {},
	TeamFabled:    {},
}

// ValidEditions enumerates the edition directories the store recognizes.
var ValidEditions = map[string]struct{}{
	"tb":       {},
	"bmr":      {},
	"snv":      {},
	"carousel": {},
	"fabled":   {},
}

// Jinx is one direction of a symmetric special-interaction edge.
type Jinx struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Character is the canonical synced record for one catalog entry.
//
// RemindersFetched and FlavorFetched are bookkeeping for incremental
// enrichment; they persist in per-edition files and are stripped from
// distribution output. IconURL is the absolute source URL used for icon
// downloads and never leaves the process.
type Character struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Team               Team     `json:"team"`
	Ability            string   `json:"ability"`
	Edition            string   `json:"edition"`
	Icon               string   `json:"image"`
	FirstNight         int      `json:"firstNight"`
	FirstNightReminder string   `json:"firstNightReminder"`
	OtherNight         int      `json:"otherNight"`
	OtherNightReminder string   `json:"otherNightReminder"`
	Reminders          []string `json:"reminders"`
	RemindersGlobal    []string `json:"remindersGlobal"`
	Setup              bool     `json:"setup"`
	Flavor             string   `json:"flavor,omitempty"`
	Jinxes             []Jinx   `json:"jinxes,omitempty"`
	RemindersFetched   bool     `json:"_remindersFetched,omitempty"`
	FlavorFetched      bool     `json:"_flavorFetched,omitempty"`
	IconURL            string   `json:"-"`
}

// Clone returns a deep copy of the character.
func (c Character) Clone() Character {
	out := c
	out.Reminders = append([]string(nil), c.Reminders...)
	out.RemindersGlobal = append([]string(nil), c.RemindersGlobal...)
	out.Jinxes = append([]Jinx(nil), c.Jinxes...)
	return out
}

// HasJinx reports whether the character carries a jinx entry for the given
// partner and reason.
func (c Character) HasJinx(partnerID, reason string) bool {
	for _, j := range c.Jinxes {
		if j.ID == partnerID && j.Reason == reason {
			return true
		}
	}
	return false
}

// Catalog maps character id to record. It is rebuilt every run.
type Catalog map[string]*Character

// Sorted returns the records ordered by id. The order is the canonical one
// used for hashing and for the combined listing file.
func (c Catalog) Sorted() []Character {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Character, 0, len(ids))
	for _, id := range ids {
		out = append(out, *c[id])
	}
	return out
}

// CoreRecord is one entry of the primary listing, before merge.
type CoreRecord struct {
	ID      string
	Name    string
	Team    Team
	Ability string
	Edition string
	Icon    string
	IconURL string
}

// NightEntry pairs a character id with its night-sheet reminder text. Order
// of appearance in the extraction defines the night rank.
type NightEntry struct {
	ID       string
	Reminder string
}

// JinxPair is one undirected jinx edge as listed by the script tool.
type JinxPair struct {
	A      string
	B      string
	Reason string
}

// Extraction is everything the page client yields from a single session
// against the script tool.
type Extraction struct {
	Characters []CoreRecord
	FirstNight []NightEntry
	OtherNight []NightEntry
	Jinxes     []JinxPair
}

// Manifest records snapshot metadata. All counts are computed from the final
// character set, never hand-maintained.
type Manifest struct {
	SchemaVersion    int                 `json:"schemaVersion"`
	Version          string              `json:"version"`
	Generated        time.Time           `json:"generated"`
	RunID            string              `json:"runId"`
	ContentHash      string              `json:"contentHash"`
	Source           string              `json:"source"`
	WikiSource       string              `json:"wikiSource"`
	TotalCharacters  int                 `json:"total_characters"`
	TotalReminders   int                 `json:"total_reminders"`
	TotalJinxes      int                 `json:"total_jinxes"`
	TotalFlavor      int                 `json:"total_flavor"`
	Editions         map[string][]string `json:"editions"`
	EditionCounts    map[string]int      `json:"edition_counts"`
	EditionReminders map[string]int      `json:"edition_reminders"`
	TeamCounts       map[Team]int        `json:"team_counts"`
}

// SchemaVersion increments on breaking data format changes.
const SchemaVersion = 1
