// Package snapshot canonicalizes the merged character set, computes its
// content hash, and decides whether a run warrants a new release.
package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/phauks/botc-data-sync/internal/catalog"
	"github.com/phauks/botc-data-sync/internal/hash/sha256"
)

// Manager finalizes snapshots.
type Manager struct {
	hasher catalog.Hasher
	clock  catalog.Clock
	ids    catalog.IDGenerator
	source string
	wiki   string
}

// New constructs a Manager. source and wiki identify the upstreams in the
// manifest.
func New(hasher catalog.Hasher, clock catalog.Clock, ids catalog.IDGenerator, source, wiki string) *Manager {
	return &Manager{hasher: hasher, clock: clock, ids: ids, source: source, wiki: wiki}
}

// Strip returns the distribution variant of a record: internal bookkeeping
// markers removed, everything else untouched.
func Strip(c catalog.Character) catalog.Character {
	out := c.Clone()
	out.RemindersFetched = false
	out.FlavorFetched = false
	out.IconURL = ""
	return out
}

// Canonical encodes the set in its canonical form: records sorted by id,
// distribution field set, fixed struct field order. The encoding is
// independent of map iteration order, so hashing it is deterministic.
func Canonical(cat catalog.Catalog) ([]byte, error) {
	records := cat.Sorted()
	stripped := make([]catalog.Character, 0, len(records))
	for _, c := range records {
		stripped = append(stripped, Strip(c))
	}
	data, err := json.Marshal(stripped)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return data, nil
}

// Hash returns the short content hash of the canonical form.
func (m *Manager) Hash(cat catalog.Catalog) (string, error) {
	data, err := Canonical(cat)
	if err != nil {
		return "", err
	}
	digest, err := m.hasher.Hash(data)
	if err != nil {
		return "", fmt.Errorf("hash canonical form: %w", err)
	}
	return sha256.Short(digest), nil
}

// Finalize builds the manifest for the final set and reports whether a new
// release is warranted. An unchanged content hash keeps the previous version
// identifier and returns false; the caller still writes working state.
func (m *Manager) Finalize(cat catalog.Catalog, previous *catalog.Manifest) (catalog.Manifest, bool, error) {
	contentHash, err := m.Hash(cat)
	if err != nil {
		return catalog.Manifest{}, false, err
	}
	runID, err := m.ids.NewID()
	if err != nil {
		return catalog.Manifest{}, false, fmt.Errorf("run id: %w", err)
	}

	manifest := computeCounts(cat)
	manifest.SchemaVersion = catalog.SchemaVersion
	manifest.Generated = m.clock.Now()
	manifest.RunID = runID
	manifest.ContentHash = contentHash
	manifest.Source = m.source
	manifest.WikiSource = m.wiki

	if previous != nil && previous.ContentHash == contentHash {
		manifest.Version = previous.Version
		return manifest, false, nil
	}

	prevVersion := ""
	if previous != nil {
		prevVersion = previous.Version
	}
	manifest.Version = nextVersion(m.clock.Now().Format("2006.01.02"), prevVersion)
	return manifest, true, nil
}

// nextVersion yields a monotonic calendar version: the date itself for the
// first release of a day, then date.2, date.3 for same-day republications.
func nextVersion(today, previous string) string {
	if previous == "" || !strings.HasPrefix(previous, today) {
		return today
	}
	rest := strings.TrimPrefix(previous, today)
	if rest == "" {
		return today + ".2"
	}
	n, err := strconv.Atoi(strings.TrimPrefix(rest, "."))
	if err != nil {
		return today + ".2"
	}
	return fmt.Sprintf("%s.%d", today, n+1)
}

// computeCounts derives every aggregate in the manifest from the final set.
func computeCounts(cat catalog.Catalog) catalog.Manifest {
	editions := map[string][]string{}
	editionReminders := map[string]int{}
	teamCounts := map[catalog.Team]int{}
	totalReminders := 0
	totalJinxes := 0
	totalFlavor := 0

	for id, char := range cat {
		editions[char.Edition] = append(editions[char.Edition], id)
		editionReminders[char.Edition] += len(char.Reminders)
		teamCounts[char.Team]++
		totalReminders += len(char.Reminders)
		totalJinxes += len(char.Jinxes)
		if char.Flavor != "" {
			totalFlavor++
		}
	}
	for edition := range editions {
		sort.Strings(editions[edition])
	}

	editionCounts := make(map[string]int, len(editions))
	for edition, ids := range editions {
		editionCounts[edition] = len(ids)
	}

	return catalog.Manifest{
		TotalCharacters:  len(cat),
		TotalReminders:   totalReminders,
		TotalJinxes:      totalJinxes / 2, // stored reciprocally on both endpoints
		TotalFlavor:      totalFlavor,
		Editions:         editions,
		EditionCounts:    editionCounts,
		EditionReminders: editionReminders,
		TeamCounts:       teamCounts,
	}
}
