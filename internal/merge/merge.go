// Package merge combines independently produced partial record collections
// into one canonical character set, enforcing relational invariants.
package merge

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/phauks/botc-data-sync/internal/catalog"
)

// Phase names the collection that owns a group of fields. Each phase may only
// write fields it owns; ownership is disjoint, which is what makes the merge
// order-independent across phases.
type Phase string

// Merge phases in their usual application order.
const (
	PhaseListing    Phase = "listing"
	PhaseFirstNight Phase = "first_night"
	PhaseOtherNight Phase = "other_night"
	PhaseJinx       Phase = "jinx"
	PhaseReminders  Phase = "reminders"
	PhaseFlavor     Phase = "flavor"
)

// FieldOwners maps each character field to the single phase allowed to write
// it. Kept as data so the disjointness invariant is testable.
var FieldOwners = map[string]Phase{
	"id":                 PhaseListing,
	"name":               PhaseListing,
	"team":               PhaseListing,
	"ability":            PhaseListing,
	"edition":            PhaseListing,
	"image":              PhaseListing,
	"setup":              PhaseListing,
	"firstNight":         PhaseFirstNight,
	"firstNightReminder": PhaseFirstNight,
	"otherNight":         PhaseOtherNight,
	"otherNightReminder": PhaseOtherNight,
	"jinxes":             PhaseJinx,
	"reminders":          PhaseReminders,
	"remindersGlobal":    PhaseReminders,
	"_remindersFetched":  PhaseReminders,
	"flavor":             PhaseFlavor,
	"_flavorFetched":     PhaseFlavor,
}

// SetupClassifier decides the setup flag for a character. The heuristic is
// approximate; see the setupflag package.
type SetupClassifier interface {
	Setup(id, ability string) bool
}

// Engine builds the canonical catalog from extraction output.
type Engine struct {
	classifier SetupClassifier
	logger     *zap.Logger
	rejected   int
}

// New constructs an Engine. classifier may be nil, in which case every setup
// flag is false.
func New(classifier SetupClassifier, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{classifier: classifier, logger: logger}
}

// Rejected returns how many partial records were dropped as validation
// errors since the engine was constructed.
func (e *Engine) Rejected() int { return e.rejected }

// Build runs all primary-source phases over one extraction and returns the
// canonical catalog. Unresolvable night or jinx entries are logged and
// skipped; structural violations return a ConsistencyError.
func (e *Engine) Build(ex catalog.Extraction) (catalog.Catalog, error) {
	cat, err := e.applyListing(ex.Characters)
	if err != nil {
		return nil, err
	}
	if err := e.ApplyNightOrder(cat, ex.FirstNight, PhaseFirstNight); err != nil {
		return nil, err
	}
	if err := e.ApplyNightOrder(cat, ex.OtherNight, PhaseOtherNight); err != nil {
		return nil, err
	}
	e.ApplyJinxes(cat, ex.Jinxes)
	return cat, nil
}

func (e *Engine) applyListing(records []catalog.CoreRecord) (catalog.Catalog, error) {
	cat := make(catalog.Catalog, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			e.reject("", "listing record without id")
			continue
		}
		if _, dup := cat[rec.ID]; dup {
			return nil, &catalog.ConsistencyError{Reason: fmt.Sprintf("duplicate id %q in listing", rec.ID)}
		}
		setup := false
		if e.classifier != nil {
			setup = e.classifier.Setup(rec.ID, rec.Ability)
		}
		cat[rec.ID] = &catalog.Character{
			ID:              rec.ID,
			Name:            rec.Name,
			Team:            rec.Team,
			Ability:         rec.Ability,
			Edition:         rec.Edition,
			Icon:            rec.Icon,
			IconURL:         rec.IconURL,
			Setup:           setup,
			Reminders:       []string{},
			RemindersGlobal: []string{},
		}
	}
	return cat, nil
}

// ApplyNightOrder assigns dense 1..N ranks, in entry order, to the entries
// that resolve against the listing. Unresolvable ids do not consume a rank.
// A second entry for the same id is a structural violation.
func (e *Engine) ApplyNightOrder(cat catalog.Catalog, entries []catalog.NightEntry, phase Phase) error {
	if phase != PhaseFirstNight && phase != PhaseOtherNight {
		return fmt.Errorf("phase %q does not own night order", phase)
	}
	rank := 0
	for _, entry := range entries {
		char, ok := cat[entry.ID]
		if !ok {
			e.reject(entry.ID, string(phase)+" entry for unknown id")
			continue
		}
		rank++
		if phase == PhaseFirstNight {
			if char.FirstNight != 0 {
				return &catalog.ConsistencyError{Reason: fmt.Sprintf("duplicate first-night entry for %q", entry.ID)}
			}
			char.FirstNight = rank
			char.FirstNightReminder = entry.Reminder
		} else {
			if char.OtherNight != 0 {
				return &catalog.ConsistencyError{Reason: fmt.Sprintf("duplicate other-night entry for %q", entry.ID)}
			}
			char.OtherNight = rank
			char.OtherNightReminder = entry.Reminder
		}
	}
	return nil
}

// ApplyJinxes folds the unordered jinx-pair listing into the catalog. Each
// resolvable pair is appended reciprocally to both endpoints; pairs naming an
// unknown id are logged and dropped without touching either endpoint.
func (e *Engine) ApplyJinxes(cat catalog.Catalog, pairs []catalog.JinxPair) {
	for _, p := range pairs {
		a, okA := cat[p.A]
		b, okB := cat[p.B]
		if !okA || !okB {
			missing := p.A
			if okA {
				missing = p.B
			}
			e.reject(missing, fmt.Sprintf("jinx pair (%s, %s) names unknown id", p.A, p.B))
			continue
		}
		a.Jinxes = append(a.Jinxes, catalog.Jinx{ID: p.B, Reason: p.Reason})
		b.Jinxes = append(b.Jinxes, catalog.Jinx{ID: p.A, Reason: p.Reason})
	}
}

// ApplyReminders writes the reminder field class for one character. Owned by
// the enrichment phase; empty token lists are valid results.
func (e *Engine) ApplyReminders(cat catalog.Catalog, id string, tokens, global []string) {
	char, ok := cat[id]
	if !ok {
		e.reject(id, "reminder result for unknown id")
		return
	}
	if tokens == nil {
		tokens = []string{}
	}
	if global == nil {
		global = []string{}
	}
	char.Reminders = tokens
	char.RemindersGlobal = global
	char.RemindersFetched = true
}

// ApplyFlavor writes the flavor field class for one character.
func (e *Engine) ApplyFlavor(cat catalog.Catalog, id, flavor string) {
	char, ok := cat[id]
	if !ok {
		e.reject(id, "flavor result for unknown id")
		return
	}
	char.Flavor = flavor
	char.FlavorFetched = true
}

// CarryReminders copies the reminder field class forward from a previous
// record, used when the staleness detector decides preserve.
func (e *Engine) CarryReminders(cat catalog.Catalog, id string, previous catalog.Character) {
	char, ok := cat[id]
	if !ok {
		return
	}
	char.Reminders = append([]string{}, previous.Reminders...)
	char.RemindersGlobal = append([]string{}, previous.RemindersGlobal...)
	char.RemindersFetched = previous.RemindersFetched
}

// CarryFlavor copies the flavor field class forward from a previous record.
func (e *Engine) CarryFlavor(cat catalog.Catalog, id string, previous catalog.Character) {
	char, ok := cat[id]
	if !ok {
		return
	}
	char.Flavor = previous.Flavor
	char.FlavorFetched = previous.FlavorFetched
}

// Verify checks the structural invariants of a finished catalog: ranks among
// characters acting in a night phase must form a dense 1..N sequence.
func Verify(cat catalog.Catalog) error {
	if err := verifyPhase(cat, PhaseFirstNight); err != nil {
		return err
	}
	return verifyPhase(cat, PhaseOtherNight)
}

func verifyPhase(cat catalog.Catalog, phase Phase) error {
	seen := map[int]string{}
	max := 0
	for id, char := range cat {
		rank := char.FirstNight
		if phase == PhaseOtherNight {
			rank = char.OtherNight
		}
		if rank == 0 {
			continue
		}
		if prev, dup := seen[rank]; dup {
			return &catalog.ConsistencyError{
				Reason: fmt.Sprintf("%s rank %d held by both %q and %q", phase, rank, prev, id),
			}
		}
		seen[rank] = id
		if rank > max {
			max = rank
		}
	}
	if len(seen) != max {
		return &catalog.ConsistencyError{
			Reason: fmt.Sprintf("%s ranks have gaps: %d ranked, max %d", phase, len(seen), max),
		}
	}
	return nil
}

func (e *Engine) reject(id, reason string) {
	e.rejected++
	verr := &catalog.ValidationError{ID: id, Reason: reason}
	e.logger.Warn("record rejected", zap.String("id", id), zap.Error(verr))
}
