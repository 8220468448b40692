// Package pipeline orchestrates one full sync run: primary extraction,
// merge, staleness decisions, bounded wiki enrichment, verification, and
// snapshot publication.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/phauks/botc-data-sync/internal/batch"
	"github.com/phauks/botc-data-sync/internal/catalog"
	"github.com/phauks/botc-data-sync/internal/merge"
	"github.com/phauks/botc-data-sync/internal/schema"
	"github.com/phauks/botc-data-sync/internal/snapshot"
	"github.com/phauks/botc-data-sync/internal/staleness"
	"github.com/phauks/botc-data-sync/internal/telemetry"
	"github.com/phauks/botc-data-sync/internal/wiki"
)

// Pipeline holds the collaborators for a sync run.
type Pipeline struct {
	page         catalog.PageClient
	wiki         *wiki.Client
	engine       *merge.Engine
	orchestrator *batch.Orchestrator
	finalizer    *snapshot.Manager
	store        catalog.SnapshotStore
	logger       *zap.Logger

	// ForceRefetch overrides every staleness decision to refetch.
	ForceRefetch bool
	// EnrichReminders and EnrichFlavor gate their enrichment class for the
	// whole run. A disabled class is never fetched; previous values are
	// carried where they exist.
	EnrichReminders bool
	EnrichFlavor    bool
	// StrictValidate aborts publication when any record fails validation.
	StrictValidate bool
}

// New wires a Pipeline.
func New(
	page catalog.PageClient,
	wikiClient *wiki.Client,
	engine *merge.Engine,
	orchestrator *batch.Orchestrator,
	finalizer *snapshot.Manager,
	store catalog.SnapshotStore,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		page:            page,
		wiki:            wikiClient,
		engine:          engine,
		orchestrator:    orchestrator,
		finalizer:       finalizer,
		store:           store,
		logger:          logger,
		EnrichReminders: true,
		EnrichFlavor:    true,
	}
}

// Outcome summarizes a finished run.
type Outcome struct {
	Manifest   catalog.Manifest
	NewRelease bool
	Fetched    int
	Preserved  int
	Failed     int
	Rejected   int
	Violations int
}

// decisions holds the two field-class decisions for one character.
type decisions struct {
	reminders staleness.Decision
	flavor    staleness.Decision
}

func (d decisions) needsFetch() bool {
	return d.reminders == staleness.Refetch || d.flavor == staleness.Refetch
}

// Run executes one sync run under the given context, which bounds the whole
// run including enrichment.
func (p *Pipeline) Run(ctx context.Context) (Outcome, error) {
	start := time.Now()
	outcome, err := p.run(ctx)
	if err != nil {
		telemetry.ObserveRun("error", time.Since(start))
		return outcome, err
	}
	telemetry.ObserveRun("ok", time.Since(start))
	return outcome, nil
}

func (p *Pipeline) run(ctx context.Context) (Outcome, error) {
	release, err := p.store.Lock()
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	extraction, err := p.page.Extract(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("primary extraction: %w", err)
	}
	p.logger.Info("primary extraction complete",
		zap.Int("characters", len(extraction.Characters)),
		zap.Int("firstNight", len(extraction.FirstNight)),
		zap.Int("otherNight", len(extraction.OtherNight)),
		zap.Int("jinxes", len(extraction.Jinxes)),
	)

	cat, err := p.engine.Build(extraction)
	if err != nil {
		return Outcome{}, err
	}

	previous, err := p.store.Previous()
	if err != nil {
		return Outcome{}, fmt.Errorf("load previous snapshot: %w", err)
	}

	fresh := make(map[string]catalog.CoreRecord, len(extraction.Characters))
	for _, rec := range extraction.Characters {
		fresh[rec.ID] = rec
	}

	var outcome Outcome
	decided := make(map[string]decisions, len(cat))
	var requests []batch.Request

	for _, char := range cat.Sorted() {
		rec := fresh[char.ID]
		var prev *catalog.Character
		if pc, ok := previous[char.ID]; ok {
			prev = &pc
		}

		d := decisions{
			reminders: staleness.Decide(rec, prev, staleness.Reminders),
			flavor:    staleness.Decide(rec, prev, staleness.Flavor),
		}
		if p.ForceRefetch {
			d = decisions{reminders: staleness.Refetch, flavor: staleness.Refetch}
		}
		if !p.EnrichReminders {
			d.reminders = staleness.Preserve
		}
		if !p.EnrichFlavor {
			d.flavor = staleness.Preserve
		}
		telemetry.ObserveStaleness("reminders", d.reminders.String())
		telemetry.ObserveStaleness("flavor", d.flavor.String())

		if d.reminders == staleness.Preserve && prev != nil {
			p.engine.CarryReminders(cat, char.ID, *prev)
		}
		if d.flavor == staleness.Preserve && prev != nil {
			p.engine.CarryFlavor(cat, char.ID, *prev)
		}
		if !d.needsFetch() {
			outcome.Preserved++
			continue
		}

		url, err := p.wiki.PageURL(char.Name)
		if err != nil {
			// Invalid names never reach the network; carry what we have.
			p.logger.Warn("skipping wiki fetch for invalid name",
				zap.String("id", char.ID), zap.Error(err))
			p.carryAll(cat, char.ID, previous)
			outcome.Failed++
			continue
		}
		decided[char.ID] = d
		requests = append(requests, batch.Request{ID: char.ID, URL: url})
	}

	results := p.orchestrator.Fetch(ctx, requests)
	for id, d := range decided {
		result, ok := results[id]
		if !ok || result.Err != nil {
			// A failed enrichment keeps previous values and stays eligible
			// for refetch next run.
			p.carryAll(cat, id, previous)
			outcome.Failed++
			continue
		}
		p.applyEnrichment(cat, id, d, result.Body, previous)
		outcome.Fetched++
	}

	if err := merge.Verify(cat); err != nil {
		return outcome, err
	}

	violations := schema.ValidateAll(cat)
	for id, errs := range violations {
		for _, verr := range errs {
			p.logger.Warn("schema violation", zap.String("id", id), zap.Error(verr))
		}
	}
	outcome.Violations = len(violations)
	outcome.Rejected = p.engine.Rejected()
	if p.StrictValidate && len(violations) > 0 {
		return outcome, fmt.Errorf("validation failed for %d characters", len(violations))
	}

	prevManifest, err := p.store.PreviousManifest()
	if err != nil {
		return outcome, fmt.Errorf("load previous manifest: %w", err)
	}
	manifest, newRelease, err := p.finalizer.Finalize(cat, prevManifest)
	if err != nil {
		return outcome, err
	}

	sorted := cat.Sorted()
	if err := p.store.WriteSnapshot(sorted, manifest); err != nil {
		return outcome, fmt.Errorf("write snapshot: %w", err)
	}

	outcome.Manifest = manifest
	outcome.NewRelease = newRelease
	p.logger.Info("sync run complete",
		zap.String("version", manifest.Version),
		zap.String("contentHash", manifest.ContentHash),
		zap.Bool("newRelease", newRelease),
		zap.Int("fetched", outcome.Fetched),
		zap.Int("preserved", outcome.Preserved),
		zap.Int("failed", outcome.Failed),
		zap.Int("rejected", outcome.Rejected),
	)
	return outcome, nil
}

// applyEnrichment parses one fetched wiki page for whichever field classes
// were decided stale, carrying the rest forward.
func (p *Pipeline) applyEnrichment(cat catalog.Catalog, id string, d decisions, body []byte, previous map[string]catalog.Character) {
	char, ok := cat[id]
	if !ok {
		return
	}

	if d.reminders == staleness.Refetch {
		tokens, err := wiki.Reminders(id, char.Name, body)
		if err != nil {
			p.logger.Warn("reminder extraction failed", zap.String("id", id), zap.Error(err))
			p.carryReminders(cat, id, previous)
		} else {
			p.engine.ApplyReminders(cat, id, tokens, nil)
		}
	}

	if d.flavor == staleness.Refetch {
		flavor, err := wiki.Flavor(body)
		if err != nil {
			p.logger.Warn("flavor extraction failed", zap.String("id", id), zap.Error(err))
			p.carryFlavor(cat, id, previous)
		} else {
			p.engine.ApplyFlavor(cat, id, flavor)
		}
	}
}

func (p *Pipeline) carryAll(cat catalog.Catalog, id string, previous map[string]catalog.Character) {
	p.carryReminders(cat, id, previous)
	p.carryFlavor(cat, id, previous)
}

func (p *Pipeline) carryReminders(cat catalog.Catalog, id string, previous map[string]catalog.Character) {
	if prev, ok := previous[id]; ok {
		p.engine.CarryReminders(cat, id, prev)
	}
}

func (p *Pipeline) carryFlavor(cat catalog.Catalog, id string, previous map[string]catalog.Character) {
	if prev, ok := previous[id]; ok {
		p.engine.CarryFlavor(cat, id, prev)
	}
}
