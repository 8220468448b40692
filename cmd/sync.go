package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phauks/botc-data-sync/internal/batch"
	"github.com/phauks/botc-data-sync/internal/clock/system"
	"github.com/phauks/botc-data-sync/internal/config"
	"github.com/phauks/botc-data-sync/internal/fetch"
	"github.com/phauks/botc-data-sync/internal/hash/sha256"
	"github.com/phauks/botc-data-sync/internal/id/uuid"
	"github.com/phauks/botc-data-sync/internal/merge"
	"github.com/phauks/botc-data-sync/internal/pipeline"
	"github.com/phauks/botc-data-sync/internal/scrape"
	"github.com/phauks/botc-data-sync/internal/setupflag"
	"github.com/phauks/botc-data-sync/internal/snapshot"
	"github.com/phauks/botc-data-sync/internal/store"
	"github.com/phauks/botc-data-sync/internal/wiki"
)

// syncOptions holds the flag values for one 'sync' invocation.
type syncOptions struct {
	forceRefetch bool
	editions     bool
	reminders    bool
	flavor       bool
	all          bool
	validate     bool
	doPackage    bool
	timeout      time.Duration
}

// enrichment resolves the selection flags into per-class toggles. With no
// selection flag everything runs; --editions alone skips enrichment entirely.
func (o syncOptions) enrichment() (reminders, flavor bool) {
	if o.all || (!o.editions && !o.reminders && !o.flavor) {
		return true, true
	}
	return o.reminders, o.flavor
}

// newSyncCmd creates the 'sync' subcommand: one full incremental run.
func newSyncCmd() *cobra.Command {
	var opts syncOptions

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Runs one full catalog sync",
		Long: `Extracts the character listings from the script tool, decides per
character which wiki-derived fields are stale, fetches only those, and
writes a new working snapshot with a content-addressed manifest.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.forceRefetch, "force-refetch", false, "refetch wiki data for every character, ignoring staleness")
	cmd.Flags().BoolVar(&opts.editions, "editions", false, "extract core character data only, skipping wiki enrichment")
	cmd.Flags().BoolVar(&opts.reminders, "reminders", false, "enrich reminder tokens")
	cmd.Flags().BoolVar(&opts.flavor, "flavor", false, "enrich flavor text")
	cmd.Flags().BoolVar(&opts.all, "all", false, "run every stage (the default when no stage flag is given)")
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "fail the run when any record violates the schema")
	cmd.Flags().BoolVar(&opts.doPackage, "package", false, "build the distribution package after a successful sync")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "run budget override (default from config)")
	return cmd
}

func runSync(parent context.Context, opts syncOptions) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	budget := cfg.RunBudget()
	if opts.timeout > 0 {
		budget = opts.timeout
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	p, closeFn, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	p.ForceRefetch = opts.forceRefetch || cfg.Run.ForceRefetch
	p.EnrichReminders, p.EnrichFlavor = opts.enrichment()
	p.StrictValidate = opts.validate

	outcome, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("sync run: %w", err)
	}

	if outcome.NewRelease {
		logger.Info("new release required",
			zap.String("version", outcome.Manifest.Version),
			zap.String("contentHash", outcome.Manifest.ContentHash),
		)
	} else {
		logger.Info("content unchanged, no new release required",
			zap.String("version", outcome.Manifest.Version),
		)
	}

	if opts.doPackage {
		return packageFromStore(cfg, logger)
	}
	return nil
}

// buildPipeline assembles the run collaborators from config. The returned
// close function releases the headless browser allocator.
func buildPipeline(cfg config.Config, logger *zap.Logger) (*pipeline.Pipeline, func(), error) {
	fetcher := fetch.New(fetch.Config{
		AllowedHosts: cfg.HTTP.AllowedHosts,
		UserAgent:    cfg.HTTP.UserAgent,
		Timeout:      cfg.HTTPTimeout(),
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		MinInterval:  time.Duration(cfg.HTTP.RateLimitMs) * time.Millisecond,
	}, fetch.RetryPolicy{
		MaxRetries: cfg.HTTP.MaxRetries,
		BaseDelay:  time.Duration(cfg.HTTP.BackoffInitialMs) * time.Millisecond,
		MaxDelay:   time.Duration(cfg.HTTP.BackoffMaxMs) * time.Millisecond,
	}, logger.Named("fetch"))

	page := scrape.New(scrape.Config{
		URL:               cfg.Scrape.URL,
		IconBaseURL:       cfg.Scrape.IconBaseURL,
		UserAgent:         cfg.HTTP.UserAgent,
		NavigationTimeout: time.Duration(cfg.Scrape.NavTimeoutSec) * time.Second,
		RenderDelay:       time.Duration(cfg.Scrape.RenderDelayMs) * time.Millisecond,
		ClickDelay:        time.Duration(cfg.Scrape.ClickDelayMs) * time.Millisecond,
	}, logger.Named("scrape"))

	fsStore, err := store.New(store.Config{BaseDir: cfg.Store.DataDir}, logger.Named("store"))
	if err != nil {
		page.Close()
		return nil, nil, fmt.Errorf("open snapshot store: %w", err)
	}

	p := pipeline.New(
		page,
		wiki.NewClient(fetcher, cfg.Wiki.BaseURL),
		merge.New(setupflag.New(), logger.Named("merge")),
		batch.New(fetcher, cfg.Wiki.Concurrency, logger.Named("batch")),
		snapshot.New(sha256.New(), system.New(), uuid.New(), cfg.Scrape.URL, cfg.Wiki.BaseURL),
		fsStore,
		logger.Named("pipeline"),
	)
	return p, page.Close, nil
}
