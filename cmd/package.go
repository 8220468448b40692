package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phauks/botc-data-sync/internal/catalog"
	"github.com/phauks/botc-data-sync/internal/config"
	"github.com/phauks/botc-data-sync/internal/hash/sha256"
	"github.com/phauks/botc-data-sync/internal/packager"
	"github.com/phauks/botc-data-sync/internal/store"
)

// newPackageCmd creates the 'package' subcommand: builds the distribution
// directory from the current working snapshot.
func newPackageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "package",
		Short: "Builds the distribution package from the working snapshot",
		Long: `Reads the last written snapshot and its manifest and produces
dist/characters.json and dist/manifest.json, ready to publish with icons.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runPackage()
		},
	}
}

func runPackage() error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return packageFromStore(cfg, logger)
}

// packageFromStore rebuilds the distribution directory from the last written
// snapshot. Shared by 'package' and by 'sync --package'.
func packageFromStore(cfg config.Config, logger *zap.Logger) error {
	fsStore, err := store.New(store.Config{BaseDir: cfg.Store.DataDir}, logger.Named("store"))
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}

	manifest, err := fsStore.PreviousManifest()
	if err != nil {
		return err
	}
	if manifest == nil {
		return fmt.Errorf("no snapshot to package, run sync first")
	}
	records, err := fsStore.Previous()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("snapshot is empty, run sync first")
	}

	cat := make(catalog.Catalog, len(records))
	for id := range records {
		char := records[id]
		cat[id] = &char
	}

	pkg := packager.New(sha256.New(), logger.Named("packager"))
	if err := pkg.Package(cat, *manifest, cfg.Store.DistDir); err != nil {
		return fmt.Errorf("build package: %w", err)
	}
	logger.Info("package built",
		zap.String("dir", cfg.Store.DistDir),
		zap.String("version", manifest.Version),
	)
	return nil
}
