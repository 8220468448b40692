package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phauks/botc-data-sync/internal/hash/sha256"
	"github.com/phauks/botc-data-sync/internal/packager"
)

// newVerifyCmd creates the 'verify' subcommand: checks an existing
// distribution package against its manifest.
func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verifies the distribution package against its manifest",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runVerify()
		},
	}
}

func runVerify() error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	pkg := packager.New(sha256.New(), logger.Named("packager"))
	manifest, err := pkg.Verify(cfg.Store.DistDir)
	if err != nil {
		return fmt.Errorf("verify package: %w", err)
	}

	logger.Info("package verified",
		zap.String("version", manifest.Version),
		zap.String("contentHash", manifest.ContentHash),
		zap.Int("characters", manifest.TotalCharacters),
	)
	return nil
}
