// Package packager builds the distribution package: a dist/ directory with
// characters.json and manifest.json, ready to zip alongside icons for a
// release. It can also verify an existing package against its manifest.
package packager

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/phauks/botc-data-sync/internal/catalog"
	"github.com/phauks/botc-data-sync/internal/hash/sha256"
	"github.com/phauks/botc-data-sync/internal/snapshot"
)

const (
	charactersFile = "characters.json"
	manifestFile   = "manifest.json"
)

// Packager writes and verifies distribution packages.
type Packager struct {
	hasher catalog.Hasher
	logger *zap.Logger
}

// New constructs a Packager.
func New(hasher catalog.Hasher, logger *zap.Logger) *Packager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Packager{hasher: hasher, logger: logger}
}

// Package writes the distribution files for a finalized snapshot. Records
// are stripped of internal bookkeeping before they leave the working tree.
func (p *Packager) Package(cat catalog.Catalog, manifest catalog.Manifest, distDir string) error {
	if err := os.MkdirAll(distDir, 0o750); err != nil {
		return fmt.Errorf("create dist directory: %w", err)
	}

	canonical, err := snapshot.Canonical(cat)
	if err != nil {
		return err
	}
	if err := p.writePretty(canonical, filepath.Join(distDir, charactersFile)); err != nil {
		return err
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(distDir, manifestFile), data, 0o600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	p.logger.Info("distribution package written",
		zap.String("dir", distDir),
		zap.String("version", manifest.Version),
		zap.String("contentHash", manifest.ContentHash),
		zap.Int("characters", manifest.TotalCharacters),
	)
	return nil
}

// writePretty re-indents the canonical listing for human-readable diffs.
// The hash is always computed over the compact canonical form, not this
// file's bytes.
func (p *Packager) writePretty(canonical []byte, path string) error {
	var records []catalog.Character
	if err := json.Unmarshal(canonical, &records); err != nil {
		return fmt.Errorf("decode canonical listing: %w", err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode listing: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Verify recomputes the content hash of an existing package and checks it
// against the manifest. A mismatch is a catalog.ConsistencyError.
func (p *Packager) Verify(distDir string) (*catalog.Manifest, error) {
	manifestData, err := os.ReadFile(filepath.Join(distDir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("read package manifest: %w", err)
	}
	var manifest catalog.Manifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		return nil, fmt.Errorf("decode package manifest: %w", err)
	}

	charsData, err := os.ReadFile(filepath.Join(distDir, charactersFile))
	if err != nil {
		return nil, fmt.Errorf("read package listing: %w", err)
	}
	var records []catalog.Character
	if err := json.Unmarshal(charsData, &records); err != nil {
		return nil, fmt.Errorf("decode package listing: %w", err)
	}

	cat := make(catalog.Catalog, len(records))
	for i := range records {
		cat[records[i].ID] = &records[i]
	}
	canonical, err := snapshot.Canonical(cat)
	if err != nil {
		return nil, err
	}
	digest, err := p.hasher.Hash(canonical)
	if err != nil {
		return nil, fmt.Errorf("hash package listing: %w", err)
	}
	computed := sha256.Short(digest)

	if computed != manifest.ContentHash {
		return nil, &catalog.ConsistencyError{
			Reason: fmt.Sprintf("package hash mismatch: manifest %s, computed %s", manifest.ContentHash, computed),
		}
	}
	if manifest.TotalCharacters != len(records) {
		return nil, &catalog.ConsistencyError{
			Reason: fmt.Sprintf("package count mismatch: manifest %d, listing %d", manifest.TotalCharacters, len(records)),
		}
	}
	return &manifest, nil
}
