// Package store implements the filesystem snapshot store. The working
// snapshot is one JSON file per character under characters/<edition>/, a
// combined listing, and a manifest that is written last so readers never
// observe a manifest pointing at a half-written snapshot.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/phauks/botc-data-sync/internal/catalog"
	"github.com/phauks/botc-data-sync/internal/snapshot"
)

const (
	charactersDir = "characters"
	listingFile   = "all_characters.json"
	manifestFile  = "manifest.json"
	lockFile      = ".sync.lock"
)

// Config captures the parameters for the filesystem store.
type Config struct {
	// BaseDir is the root directory of the working snapshot.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// FS is a snapshot store rooted at a local directory.
type FS struct {
	baseDir string
	logger  *zap.Logger
}

// New creates a filesystem store, creating and probing the base directory.
func New(cfg Config, logger *zap.Logger) (*FS, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("clean up probe file: %w", err)
	}

	return &FS{baseDir: cfg.BaseDir, logger: logger}, nil
}

// resolve joins a relative path against the base directory and rejects
// anything that would escape it.
func (s *FS) resolve(parts ...string) (string, error) {
	full := filepath.Join(append([]string{s.baseDir}, parts...)...)
	cleanBase := filepath.Clean(s.baseDir)
	cleanFull := filepath.Clean(full)
	if !strings.HasPrefix(cleanFull, cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %q", filepath.Join(parts...))
	}
	return cleanFull, nil
}

// Previous loads the last written character records keyed by id. A missing
// snapshot yields an empty map.
func (s *FS) Previous() (map[string]catalog.Character, error) {
	root, err := s.resolve(charactersDir)
	if err != nil {
		return nil, err
	}

	previous := map[string]catalog.Character{}
	editions, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return previous, nil
		}
		return nil, fmt.Errorf("read characters directory: %w", err)
	}

	for _, edition := range editions {
		if !edition.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(root, edition.Name()))
		if err != nil {
			return nil, fmt.Errorf("read edition %q: %w", edition.Name(), err)
		}
		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
				continue
			}
			path := filepath.Join(root, edition.Name(), file.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			var char catalog.Character
			if err := json.Unmarshal(data, &char); err != nil {
				// One corrupt record must not discard the rest of the
				// previous snapshot.
				s.logger.Warn("skipping unreadable snapshot record",
					zap.String("path", path), zap.Error(err))
				continue
			}
			if char.ID == "" {
				continue
			}
			previous[char.ID] = char
		}
	}
	return previous, nil
}

// PreviousManifest returns the last manifest, or nil when none exists.
func (s *FS) PreviousManifest() (*catalog.Manifest, error) {
	path, err := s.resolve(manifestFile)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var manifest catalog.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &manifest, nil
}

// WriteSnapshot writes per-edition records, prunes records the new set no
// longer contains, writes the combined listing, then commits the manifest
// with an atomic rename. Pruning matters when a character changes edition:
// the record file moves directories, and the old copy would otherwise shadow
// the fresh one on the next load.
func (s *FS) WriteSnapshot(chars []catalog.Character, manifest catalog.Manifest) error {
	keep := make(map[string]struct{}, len(chars))
	for _, char := range chars {
		if err := s.writeCharacter(char); err != nil {
			return err
		}
		keep[filepath.Join(editionDir(char), char.ID+".json")] = struct{}{}
	}
	if err := s.pruneSuperseded(keep); err != nil {
		return err
	}

	stripped := make([]catalog.Character, 0, len(chars))
	for _, char := range chars {
		stripped = append(stripped, snapshot.Strip(char))
	}
	if err := s.writeJSON(stripped, listingFile); err != nil {
		return err
	}
	return s.commitManifest(manifest)
}

func (s *FS) writeCharacter(char catalog.Character) error {
	if char.ID == "" {
		return &catalog.ValidationError{Reason: "cannot store record without id"}
	}
	return s.writeJSON(char, charactersDir, editionDir(char), char.ID+".json")
}

func editionDir(char catalog.Character) string {
	if char.Edition == "" {
		return "unknown"
	}
	return char.Edition
}

// pruneSuperseded deletes per-edition record files that are not part of the
// set just written, along with edition directories left empty. keep holds
// <edition>/<id>.json paths relative to the characters directory.
func (s *FS) pruneSuperseded(keep map[string]struct{}) error {
	root, err := s.resolve(charactersDir)
	if err != nil {
		return err
	}
	editions, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read characters directory: %w", err)
	}

	for _, edition := range editions {
		if !edition.IsDir() {
			continue
		}
		dir := filepath.Join(root, edition.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read edition %q: %w", edition.Name(), err)
		}
		remaining := 0
		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
				remaining++
				continue
			}
			if _, ok := keep[filepath.Join(edition.Name(), file.Name())]; ok {
				remaining++
				continue
			}
			path := filepath.Join(dir, file.Name())
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("prune superseded record %s: %w", path, err)
			}
			s.logger.Info("pruned superseded record", zap.String("path", path))
		}
		if remaining == 0 {
			if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove empty edition directory %s: %w", dir, err)
			}
		}
	}
	return nil
}

func (s *FS) writeJSON(v any, parts ...string) error {
	path, err := s.resolve(parts...)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create parent directories: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// commitManifest writes to a temp file in the same directory and renames it
// into place, so a crash mid-write leaves the old manifest intact.
func (s *FS) commitManifest(manifest catalog.Manifest) error {
	path, err := s.resolve(manifestFile)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), manifestFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("create manifest temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write manifest temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close manifest temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod manifest temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("commit manifest: %w", err)
	}
	return nil
}

// Lock takes the exclusive run lock. Concurrent runs against one base
// directory would interleave partial snapshots.
func (s *FS) Lock() (func(), error) {
	path, err := s.resolve(lockFile)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("another run holds the lock at %s", path)
		}
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	fmt.Fprintf(f, "pid %d\n", os.Getpid())
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close lock file: %w", err)
	}

	release := func() {
		if err := os.Remove(path); err != nil {
			s.logger.Warn("failed to release run lock", zap.Error(err))
		}
	}
	return release, nil
}
