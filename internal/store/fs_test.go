package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phauks/botc-data-sync/internal/catalog"
)

func newStore(t *testing.T) *FS {
	t.Helper()
	s, err := New(Config{BaseDir: t.TempDir()}, nil)
	require.NoError(t, err)
	return s
}

func sampleChars() []catalog.Character {
	return []catalog.Character{
		{
			ID:               "imp",
			Name:             "Imp",
			Team:             catalog.TeamDemon,
			Ability:          "Each night*, choose a player: they die.",
			Edition:          "tb",
			Reminders:        []string{"DEAD"},
			RemindersFetched: true,
		},
		{
			ID:      "goon",
			Name:    "Goon",
			Team:    catalog.TeamOutsider,
			Ability: "Each night, the first player to choose you is drunk.",
			Edition: "bmr",
		},
	}
}

func sampleManifest() catalog.Manifest {
	return catalog.Manifest{
		SchemaVersion:   catalog.SchemaVersion,
		Version:         "2026.03.01",
		Generated:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		RunID:           "run-1",
		ContentHash:     "abcdefabcdefabcd",
		TotalCharacters: 2,
	}
}

func TestNew_RequiresBaseDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil)
	require.Error(t, err)
}

func TestPrevious_MissingSnapshotIsEmptyNotError(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	previous, err := s.Previous()
	require.NoError(t, err)
	require.Empty(t, previous)
}

func TestPreviousManifest_MissingIsNil(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	manifest, err := s.PreviousManifest()
	require.NoError(t, err)
	require.Nil(t, manifest)
}

func TestWriteSnapshot_RoundTrip(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	require.NoError(t, s.WriteSnapshot(sampleChars(), sampleManifest()))

	previous, err := s.Previous()
	require.NoError(t, err)
	require.Len(t, previous, 2)
	require.Equal(t, "Imp", previous["imp"].Name)
	require.True(t, previous["imp"].RemindersFetched, "bookkeeping must survive in the working snapshot")
	require.Equal(t, []string{"DEAD"}, previous["imp"].Reminders)

	manifest, err := s.PreviousManifest()
	require.NoError(t, err)
	require.NotNil(t, manifest)
	require.Equal(t, "2026.03.01", manifest.Version)
	require.Equal(t, "abcdefabcdefabcd", manifest.ContentHash)
}

func TestWriteSnapshot_LayoutByEdition(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(Config{BaseDir: dir}, nil)
	require.NoError(t, err)
	require.NoError(t, s.WriteSnapshot(sampleChars(), sampleManifest()))

	require.FileExists(t, filepath.Join(dir, "characters", "tb", "imp.json"))
	require.FileExists(t, filepath.Join(dir, "characters", "bmr", "goon.json"))
	require.FileExists(t, filepath.Join(dir, "all_characters.json"))
	require.FileExists(t, filepath.Join(dir, "manifest.json"))
}

func TestWriteSnapshot_CombinedListingIsStripped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(Config{BaseDir: dir}, nil)
	require.NoError(t, err)
	require.NoError(t, s.WriteSnapshot(sampleChars(), sampleManifest()))

	data, err := os.ReadFile(filepath.Join(dir, "all_characters.json"))
	require.NoError(t, err)
	require.NotContains(t, string(data), "_remindersFetched")
}

func TestWriteSnapshot_RejectsRecordWithoutID(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	err := s.WriteSnapshot([]catalog.Character{{Name: "Nameless"}}, sampleManifest())

	var verr *catalog.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestWriteSnapshot_EditionMoveSupersedesOldRecord(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(Config{BaseDir: dir}, nil)
	require.NoError(t, err)

	first := []catalog.Character{{ID: "acrobat", Name: "Acrobat", Edition: "tb", Ability: "old"}}
	require.NoError(t, s.WriteSnapshot(first, sampleManifest()))

	moved := []catalog.Character{{ID: "acrobat", Name: "Acrobat", Edition: "snv", Ability: "new"}}
	require.NoError(t, s.WriteSnapshot(moved, sampleManifest()))

	require.NoFileExists(t, filepath.Join(dir, "characters", "tb", "acrobat.json"))
	require.NoDirExists(t, filepath.Join(dir, "characters", "tb"))
	require.FileExists(t, filepath.Join(dir, "characters", "snv", "acrobat.json"))

	previous, err := s.Previous()
	require.NoError(t, err)
	require.Len(t, previous, 1)
	require.Equal(t, "snv", previous["acrobat"].Edition)
	require.Equal(t, "new", previous["acrobat"].Ability)
}

func TestWriteSnapshot_RemovedCharacterIsPruned(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(Config{BaseDir: dir}, nil)
	require.NoError(t, err)
	require.NoError(t, s.WriteSnapshot(sampleChars(), sampleManifest()))

	kept := []catalog.Character{sampleChars()[0]}
	require.NoError(t, s.WriteSnapshot(kept, sampleManifest()))

	require.NoFileExists(t, filepath.Join(dir, "characters", "bmr", "goon.json"))
	require.FileExists(t, filepath.Join(dir, "characters", "tb", "imp.json"))

	previous, err := s.Previous()
	require.NoError(t, err)
	require.Len(t, previous, 1)
	require.Contains(t, previous, "imp")
}

func TestPrevious_SkipsCorruptRecords(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(Config{BaseDir: dir}, nil)
	require.NoError(t, err)
	require.NoError(t, s.WriteSnapshot(sampleChars(), sampleManifest()))

	corrupt := filepath.Join(dir, "characters", "tb", "broken.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o600))

	previous, err := s.Previous()
	require.NoError(t, err)
	require.Len(t, previous, 2)
}

func TestLock_SecondAcquireFailsUntilReleased(t *testing.T) {
	t.Parallel()

	s := newStore(t)

	release, err := s.Lock()
	require.NoError(t, err)

	_, err = s.Lock()
	require.Error(t, err, "a second run must not proceed while the lock is held")

	release()
	release2, err := s.Lock()
	require.NoError(t, err)
	release2()
}

func TestManifest_CommitIsAtomicRename(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(Config{BaseDir: dir}, nil)
	require.NoError(t, err)
	require.NoError(t, s.WriteSnapshot(sampleChars(), sampleManifest()))

	// No temp files left behind after a successful commit.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), ".tmp-")
	}

	// The committed manifest decodes cleanly.
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	var m catalog.Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	require.Equal(t, catalog.SchemaVersion, m.SchemaVersion)
}
