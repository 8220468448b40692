package merge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phauks/botc-data-sync/internal/catalog"
)

type stubClassifier struct {
	flagged map[string]bool
}

func (s *stubClassifier) Setup(id, _ string) bool { return s.flagged[id] }

func listing(ids ...string) []catalog.CoreRecord {
	records := make([]catalog.CoreRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, catalog.CoreRecord{
			ID:      id,
			Name:    "Name " + id,
			Team:    catalog.TeamTownsfolk,
			Ability: "Ability of " + id,
			Edition: "tb",
		})
	}
	return records
}

func TestBuild_ListingPopulatesRecords(t *testing.T) {
	t.Parallel()

	e := New(&stubClassifier{flagged: map[string]bool{"drunk": true}}, nil)
	cat, err := e.Build(catalog.Extraction{
		Characters: append(listing("imp", "drunk"), catalog.CoreRecord{}),
	})
	require.NoError(t, err)
	require.Len(t, cat, 2)
	require.True(t, cat["drunk"].Setup)
	require.False(t, cat["imp"].Setup)
	require.Equal(t, 1, e.Rejected())
	require.NotNil(t, cat["imp"].Reminders)
	require.NotNil(t, cat["imp"].RemindersGlobal)
}

func TestBuild_DuplicateListingIDFails(t *testing.T) {
	t.Parallel()

	e := New(nil, nil)
	_, err := e.Build(catalog.Extraction{Characters: listing("imp", "imp")})

	var cerr *catalog.ConsistencyError
	require.ErrorAs(t, err, &cerr)
}

func TestApplyNightOrder_DenseRanksSkipUnknownIDs(t *testing.T) {
	t.Parallel()

	e := New(nil, nil)
	cat, err := e.Build(catalog.Extraction{Characters: listing("poisoner", "imp", "empath")})
	require.NoError(t, err)

	entries := []catalog.NightEntry{
		{ID: "poisoner", Reminder: "wake the poisoner"},
		{ID: "notreal"},
		{ID: "empath", Reminder: "show fingers"},
		{ID: "imp"},
	}
	require.NoError(t, e.ApplyNightOrder(cat, entries, PhaseFirstNight))

	// The unknown id must not consume a rank.
	require.Equal(t, 1, cat["poisoner"].FirstNight)
	require.Equal(t, 2, cat["empath"].FirstNight)
	require.Equal(t, 3, cat["imp"].FirstNight)
	require.Equal(t, "show fingers", cat["empath"].FirstNightReminder)
	require.NoError(t, Verify(cat))
}

func TestApplyNightOrder_DuplicateEntryFails(t *testing.T) {
	t.Parallel()

	e := New(nil, nil)
	cat, err := e.Build(catalog.Extraction{Characters: listing("imp")})
	require.NoError(t, err)

	entries := []catalog.NightEntry{{ID: "imp"}, {ID: "imp"}}
	err = e.ApplyNightOrder(cat, entries, PhaseOtherNight)

	var cerr *catalog.ConsistencyError
	require.ErrorAs(t, err, &cerr)
}

func TestApplyNightOrder_RejectsNonNightPhase(t *testing.T) {
	t.Parallel()

	e := New(nil, nil)
	err := e.ApplyNightOrder(catalog.Catalog{}, nil, PhaseJinx)
	require.Error(t, err)
}

func TestApplyJinxes_Reciprocal(t *testing.T) {
	t.Parallel()

	e := New(nil, nil)
	cat, err := e.Build(catalog.Extraction{Characters: listing("chambermaid", "mathematician")})
	require.NoError(t, err)

	e.ApplyJinxes(cat, []catalog.JinxPair{
		{A: "chambermaid", B: "mathematician", Reason: "wake order changes"},
	})

	require.Equal(t, []catalog.Jinx{{ID: "mathematician", Reason: "wake order changes"}}, cat["chambermaid"].Jinxes)
	require.Equal(t, []catalog.Jinx{{ID: "chambermaid", Reason: "wake order changes"}}, cat["mathematician"].Jinxes)
}

func TestApplyJinxes_DanglingPairTouchesNeitherEndpoint(t *testing.T) {
	t.Parallel()

	e := New(nil, nil)
	cat, err := e.Build(catalog.Extraction{Characters: listing("imp")})
	require.NoError(t, err)

	e.ApplyJinxes(cat, []catalog.JinxPair{{A: "imp", B: "ghost", Reason: "nope"}})

	require.Empty(t, cat["imp"].Jinxes)
	require.Equal(t, 1, e.Rejected())
}

func TestApplyReminders_EmptyListIsValid(t *testing.T) {
	t.Parallel()

	e := New(nil, nil)
	cat, err := e.Build(catalog.Extraction{Characters: listing("virgin")})
	require.NoError(t, err)

	e.ApplyReminders(cat, "virgin", nil, nil)

	require.True(t, cat["virgin"].RemindersFetched)
	require.NotNil(t, cat["virgin"].Reminders)
	require.Empty(t, cat["virgin"].Reminders)
}

func TestCarry_PreservesPreviousValues(t *testing.T) {
	t.Parallel()

	e := New(nil, nil)
	cat, err := e.Build(catalog.Extraction{Characters: listing("monk")})
	require.NoError(t, err)

	previous := catalog.Character{
		Reminders:        []string{"SAFE"},
		RemindersFetched: true,
		Flavor:           "A quiet contemplative.",
		FlavorFetched:    true,
	}
	e.CarryReminders(cat, "monk", previous)
	e.CarryFlavor(cat, "monk", previous)

	require.Equal(t, []string{"SAFE"}, cat["monk"].Reminders)
	require.True(t, cat["monk"].RemindersFetched)
	require.Equal(t, "A quiet contemplative.", cat["monk"].Flavor)
	require.True(t, cat["monk"].FlavorFetched)
}

func TestVerify_DetectsRankGap(t *testing.T) {
	t.Parallel()

	cat := catalog.Catalog{
		"a": {ID: "a", FirstNight: 1},
		"b": {ID: "b", FirstNight: 3},
	}
	err := Verify(cat)

	var cerr *catalog.ConsistencyError
	require.ErrorAs(t, err, &cerr)
}

func TestVerify_DetectsDuplicateRank(t *testing.T) {
	t.Parallel()

	cat := catalog.Catalog{
		"a": {ID: "a", OtherNight: 2},
		"b": {ID: "b", OtherNight: 2},
	}
	require.Error(t, Verify(cat))
}

func TestFieldOwners_Disjoint(t *testing.T) {
	t.Parallel()

	// Each field has exactly one owner by construction of the map; the
	// valuable property is that every phase owns at least one field and no
	// field is unowned.
	owned := map[Phase]int{}
	for _, phase := range FieldOwners {
		owned[phase]++
	}
	for _, phase := range []Phase{PhaseListing, PhaseFirstNight, PhaseOtherNight, PhaseJinx, PhaseReminders, PhaseFlavor} {
		require.Positive(t, owned[phase], "phase %s owns no fields", phase)
	}
}

func TestBuild_OrderIndependentAcrossPhases(t *testing.T) {
	t.Parallel()

	ex := catalog.Extraction{
		Characters: listing("imp", "monk", "poisoner"),
		FirstNight: []catalog.NightEntry{{ID: "poisoner"}, {ID: "monk"}},
		OtherNight: []catalog.NightEntry{{ID: "monk"}, {ID: "imp"}},
		Jinxes:     []catalog.JinxPair{{A: "imp", B: "monk", Reason: "r"}},
	}

	e1 := New(nil, nil)
	first, err := e1.Build(ex)
	require.NoError(t, err)

	// Applying night phases in the opposite order yields the same catalog.
	e2 := New(nil, nil)
	second, err := e2.applyListing(ex.Characters)
	require.NoError(t, err)
	require.NoError(t, e2.ApplyNightOrder(second, ex.OtherNight, PhaseOtherNight))
	require.NoError(t, e2.ApplyNightOrder(second, ex.FirstNight, PhaseFirstNight))
	e2.ApplyJinxes(second, ex.Jinxes)

	require.Equal(t, first, second)
}

func TestApplyReminders_UnknownIDCountsAsRejection(t *testing.T) {
	t.Parallel()

	e := New(nil, nil)
	cat := catalog.Catalog{}
	e.ApplyReminders(cat, "ghost", []string{"DEAD"}, nil)
	e.ApplyFlavor(cat, "ghost", "boo")
	require.Equal(t, 2, e.Rejected())
}

func TestConsistencyErrorMatchesErrorsAs(t *testing.T) {
	t.Parallel()

	err := error(&catalog.ConsistencyError{Reason: "x"})
	var target *catalog.ConsistencyError
	require.True(t, errors.As(err, &target))
}
