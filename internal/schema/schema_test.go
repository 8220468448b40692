package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phauks/botc-data-sync/internal/catalog"
)

func valid() catalog.Character {
	return catalog.Character{
		ID:      "fortuneteller",
		Name:    "Fortune Teller",
		Team:    catalog.TeamTownsfolk,
		Ability: "Each night, choose 2 players: you learn if either is a Demon.",
		Edition: "tb",
	}
}

func TestValidate_PassingRecord(t *testing.T) {
	t.Parallel()

	require.Empty(t, Validate(valid()))
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	t.Parallel()

	c := valid()
	c.ID = ""
	c.Name = ""
	c.Ability = ""
	errs := Validate(c)
	require.Len(t, errs, 3)
	for _, err := range errs {
		var verr *catalog.ValidationError
		require.ErrorAs(t, err, &verr)
	}
}

func TestValidate_RejectsUppercaseID(t *testing.T) {
	t.Parallel()

	c := valid()
	c.ID = "FortuneTeller"
	require.NotEmpty(t, Validate(c))
}

func TestValidate_RejectsUnknownTeam(t *testing.T) {
	t.Parallel()

	c := valid()
	c.Team = "wizard"
	require.NotEmpty(t, Validate(c))
}

func TestValidate_LengthLimits(t *testing.T) {
	t.Parallel()

	c := valid()
	c.Name = strings.Repeat("n", MaxNameLength+1)
	c.Ability = strings.Repeat("a", MaxAbilityLength+1)
	c.Flavor = strings.Repeat("f", MaxFlavorLength+1)
	errs := Validate(c)
	require.Len(t, errs, 3)
}

func TestValidate_ReminderLimits(t *testing.T) {
	t.Parallel()

	c := valid()
	c.Reminders = []string{strings.Repeat("R", MaxReminderLength+1)}
	require.NotEmpty(t, Validate(c))

	c = valid()
	c.Reminders = make([]string, MaxReminderTokens+1)
	require.NotEmpty(t, Validate(c))
}

func TestValidate_NegativeNightOrder(t *testing.T) {
	t.Parallel()

	c := valid()
	c.FirstNight = -1
	require.NotEmpty(t, Validate(c))
}

func TestValidate_IncompleteJinx(t *testing.T) {
	t.Parallel()

	c := valid()
	c.Jinxes = []catalog.Jinx{{ID: "imp"}}
	require.NotEmpty(t, Validate(c))
}

func TestValidateAll_AggregatesByID(t *testing.T) {
	t.Parallel()

	ok := valid()
	bad := valid()
	bad.ID = "badteam"
	bad.Team = "wizard"

	violations := ValidateAll(catalog.Catalog{ok.ID: &ok, bad.ID: &bad})
	require.Len(t, violations, 1)
	require.Contains(t, violations, "badteam")
}
