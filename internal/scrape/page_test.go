package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phauks/botc-data-sync/internal/catalog"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := New(Config{IconBaseURL: "https://script.example.com/"}, nil)
	t.Cleanup(c.Close)
	return c
}

func TestConvert_Characters(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)
	ex := c.convert(rawPayload{
		Characters: []rawItem{
			{
				ID:      "washerwoman",
				Name:    "Washerwoman",
				Team:    "townsfolk",
				Ability: "You start knowing a Townsfolk.",
				Icon:    "src/assets/icons/tb/washerwoman_g.webp",
			},
		},
	})

	require.Len(t, ex.Characters, 1)
	rec := ex.Characters[0]
	require.Equal(t, "washerwoman", rec.ID)
	require.Equal(t, catalog.TeamTownsfolk, rec.Team)
	require.Equal(t, "tb", rec.Edition)
	require.Equal(t, "icons/tb/washerwoman.webp", rec.Icon)
	require.Equal(t, "https://script.example.com/src/assets/icons/tb/washerwoman_g.webp", rec.IconURL)
}

func TestConvertNight_SkipsNonCharacterRows(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)
	entries := c.convertNight([]rawNightItem{
		{Icon: "src/assets/nightsheet/dusk.webp", Reminder: "Dusk"},
		{Icon: "src/assets/icons/tb/poisoner_e.webp", Reminder: "The Poisoner picks a player."},
		{Icon: "src/assets/nightsheet/dawn.webp", Reminder: "Dawn"},
		{Icon: "src/assets/icons/tb/empath_g.webp", Reminder: "Show fingers."},
	})

	require.Equal(t, []catalog.NightEntry{
		{ID: "poisoner", Reminder: "The Poisoner picks a player."},
		{ID: "empath", Reminder: "Show fingers."},
	}, entries)
}

func TestConvert_JinxesRequireBothIcons(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)
	ex := c.convert(rawPayload{
		Jinxes: []rawJinx{
			{
				A:      "src/assets/icons/carousel/pithag_e.webp",
				B:      "src/assets/icons/tb/fortuneteller_g.webp",
				Reason: "Only one curse.",
			},
			{A: "src/assets/broken.webp", B: "src/assets/icons/tb/imp_e.webp", Reason: "dropped"},
		},
	})

	require.Equal(t, []catalog.JinxPair{
		{A: "pithag", B: "fortuneteller", Reason: "Only one curse."},
	}, ex.Jinxes)
}
