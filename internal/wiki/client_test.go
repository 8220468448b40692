package wiki

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phauks/botc-data-sync/internal/catalog"
)

type stubFetcher struct {
	lastURL string
	body    []byte
	err     error
}

func (s *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	s.lastURL = url
	return s.body, s.err
}

func TestPageURL_SpacesBecomeUnderscores(t *testing.T) {
	t.Parallel()

	c := NewClient(&stubFetcher{}, "")
	url, err := c.PageURL("Fortune Teller")
	require.NoError(t, err)
	require.Equal(t, "https://wiki.bloodontheclocktower.com/Fortune_Teller", url)
}

func TestPageURL_ApostrophePercentEncoded(t *testing.T) {
	t.Parallel()

	c := NewClient(&stubFetcher{}, "https://wiki.example.com")
	url, err := c.PageURL("Po's Friend")
	require.NoError(t, err)
	require.Equal(t, "https://wiki.example.com/Po%27s_Friend", url)
}

func TestPageURL_RejectsInvalidNames(t *testing.T) {
	t.Parallel()

	c := NewClient(&stubFetcher{}, "")
	for _, name := range []string{
		"",
		"../etc/passwd",
		"name/with/slashes",
		"semi;colon",
		"<script>",
	} {
		_, err := c.PageURL(name)
		var verr *catalog.ValidationError
		require.ErrorAs(t, err, &verr, "name %q", name)
	}
}

func TestPageURL_RejectsOverlongName(t *testing.T) {
	t.Parallel()

	c := NewClient(&stubFetcher{}, "")
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	_, err := c.PageURL(string(long))
	require.Error(t, err)
}

func TestPageURL_AllowsAccentedNames(t *testing.T) {
	t.Parallel()

	c := NewClient(&stubFetcher{}, "")
	_, err := c.PageURL("Señorita")
	require.NoError(t, err)
}

func TestFetchPage_UsesValidatedURL(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{body: []byte("<html></html>")}
	c := NewClient(fetcher, "")

	body, err := c.FetchPage(context.Background(), "Scarlet Woman")
	require.NoError(t, err)
	require.Equal(t, "<html></html>", string(body))
	require.Equal(t, "https://wiki.bloodontheclocktower.com/Scarlet_Woman", fetcher.lastURL)
}

func TestFetchPage_InvalidNameNeverFetches(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{}
	c := NewClient(fetcher, "")

	_, err := c.FetchPage(context.Background(), "bad|name")
	require.Error(t, err)
	require.Empty(t, fetcher.lastURL)
}

func TestFetchPage_PropagatesFetchErrors(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{err: errors.New("boom")}
	c := NewClient(fetcher, "")

	_, err := c.FetchPage(context.Background(), "Imp")
	require.Error(t, err)
}
