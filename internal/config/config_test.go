package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "https://script.bloodontheclocktower.com/", cfg.Scrape.URL)
	require.Equal(t, 5, cfg.Wiki.Concurrency)
	require.Equal(t, 3, cfg.HTTP.MaxRetries)
	require.Equal(t, int64(10)<<20, cfg.HTTP.MaxBodyBytes)
	require.Contains(t, cfg.HTTP.AllowedHosts, "wiki.bloodontheclocktower.com")
	require.Contains(t, cfg.HTTP.AllowedHosts, "script.bloodontheclocktower.com")
	require.Equal(t, "data", cfg.Store.DataDir)
	require.Equal(t, "dist", cfg.Store.DistDir)
	require.Equal(t, 30*time.Minute, cfg.RunBudget())
	require.Equal(t, 30*time.Second, cfg.HTTPTimeout())
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
wiki:
  concurrency: 2
http:
  max_retries: 1
store:
  data_dir: /tmp/botc-data
run:
  timeout_seconds: 120
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Wiki.Concurrency)
	require.Equal(t, 1, cfg.HTTP.MaxRetries)
	require.Equal(t, "/tmp/botc-data", cfg.Store.DataDir)
	require.Equal(t, 2*time.Minute, cfg.RunBudget())
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Wiki.Concurrency = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.HTTP.AllowedHosts = nil
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.HTTP.MaxBodyBytes = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Run.TimeoutSeconds = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Scrape.URL = ""
	require.Error(t, cfg.Validate())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BOTCSYNC_WIKI_CONCURRENCY", "9")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 9, cfg.Wiki.Concurrency)
}
