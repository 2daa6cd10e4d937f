package app_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"

	"sealedstate/internal/app"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	home := t.TempDir()
	cfg, err := app.LoadConfig(home)
	require.NoError(t, err)
	require.Equal(t, app.DefaultConfig(home), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	home := t.TempDir()
	raw := "ledger_url = \"http://ledger:9000\"\nstore = \"bolt\"\nsync_every = \"250ms\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, app.ConfigFileName), []byte(raw), 0o600))

	cfg, err := app.LoadConfig(home)
	require.NoError(t, err)
	require.Equal(t, "http://ledger:9000", cfg.LedgerURL)
	require.Equal(t, app.StoreBolt, cfg.Store)
	require.Equal(t, 1024, cfg.CacheSize)
	d, err := cfg.SyncPeriod()
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, d)
}

func TestConfigSaveRoundTrip(t *testing.T) {
	cfg := app.DefaultConfig(t.TempDir())
	cfg.MaxRoster = 64
	cfg.LogJSON = true
	require.NoError(t, cfg.Save())

	got, err := app.LoadConfig(cfg.Home)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}

func TestLoadConfigRejectsBadTOML(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, app.ConfigFileName), []byte("store = "), 0o600))
	_, err := app.LoadConfig(home)
	require.Error(t, err)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := app.DefaultConfig(t.TempDir())
	cfg.LedgerURL = "not a url"
	cfg.Store = "sqlite"
	cfg.CacheSize = -1
	cfg.SyncEvery = "never"
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 5)
}
