package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "github.com/ledgerline/ledgerline/testing"
)

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "session")
	t.Setenv("CSRF_SECRET", "csrf")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 12*time.Hour, cfg.SessionTTL)
	require.Equal(t, 10, cfg.LowStockThreshold)
	require.Equal(t, "uploads", cfg.UploadDir)
	require.True(t, cfg.ImportAsync)
	require.Equal(t, 5*time.Minute, cfg.DashboardCacheTTL)
	require.Equal(t, 5, cfg.WorkerConcurrency)
	require.Equal(t, 72*time.Hour, cfg.IdempotencyRetention)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsNonPositiveThreshold(t *testing.T) {
	t.Setenv("SESSION_SECRET", "session")
	t.Setenv("CSRF_SECRET", "csrf")
	t.Setenv("LOW_STOCK_THRESHOLD", "0")

	_, err := LoadConfig()
	require.Error(t, err)
}
