package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "file::memory:"
  driver: sqlite
auth:
  jwt_secret: secret
catalog:
  - name: Library
    rooms:
      - { name: L-1, capacity: 4 }
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.CacheTTL())
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, 3600, cfg.Push.TTL)
	assert.False(t, cfg.Push.Enabled())
	assert.Equal(t, "*/5 * * * *", cfg.Sweeper.Schedule)
	assert.Equal(t, 30*time.Minute, cfg.Sweeper.Grace())
	assert.Equal(t, "00:00", cfg.Booking.OpenFrom)
	assert.Equal(t, "24:00", cfg.Booking.OpenUntil)
	assert.Equal(t, time.UTC, cfg.Booking.Location())
	require.Len(t, cfg.Catalog, 1)
	assert.Equal(t, 4, cfg.Catalog[0].Rooms[0].Capacity)
}

func TestLoad_EnvOverlay(t *testing.T) {
	t.Setenv("DATABASE_DSN", "file:override.db")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("SERVER_PORT", "9090")

	path := writeConfig(t, `
database:
  driver: sqlite
  dsn: "file::memory:"
auth:
  jwt_secret: from-file
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file:override.db", cfg.Database.DSN)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{
			name: "unknown driver",
			body: "database: {driver: oracle, dsn: x}\nauth: {jwt_secret: s}\n",
		},
		{
			name: "missing secret",
			body: "database: {driver: sqlite, dsn: x}\n",
		},
		{
			name: "bad timezone",
			body: "database: {driver: sqlite, dsn: x}\nauth: {jwt_secret: s}\nbooking: {timezone: Mars/Olympus}\n",
		},
		{
			name: "zero capacity room",
			body: "database: {driver: sqlite, dsn: x}\nauth: {jwt_secret: s}\ncatalog:\n  - name: B\n    rooms:\n      - {name: R, capacity: 0}\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}
