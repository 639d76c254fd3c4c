package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, cnf Configuration) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fundpool.json")
	data, err := json.Marshal(cnf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestInitConfigAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432/fundpool?sslmode=disable"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
	})

	require.NoError(t, InitConfig(path))

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "Fundpool Server", cnf.ProjectName)
	assert.Equal(t, DEFAULT_PORT, cnf.Server.Port)
	assert.Equal(t, "USD", cnf.Ledger.Currency)
	assert.Equal(t, float64(100), cnf.Ledger.Precision)
	assert.Equal(t, DEFAULT_LOCK_TTL_MS, cnf.Ledger.LockTTLMS)
	assert.Equal(t, DEFAULT_LOCK_WAIT_MS, cnf.Ledger.LockWaitMS)
}

func TestInitConfigRequiresDataSource(t *testing.T) {
	path := writeConfigFile(t, Configuration{
		Redis: RedisConfig{Dns: "localhost:6379"},
	})
	assert.Error(t, InitConfig(path))
}

func TestInitConfigRequiresRedis(t *testing.T) {
	path := writeConfigFile(t, Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432/fundpool?sslmode=disable"},
	})
	assert.Error(t, InitConfig(path))
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, Configuration{
		ProjectName: "from-file",
		DataSource:  DataSourceConfig{Dns: "postgres://localhost:5432/fundpool?sslmode=disable"},
		Redis:       RedisConfig{Dns: "localhost:6379"},
	})

	t.Setenv("FUNDPOOL_PROJECT_NAME", "from-env")
	t.Setenv("FUNDPOOL_SERVER_PORT", "6001")

	require.NoError(t, InitConfig(path))

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cnf.ProjectName)
	assert.Equal(t, "6001", cnf.Server.Port)
}

func TestRateLimitDefaults(t *testing.T) {
	rps := 10.0
	cnf := &Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432/fundpool?sslmode=disable"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		RateLimit:  RateLimitConfig{RequestsPerSecond: &rps},
	}
	require.NoError(t, cnf.validateAndAddDefaults())
	require.NotNil(t, cnf.RateLimit.Burst)
	assert.Equal(t, 20, *cnf.RateLimit.Burst)
}
