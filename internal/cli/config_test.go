package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/companion/internal/core"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORE_RECORDS", "memory")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", c.Store.Flows)
	assert.Equal(t, 168*time.Hour, c.Conversation.TTL)
	assert.Equal(t, 6, c.Conversation.MaxTurns)
	assert.Equal(t, 20*time.Second, c.Flow.OracleTimeout)
	assert.False(t, c.Flow.StrictConfirmation)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, core.Development, c.LoggerOpts().Environment)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("STORE_RECORDS", "memory")
	t.Setenv("CONFIRMATION_STRICT", "true")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("STORE_FLOWS", "redis")
	t.Setenv("APP_ENV", "production")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, c.Flow.StrictConfirmation)
	assert.Equal(t, "redis://localhost:6379/0", c.Redis.URL)
	assert.Equal(t, core.Production, c.LoggerOpts().Environment)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("STORE_RECORDS", "memory")
	t.Setenv("STORE_FLOWS", "redis")
	t.Setenv("REDIS_URL", "")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "REDIS_URL")

	t.Setenv("STORE_FLOWS", "memory")
	t.Setenv("STORE_RECORDS", "postgres")
	t.Setenv("DB_CONNECTION_STRING", "")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "DB_CONNECTION_STRING")

	t.Setenv("STORE_RECORDS", "mongo")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "STORE_RECORDS")
}

func TestOpenStores_Memory(t *testing.T) {
	t.Setenv("STORE_RECORDS", "memory")
	c, err := LoadConfig()
	require.NoError(t, err)

	s, err := openStores(t.Context(), c)
	require.NoError(t, err)
	defer s.Close()
	assert.NotNil(t, s.flows)
	assert.NotNil(t, s.records)
	assert.NotNil(t, s.locker)
}

func TestOpenStores_SQLite(t *testing.T) {
	t.Setenv("STORE_RECORDS", "sqlite")
	t.Setenv("SQLITE_PATH", t.TempDir()+"/companion.db")
	c, err := LoadConfig()
	require.NoError(t, err)

	s, err := openStores(t.Context(), c)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
