package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "TICK_RATE", "REAP_DELAY", "FORMING_TIMEOUT", "RESULT_SINK", "TOKEN_EXPIRE_TIME", "REQUIRE_AUTH"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 60, cfg.TickRate)
	assert.Equal(t, 5*time.Second, cfg.ReapDelay)
	assert.Equal(t, 3*time.Minute, cfg.FormingTimeout)
	assert.Equal(t, SinkLog, cfg.ResultSink)
	assert.Zero(t, cfg.TokenExpireTime)
	assert.False(t, cfg.RequireAuth)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TICK_RATE", "30")
	t.Setenv("REAP_DELAY", "2")
	t.Setenv("LOBBY_TTL", "15m")
	t.Setenv("RESULT_SINK", "NATS")
	t.Setenv("REQUIRE_AUTH", "true")
	t.Setenv("TOKEN_EXPIRE_TIME", "24h")
	t.Setenv("POSTGRES_USER", "duel")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PORT", "5433")
	t.Setenv("PG_DATABASE", "archive")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.TickRate)
	assert.Equal(t, 2*time.Second, cfg.ReapDelay)
	assert.Equal(t, 15*time.Minute, cfg.LobbyTTL)
	assert.Equal(t, SinkNATS, cfg.ResultSink)
	assert.True(t, cfg.RequireAuth)
	assert.Equal(t, 24*time.Hour, cfg.TokenExpireTime)
	assert.Equal(t, "postgres://duel:secret@db:5433/archive", cfg.PostgresURL())
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("TICK_RATE", "fast")
	t.Setenv("RESULT_SINK", "kafka")
	t.Setenv("FORMING_TIMEOUT", "later")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TICK_RATE")
	assert.Contains(t, err.Error(), "RESULT_SINK")
	assert.Contains(t, err.Error(), "FORMING_TIMEOUT")
}
