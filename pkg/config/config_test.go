package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 250000, cfg.Scheduler.NodeBudget)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.Timeout)
	assert.False(t, cfg.Scheduler.SpanDuration)
	assert.Equal(t, []string{"Jour 1", "Jour 2", "Jour 3"}, cfg.Session.Days)
	assert.Len(t, cfg.Session.Slots, 5)
	assert.Equal(t, "8h-10h@MORNING", cfg.Session.Slots[0])
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SCHEDULER_NODE_BUDGET", "42")
	t.Setenv("SCHEDULER_TIMEOUT", "250ms")
	t.Setenv("SCHEDULER_SPAN_DURATION", "true")
	t.Setenv("SESSION_DAYS", "Lundi, Mardi")
	t.Setenv("EXPORTS_SIGNED_URL_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.Scheduler.NodeBudget)
	assert.Equal(t, 250*time.Millisecond, cfg.Scheduler.Timeout)
	assert.True(t, cfg.Scheduler.SpanDuration)
	assert.Equal(t, []string{"Lundi", "Mardi"}, cfg.Session.Days)
	assert.Equal(t, 24*time.Hour, cfg.Exports.SignedURLTTL)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
}
