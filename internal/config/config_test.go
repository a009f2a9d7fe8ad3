package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
quiz:
  source: static
  default_time_limit: 5m
storage:
  driver: sqlite
  dsn: file:quiz.db
`)
	t.Setenv("QUIZLINK_SERVER_PORT", "7070")
	t.Setenv("QUIZLINK_LOG_LEVEL", "DEBUG")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, "static", cfg.Quiz.Source)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, 5*time.Minute, TTLDuration(cfg.Quiz.DefaultTimeLimit, time.Minute))
	assert.Equal(t, "1s", cfg.Server.TickInterval, "defaults survive a partial file")
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = ""
	cfg.Quiz.TTL = "soon"
	cfg.Storage.Driver = "postgres"
	cfg.Events.Sink = "amqp"

	err := cfg.Validate()
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 4)
}

func TestTTLDuration(t *testing.T) {
	assert.Equal(t, time.Minute, TTLDuration("", time.Minute))
	assert.Equal(t, time.Minute, TTLDuration("bogus", time.Minute))
	assert.Equal(t, 2*time.Second, TTLDuration("2s", time.Minute))
}
