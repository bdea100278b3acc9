package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("", true)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "0 0 8 * * *", cfg.Cron.Voting)
	assert.Equal(t, 14, cfg.Scoring.RecentWindow)
	assert.Equal(t, 0.3, cfg.Scoring.CapacityFraction)
	assert.Equal(t, 0.30, cfg.Scoring.Dish.Quality)
	assert.Equal(t, 0.10, cfg.Scoring.Dish.Waste)
	assert.Equal(t, 5*time.Minute, cfg.Lock.TTL)
	assert.Equal(t, "none", cfg.AI.Provider)
}

func TestLoad_FileOverridesAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
server:
  http_addr: ":9090"
scoring:
  bid:
    price: 0.5
broadcast:
  kafka:
    enabled: true
    brokers: ["k1:9092", "k2:9092"]
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))
	t.Setenv("DOTTED_AI_PROVIDER", "anthropic")

	cfg, err := Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
	assert.Equal(t, 0.5, cfg.Scoring.Bid.Price)
	assert.Equal(t, 0.30, cfg.Scoring.Bid.Rating)
	assert.True(t, cfg.Broadcast.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Broadcast.Kafka.Brokers)
	assert.Equal(t, "anthropic", cfg.AI.Provider)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	require.Error(t, err)
}
