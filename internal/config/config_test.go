package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 0.5, cfg.Query.MinScore)
	assert.Equal(t, 20, cfg.Query.MatchLimit)
	assert.Equal(t, 3, cfg.Query.MaxDepth)
}

func TestLoadLayering(t *testing.T) {
	yamlPath := writeFile(t, "kinmatch.yaml", `
database:
  url: file:/tmp/from-yaml.db
  max_open_conns: 4
server:
  transport: http
  addr: ":7000"
matching:
  candidates: 10
query:
  min_score: 0.7
metrics:
  prometheus: true
`)
	envPath := writeFile(t, "test.env", "LIBSQL_AUTH_TOKEN=from-dotenv\nKINMATCH_MAX_DEPTH=5\nKINMATCH_ADDR=:6000\n")
	t.Setenv("KINMATCH_ADDR", ":5000")
	t.Setenv("KINMATCH_CANDIDATES", "25")
	// godotenv sets variables in the process; register them for cleanup
	t.Setenv("LIBSQL_AUTH_TOKEN", "")
	os.Unsetenv("LIBSQL_AUTH_TOKEN")
	t.Setenv("KINMATCH_MAX_DEPTH", "")
	os.Unsetenv("KINMATCH_MAX_DEPTH")

	cfg, err := Load(yamlPath, envPath)
	require.NoError(t, err)

	assert.Equal(t, "file:/tmp/from-yaml.db", cfg.Database.URL)
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
	assert.Equal(t, "from-dotenv", cfg.Database.AuthToken)
	assert.Equal(t, TransportHTTP, cfg.Server.Transport)
	// the environment wins over .env and YAML
	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, 25, cfg.Matching.Candidates)
	assert.Equal(t, 5, cfg.Query.MaxDepth)
	assert.Equal(t, 0.7, cfg.Query.MinScore)
	assert.True(t, cfg.Metrics.Prometheus)
	// untouched defaults survive
	assert.Equal(t, "/mcp", cfg.Server.Endpoint)
	assert.Equal(t, 20, cfg.Query.MatchLimit)

	db := cfg.DBConfig()
	assert.Equal(t, "from-dotenv", db.AuthToken)
	assert.Equal(t, 4, db.MaxOpenConns)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeFile(t, "bad.yaml", "server:\n  transport: carrier-pigeon\nquery:\n  min_score: 50\n")
	_, err := Load(path, filepath.Join(t.TempDir(), "none.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
	assert.Contains(t, err.Error(), "outside [0,1]")

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	malformed := writeFile(t, "broken.yaml", "database: [")
	_, err = Load(malformed, filepath.Join(t.TempDir(), "none.env"))
	assert.Error(t, err)
}

func TestMetricsEnvToggle(t *testing.T) {
	t.Setenv("METRICS_PROMETHEUS", "false")
	cfg, err := Load("", filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	assert.False(t, cfg.Metrics.Prometheus)

	t.Setenv("METRICS_PROMETHEUS", "1")
	t.Setenv("METRICS_ADDR", ":9999")
	cfg, err = Load("", filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	assert.True(t, cfg.Metrics.Prometheus)
	assert.Equal(t, ":9999", cfg.Metrics.Addr)
}

func TestFeaturesURLFromEnv(t *testing.T) {
	t.Setenv("KINMATCH_FEATURES_URL", "libsql://features.example.turso.io")
	cfg, err := Load("", filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	assert.Equal(t, "libsql://features.example.turso.io", cfg.Matching.FeaturesURL)
}
