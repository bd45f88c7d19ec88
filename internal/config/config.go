// Package config layers defaults, an optional YAML file, .env files and the
// process environment into one Config. Command-line flags are applied last by
// the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/database"
)

// Transports served by the MCP server.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Matching MatchingConfig `yaml:"matching"`
	Query    QueryConfig    `yaml:"query"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type DatabaseConfig struct {
	URL            string `yaml:"url"`
	AuthToken      string `yaml:"auth_token"`
	MaxOpenConns   int    `yaml:"max_open_conns"`
	MaxIdleConns   int    `yaml:"max_idle_conns"`
	ConnMaxIdleSec int    `yaml:"conn_max_idle_sec"`
	ConnMaxLifeSec int    `yaml:"conn_max_lifetime_sec"`
}

type ServerConfig struct {
	Transport string `yaml:"transport"` // stdio (default) or http
	Addr      string `yaml:"addr"`      // listen address for http
	Endpoint  string `yaml:"endpoint"`  // http path, defaults to /mcp
}

type MatchingConfig struct {
	Candidates    int     `yaml:"candidates"`
	MinStoreScore float64 `yaml:"min_store_score"`
	FaceDims      int     `yaml:"face_dims"`  // 0 accepts any length
	VoiceDims     int     `yaml:"voice_dims"` // 0 accepts any length
	DimsMode      string  `yaml:"dims_mode"`  // strict, truncate, pad, pad_or_truncate
	// FeaturesURL names a libSQL database supplying vectors the registry lacks.
	FeaturesURL string `yaml:"features_url"`
}

// QueryConfig holds defaults for match and graph queries.
type QueryConfig struct {
	MinScore   float64 `yaml:"min_score"`
	MatchLimit int     `yaml:"match_limit"`
	MaxDepth   int     `yaml:"max_depth"`
}

type MetricsConfig struct {
	Prometheus bool   `yaml:"prometheus"`
	Addr       string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{URL: "file:./kinmatch.db"},
		Server:   ServerConfig{Transport: TransportStdio, Addr: ":8080", Endpoint: "/mcp"},
		Matching: MatchingConfig{Candidates: 50, DimsMode: "strict"},
		Query:    QueryConfig{MinScore: 0.5, MatchLimit: 20, MaxDepth: 3},
		Metrics:  MetricsConfig{Addr: ":9090"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), envFiles (".env" when none are given; missing files are
// ignored) and the environment. Variables already set in the environment
// win over .env values.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// .env files are optional, don't fail if not found
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	envString("LIBSQL_URL", &c.Database.URL)
	envString("LIBSQL_AUTH_TOKEN", &c.Database.AuthToken)
	envInt("DB_MAX_OPEN_CONNS", &c.Database.MaxOpenConns)
	envInt("DB_MAX_IDLE_CONNS", &c.Database.MaxIdleConns)
	envInt("DB_CONN_MAX_IDLE_SEC", &c.Database.ConnMaxIdleSec)
	envInt("DB_CONN_MAX_LIFETIME_SEC", &c.Database.ConnMaxLifeSec)

	envString("KINMATCH_TRANSPORT", &c.Server.Transport)
	envString("KINMATCH_ADDR", &c.Server.Addr)
	envString("KINMATCH_ENDPOINT", &c.Server.Endpoint)

	envInt("KINMATCH_CANDIDATES", &c.Matching.Candidates)
	envFloat("KINMATCH_MIN_STORE_SCORE", &c.Matching.MinStoreScore)
	envInt("KINMATCH_FACE_DIMS", &c.Matching.FaceDims)
	envInt("KINMATCH_VOICE_DIMS", &c.Matching.VoiceDims)
	envString("KINMATCH_DIMS_MODE", &c.Matching.DimsMode)
	envString("KINMATCH_FEATURES_URL", &c.Matching.FeaturesURL)

	envFloat("KINMATCH_MIN_SCORE", &c.Query.MinScore)
	envInt("KINMATCH_MATCH_LIMIT", &c.Query.MatchLimit)
	envInt("KINMATCH_MAX_DEPTH", &c.Query.MaxDepth)

	if v := os.Getenv("METRICS_PROMETHEUS"); v != "" {
		c.Metrics.Prometheus = v != "0" && !strings.EqualFold(v, "false")
	}
	envString("METRICS_ADDR", &c.Metrics.Addr)
}

// Validate reports settings no component can work with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("database url is required"))
	}
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Server.Transport))
	}
	if !unit(c.Matching.MinStoreScore) {
		errs = append(errs, fmt.Errorf("min store score %v is outside [0,1]", c.Matching.MinStoreScore))
	}
	if !unit(c.Query.MinScore) {
		errs = append(errs, fmt.Errorf("min score %v is outside [0,1]", c.Query.MinScore))
	}
	if c.Query.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("max depth %d is negative", c.Query.MaxDepth))
	}
	switch c.Matching.DimsMode {
	case "strict", "truncate", "pad", "pad_or_truncate":
	default:
		errs = append(errs, fmt.Errorf("unknown dims mode %q", c.Matching.DimsMode))
	}
	return errors.Join(errs...)
}

// DBConfig converts the database section for database.NewDBManager.
func (c *Config) DBConfig() *database.Config {
	return &database.Config{
		URL:            c.Database.URL,
		AuthToken:      c.Database.AuthToken,
		MaxOpenConns:   c.Database.MaxOpenConns,
		MaxIdleConns:   c.Database.MaxIdleConns,
		ConnMaxIdleSec: c.Database.ConnMaxIdleSec,
		ConnMaxLifeSec: c.Database.ConnMaxLifeSec,
	}
}

func unit(f float64) bool { return f >= 0 && f <= 1 }

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// envInt keeps dst when the variable is unset or not a non-negative integer.
func envInt(key string, dst *int) {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && n >= 0 {
		*dst = n
	}
}

func envFloat(key string, dst *float64) {
	if f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil {
		*dst = f
	}
}
