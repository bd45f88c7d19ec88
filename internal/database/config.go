package database

import (
	"os"
	"strconv"
)

// Config holds the database configuration
type Config struct {
	URL            string
	AuthToken      string
	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxIdleSec int
	ConnMaxLifeSec int
}

// NewConfig creates a new Config from environment variables
func NewConfig() *Config {
	url := os.Getenv("LIBSQL_URL")
	if url == "" {
		url = "file:./kinmatch.db"
	}

	return &Config{
		URL:            url,
		AuthToken:      os.Getenv("LIBSQL_AUTH_TOKEN"),
		MaxOpenConns:   envInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   envInt("DB_MAX_IDLE_CONNS"),
		ConnMaxIdleSec: envInt("DB_CONN_MAX_IDLE_SEC"),
		ConnMaxLifeSec: envInt("DB_CONN_MAX_LIFETIME_SEC"),
	}
}

func envInt(key string) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
