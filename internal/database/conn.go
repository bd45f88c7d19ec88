package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/metrics"
)

// DBManager owns the libSQL handle backing the profile registry and the connection store.
type DBManager struct {
	config *Config
	db     *sql.DB

	stmtMu    sync.RWMutex
	stmtCache map[string]*sql.Stmt

	pairs *pairLocks
	clock func() time.Time
}

// NewDBManager opens the database described by config and applies the schema.
func NewDBManager(config *Config) (*DBManager, error) {
	if config == nil {
		config = NewConfig()
	}
	db, err := open(config)
	if err != nil {
		return nil, err
	}
	manager := &DBManager{
		config:    config,
		db:        db,
		stmtCache: make(map[string]*sql.Stmt),
		pairs:     newPairLocks(),
		clock:     func() time.Time { return time.Now().UTC() },
	}
	if err := manager.initialize(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	stats := db.Stats()
	metrics.Default().ObservePoolStats(stats.InUse, stats.Idle)
	return manager, nil
}

func open(config *Config) (*sql.DB, error) {
	dbURL := config.URL
	if !strings.HasPrefix(dbURL, "file:") && config.AuthToken != "" {
		// Build URL safely and append/override the authToken parameter
		if u, perr := url.Parse(dbURL); perr == nil {
			q := u.Query()
			q.Set("authToken", config.AuthToken)
			u.RawQuery = q.Encode()
			dbURL = u.String()
		} else if strings.Contains(dbURL, "?") {
			dbURL += "&authToken=" + url.QueryEscape(config.AuthToken)
		} else {
			dbURL += "?authToken=" + url.QueryEscape(config.AuthToken)
		}
	}

	db, err := sql.Open("libsql", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connector: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxIdleSec > 0 {
		db.SetConnMaxIdleTime(time.Duration(config.ConnMaxIdleSec) * time.Second)
	}
	if config.ConnMaxLifeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(config.ConnMaxLifeSec) * time.Second)
	}
	return db, nil
}

// initialize creates tables and indexes if they don't exist
func (dm *DBManager) initialize(ctx context.Context) error {
	done := metrics.TimeOp("db_initialize")
	success := false
	defer func() { done(success) }()
	tx, err := dm.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for initialization: %w", err)
	}
	defer tx.Rollback()

	for _, statement := range schema {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	success = true
	return nil
}

// Ping checks that the backing database is reachable.
func (dm *DBManager) Ping(ctx context.Context) error {
	if err := dm.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close releases prepared statements and the database handle.
func (dm *DBManager) Close() error {
	dm.stmtMu.Lock()
	for sqlText, stmt := range dm.stmtCache {
		_ = stmt.Close()
		delete(dm.stmtCache, sqlText)
	}
	dm.stmtMu.Unlock()
	return dm.db.Close()
}

// PoolStats reports in-use and idle connections of the pool.
func (dm *DBManager) PoolStats() (inUse, idle int) {
	s := dm.db.Stats()
	return s.InUse, s.Idle
}
