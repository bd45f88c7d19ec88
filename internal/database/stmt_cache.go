package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/connstore"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/metrics"
)

// getPreparedStmt returns or prepares and caches a statement
func (dm *DBManager) getPreparedStmt(ctx context.Context, sqlText string) (*sql.Stmt, error) {
	// fast path read
	dm.stmtMu.RLock()
	if stmt, ok := dm.stmtCache[sqlText]; ok {
		dm.stmtMu.RUnlock()
		metrics.Default().IncStmtCacheHit("prepare")
		return stmt, nil
	}
	dm.stmtMu.RUnlock()
	metrics.Default().IncStmtCacheMiss("prepare")

	stmt, err := dm.db.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, unavailable("prepare statement", err)
	}
	dm.stmtMu.Lock()
	if cached, ok := dm.stmtCache[sqlText]; ok {
		// another goroutine won the race
		dm.stmtMu.Unlock()
		_ = stmt.Close()
		return cached, nil
	}
	dm.stmtCache[sqlText] = stmt
	dm.stmtMu.Unlock()
	return stmt, nil
}

// unavailable marks a driver failure as a store availability error.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, connstore.ErrStoreUnavailable, err)
}
