package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/connstore"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/metrics"
)

const connectionColumns = `user_a, user_b, facial_score, voice_score, info_score, overall_score,
        confidence, computed_at, connection_type, predicted_relationship, updated_at`

const upsertConnectionSQL = `INSERT INTO connections (` + connectionColumns + `)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(user_a, user_b) DO UPDATE SET
        facial_score = excluded.facial_score,
        voice_score = excluded.voice_score,
        info_score = excluded.info_score,
        overall_score = excluded.overall_score,
        confidence = excluded.confidence,
        computed_at = excluded.computed_at,
        connection_type = excluded.connection_type,
        predicted_relationship = excluded.predicted_relationship,
        updated_at = excluded.updated_at`

const getConnectionSQL = `SELECT ` + connectionColumns + ` FROM connections WHERE user_a = ? AND user_b = ?`

// Ties on score are ordered by the counterpart id.
const neighborsSQL = `SELECT ` + connectionColumns + ` FROM connections
    WHERE (user_a = ? OR user_b = ?) AND overall_score >= ?
    ORDER BY overall_score DESC, CASE WHEN user_a = ? THEN user_b ELSE user_a END ASC`

// Upsert stores res for the unordered pair {a, b}, replacing any previous record.
func (dm *DBManager) Upsert(ctx context.Context, a, b int64, res apptype.SimilarityResult, opts ...connstore.UpsertOption) (apptype.Connection, error) {
	done := metrics.TimeOp("db_upsert_connection")
	success := false
	defer func() { done(success) }()

	lo, hi, err := connstore.CanonicalPair(a, b)
	if err != nil {
		return apptype.Connection{}, err
	}
	o, err := connstore.ApplyOptions(opts...)
	if err != nil {
		return apptype.Connection{}, err
	}
	conn := apptype.Connection{
		UserA:                 lo,
		UserB:                 hi,
		Result:                res,
		Type:                  o.Type,
		PredictedRelationship: o.PredictedRelationship,
		UpdatedAt:             dm.clock(),
	}

	release := dm.pairs.lock(lo, hi)
	defer release()
	if o.KeepReview {
		// SetConnectionType holds the same pair lock, so nothing lands between
		// this read and the write below.
		prev, err := dm.Get(ctx, lo, hi)
		if err != nil {
			return apptype.Connection{}, err
		}
		if prev != nil {
			conn.Type = prev.Type
			conn.PredictedRelationship = prev.PredictedRelationship
		}
	}
	if err := dm.writeConnection(ctx, conn); err != nil {
		return apptype.Connection{}, err
	}
	success = true
	return conn, nil
}

func (dm *DBManager) writeConnection(ctx context.Context, c apptype.Connection) error {
	tx, err := dm.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin upsert", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, upsertConnectionSQL,
		c.UserA, c.UserB,
		c.Result.FacialScore, c.Result.VoiceScore, c.Result.InformationScore, c.Result.OverallScore,
		string(c.Result.Confidence), formatTime(c.Result.ComputedAt),
		string(c.Type), nullString(c.PredictedRelationship), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return unavailable(fmt.Sprintf("upsert connection (%d, %d)", c.UserA, c.UserB), err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit upsert", err)
	}
	return nil
}

// Get returns the connection for {a, b}, or nil if none is stored.
func (dm *DBManager) Get(ctx context.Context, a, b int64) (*apptype.Connection, error) {
	done := metrics.TimeOp("db_get_connection")
	success := false
	defer func() { done(success) }()

	lo, hi, err := connstore.CanonicalPair(a, b)
	if err != nil {
		return nil, err
	}
	stmt, err := dm.getPreparedStmt(ctx, getConnectionSQL)
	if err != nil {
		return nil, err
	}
	conn, err := scanConnection(stmt.QueryRowContext(ctx, lo, hi))
	if errors.Is(err, sql.ErrNoRows) {
		success = true
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get connection", err)
	}
	success = true
	return &conn, nil
}

// NeighborsOf returns the connections touching id with overall score >= minScore,
// best first.
func (dm *DBManager) NeighborsOf(ctx context.Context, id int64, minScore float64) ([]apptype.Connection, error) {
	return dm.queryNeighbors(ctx, "db_neighbors_of", id, minScore, 0)
}

// TopMatches is NeighborsOf limited to limit rows; limit <= 0 means no limit.
func (dm *DBManager) TopMatches(ctx context.Context, id int64, minScore float64, limit int) ([]apptype.Connection, error) {
	return dm.queryNeighbors(ctx, "db_top_matches", id, minScore, limit)
}

func (dm *DBManager) queryNeighbors(ctx context.Context, op string, id int64, minScore float64, limit int) ([]apptype.Connection, error) {
	done := metrics.TimeOp(op)
	success := false
	defer func() { done(success) }()

	query := neighborsSQL
	args := []interface{}{id, id, minScore, id}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	stmt, err := dm.getPreparedStmt(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, unavailable("query neighbors", err)
	}
	defer rows.Close()

	conns := make([]apptype.Connection, 0)
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, unavailable("scan connection", err)
		}
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate neighbors", err)
	}
	success = true
	return conns, nil
}

// SetConnectionType records a review decision, keeping the stored scores.
func (dm *DBManager) SetConnectionType(ctx context.Context, a, b int64, t apptype.ConnectionType) (apptype.Connection, error) {
	done := metrics.TimeOp("db_set_connection_type")
	success := false
	defer func() { done(success) }()

	lo, hi, err := connstore.CanonicalPair(a, b)
	if err != nil {
		return apptype.Connection{}, err
	}
	if !t.Valid() {
		return apptype.Connection{}, fmt.Errorf("%w: unknown connection type %q", connstore.ErrInvalidInput, t)
	}

	release := dm.pairs.lock(lo, hi)
	defer release()

	current, err := dm.Get(ctx, lo, hi)
	if err != nil {
		return apptype.Connection{}, err
	}
	if current == nil {
		return apptype.Connection{}, fmt.Errorf("connection %d-%d: %w", lo, hi, connstore.ErrNotFound)
	}
	current.Type = t
	current.UpdatedAt = dm.clock()
	if err := dm.writeConnection(ctx, *current); err != nil {
		return apptype.Connection{}, err
	}
	success = true
	return *current, nil
}

// Stats summarizes the stored connections.
func (dm *DBManager) Stats(ctx context.Context) (apptype.ConnectionStats, error) {
	done := metrics.TimeOp("db_connection_stats")
	success := false
	defer func() { done(success) }()

	stats := apptype.ConnectionStats{ByType: make(map[apptype.ConnectionType]int)}
	err := dm.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(CASE WHEN overall_score >= ? THEN 1 ELSE 0 END), 0) FROM connections`,
		connstore.HighConfidenceScore).Scan(&stats.TotalConnections, &stats.HighConfidenceMatches)
	if err != nil {
		return stats, unavailable("count connections", err)
	}

	rows, err := dm.db.QueryContext(ctx, `SELECT connection_type, COUNT(*) FROM connections GROUP BY connection_type`)
	if err != nil {
		return stats, unavailable("count connection types", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return stats, unavailable("scan connection type", err)
		}
		stats.ByType[apptype.ConnectionType(t)] = n
	}
	if err := rows.Err(); err != nil {
		return stats, unavailable("iterate connection types", err)
	}
	success = true
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConnection(row rowScanner) (apptype.Connection, error) {
	var (
		c                    apptype.Connection
		confidence, connType string
		computedAt, updated  string
		relationship         sql.NullString
	)
	err := row.Scan(&c.UserA, &c.UserB,
		&c.Result.FacialScore, &c.Result.VoiceScore, &c.Result.InformationScore, &c.Result.OverallScore,
		&confidence, &computedAt, &connType, &relationship, &updated)
	if err != nil {
		return c, err
	}
	c.Result.Confidence = apptype.ConfidenceTier(confidence)
	c.Type = apptype.ConnectionType(connType)
	c.PredictedRelationship = relationship.String
	if c.Result.ComputedAt, err = parseTime(computedAt); err != nil {
		return c, err
	}
	if c.UpdatedAt, err = parseTime(updated); err != nil {
		return c, err
	}
	return c, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ connstore.Store = (*DBManager)(nil)
