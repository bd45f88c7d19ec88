package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/connstore"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/metrics"
)

const likeEscape = `\`

// ProfileQuery selects profiles for SearchProfiles. Zero fields do not filter.
type ProfileQuery struct {
	// Text is matched against names, place of birth and last known location.
	Text string
	// BirthYear keeps profiles whose date of birth falls in that year.
	BirthYear int
	// Limit defaults to 10.
	Limit  int
	Offset int
}

// SearchProfiles finds profiles matching q, ordered by ID. An empty query
// lists every profile.
func (dm *DBManager) SearchProfiles(ctx context.Context, q ProfileQuery) ([]apptype.Profile, error) {
	done := metrics.TimeOp("db_search_profiles")
	success := false
	defer func() { done(success) }()

	if q.BirthYear < 0 || q.BirthYear > 9999 {
		return nil, fmt.Errorf("%w: birth year %d", connstore.ErrInvalidInput, q.BirthYear)
	}
	text := strings.TrimSpace(q.Text)
	limit, offset := q.Limit, q.Offset
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	var where []string
	var args []interface{}
	if text != "" {
		pattern := "%" + escapeLike(text) + "%"
		where = append(where, `(first_name LIKE ? ESCAPE '\' OR last_name LIKE ? ESCAPE '\'
            OR (first_name || ' ' || last_name) LIKE ? ESCAPE '\'
            OR COALESCE(place_of_birth, '') LIKE ? ESCAPE '\'
            OR COALESCE(last_known_location, '') LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern, pattern, pattern)
	}
	if q.BirthYear > 0 {
		// dates are stored as YYYY-MM-DD
		where = append(where, `date_of_birth LIKE ?`)
		args = append(args, fmt.Sprintf("%04d-%%", q.BirthYear))
	}

	query := `SELECT ` + profileColumns + ` FROM profiles`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := dm.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("search profiles %q", text), err)
	}
	defer rows.Close()

	profiles := make([]apptype.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate search results", err)
	}
	success = true
	return profiles, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(s)
}
