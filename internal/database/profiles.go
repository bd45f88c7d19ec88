package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/connstore"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/metrics"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/similarity"
)

const profileColumns = `id, first_name, last_name, place_of_birth, date_of_birth, languages,
        family_members, face_descriptor, voice_print, last_known_location, registered_at`

const dateLayout = "2006-01-02"

// SaveProfile inserts p when p.ID is zero and replaces the stored record otherwise.
// The returned profile carries the assigned ID and registration time.
func (dm *DBManager) SaveProfile(ctx context.Context, p apptype.Profile) (apptype.Profile, error) {
	done := metrics.TimeOp("db_save_profile")
	success := false
	defer func() { done(success) }()

	if p.ID < 0 {
		return p, fmt.Errorf("%w: negative profile id %d", connstore.ErrInvalidInput, p.ID)
	}
	if err := similarity.Validate(p); err != nil {
		return p, err
	}
	face, err := encodeVector(p.FaceDescriptor)
	if err != nil {
		return p, fmt.Errorf("face descriptor: %w", err)
	}
	voice, err := encodeVector(p.VoicePrint)
	if err != nil {
		return p, fmt.Errorf("voice print: %w", err)
	}
	languages, err := json.Marshal(nonNilStrings(p.Identity.Languages))
	if err != nil {
		return p, fmt.Errorf("failed to encode languages: %w", err)
	}
	family := p.Identity.FamilyMembers
	if family == nil {
		family = []apptype.FamilyMember{}
	}
	familyJSON, err := json.Marshal(family)
	if err != nil {
		return p, fmt.Errorf("failed to encode family members: %w", err)
	}
	if p.RegisteredAt.IsZero() {
		p.RegisteredAt = dm.clock()
	}

	var dob sql.NullString
	if p.Identity.DateOfBirth != nil {
		dob = sql.NullString{String: p.Identity.DateOfBirth.UTC().Format(dateLayout), Valid: true}
	}
	args := []interface{}{
		p.Identity.FirstName, p.Identity.LastName, nullString(p.Identity.PlaceOfBirth), dob,
		string(languages), string(familyJSON), face, voice,
		nullString(p.LastKnownLocation), formatTime(p.RegisteredAt),
	}

	if p.ID == 0 {
		res, err := dm.db.ExecContext(ctx, `INSERT INTO profiles (first_name, last_name, place_of_birth,
            date_of_birth, languages, family_members, face_descriptor, voice_print, last_known_location,
            registered_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
		if err != nil {
			return p, unavailable("insert profile", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return p, unavailable("profile id", err)
		}
		p.ID = id
		success = true
		return p, nil
	}

	_, err = dm.db.ExecContext(ctx, `INSERT INTO profiles (id, first_name, last_name, place_of_birth,
            date_of_birth, languages, family_members, face_descriptor, voice_print, last_known_location,
            registered_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            first_name = excluded.first_name,
            last_name = excluded.last_name,
            place_of_birth = excluded.place_of_birth,
            date_of_birth = excluded.date_of_birth,
            languages = excluded.languages,
            family_members = excluded.family_members,
            face_descriptor = excluded.face_descriptor,
            voice_print = excluded.voice_print,
            last_known_location = excluded.last_known_location,
            registered_at = excluded.registered_at`, append([]interface{}{p.ID}, args...)...)
	if err != nil {
		return p, unavailable(fmt.Sprintf("save profile %d", p.ID), err)
	}
	success = true
	return p, nil
}

// GetProfile loads one profile; a miss is connstore.ErrNotFound.
func (dm *DBManager) GetProfile(ctx context.Context, id int64) (apptype.Profile, error) {
	done := metrics.TimeOp("db_get_profile")
	success := false
	defer func() { done(success) }()

	stmt, err := dm.getPreparedStmt(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`)
	if err != nil {
		return apptype.Profile{}, err
	}
	p, err := scanProfile(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return apptype.Profile{}, fmt.Errorf("profile %d: %w", id, connstore.ErrNotFound)
	}
	if err != nil {
		return apptype.Profile{}, err
	}
	success = true
	return p, nil
}

// ListProfiles returns every registered profile ordered by ID.
func (dm *DBManager) ListProfiles(ctx context.Context) ([]apptype.Profile, error) {
	done := metrics.TimeOp("db_list_profiles")
	success := false
	defer func() { done(success) }()

	rows, err := dm.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY id`)
	if err != nil {
		return nil, unavailable("list profiles", err)
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
		return nil, unavailable("iterate profiles", err)
	}
	success = true
	return profiles, nil
}

// DeleteProfile removes a profile and every connection touching it.
func (dm *DBManager) DeleteProfile(ctx context.Context, id int64) error {
	done := metrics.TimeOp("db_delete_profile")
	success := false
	defer func() { done(success) }()

	tx, err := dm.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin delete", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return unavailable("delete profile", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("delete profile", err)
	}
	if n == 0 {
		return fmt.Errorf("profile %d: %w", id, connstore.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM connections WHERE user_a = ? OR user_b = ?`, id, id); err != nil {
		return unavailable("delete profile connections", err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit delete", err)
	}
	success = true
	return nil
}

// scanProfile decodes a row. Malformed stored attributes are reported as
// ErrInvalidInput rather than handed to scoring as loosely typed data.
func scanProfile(row rowScanner) (apptype.Profile, error) {
	var (
		p                    apptype.Profile
		place, dob, location sql.NullString
		languages, family    string
		face, voice          []byte
		registered           sql.NullString
	)
	err := row.Scan(&p.ID, &p.Identity.FirstName, &p.Identity.LastName, &place, &dob,
		&languages, &family, &face, &voice, &location, &registered)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, unavailable("scan profile", err)
	}
	p.Identity.PlaceOfBirth = place.String
	p.LastKnownLocation = location.String

	if dob.Valid && strings.TrimSpace(dob.String) != "" {
		t, err := time.Parse(dateLayout, dob.String)
		if err != nil {
			return p, fmt.Errorf("%w: profile %d date of birth %q", connstore.ErrInvalidInput, p.ID, dob.String)
		}
		p.Identity.DateOfBirth = &t
	}
	if err := json.Unmarshal([]byte(languages), &p.Identity.Languages); err != nil {
		return p, fmt.Errorf("%w: profile %d languages: %v", connstore.ErrInvalidInput, p.ID, err)
	}
	if err := json.Unmarshal([]byte(family), &p.Identity.FamilyMembers); err != nil {
		return p, fmt.Errorf("%w: profile %d family members: %v", connstore.ErrInvalidInput, p.ID, err)
	}
	if len(p.Identity.Languages) == 0 {
		p.Identity.Languages = nil
	}
	if len(p.Identity.FamilyMembers) == 0 {
		p.Identity.FamilyMembers = nil
	}
	if p.FaceDescriptor, err = decodeVector(face); err != nil {
		return p, fmt.Errorf("%w: profile %d face descriptor: %v", connstore.ErrInvalidInput, p.ID, err)
	}
	if p.VoicePrint, err = decodeVector(voice); err != nil {
		return p, fmt.Errorf("%w: profile %d voice print: %v", connstore.ErrInvalidInput, p.ID, err)
	}
	if registered.Valid {
		if t, err := parseTime(registered.String); err == nil {
			p.RegisteredAt = t
		} else if t, err := time.Parse(time.DateTime, registered.String); err == nil {
			p.RegisteredAt = t.UTC()
		}
	}
	return p, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
