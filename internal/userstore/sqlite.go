// Package userstore persists user profiles across sessions. The SQLite
// backing means a user who gave their details once is recognized by name on
// every later visit, even after a restart.
package userstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"mealmind/pkg/mealtypes"
)

// SQLiteStore implements mealtypes.UserStore on a local SQLite database.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates the database at the given path and runs
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id                TEXT PRIMARY KEY,
		name              TEXT NOT NULL,
		name_key          TEXT NOT NULL UNIQUE,
		age               INTEGER NOT NULL,
		height            REAL,
		weight            REAL,
		conditions        TEXT NOT NULL DEFAULT '[]',
		primary_cuisine   TEXT NOT NULL,
		secondary_cuisine TEXT,
		created_at        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_name_key ON users(name_key);
	`
	_, err := s.db.Exec(schema)
	return err
}

// nameKey normalizes a display name for lookup. Name matching is
// case-insensitive and ignores surrounding whitespace.
func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Create persists a new record built from a completed draft and returns its
// id. A second create under the same normalized name fails on the unique
// index rather than silently forking the user.
func (s *SQLiteStore) Create(ctx context.Context, profile mealtypes.ProfileDraft) (string, error) {
	if err := validateDraft(profile); err != nil {
		return "", err
	}
	id := s.newID()

	conditions := profile.Conditions
	if conditions == nil {
		conditions = []mealtypes.MedicalCondition{}
	}
	condJSON, err := json.Marshal(conditions)
	if err != nil {
		return "", fmt.Errorf("marshal conditions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, name_key, age, height, weight, conditions, primary_cuisine, secondary_cuisine, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, strings.TrimSpace(profile.Name), nameKey(profile.Name), profile.Age,
		profile.Height, profile.Weight, string(condJSON),
		profile.PrimaryCuisine, profile.SecondaryCuisine,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// FindByName returns the record whose name matches ignoring case, or
// mealtypes.ErrUserNotFound.
func (s *SQLiteStore) FindByName(ctx context.Context, name string) (*mealtypes.UserRecord, error) {
	return s.findBy(ctx, "name_key = ?", nameKey(name))
}

// FindByID returns the record with the given id, or mealtypes.ErrUserNotFound.
func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*mealtypes.UserRecord, error) {
	return s.findBy(ctx, "id = ?", id)
}

func (s *SQLiteStore) findBy(ctx context.Context, where string, arg any) (*mealtypes.UserRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, age, height, weight, conditions, primary_cuisine, secondary_cuisine
		FROM users WHERE `+where, arg)

	rec, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, mealtypes.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return rec, nil
}

// All returns every stored record ordered by name.
func (s *SQLiteStore) All(ctx context.Context) ([]*mealtypes.UserRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, age, height, weight, conditions, primary_cuisine, secondary_cuisine
		FROM users ORDER BY name_key`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []*mealtypes.UserRecord
	for rows.Next() {
		rec, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a record by id. Deleting a missing id returns
// mealtypes.ErrUserNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mealtypes.ErrUserNotFound
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (*mealtypes.UserRecord, error) {
	var (
		rec       mealtypes.UserRecord
		condJSON  string
		secondary sql.NullString
	)
	if err := r.Scan(&rec.ID, &rec.Name, &rec.Age, &rec.Height, &rec.Weight, &condJSON, &rec.PrimaryCuisine, &secondary); err != nil {
		return nil, err
	}
	rec.SecondaryCuisine = secondary.String
	if err := json.Unmarshal([]byte(condJSON), &rec.Conditions); err != nil {
		return nil, fmt.Errorf("decode conditions: %w", err)
	}
	if rec.Conditions == nil {
		rec.Conditions = []mealtypes.MedicalCondition{}
	}
	return &rec, nil
}
