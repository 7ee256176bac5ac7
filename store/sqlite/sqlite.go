/*
Package sqlite provides a SQLite-backed implementation of storage.Store.

PURPOSE:
  The persistence contract is full-collection replace per academy - there
  is no field-level update primitive. Each collection is stored as one
  JSON payload row keyed by (academy_id, collection name), and every save
  upserts the whole row. This makes the store a faithful last-write-wins
  unit at collection granularity, matching the engine's consistency model.

SCHEMA:
  collections(academy_id, name, payload, updated_at)
  PRIMARY KEY (academy_id, name)

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block, a single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/academy.db")  // ":memory:" for tests
  defer store.Close()

SEE ALSO:
  - storage/storage.go: Interface definition
  - store/postgres: Same contract on PostgreSQL
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dojokit/academy-engine/academy"
	"github.com/dojokit/academy-engine/automation"
	"github.com/dojokit/academy-engine/ledger"
	"github.com/dojokit/academy-engine/schedule"
)

// Collection names. One row per (academy, collection).
const (
	colStudents   = "students"
	colClasses    = "classes"
	colEvents     = "events"
	colLedger     = "ledger"
	colSettings   = "settings"
	colWatermarks = "watermarks"
)

// Store implements storage.Store on SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at the given path and migrates the
// schema. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		academy_id TEXT NOT NULL,
		name       TEXT NOT NULL,
		payload    TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (academy_id, name)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BLOB PRIMITIVES - Load / replace one collection
// =============================================================================

func (s *Store) loadBlob(ctx context.Context, id academy.AcademyID, name string, out any) (bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM collections WHERE academy_id = ? AND name = ?`,
		string(id), name,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return false, fmt.Errorf("corrupt %s payload for academy %s: %w", name, id, err)
	}
	return true, nil
}

func (s *Store) saveBlob(ctx context.Context, id academy.AcademyID, name string, in any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collections (academy_id, name, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (academy_id, name)
		DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		string(id), name, string(payload), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// =============================================================================
// COLLECTIONS
// =============================================================================

func (s *Store) LoadStudents(ctx context.Context, id academy.AcademyID) ([]academy.Student, error) {
	var out []academy.Student
	if _, err := s.loadBlob(ctx, id, colStudents, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveStudents(ctx context.Context, id academy.AcademyID, students []academy.Student) error {
	return s.saveBlob(ctx, id, colStudents, students)
}

func (s *Store) LoadClasses(ctx context.Context, id academy.AcademyID) ([]schedule.ClassDefinition, error) {
	var out []schedule.ClassDefinition
	if _, err := s.loadBlob(ctx, id, colClasses, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveClasses(ctx context.Context, id academy.AcademyID, classes []schedule.ClassDefinition) error {
	return s.saveBlob(ctx, id, colClasses, classes)
}

func (s *Store) LoadEvents(ctx context.Context, id academy.AcademyID) ([]schedule.OneOffEvent, error) {
	var out []schedule.OneOffEvent
	if _, err := s.loadBlob(ctx, id, colEvents, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveEvents(ctx context.Context, id academy.AcademyID, events []schedule.OneOffEvent) error {
	return s.saveBlob(ctx, id, colEvents, events)
}

func (s *Store) LoadLedger(ctx context.Context, id academy.AcademyID) ([]ledger.Record, error) {
	var out []ledger.Record
	if _, err := s.loadBlob(ctx, id, colLedger, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveLedger(ctx context.Context, id academy.AcademyID, records []ledger.Record) error {
	return s.saveBlob(ctx, id, colLedger, records)
}

func (s *Store) LoadSettings(ctx context.Context, id academy.AcademyID) (*academy.Settings, error) {
	var out academy.Settings
	found, err := s.loadBlob(ctx, id, colSettings, &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func (s *Store) SaveSettings(ctx context.Context, id academy.AcademyID, settings academy.Settings) error {
	return s.saveBlob(ctx, id, colSettings, settings)
}

func (s *Store) LoadWatermarks(ctx context.Context, id academy.AcademyID) (*automation.Watermarks, error) {
	var out automation.Watermarks
	found, err := s.loadBlob(ctx, id, colWatermarks, &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func (s *Store) SaveWatermarks(ctx context.Context, id academy.AcademyID, marks automation.Watermarks) error {
	return s.saveBlob(ctx, id, colWatermarks, marks)
}
