/*
Package storage defines the persistence contract between the engine and
the authoritative store.

PURPOSE:
  Collections are scoped by academy id and written with full-collection
  replace semantics only - there is no field-level update primitive. This
  mirrors the consistency model of the engine: last-write-wins at the
  granularity of a whole collection, with a single logical writer per
  academy session reconciling best-effort against a shared store.

COLLECTIONS:
  students, classes (embedding their exceptions), events, ledger,
  settings, watermarks. Calendar instances and balances are derived state
  and are never persisted.

IMPLEMENTATIONS:
  - storage/memory.go:       In-memory (tests, dev)
  - store/sqlite/sqlite.go:  SQLite, WAL mode
  - store/postgres/:         PostgreSQL via pgx

SEE ALSO:
  - engine/engine.go: Write-through mutation path
  - engine/sync.go:   Periodic pull path
*/
package storage

import (
	"context"

	"github.com/dojokit/academy-engine/academy"
	"github.com/dojokit/academy-engine/automation"
	"github.com/dojokit/academy-engine/ledger"
	"github.com/dojokit/academy-engine/schedule"
)

// =============================================================================
// STORE - Per-academy collection persistence, replace-only writes
// =============================================================================

type Store interface {
	LoadStudents(ctx context.Context, id academy.AcademyID) ([]academy.Student, error)
	SaveStudents(ctx context.Context, id academy.AcademyID, students []academy.Student) error

	LoadClasses(ctx context.Context, id academy.AcademyID) ([]schedule.ClassDefinition, error)
	SaveClasses(ctx context.Context, id academy.AcademyID, classes []schedule.ClassDefinition) error

	LoadEvents(ctx context.Context, id academy.AcademyID) ([]schedule.OneOffEvent, error)
	SaveEvents(ctx context.Context, id academy.AcademyID, events []schedule.OneOffEvent) error

	LoadLedger(ctx context.Context, id academy.AcademyID) ([]ledger.Record, error)
	SaveLedger(ctx context.Context, id academy.AcademyID, records []ledger.Record) error

	// LoadSettings returns nil when the academy has no settings yet.
	LoadSettings(ctx context.Context, id academy.AcademyID) (*academy.Settings, error)
	SaveSettings(ctx context.Context, id academy.AcademyID, settings academy.Settings) error

	// LoadWatermarks returns nil when no automation pass has ever run.
	LoadWatermarks(ctx context.Context, id academy.AcademyID) (*automation.Watermarks, error)
	SaveWatermarks(ctx context.Context, id academy.AcademyID, marks automation.Watermarks) error

	Close() error
}
