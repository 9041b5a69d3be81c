/*
store.go - Persistence interfaces for the engine

PURPOSE:
  Defines the contract between the services and the storage collaborator.
  The engine prescribes operations, not technology: the same interfaces are
  implemented by store/memory (tests, dev) and store/sqlite (production).

CONTRACT:
  - Each call is atomic at the storage layer.
  - Reads reflect prior writes immediately (no eventual consistency).
  - "Not found" is reported as engine.ErrNotFound, never as a nil record.
  - No caching: rate history and entries can change retroactively, and the
    carryover chain must see those changes on the next read.

SEE ALSO:
  - store/memory/memory.go: In-memory implementation
  - store/sqlite/sqlite.go: SQLite implementation
*/
package engine

import "context"

// =============================================================================
// RATE HISTORY - Append-only effective-dated wage records
// =============================================================================

// RateHistoryStore persists per-user hourly rate history.
// History is append-only; the only permitted update is closing the open
// record's interval when a newer record supersedes it.
type RateHistoryStore interface {
	// AppendRate persists a new history record.
	AppendRate(ctx context.Context, rate HourlyRate) error

	// UpdateRate persists a changed record (interval closing only).
	UpdateRate(ctx context.Context, rate HourlyRate) error

	// RatesByUser returns all records for a user, newest ValidFrom first.
	RatesByUser(ctx context.Context, userID UserID) ([]HourlyRate, error)
}

// =============================================================================
// USER SETTINGS
// =============================================================================

type UserSettingsStore interface {
	// SettingsByUser returns the user's settings or ErrNotFound.
	SettingsByUser(ctx context.Context, userID UserID) (UserSettings, error)

	// SaveSettings inserts or replaces the user's settings.
	SaveSettings(ctx context.Context, settings UserSettings) error
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

type TimeEntryStore interface {
	AddEntry(ctx context.Context, entry TimeEntry) error
	UpdateEntry(ctx context.Context, entry TimeEntry) error
	DeleteEntry(ctx context.Context, id string) error

	// EntryByID returns the entry or ErrNotFound.
	EntryByID(ctx context.Context, id string) (TimeEntry, error)

	// EntriesByUser returns all entries for a user, ordered by work date
	// then start time.
	EntriesByUser(ctx context.Context, userID UserID) ([]TimeEntry, error)

	// EntriesInRange returns entries with WorkDate in [from, to] inclusive,
	// ordered by work date then start time.
	EntriesInRange(ctx context.Context, userID UserID, from, to Date) ([]TimeEntry, error)

	// EntriesOnDate returns a user's entries for one date, ordered by start.
	EntriesOnDate(ctx context.Context, userID UserID, date Date) ([]TimeEntry, error)
}

// =============================================================================
// MINIJOB SETTINGS - Global effective-dated cap records
// =============================================================================

type MinijobSettingsStore interface {
	// ActiveSettings returns the active record with the newest ValidFrom,
	// or ErrNotFound when no record is active.
	ActiveSettings(ctx context.Context) (MinijobSettings, error)

	// SettingsForDate returns the record whose interval covers the date,
	// latest ValidFrom winning, or ErrNotFound.
	SettingsForDate(ctx context.Context, date Date) (MinijobSettings, error)

	// SettingsHistory returns all records, newest ValidFrom first.
	SettingsHistory(ctx context.Context) ([]MinijobSettings, error)

	AddSettings(ctx context.Context, settings MinijobSettings) error
	UpdateSettings(ctx context.Context, settings MinijobSettings) error
}

// =============================================================================
// EARNINGS CARRYOVER - Monthly records keyed by (user, year, month)
// =============================================================================

type CarryoverStore interface {
	// Carryover returns the record for the key or ErrNotFound.
	Carryover(ctx context.Context, userID UserID, year, month int) (EarningsCarryover, error)

	// SaveCarryover inserts or replaces the record for its key.
	SaveCarryover(ctx context.Context, carryover EarningsCarryover) error

	// CarryoverHistory returns all records for a user, newest month first.
	CarryoverHistory(ctx context.Context, userID UserID) ([]EarningsCarryover, error)
}
