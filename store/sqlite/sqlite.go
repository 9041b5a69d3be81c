/*
Package sqlite provides a SQLite-backed implementation of the engine's
persistence interfaces.

PURPOSE:
  Implements RateHistoryStore, UserSettingsStore, TimeEntryStore,
  MinijobSettingsStore, and CarryoverStore over database/sql. The same
  patterns apply to PostgreSQL - only minor dialect differences.

KEY TABLES:
  hourly_rates:        Append-only wage history (updates close intervals only)
  user_settings:       One row per user
  time_entries:        Work sessions
  minijob_settings:    Effective-dated global cap records
  earnings_carryovers: One row per (user, year, month)

ENCODING:
  Money as TEXT (decimal strings - never floats), dates as TEXT
  "2006-01-02", clock times as TEXT "15:04". Lexicographic order matches
  chronological order for all three, so ORDER BY and range predicates work
  on the raw columns.

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, single
  writer, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/minijob.db")
  if err != nil { ... }
  defer store.Close()

SEE ALSO:
  - engine/store.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tally/minijob-engine/engine"
)

// Store implements all engine storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a SQLite store for the given database path.
// Use ":memory:" for an in-memory database.
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

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS hourly_rates (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		rate TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_hourly_rates_user_from
		ON hourly_rates(user_id, valid_from DESC);

	CREATE TABLE IF NOT EXISTS user_settings (
		user_id TEXT PRIMARY KEY,
		hourly_rate TEXT NOT NULL,
		hourly_rate_valid_from TEXT NOT NULL,
		billing_period_start_day INTEGER NOT NULL,
		billing_period_end_day INTEGER NOT NULL,
		invoice_email TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		work_date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_time_entries_user_date
		ON time_entries(user_id, work_date, start_time);

	CREATE TABLE IF NOT EXISTS minijob_settings (
		id TEXT PRIMARY KEY,
		monthly_limit TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		valid_from TEXT NOT NULL,
		valid_to TEXT,
		active INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_minijob_settings_from
		ON minijob_settings(valid_from DESC);

	CREATE TABLE IF NOT EXISTS earnings_carryovers (
		user_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		carryover_in TEXT NOT NULL,
		carryover_out TEXT NOT NULL,
		total_earnings TEXT NOT NULL,
		reported_earnings TEXT NOT NULL,
		PRIMARY KEY (user_id, year, month)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RATE HISTORY
// =============================================================================

func (s *Store) AppendRate(ctx context.Context, rate engine.HourlyRate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hourly_rates (id, user_id, rate, valid_from, valid_to)
		 VALUES (?, ?, ?, ?, ?)`,
		rate.ID, string(rate.UserID), rate.Rate.Value.String(), rate.ValidFrom.String(), dateOrNull(rate.ValidTo))
	return err
}

func (s *Store) UpdateRate(ctx context.Context, rate engine.HourlyRate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE hourly_rates SET rate = ?, valid_from = ?, valid_to = ? WHERE id = ?`,
		rate.Rate.Value.String(), rate.ValidFrom.String(), dateOrNull(rate.ValidTo), rate.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) RatesByUser(ctx context.Context, userID engine.UserID) ([]engine.HourlyRate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, rate, valid_from, valid_to
		 FROM hourly_rates WHERE user_id = ? ORDER BY valid_from DESC`,
		string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []engine.HourlyRate
	for rows.Next() {
		var (
			rec          engine.HourlyRate
			uid, rateStr string
			fromStr      string
			toStr        sql.NullString
		)
		if err := rows.Scan(&rec.ID, &uid, &rateStr, &fromStr, &toStr); err != nil {
			return nil, err
		}
		rec.UserID = engine.UserID(uid)
		rec.Rate = engine.MustParseMoney(rateStr)
		if rec.ValidFrom, err = engine.ParseDate(fromStr); err != nil {
			return nil, err
		}
		if rec.ValidTo, err = nullDate(toStr); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// =============================================================================
// USER SETTINGS
// =============================================================================

func (s *Store) SettingsByUser(ctx context.Context, userID engine.UserID) (engine.UserSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, hourly_rate, hourly_rate_valid_from,
		        billing_period_start_day, billing_period_end_day, invoice_email
		 FROM user_settings WHERE user_id = ?`,
		string(userID))

	var (
		settings           engine.UserSettings
		uid, rateStr, from string
	)
	err := row.Scan(&uid, &rateStr, &from,
		&settings.BillingPeriodStartDay, &settings.BillingPeriodEndDay, &settings.InvoiceEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.UserSettings{}, engine.ErrNotFound
	}
	if err != nil {
		return engine.UserSettings{}, err
	}
	settings.UserID = engine.UserID(uid)
	settings.HourlyRate = engine.MustParseMoney(rateStr)
	if settings.HourlyRateValidFrom, err = engine.ParseDate(from); err != nil {
		return engine.UserSettings{}, err
	}
	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings engine.UserSettings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_settings
		 (user_id, hourly_rate, hourly_rate_valid_from, billing_period_start_day, billing_period_end_day, invoice_email)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   hourly_rate = excluded.hourly_rate,
		   hourly_rate_valid_from = excluded.hourly_rate_valid_from,
		   billing_period_start_day = excluded.billing_period_start_day,
		   billing_period_end_day = excluded.billing_period_end_day,
		   invoice_email = excluded.invoice_email`,
		string(settings.UserID), settings.HourlyRate.Value.String(), settings.HourlyRateValidFrom.String(),
		settings.BillingPeriodStartDay, settings.BillingPeriodEndDay, settings.InvoiceEmail)
	return err
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

func (s *Store) AddEntry(ctx context.Context, entry engine.TimeEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO time_entries (id, user_id, work_date, start_time, end_time)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.ID, string(entry.UserID), entry.WorkDate.String(), entry.Start.String(), entry.End.String())
	return err
}

func (s *Store) UpdateEntry(ctx context.Context, entry engine.TimeEntry) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE time_entries SET user_id = ?, work_date = ?, start_time = ?, end_time = ? WHERE id = ?`,
		string(entry.UserID), entry.WorkDate.String(), entry.Start.String(), entry.End.String(), entry.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) EntryByID(ctx context.Context, id string) (engine.TimeEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, work_date, start_time, end_time FROM time_entries WHERE id = ?`, id)
	entry, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.TimeEntry{}, engine.ErrNotFound
	}
	return entry, err
}

func (s *Store) EntriesByUser(ctx context.Context, userID engine.UserID) ([]engine.TimeEntry, error) {
	return s.queryEntries(ctx,
		`SELECT id, user_id, work_date, start_time, end_time
		 FROM time_entries WHERE user_id = ?
		 ORDER BY work_date, start_time`,
		string(userID))
}

func (s *Store) EntriesInRange(ctx context.Context, userID engine.UserID, from, to engine.Date) ([]engine.TimeEntry, error) {
	return s.queryEntries(ctx,
		`SELECT id, user_id, work_date, start_time, end_time
		 FROM time_entries WHERE user_id = ? AND work_date >= ? AND work_date <= ?
		 ORDER BY work_date, start_time`,
		string(userID), from.String(), to.String())
}

func (s *Store) EntriesOnDate(ctx context.Context, userID engine.UserID, date engine.Date) ([]engine.TimeEntry, error) {
	return s.queryEntries(ctx,
		`SELECT id, user_id, work_date, start_time, end_time
		 FROM time_entries WHERE user_id = ? AND work_date = ?
		 ORDER BY start_time`,
		string(userID), date.String())
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]engine.TimeEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []engine.TimeEntry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func scanEntry(scan func(...any) error) (engine.TimeEntry, error) {
	var id, uid, date, start, end string
	if err := scan(&id, &uid, &date, &start, &end); err != nil {
		return engine.TimeEntry{}, err
	}

	result := engine.TimeEntry{ID: id, UserID: engine.UserID(uid)}
	var err error
	if result.WorkDate, err = engine.ParseDate(date); err != nil {
		return engine.TimeEntry{}, err
	}
	if result.Start, err = engine.ParseClockTime(start); err != nil {
		return engine.TimeEntry{}, err
	}
	if result.End, err = engine.ParseClockTime(end); err != nil {
		return engine.TimeEntry{}, err
	}
	return result, nil
}

// =============================================================================
// MINIJOB SETTINGS
// =============================================================================

func (s *Store) ActiveSettings(ctx context.Context) (engine.MinijobSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, monthly_limit, description, valid_from, valid_to, active
		 FROM minijob_settings WHERE active = 1
		 ORDER BY valid_from DESC LIMIT 1`)
	return scanSettings(row.Scan)
}

func (s *Store) SettingsForDate(ctx context.Context, date engine.Date) (engine.MinijobSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, monthly_limit, description, valid_from, valid_to, active
		 FROM minijob_settings
		 WHERE valid_from <= ? AND (valid_to IS NULL OR valid_to >= ?)
		 ORDER BY valid_from DESC LIMIT 1`,
		date.String(), date.String())
	return scanSettings(row.Scan)
}

func (s *Store) SettingsHistory(ctx context.Context) ([]engine.MinijobSettings, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, monthly_limit, description, valid_from, valid_to, active
		 FROM minijob_settings ORDER BY valid_from DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []engine.MinijobSettings
	for rows.Next() {
		rec, err := scanSettings(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *Store) AddSettings(ctx context.Context, settings engine.MinijobSettings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO minijob_settings (id, monthly_limit, description, valid_from, valid_to, active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		settings.ID, settings.MonthlyLimit.Value.String(), settings.Description,
		settings.ValidFrom.String(), dateOrNull(settings.ValidTo), boolToInt(settings.Active))
	return err
}

func (s *Store) UpdateSettings(ctx context.Context, settings engine.MinijobSettings) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE minijob_settings
		 SET monthly_limit = ?, description = ?, valid_from = ?, valid_to = ?, active = ?
		 WHERE id = ?`,
		settings.MonthlyLimit.Value.String(), settings.Description,
		settings.ValidFrom.String(), dateOrNull(settings.ValidTo), boolToInt(settings.Active), settings.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanSettings(scan func(...any) error) (engine.MinijobSettings, error) {
	var (
		rec            engine.MinijobSettings
		limitStr, from string
		to             sql.NullString
		active         int
	)
	err := scan(&rec.ID, &limitStr, &rec.Description, &from, &to, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.MinijobSettings{}, engine.ErrNotFound
	}
	if err != nil {
		return engine.MinijobSettings{}, err
	}
	rec.MonthlyLimit = engine.MustParseMoney(limitStr)
	if rec.ValidFrom, err = engine.ParseDate(from); err != nil {
		return engine.MinijobSettings{}, err
	}
	if rec.ValidTo, err = nullDate(to); err != nil {
		return engine.MinijobSettings{}, err
	}
	rec.Active = active != 0
	return rec, nil
}

// =============================================================================
// EARNINGS CARRYOVER
// =============================================================================

func (s *Store) Carryover(ctx context.Context, userID engine.UserID, year, month int) (engine.EarningsCarryover, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, year, month, carryover_in, carryover_out, total_earnings, reported_earnings
		 FROM earnings_carryovers WHERE user_id = ? AND year = ? AND month = ?`,
		string(userID), year, month)
	rec, err := scanCarryover(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.EarningsCarryover{}, engine.ErrNotFound
	}
	return rec, err
}

func (s *Store) SaveCarryover(ctx context.Context, carryover engine.EarningsCarryover) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO earnings_carryovers
		 (user_id, year, month, carryover_in, carryover_out, total_earnings, reported_earnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, year, month) DO UPDATE SET
		   carryover_in = excluded.carryover_in,
		   carryover_out = excluded.carryover_out,
		   total_earnings = excluded.total_earnings,
		   reported_earnings = excluded.reported_earnings`,
		string(carryover.UserID), carryover.Year, carryover.Month,
		carryover.CarryoverIn.Value.String(), carryover.CarryoverOut.Value.String(),
		carryover.TotalEarnings.Value.String(), carryover.ReportedEarnings.Value.String())
	return err
}

func (s *Store) CarryoverHistory(ctx context.Context, userID engine.UserID) ([]engine.EarningsCarryover, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, year, month, carryover_in, carryover_out, total_earnings, reported_earnings
		 FROM earnings_carryovers WHERE user_id = ?
		 ORDER BY year DESC, month DESC`,
		string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []engine.EarningsCarryover
	for rows.Next() {
		rec, err := scanCarryover(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func scanCarryover(scan func(...any) error) (engine.EarningsCarryover, error) {
	var (
		rec                 engine.EarningsCarryover
		uid                 string
		in, out, total, rep string
	)
	if err := scan(&uid, &rec.Year, &rec.Month, &in, &out, &total, &rep); err != nil {
		return engine.EarningsCarryover{}, err
	}
	rec.UserID = engine.UserID(uid)
	rec.CarryoverIn = engine.MustParseMoney(in)
	rec.CarryoverOut = engine.MustParseMoney(out)
	rec.TotalEarnings = engine.MustParseMoney(total)
	rec.ReportedEarnings = engine.MustParseMoney(rep)
	return rec, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func dateOrNull(d *engine.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullDate(s sql.NullString) (*engine.Date, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := engine.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrNotFound
	}
	return nil
}
