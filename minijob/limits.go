/*
Package minijob applies the statutory monthly earnings cap and maintains the
month-to-month carryover chain.

PURPOSE:
  A minijob account may report at most the statutory limit per month.
  Earnings beyond the limit are not lost: they carry over into the next
  month, where they count against that month's limit, and so on.

TWO PIECES:
  - LimitService (this file): the effective-dated table of cap records and
    the fallback rules for resolving the cap in force on a date.
  - Engine (carryover.go): monthly aggregation, cap application, and the
    self-healing chain of carryover records.

LIMIT RESOLUTION:
  1. Record whose validity interval covers the date (latest ValidFrom wins).
  2. For FUTURE dates only: the newest record with ValidFrom on or before
     the date. A not-yet-effective current default must not shadow a later
     historical record that already covers the future date differently.
  3. The current active record, seeded with DefaultMonthlyLimit when the
     table is empty. Resolution is total: it never fails to produce a cap
     short of a storage error.

SEE ALSO:
  - carryover.go: The carryover chain
  - rates/: The same effective-dating pattern for wages
*/
package minijob

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tally/minijob-engine/engine"
)

// DefaultMonthlyLimit seeds the settings table when no record exists:
// 538.0 currency units per month.
var DefaultMonthlyLimit = engine.NewMoney(538.0)

// =============================================================================
// LIMIT SERVICE - Effective-dated cap resolution
// =============================================================================

type LimitService struct {
	Store engine.MinijobSettingsStore

	// Today is injectable for tests; defaults to engine.Today.
	Today func() engine.Date
}

func NewLimitService(store engine.MinijobSettingsStore) *LimitService {
	return &LimitService{Store: store, Today: engine.Today}
}

// Current returns the active settings record, creating a system default
// when none exists. Exactly one record is active at a time.
func (s *LimitService) Current(ctx context.Context) (engine.MinijobSettings, error) {
	settings, err := s.Store.ActiveSettings(ctx)
	if err == nil {
		return settings, nil
	}
	if !engine.IsNotFound(err) {
		return engine.MinijobSettings{}, fmt.Errorf("load active settings: %w", err)
	}

	settings = engine.MinijobSettings{
		ID:           uuid.NewString(),
		MonthlyLimit: DefaultMonthlyLimit,
		Description:  "Default minijob limit",
		ValidFrom:    s.Today(),
		Active:       true,
	}
	if err := s.Store.AddSettings(ctx, settings); err != nil {
		return engine.MinijobSettings{}, fmt.Errorf("seed default settings: %w", err)
	}
	return settings, nil
}

// ForDate returns the settings record in force on the date.
func (s *LimitService) ForDate(ctx context.Context, date engine.Date) (engine.MinijobSettings, error) {
	settings, err := s.Store.SettingsForDate(ctx, date)
	if err == nil {
		return settings, nil
	}
	if !engine.IsNotFound(err) {
		return engine.MinijobSettings{}, fmt.Errorf("load settings for %s: %w", date, err)
	}

	// For future dates, prefer the newest record already effective by then
	// over the current default: a later record may cover the future date
	// with a different limit.
	if date.After(s.Today()) {
		history, err := s.Store.SettingsHistory(ctx)
		if err != nil {
			return engine.MinijobSettings{}, fmt.Errorf("load settings history: %w", err)
		}
		for _, rec := range history {
			if rec.ValidFrom.BeforeOrEqual(date) {
				return rec, nil
			}
		}
	}

	return s.Current(ctx)
}

// History returns all settings records, newest ValidFrom first.
func (s *LimitService) History(ctx context.Context) ([]engine.MinijobSettings, error) {
	return s.Store.SettingsHistory(ctx)
}

// Update persists a settings change. Activating a record deactivates the
// previously active one and closes its interval the day before the new
// record's ValidFrom; close-old and open-new happen in one call so readers
// never see two active records across requests.
func (s *LimitService) Update(ctx context.Context, settings engine.MinijobSettings) (engine.MinijobSettings, error) {
	if !settings.MonthlyLimit.IsPositive() {
		return engine.MinijobSettings{}, &engine.ValidationError{Field: "monthlyLimit", Message: "must be positive"}
	}
	if settings.ValidFrom.IsZero() {
		return engine.MinijobSettings{}, &engine.ValidationError{Field: "validFrom", Message: "required"}
	}

	if settings.Active {
		current, err := s.Store.ActiveSettings(ctx)
		if err != nil && !engine.IsNotFound(err) {
			return engine.MinijobSettings{}, fmt.Errorf("load active settings: %w", err)
		}
		if err == nil && current.ID != settings.ID {
			current.Active = false
			end := settings.ValidFrom.AddDays(-1)
			current.ValidTo = &end
			if err := s.Store.UpdateSettings(ctx, current); err != nil {
				return engine.MinijobSettings{}, fmt.Errorf("close previous settings: %w", err)
			}
		}
	}

	if settings.ID == "" {
		settings.ID = uuid.NewString()
		if err := s.Store.AddSettings(ctx, settings); err != nil {
			return engine.MinijobSettings{}, fmt.Errorf("add settings: %w", err)
		}
		return settings, nil
	}
	if err := s.Store.UpdateSettings(ctx, settings); err != nil {
		return engine.MinijobSettings{}, fmt.Errorf("update settings: %w", err)
	}
	return settings, nil
}
