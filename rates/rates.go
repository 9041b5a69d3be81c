/*
Package rates maintains per-user hourly rate history and resolves the rate
in force on any given date.

PURPOSE:
  Wages change over time, and historical earnings must keep using the rate
  that was in force when the work happened. This package owns the append-only
  rate history (effective-dated records) and the resolution chain that turns
  (user, date) into a rate.

RESOLUTION CHAIN (total - always produces a rate):
  1. History record whose [ValidFrom, ValidTo] interval covers the date,
     latest ValidFrom winning.
  2. The user's current settings rate, but only when the date is on or after
     the settings' HourlyRateValidFrom. A not-yet-effective current rate is
     never applied backwards.
  3. The newest history record with ValidFrom on or before the date.
  4. DefaultHourlyRate.

HISTORY MAINTENANCE:
  ChangeRate closes the currently open record (ValidTo = new ValidFrom - 1
  day) and appends the new one, then moves the user's settings forward. The
  history is never deleted; retroactive corrections append, they don't edit.

SEE ALSO:
  - rates/settings.go: User settings defaults
  - timesheet/: Consumes Resolver for earnings calculation
*/
package rates

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tally/minijob-engine/engine"
)

// DefaultHourlyRate is the system fallback when neither history nor settings
// yield a rate: 30.0 currency units per hour.
var DefaultHourlyRate = engine.NewMoney(30.0)

// =============================================================================
// RESOLVER - (user, date) -> hourly rate
// =============================================================================

// Resolver resolves the hourly rate in force for a user on a date.
// Resolution is deterministic and total: it degrades through the fallback
// chain and only fails on storage errors.
type Resolver struct {
	History  engine.RateHistoryStore
	Settings engine.UserSettingsStore
}

func NewResolver(history engine.RateHistoryStore, settings engine.UserSettingsStore) *Resolver {
	return &Resolver{History: history, Settings: settings}
}

// RateForDate returns the hourly rate applicable to the user on the date.
func (r *Resolver) RateForDate(ctx context.Context, userID engine.UserID, date engine.Date) (engine.Money, error) {
	history, err := r.History.RatesByUser(ctx, userID)
	if err != nil {
		return engine.Money{}, fmt.Errorf("load rate history: %w", err)
	}

	// History is ordered newest ValidFrom first, so the first covering
	// record is the tie-break winner.
	for _, rec := range history {
		if rec.Covers(date) {
			return rec.Rate, nil
		}
	}

	settings, err := r.Settings.SettingsByUser(ctx, userID)
	if err != nil {
		if engine.IsNotFound(err) {
			return DefaultHourlyRate, nil
		}
		return engine.Money{}, fmt.Errorf("load user settings: %w", err)
	}

	// The current settings rate applies only from its own effective date.
	// For earlier dates, fall back to the newest record that had started.
	if date.Before(settings.HourlyRateValidFrom) {
		for _, rec := range history {
			if rec.ValidFrom.BeforeOrEqual(date) {
				return rec.Rate, nil
			}
		}
		return DefaultHourlyRate, nil
	}

	return settings.HourlyRate, nil
}

// =============================================================================
// SERVICE - Rate history maintenance
// =============================================================================

type Service struct {
	History  engine.RateHistoryStore
	Settings engine.UserSettingsStore
}

func NewService(history engine.RateHistoryStore, settings engine.UserSettingsStore) *Service {
	return &Service{History: history, Settings: settings}
}

// ChangeRate records a wage change effective from the given date.
// The previously open history record is closed the day before validFrom,
// and the user's settings move to the new rate.
func (s *Service) ChangeRate(ctx context.Context, userID engine.UserID, rate engine.Money, validFrom engine.Date) (engine.HourlyRate, error) {
	if !rate.IsPositive() {
		return engine.HourlyRate{}, &engine.ValidationError{Field: "rate", Message: "must be positive"}
	}

	history, err := s.History.RatesByUser(ctx, userID)
	if err != nil {
		return engine.HourlyRate{}, fmt.Errorf("load rate history: %w", err)
	}

	for _, rec := range history {
		if rec.ValidTo != nil || !rec.ValidFrom.Before(validFrom) {
			continue
		}
		closed := rec
		end := validFrom.AddDays(-1)
		closed.ValidTo = &end
		if err := s.History.UpdateRate(ctx, closed); err != nil {
			return engine.HourlyRate{}, fmt.Errorf("close open rate record: %w", err)
		}
		break
	}

	record := engine.HourlyRate{
		ID:        uuid.NewString(),
		UserID:    userID,
		Rate:      rate,
		ValidFrom: validFrom,
		ValidTo:   nil,
	}
	if err := s.History.AppendRate(ctx, record); err != nil {
		return engine.HourlyRate{}, fmt.Errorf("append rate record: %w", err)
	}

	settings, err := s.Settings.SettingsByUser(ctx, userID)
	if err != nil && !engine.IsNotFound(err) {
		return engine.HourlyRate{}, fmt.Errorf("load user settings: %w", err)
	}
	if engine.IsNotFound(err) {
		settings = defaultSettings(userID)
	}
	settings.HourlyRate = rate
	settings.HourlyRateValidFrom = validFrom
	if err := s.Settings.SaveSettings(ctx, settings); err != nil {
		return engine.HourlyRate{}, fmt.Errorf("save user settings: %w", err)
	}

	return record, nil
}

// History returns the user's rate records, newest ValidFrom first.
func (s *Service) HistoryForUser(ctx context.Context, userID engine.UserID) ([]engine.HourlyRate, error) {
	return s.History.RatesByUser(ctx, userID)
}
