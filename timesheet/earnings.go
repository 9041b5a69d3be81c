package timesheet

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tally/minijob-engine/engine"
)

// RateResolver resolves the hourly rate in force for a user on a date.
// Implemented by rates.Resolver.
type RateResolver interface {
	RateForDate(ctx context.Context, userID engine.UserID, date engine.Date) (engine.Money, error)
}

// =============================================================================
// CALCULATOR - Entry -> money
// =============================================================================

// Calculator converts time entries into earnings. Stateless: every call
// reads the live entry set and rate history, so retroactive edits are
// always reflected.
type Calculator struct {
	Entries engine.TimeEntryStore
	Rates   RateResolver
}

func NewCalculator(entries engine.TimeEntryStore, rates RateResolver) *Calculator {
	return &Calculator{Entries: entries, Rates: rates}
}

// Hours returns the entry's working time in fractional hours.
func Hours(entry engine.TimeEntry) decimal.Decimal {
	minutes := entry.End.Sub(entry.Start) / time.Minute
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60))
}

// EarningsFor returns what one entry earned: hours worked times the rate in
// force on the entry's work date.
func (c *Calculator) EarningsFor(ctx context.Context, entry engine.TimeEntry) (engine.Money, error) {
	rate, err := c.Rates.RateForDate(ctx, entry.UserID, entry.WorkDate)
	if err != nil {
		return engine.Money{}, fmt.Errorf("resolve rate for %s: %w", entry.WorkDate, err)
	}
	return rate.Mul(Hours(entry)), nil
}

// TotalEarningsForPeriod sums EarningsFor over all of the user's entries
// with WorkDate in [from, to] inclusive.
func (c *Calculator) TotalEarningsForPeriod(ctx context.Context, userID engine.UserID, from, to engine.Date) (engine.Money, error) {
	entries, err := c.Entries.EntriesInRange(ctx, userID, from, to)
	if err != nil {
		return engine.Money{}, fmt.Errorf("load entries for period: %w", err)
	}

	total := engine.ZeroMoney()
	for _, entry := range entries {
		earned, err := c.EarningsFor(ctx, entry)
		if err != nil {
			return engine.Money{}, err
		}
		total = total.Add(earned)
	}
	return total, nil
}

// =============================================================================
// BILLING PERIOD - User-configurable reporting range
// =============================================================================

// UserSettingsSource provides per-user settings (billing period days).
// Implemented by rates.SettingsService.
type UserSettingsSource interface {
	SettingsForUser(ctx context.Context, userID engine.UserID) (engine.UserSettings, error)
}

// BillingPeriod computes the reporting period containing today for a user.
// This is a presentation concern distinct from the calendar-month carryover
// accounting period: users may report e.g. the 15th through the 14th.
//
// End days of 28 or later are clamped to the last day of short months.
type BillingPeriod struct {
	Settings UserSettingsSource
	Today    func() engine.Date
}

func NewBillingPeriod(settings UserSettingsSource) *BillingPeriod {
	return &BillingPeriod{Settings: settings, Today: engine.Today}
}

func (b *BillingPeriod) CurrentPeriod(ctx context.Context, userID engine.UserID) (engine.Period, error) {
	today := b.Today()

	settings, err := b.Settings.SettingsForUser(ctx, userID)
	if err != nil {
		return engine.Period{}, err
	}

	startDay := settings.BillingPeriodStartDay
	endDay := settings.BillingPeriodEndDay

	// Months are stepped with explicit year/month arithmetic and the day
	// clamped afterwards: date-level AddDate would normalize a clamped day
	// into the neighboring month when the target month is shorter.
	startYear, startMonth := today.Year(), int(today.Month())
	if today.Day() < startDay {
		startYear, startMonth = engine.PreviousMonth(startYear, startMonth)
	}
	start := engine.NewDate(startYear, time.Month(startMonth),
		clampDay(startDay, startYear, time.Month(startMonth)))

	endYear, endMonth := startYear, startMonth
	if startDay > endDay {
		endYear, endMonth = engine.NextMonth(endYear, endMonth)
	}
	end := engine.NewDate(endYear, time.Month(endMonth),
		clampDay(endDay, endYear, time.Month(endMonth)))

	return engine.Period{Start: start, End: end}, nil
}

func clampDay(day int, year int, month time.Month) int {
	last := engine.EndOfMonth(year, month).Day()
	if day > last {
		return last
	}
	return day
}
