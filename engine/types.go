/*
types.go - Domain records for the earnings engine

KEY CONCEPTS:
  - HourlyRate: Effective-dated wage record, append-only per user
  - TimeEntry: One same-day work session
  - UserSettings: Per-user defaults (current rate, billing period)
  - MinijobSettings: Effective-dated global monthly earnings cap
  - EarningsCarryover: Monthly earnings record with cap applied and surplus
    chained into the next month

EFFECTIVE DATING:
  HourlyRate and MinijobSettings records are valid over [ValidFrom, ValidTo],
  with a nil ValidTo meaning "open-ended, still in force". Creating a new
  record closes the previously open one the day before the new ValidFrom.
  Records are never deleted.

SEE ALSO:
  - store.go: How these records are persisted
  - rates/: Rate history maintenance and date-effective resolution
  - minijob/: Cap resolution and the carryover chain
*/
package engine

// =============================================================================
// IDENTIFIERS
// =============================================================================

// UserID is an opaque identifier supplied by the identity collaborator.
// The engine never interprets its structure.
type UserID string

// =============================================================================
// HOURLY RATE - Effective-dated wage history record
// =============================================================================

type HourlyRate struct {
	ID        string
	UserID    UserID
	Rate      Money
	ValidFrom Date
	ValidTo   *Date // nil = open-ended, currently in force
}

// Covers reports whether the record's validity interval contains the date.
func (r HourlyRate) Covers(d Date) bool {
	if d.Before(r.ValidFrom) {
		return false
	}
	return r.ValidTo == nil || d.BeforeOrEqual(*r.ValidTo)
}

// =============================================================================
// TIME ENTRY - One work session (same-day only)
// =============================================================================

type TimeEntry struct {
	ID       string
	UserID   UserID
	WorkDate Date
	Start    ClockTime
	End      ClockTime
}

// =============================================================================
// USER SETTINGS - Per-user defaults
// =============================================================================

type UserSettings struct {
	UserID                UserID
	HourlyRate            Money
	HourlyRateValidFrom   Date
	BillingPeriodStartDay int
	BillingPeriodEndDay   int
	InvoiceEmail          string
}

// =============================================================================
// MINIJOB SETTINGS - Global effective-dated monthly earnings cap
// =============================================================================

type MinijobSettings struct {
	ID           string
	MonthlyLimit Money
	Description  string
	ValidFrom    Date
	ValidTo      *Date // nil = open-ended
	Active       bool
}

func (s MinijobSettings) Covers(d Date) bool {
	if d.Before(s.ValidFrom) {
		return false
	}
	return s.ValidTo == nil || d.BeforeOrEqual(*s.ValidTo)
}

// =============================================================================
// EARNINGS CARRYOVER - Monthly record, unique per (user, year, month)
// =============================================================================

// EarningsCarryover holds one month's reconciled earnings.
//
// INVARIANTS (after calculation):
//   - TotalEarnings = actual earnings in the month + CarryoverIn
//   - TotalEarnings >  limit: Reported = limit, CarryoverOut = Total - limit
//   - TotalEarnings <= limit: Reported = Total, CarryoverOut = 0
//   - CarryoverIn of month M equals CarryoverOut of month M-1
type EarningsCarryover struct {
	UserID UserID
	Year   int
	Month  int

	CarryoverIn      Money
	CarryoverOut     Money
	TotalEarnings    Money
	ReportedEarnings Money
}
