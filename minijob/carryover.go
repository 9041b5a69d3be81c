/*
carryover.go - The monthly carryover chain

PURPOSE:
  One EarningsCarryover record exists per user per calendar month,
  conceptually a singly-linked chain: CarryoverIn of month M equals
  CarryoverOut of month M-1. Records are created lazily on first query and
  repaired on every subsequent one, so the chain self-heals after
  retroactive edits (a rate or entry added after later months were already
  computed).

CALCULATION (per month):
  limit   = cap in force on the first of the month
  in      = previous month's CarryoverOut (see WALK below)
  actual  = earnings from the month's time entries
  total   = actual + in
  total >  limit: reported = limit, out = total - limit
  total <= limit: reported = total, out = 0

WALK:
  The previous month's CarryoverOut is resolved by walking back to the
  backfill horizon, then re-verifying the chain forward: stored months whose
  CarryoverIn no longer matches the predecessor's CarryoverOut are
  recomputed, missing months are computed. Reading one month therefore heals
  every drifted month behind it, not just its immediate predecessor. The
  walk is bounded: months older than MaxBackfillMonths (default 12) relative
  to today are trusted as stored, or anchored with a persisted zero record,
  so ancient history is never revisited.

REPAIR:
  GetOrCalculate on an existing record re-derives what CarryoverIn should
  be and recomputes the record when it drifted. Repair failures are logged
  and suppressed - the stored record is still returned, flagged
  RepairFailed - because a broken neighbor must not take down the read
  path. Calculation failures for absent records propagate: fabricating an
  unsaved result would mislead the caller.

CONCURRENCY:
  Two concurrent calculations of the same (user, year, month) race benignly:
  last writer wins, and the next read repairs any drift. Low-contention,
  single-editor-per-account workload; accepted, not guaranteed.
*/
package minijob

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tally/minijob-engine/engine"
)

// DefaultMaxBackfillMonths bounds how far back the chain walk will compute
// missing months. Policy constant, not a technical limit.
const DefaultMaxBackfillMonths = 12

// EarningsSource supplies a user's actual earnings for a date range.
// Implemented by timesheet.Calculator.
type EarningsSource interface {
	TotalEarningsForPeriod(ctx context.Context, userID engine.UserID, from, to engine.Date) (engine.Money, error)
}

// LimitSource resolves the cap in force on a date.
// Implemented by LimitService.
type LimitSource interface {
	ForDate(ctx context.Context, date engine.Date) (engine.MinijobSettings, error)
}

// =============================================================================
// REPAIR STATUS
// =============================================================================

// RepairStatus reports what the consistency check did on a read.
type RepairStatus int

const (
	// RepairConsistent: the record was freshly calculated or its chain
	// linkage already matched.
	RepairConsistent RepairStatus = iota

	// Repaired: drift was detected and the record was recomputed.
	Repaired

	// RepairFailed: the check or recompute errored; the previously stored
	// record was returned unchanged.
	RepairFailed
)

func (s RepairStatus) String() string {
	switch s {
	case RepairConsistent:
		return "consistent"
	case Repaired:
		return "repaired"
	case RepairFailed:
		return "repair-failed"
	default:
		return "unknown"
	}
}

// Summary is the reporting view of one month.
type Summary struct {
	ReportedEarnings engine.Money
	CarryoverIn      engine.Money
	CarryoverOut     engine.Money
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Store    engine.CarryoverStore
	Earnings EarningsSource
	Limits   LimitSource
	Logger   *slog.Logger

	// MaxBackfillMonths bounds the backward walk. Zero means the default.
	MaxBackfillMonths int

	// Today is injectable for tests; defaults to engine.Today.
	Today func() engine.Date
}

func NewEngine(store engine.CarryoverStore, earnings EarningsSource, limits LimitSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Store:             store,
		Earnings:          earnings,
		Limits:            limits,
		Logger:            logger,
		MaxBackfillMonths: DefaultMaxBackfillMonths,
		Today:             engine.Today,
	}
}

// GetOrCalculate returns the month's record, calculating it when absent and
// repairing its chain linkage when present.
func (e *Engine) GetOrCalculate(ctx context.Context, userID engine.UserID, year, month int) (engine.EarningsCarryover, RepairStatus, error) {
	stored, err := e.Store.Carryover(ctx, userID, year, month)
	if err != nil {
		if !engine.IsNotFound(err) {
			return engine.EarningsCarryover{}, RepairFailed, fmt.Errorf("load carryover %d-%02d: %w", year, month, err)
		}
		rec, err := e.Calculate(ctx, userID, year, month)
		if err != nil {
			return engine.EarningsCarryover{}, RepairFailed, err
		}
		return rec, RepairConsistent, nil
	}

	// Consistency repair: the stored CarryoverIn must equal the previous
	// month's CarryoverOut. Any failure here is logged and suppressed;
	// the stored record is still the best known answer.
	expectedIn, err := e.previousCarryoverOut(ctx, userID, year, month)
	if err != nil {
		e.Logger.Warn("carryover chain check failed, returning stored record",
			"user", string(userID), "year", year, "month", month, "error", err)
		return stored, RepairFailed, nil
	}
	if expectedIn.Equal(stored.CarryoverIn) {
		return stored, RepairConsistent, nil
	}

	repaired, err := e.calculateWithIn(ctx, userID, year, month, expectedIn)
	if err != nil {
		e.Logger.Warn("carryover repair failed, returning stored record",
			"user", string(userID), "year", year, "month", month, "error", err)
		return stored, RepairFailed, nil
	}
	e.Logger.Info("carryover repaired",
		"user", string(userID), "year", year, "month", month,
		"carryover_in", repaired.CarryoverIn.String(), "was", stored.CarryoverIn.String())
	return repaired, Repaired, nil
}

// Calculate computes and persists the month's record from scratch.
func (e *Engine) Calculate(ctx context.Context, userID engine.UserID, year, month int) (engine.EarningsCarryover, error) {
	in, err := e.previousCarryoverOut(ctx, userID, year, month)
	if err != nil {
		return engine.EarningsCarryover{}, err
	}
	return e.calculateWithIn(ctx, userID, year, month, in)
}

// calculateWithIn computes the month from a known carryover-in and persists
// the result. Persistence failures propagate: returning an unsaved record
// would break the chain invariant for later months.
func (e *Engine) calculateWithIn(ctx context.Context, userID engine.UserID, year, month int, in engine.Money) (engine.EarningsCarryover, error) {
	period := engine.MonthPeriod(year, time.Month(month))

	settings, err := e.Limits.ForDate(ctx, period.Start)
	if err != nil {
		return engine.EarningsCarryover{}, fmt.Errorf("resolve monthly limit for %s: %w", period.Start, err)
	}
	limit := settings.MonthlyLimit

	actual, err := e.Earnings.TotalEarningsForPeriod(ctx, userID, period.Start, period.End)
	if err != nil {
		return engine.EarningsCarryover{}, fmt.Errorf("month earnings for %s: %w", period, err)
	}

	rec := engine.EarningsCarryover{
		UserID:      userID,
		Year:        year,
		Month:       month,
		CarryoverIn: in,
	}
	rec.TotalEarnings = actual.Add(in)
	if rec.TotalEarnings.GreaterThan(limit) {
		rec.ReportedEarnings = limit
		rec.CarryoverOut = rec.TotalEarnings.Sub(limit)
	} else {
		rec.ReportedEarnings = rec.TotalEarnings
		rec.CarryoverOut = engine.ZeroMoney()
	}

	if err := e.Store.SaveCarryover(ctx, rec); err != nil {
		return engine.EarningsCarryover{}, fmt.Errorf("save carryover %d-%02d: %w", year, month, err)
	}
	return rec, nil
}

// previousCarryoverOut resolves the chain input for (year, month): the
// previous month's CarryoverOut, verified against that month's own
// predecessor in turn. The cascade is expressed as a backward walk to the
// horizon plus a forward verification pass rather than recursion.
func (e *Engine) previousCarryoverOut(ctx context.Context, userID engine.UserID, year, month int) (engine.Money, error) {
	type monthKey struct {
		year  int
		month int
	}

	today := e.Today()
	y, m := engine.PreviousMonth(year, month)

	var window []monthKey
	in := engine.ZeroMoney()

	// Walk back to the backfill horizon. Everything inside the horizon gets
	// re-verified below; the record at the horizon is the trusted seed.
	for {
		if engine.MonthsBetween(today.Year(), int(today.Month()), y, m) > e.maxBackfill() {
			rec, err := e.Store.Carryover(ctx, userID, y, m)
			if err == nil {
				in = rec.CarryoverOut
				break
			}
			if !engine.IsNotFound(err) {
				return engine.Money{}, fmt.Errorf("load carryover %d-%02d: %w", y, m, err)
			}
			// Anchor ancient history with a persisted zero record so the
			// cascade never runs unbounded.
			anchor := engine.EarningsCarryover{
				UserID:           userID,
				Year:             y,
				Month:            m,
				CarryoverIn:      engine.ZeroMoney(),
				CarryoverOut:     engine.ZeroMoney(),
				TotalEarnings:    engine.ZeroMoney(),
				ReportedEarnings: engine.ZeroMoney(),
			}
			if err := e.Store.SaveCarryover(ctx, anchor); err != nil {
				return engine.Money{}, fmt.Errorf("save anchor carryover %d-%02d: %w", y, m, err)
			}
			break
		}
		window = append(window, monthKey{year: y, month: m})
		y, m = engine.PreviousMonth(y, m)
	}

	// Verify forward, oldest month first. Stored months with intact linkage
	// pass through untouched; drifted or missing months are recomputed, so
	// drift anywhere behind the queried month heals on this read.
	for i := len(window) - 1; i >= 0; i-- {
		k := window[i]
		rec, err := e.Store.Carryover(ctx, userID, k.year, k.month)
		if err == nil && rec.CarryoverIn.Equal(in) {
			in = rec.CarryoverOut
			continue
		}
		if err != nil && !engine.IsNotFound(err) {
			return engine.Money{}, fmt.Errorf("load carryover %d-%02d: %w", k.year, k.month, err)
		}
		repaired, err := e.calculateWithIn(ctx, userID, k.year, k.month, in)
		if err != nil {
			return engine.Money{}, err
		}
		in = repaired.CarryoverOut
	}

	return in, nil
}

func (e *Engine) maxBackfill() int {
	if e.MaxBackfillMonths > 0 {
		return e.MaxBackfillMonths
	}
	return DefaultMaxBackfillMonths
}

// =============================================================================
// DERIVED QUERIES
// =============================================================================

// CarryoverInto returns the amount carried into the month.
func (e *Engine) CarryoverInto(ctx context.Context, userID engine.UserID, year, month int) (engine.Money, error) {
	rec, _, err := e.GetOrCalculate(ctx, userID, year, month)
	if err != nil {
		return engine.Money{}, err
	}
	return rec.CarryoverIn, nil
}

// CarryoverOutOf returns the amount deferred out of the month.
func (e *Engine) CarryoverOutOf(ctx context.Context, userID engine.UserID, year, month int) (engine.Money, error) {
	rec, _, err := e.GetOrCalculate(ctx, userID, year, month)
	if err != nil {
		return engine.Money{}, err
	}
	return rec.CarryoverOut, nil
}

// EarningsSummary returns the reporting view of the month.
func (e *Engine) EarningsSummary(ctx context.Context, userID engine.UserID, year, month int) (Summary, error) {
	rec, _, err := e.GetOrCalculate(ctx, userID, year, month)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		ReportedEarnings: rec.ReportedEarnings,
		CarryoverIn:      rec.CarryoverIn,
		CarryoverOut:     rec.CarryoverOut,
	}, nil
}

// IsOverLimit reports whether the month's earnings exceeded the cap.
func (e *Engine) IsOverLimit(ctx context.Context, userID engine.UserID, year, month int) (bool, error) {
	rec, _, err := e.GetOrCalculate(ctx, userID, year, month)
	if err != nil {
		return false, err
	}
	return rec.CarryoverOut.IsPositive(), nil
}

// History returns the user's carryover records, newest month first.
func (e *Engine) History(ctx context.Context, userID engine.UserID) ([]engine.EarningsCarryover, error) {
	return e.Store.CarryoverHistory(ctx, userID)
}
