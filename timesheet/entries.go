/*
Package timesheet manages work sessions and converts them into earnings.

PURPOSE:
  A time entry is one same-day work session (date + start/end clock time).
  This package validates and stores entries, rejects overlapping sessions,
  and computes what each session earned using the rate in force on its
  work date.

INVARIANTS:
  - End > Start. Overnight sessions are rejected, not split.
  - No two entries for the same user on the same date may overlap. Entry
    intervals are half-open, so back-to-back sessions (end == next start)
    are allowed.

EARNINGS:
  earnings(entry) = hours(entry) * rate(user, workDate)
  Always recomputed from the live entry set and rate resolver. Nothing is
  cached: rate history and entries can change retroactively, and the
  carryover chain must observe those changes on its next pass.

SEE ALSO:
  - timesheet/earnings.go: Calculator and billing period
  - rates/: Rate resolution
  - minijob/: Monthly aggregation and the cap
*/
package timesheet

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tally/minijob-engine/engine"
)

// =============================================================================
// SERVICE - Entry CRUD with validation
// =============================================================================

type Service struct {
	Entries engine.TimeEntryStore
}

func NewService(entries engine.TimeEntryStore) *Service {
	return &Service{Entries: entries}
}

// AddEntry validates and stores a new work session. The entry's ID is
// assigned here.
func (s *Service) AddEntry(ctx context.Context, entry engine.TimeEntry) (engine.TimeEntry, error) {
	if err := s.validate(ctx, entry, ""); err != nil {
		return engine.TimeEntry{}, err
	}
	entry.ID = uuid.NewString()
	if err := s.Entries.AddEntry(ctx, entry); err != nil {
		return engine.TimeEntry{}, fmt.Errorf("add entry: %w", err)
	}
	return entry, nil
}

// UpdateEntry validates and stores changes to an existing session.
// The entry itself is excluded from the overlap check.
func (s *Service) UpdateEntry(ctx context.Context, entry engine.TimeEntry) error {
	if _, err := s.Entries.EntryByID(ctx, entry.ID); err != nil {
		if engine.IsNotFound(err) {
			return &engine.NotFoundError{Kind: "time entry", ID: entry.ID}
		}
		return fmt.Errorf("load entry: %w", err)
	}
	if err := s.validate(ctx, entry, entry.ID); err != nil {
		return err
	}
	if err := s.Entries.UpdateEntry(ctx, entry); err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return nil
}

func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	if err := s.Entries.DeleteEntry(ctx, id); err != nil {
		if engine.IsNotFound(err) {
			return &engine.NotFoundError{Kind: "time entry", ID: id}
		}
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *Service) EntryByID(ctx context.Context, id string) (engine.TimeEntry, error) {
	entry, err := s.Entries.EntryByID(ctx, id)
	if err != nil {
		if engine.IsNotFound(err) {
			return engine.TimeEntry{}, &engine.NotFoundError{Kind: "time entry", ID: id}
		}
		return engine.TimeEntry{}, fmt.Errorf("load entry: %w", err)
	}
	return entry, nil
}

func (s *Service) EntriesForUser(ctx context.Context, userID engine.UserID) ([]engine.TimeEntry, error) {
	return s.Entries.EntriesByUser(ctx, userID)
}

// EntriesForPeriod returns entries with WorkDate in [from, to] inclusive.
func (s *Service) EntriesForPeriod(ctx context.Context, userID engine.UserID, from, to engine.Date) ([]engine.TimeEntry, error) {
	return s.Entries.EntriesInRange(ctx, userID, from, to)
}

func (s *Service) validate(ctx context.Context, entry engine.TimeEntry, excludeID string) error {
	if entry.UserID == "" {
		return &engine.ValidationError{Field: "userId", Message: "required"}
	}
	if !entry.End.After(entry.Start) {
		return engine.ErrEndBeforeStart
	}
	return s.checkOverlap(ctx, entry, excludeID)
}

// =============================================================================
// OVERLAP CHECK - Half-open intervals, adjacency allowed
// =============================================================================

// checkOverlap rejects the candidate if it intersects any existing entry for
// the same user and date. Intervals are half-open [start, end), so an entry
// starting exactly when another ends is fine.
func (s *Service) checkOverlap(ctx context.Context, candidate engine.TimeEntry, excludeID string) error {
	existing, err := s.Entries.EntriesOnDate(ctx, candidate.UserID, candidate.WorkDate)
	if err != nil {
		return fmt.Errorf("load entries for overlap check: %w", err)
	}
	for _, e := range existing {
		if excludeID != "" && e.ID == excludeID {
			continue
		}
		if candidate.Start.Before(e.End) && e.Start.Before(candidate.End) {
			return &engine.OverlapError{
				UserID:     candidate.UserID,
				WorkDate:   candidate.WorkDate,
				Start:      candidate.Start,
				End:        candidate.End,
				ExistingID: e.ID,
			}
		}
	}
	return nil
}
