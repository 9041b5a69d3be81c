package timesheet_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally/minijob-engine/engine"
	"github.com/tally/minijob-engine/store/memory"
	"github.com/tally/minijob-engine/timesheet"
)

const bob = engine.UserID("bob")

func clock(t *testing.T, s string) engine.ClockTime {
	t.Helper()
	ct, err := engine.ParseClockTime(s)
	require.NoError(t, err)
	return ct
}

func workDay(t *testing.T) engine.Date {
	t.Helper()
	return engine.NewDate(2025, time.June, 10)
}

func entry(t *testing.T, start, end string) engine.TimeEntry {
	t.Helper()
	return engine.TimeEntry{
		UserID:   bob,
		WorkDate: workDay(t),
		Start:    clock(t, start),
		End:      clock(t, end),
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestAddEntry_AssignsID(t *testing.T) {
	svc := timesheet.NewService(memory.New())

	created, err := svc.AddEntry(context.Background(), entry(t, "09:00", "12:00"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestAddEntry_RejectsEndNotAfterStart(t *testing.T) {
	svc := timesheet.NewService(memory.New())
	ctx := context.Background()

	_, err := svc.AddEntry(ctx, entry(t, "12:00", "09:00"))
	assert.ErrorIs(t, err, engine.ErrEndBeforeStart)

	// Zero-length sessions are rejected too.
	_, err = svc.AddEntry(ctx, entry(t, "09:00", "09:00"))
	assert.ErrorIs(t, err, engine.ErrEndBeforeStart)
}

func TestAddEntry_RequiresUser(t *testing.T) {
	svc := timesheet.NewService(memory.New())

	e := entry(t, "09:00", "12:00")
	e.UserID = ""
	_, err := svc.AddEntry(context.Background(), e)
	assert.True(t, engine.IsClientError(err))
}

// =============================================================================
// OVERLAP
// =============================================================================

func TestAddEntry_RejectsOverlap(t *testing.T) {
	// GIVEN: An existing 09:00-12:00 session
	// WHEN: Adding 11:00-13:00 on the same date
	// THEN: The add is rejected as a conflict

	svc := timesheet.NewService(memory.New())
	ctx := context.Background()

	existing, err := svc.AddEntry(ctx, entry(t, "09:00", "12:00"))
	require.NoError(t, err)

	_, err = svc.AddEntry(ctx, entry(t, "11:00", "13:00"))
	require.Error(t, err)
	assert.True(t, engine.IsConflict(err))

	var overlap *engine.OverlapError
	require.ErrorAs(t, err, &overlap)
	assert.Equal(t, existing.ID, overlap.ExistingID)
}

func TestAddEntry_AllowsBackToBackSessions(t *testing.T) {
	// 12:00-14:00 starts exactly when 09:00-12:00 ends: no overlap.

	svc := timesheet.NewService(memory.New())
	ctx := context.Background()

	_, err := svc.AddEntry(ctx, entry(t, "09:00", "12:00"))
	require.NoError(t, err)

	_, err = svc.AddEntry(ctx, entry(t, "12:00", "14:00"))
	assert.NoError(t, err)
}

func TestAddEntry_AllowsSameTimesOnDifferentDates(t *testing.T) {
	svc := timesheet.NewService(memory.New())
	ctx := context.Background()

	_, err := svc.AddEntry(ctx, entry(t, "09:00", "12:00"))
	require.NoError(t, err)

	other := entry(t, "09:00", "12:00")
	other.WorkDate = engine.NewDate(2025, time.June, 11)
	_, err = svc.AddEntry(ctx, other)
	assert.NoError(t, err)
}

func TestUpdateEntry_ExcludesItselfFromOverlapCheck(t *testing.T) {
	// Shifting an entry within its own old interval must not conflict with
	// itself.

	svc := timesheet.NewService(memory.New())
	ctx := context.Background()

	created, err := svc.AddEntry(ctx, entry(t, "09:00", "12:00"))
	require.NoError(t, err)

	created.End = clock(t, "11:00")
	assert.NoError(t, svc.UpdateEntry(ctx, created))
}

func TestUpdateEntry_StillChecksOtherEntries(t *testing.T) {
	svc := timesheet.NewService(memory.New())
	ctx := context.Background()

	_, err := svc.AddEntry(ctx, entry(t, "09:00", "12:00"))
	require.NoError(t, err)
	second, err := svc.AddEntry(ctx, entry(t, "13:00", "15:00"))
	require.NoError(t, err)

	second.Start = clock(t, "11:00")
	err = svc.UpdateEntry(ctx, second)
	assert.True(t, engine.IsConflict(err))
}

// =============================================================================
// NOT FOUND
// =============================================================================

func TestUpdateEntry_UnknownID(t *testing.T) {
	svc := timesheet.NewService(memory.New())

	e := entry(t, "09:00", "12:00")
	e.ID = "missing"
	err := svc.UpdateEntry(context.Background(), e)
	assert.True(t, engine.IsNotFound(err))
}

func TestDeleteEntry_UnknownID(t *testing.T) {
	svc := timesheet.NewService(memory.New())

	err := svc.DeleteEntry(context.Background(), "missing")
	assert.True(t, engine.IsNotFound(err))
}

func TestDeleteEntry_RemovesEntry(t *testing.T) {
	svc := timesheet.NewService(memory.New())
	ctx := context.Background()

	created, err := svc.AddEntry(ctx, entry(t, "09:00", "12:00"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEntry(ctx, created.ID))

	_, err = svc.EntryByID(ctx, created.ID)
	assert.True(t, engine.IsNotFound(err))
}

// =============================================================================
// QUERIES
// =============================================================================

func TestEntriesForPeriod_InclusiveBounds(t *testing.T) {
	svc := timesheet.NewService(memory.New())
	ctx := context.Background()

	for _, day := range []int{1, 15, 30} {
		e := entry(t, "09:00", "10:00")
		e.WorkDate = engine.NewDate(2025, time.June, day)
		_, err := svc.AddEntry(ctx, e)
		require.NoError(t, err)
	}

	entries, err := svc.EntriesForPeriod(ctx, bob,
		engine.NewDate(2025, time.June, 1), engine.NewDate(2025, time.June, 15))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].WorkDate.Equal(engine.NewDate(2025, time.June, 1)))
	assert.True(t, entries[1].WorkDate.Equal(engine.NewDate(2025, time.June, 15)))
}
