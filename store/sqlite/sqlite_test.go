package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally/minijob-engine/engine"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

const carol = engine.UserID("carol")

// =============================================================================
// RATE HISTORY
// =============================================================================

func TestRateHistory_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	end := engine.NewDate(2025, time.January, 31)
	require.NoError(t, store.AppendRate(ctx, engine.HourlyRate{
		ID: "r1", UserID: carol, Rate: engine.NewMoney(20.0),
		ValidFrom: engine.NewDate(2025, time.January, 1), ValidTo: &end,
	}))
	require.NoError(t, store.AppendRate(ctx, engine.HourlyRate{
		ID: "r2", UserID: carol, Rate: engine.NewMoney(25.5),
		ValidFrom: engine.NewDate(2025, time.February, 1),
	}))

	rates, err := store.RatesByUser(ctx, carol)
	require.NoError(t, err)
	require.Len(t, rates, 2)

	// Newest ValidFrom first.
	assert.Equal(t, "r2", rates[0].ID)
	assert.True(t, rates[0].Rate.Equal(engine.NewMoney(25.5)))
	assert.Nil(t, rates[0].ValidTo)

	assert.Equal(t, "r1", rates[1].ID)
	require.NotNil(t, rates[1].ValidTo)
	assert.True(t, rates[1].ValidTo.Equal(end))
}

func TestUpdateRate_ClosesInterval(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := engine.HourlyRate{
		ID: "r1", UserID: carol, Rate: engine.NewMoney(20.0),
		ValidFrom: engine.NewDate(2025, time.January, 1),
	}
	require.NoError(t, store.AppendRate(ctx, rec))

	end := engine.NewDate(2025, time.March, 31)
	rec.ValidTo = &end
	require.NoError(t, store.UpdateRate(ctx, rec))

	rates, err := store.RatesByUser(ctx, carol)
	require.NoError(t, err)
	require.NotNil(t, rates[0].ValidTo)
	assert.True(t, rates[0].ValidTo.Equal(end))
}

func TestUpdateRate_UnknownID(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateRate(context.Background(), engine.HourlyRate{
		ID: "missing", UserID: carol, Rate: engine.NewMoney(20.0),
		ValidFrom: engine.NewDate(2025, time.January, 1),
	})
	assert.True(t, engine.IsNotFound(err))
}

// =============================================================================
// USER SETTINGS
// =============================================================================

func TestUserSettings_UpsertAndRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.SettingsByUser(ctx, carol)
	assert.True(t, engine.IsNotFound(err))

	settings := engine.UserSettings{
		UserID:                carol,
		HourlyRate:            engine.NewMoney(25.0),
		HourlyRateValidFrom:   engine.NewDate(2025, time.February, 1),
		BillingPeriodStartDay: 15,
		BillingPeriodEndDay:   14,
		InvoiceEmail:          "carol@example.com",
	}
	require.NoError(t, store.SaveSettings(ctx, settings))

	stored, err := store.SettingsByUser(ctx, carol)
	require.NoError(t, err)
	assert.True(t, stored.HourlyRate.Equal(engine.NewMoney(25.0)))
	assert.Equal(t, 15, stored.BillingPeriodStartDay)
	assert.Equal(t, "carol@example.com", stored.InvoiceEmail)

	// Second save replaces, not duplicates.
	settings.InvoiceEmail = "billing@example.com"
	require.NoError(t, store.SaveSettings(ctx, settings))
	stored, err = store.SettingsByUser(ctx, carol)
	require.NoError(t, err)
	assert.Equal(t, "billing@example.com", stored.InvoiceEmail)
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

func TestTimeEntries_CRUDAndOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	add := func(id string, day int, start, end string) {
		t.Helper()
		s, err := engine.ParseClockTime(start)
		require.NoError(t, err)
		e, err := engine.ParseClockTime(end)
		require.NoError(t, err)
		require.NoError(t, store.AddEntry(ctx, engine.TimeEntry{
			ID: id, UserID: carol,
			WorkDate: engine.NewDate(2025, time.June, day),
			Start:    s, End: e,
		}))
	}

	// Inserted out of order on purpose.
	add("e3", 12, "09:00", "12:00")
	add("e1", 10, "13:00", "15:00")
	add("e2", 10, "09:00", "12:00")

	entries, err := store.EntriesByUser(ctx, carol)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"e2", "e1", "e3"}, []string{entries[0].ID, entries[1].ID, entries[2].ID},
		"ordered by date, then start time")

	inRange, err := store.EntriesInRange(ctx, carol,
		engine.NewDate(2025, time.June, 10), engine.NewDate(2025, time.June, 10))
	require.NoError(t, err)
	assert.Len(t, inRange, 2, "range bounds are inclusive")

	onDate, err := store.EntriesOnDate(ctx, carol, engine.NewDate(2025, time.June, 12))
	require.NoError(t, err)
	require.Len(t, onDate, 1)
	assert.Equal(t, "e3", onDate[0].ID)

	// Update and read back.
	entry := onDate[0]
	entry.End = engine.NewClockTime(13, 30)
	require.NoError(t, store.UpdateEntry(ctx, entry))
	stored, err := store.EntryByID(ctx, "e3")
	require.NoError(t, err)
	assert.Equal(t, "13:30", stored.End.String())

	// Delete.
	require.NoError(t, store.DeleteEntry(ctx, "e3"))
	_, err = store.EntryByID(ctx, "e3")
	assert.True(t, engine.IsNotFound(err))
	assert.True(t, engine.IsNotFound(store.DeleteEntry(ctx, "e3")))
}

// =============================================================================
// MINIJOB SETTINGS
// =============================================================================

func TestMinijobSettings_ActiveAndForDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.ActiveSettings(ctx)
	assert.True(t, engine.IsNotFound(err))

	endOld := engine.NewDate(2024, time.December, 31)
	require.NoError(t, store.AddSettings(ctx, engine.MinijobSettings{
		ID: "old", MonthlyLimit: engine.NewMoney(520.0),
		ValidFrom: engine.NewDate(2024, time.January, 1), ValidTo: &endOld,
	}))
	require.NoError(t, store.AddSettings(ctx, engine.MinijobSettings{
		ID: "new", MonthlyLimit: engine.NewMoney(538.0),
		Description: "2025 adjustment",
		ValidFrom:   engine.NewDate(2025, time.January, 1), Active: true,
	}))

	active, err := store.ActiveSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", active.ID)

	forDate, err := store.SettingsForDate(ctx, engine.NewDate(2024, time.June, 1))
	require.NoError(t, err)
	assert.Equal(t, "old", forDate.ID)

	_, err = store.SettingsForDate(ctx, engine.NewDate(2023, time.June, 1))
	assert.True(t, engine.IsNotFound(err), "no record covers dates before all intervals")

	history, err := store.SettingsHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "new", history[0].ID, "newest ValidFrom first")

	// Deactivate and close.
	active.Active = false
	end := engine.NewDate(2025, time.July, 31)
	active.ValidTo = &end
	require.NoError(t, store.UpdateSettings(ctx, active))
	_, err = store.ActiveSettings(ctx)
	assert.True(t, engine.IsNotFound(err))
}

// =============================================================================
// EARNINGS CARRYOVER
// =============================================================================

func TestCarryover_UpsertAndHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Carryover(ctx, carol, 2025, 6)
	assert.True(t, engine.IsNotFound(err))

	rec := engine.EarningsCarryover{
		UserID: carol, Year: 2025, Month: 6,
		CarryoverIn:      engine.ZeroMoney(),
		CarryoverOut:     engine.NewMoney(62.0),
		TotalEarnings:    engine.NewMoney(600.0),
		ReportedEarnings: engine.NewMoney(538.0),
	}
	require.NoError(t, store.SaveCarryover(ctx, rec))

	stored, err := store.Carryover(ctx, carol, 2025, 6)
	require.NoError(t, err)
	assert.True(t, stored.CarryoverOut.Equal(engine.NewMoney(62.0)))
	assert.True(t, stored.ReportedEarnings.Equal(engine.NewMoney(538.0)))

	// Saving the same month again replaces the row.
	rec.CarryoverOut = engine.NewMoney(10.0)
	require.NoError(t, store.SaveCarryover(ctx, rec))
	stored, err = store.Carryover(ctx, carol, 2025, 6)
	require.NoError(t, err)
	assert.True(t, stored.CarryoverOut.Equal(engine.NewMoney(10.0)))

	require.NoError(t, store.SaveCarryover(ctx, engine.EarningsCarryover{
		UserID: carol, Year: 2025, Month: 7,
		CarryoverIn: engine.NewMoney(10.0), CarryoverOut: engine.ZeroMoney(),
		TotalEarnings: engine.NewMoney(100.0), ReportedEarnings: engine.NewMoney(100.0),
	}))
	require.NoError(t, store.SaveCarryover(ctx, engine.EarningsCarryover{
		UserID: carol, Year: 2024, Month: 12,
		CarryoverIn: engine.ZeroMoney(), CarryoverOut: engine.ZeroMoney(),
		TotalEarnings: engine.ZeroMoney(), ReportedEarnings: engine.ZeroMoney(),
	}))

	history, err := store.CarryoverHistory(ctx, carol)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 7, history[0].Month)
	assert.Equal(t, 6, history[1].Month)
	assert.Equal(t, 2024, history[2].Year)
}
