package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally/minijob-engine/engine"
	"github.com/tally/minijob-engine/minijob"
	"github.com/tally/minijob-engine/rates"
	"github.com/tally/minijob-engine/store/memory"
	"github.com/tally/minijob-engine/timesheet"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestServer wires the full service stack over a memory store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.New()

	resolver := rates.NewResolver(store, store)
	settings := rates.NewSettingsService(store)
	entries := timesheet.NewService(store)
	calculator := timesheet.NewCalculator(store, resolver)
	billing := timesheet.NewBillingPeriod(settings)
	limits := minijob.NewLimitService(store)
	carryover := minijob.NewEngine(store, calculator, limits, slog.Default())

	h := &Handler{
		Entries:   entries,
		Earnings:  calculator,
		Billing:   billing,
		Rates:     rates.NewService(store, store),
		Settings:  settings,
		Limits:    limits,
		Carryover: carryover,
	}

	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

func TestEntryLifecycle(t *testing.T) {
	srv := newTestServer(t)

	// Create.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/entries", TimeEntryRequest{
		WorkDate: "2025-06-10", Start: "09:00", End: "13:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[TimeEntryDTO](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.UserID)

	// List.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/users/alice/entries", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decode[[]TimeEntryDTO](t, resp)
	require.Len(t, listed, 1)

	// Update.
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/entries/"+created.ID, TimeEntryRequest{
		UserID: "alice", WorkDate: "2025-06-10", Start: "09:00", End: "12:00",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[TimeEntryDTO](t, resp)
	assert.Equal(t, "12:00", updated.End)

	// Delete.
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/entries/"+created.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/entries/"+created.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateEntry_Conflicts(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/entries", TimeEntryRequest{
		WorkDate: "2025-06-10", Start: "09:00", End: "12:00",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Overlapping session: 409.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/entries", TimeEntryRequest{
		WorkDate: "2025-06-10", Start: "11:00", End: "13:00",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Back-to-back session: fine.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/entries", TimeEntryRequest{
		WorkDate: "2025-06-10", Start: "12:00", End: "14:00",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateEntry_BadInput(t *testing.T) {
	srv := newTestServer(t)

	// Malformed date.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/entries", TimeEntryRequest{
		WorkDate: "10.06.2025", Start: "09:00", End: "12:00",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// End before start.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/entries", TimeEntryRequest{
		WorkDate: "2025-06-10", Start: "12:00", End: "09:00",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChangeRate_BadAmount(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/rates", ChangeRateRequest{
		Rate: "twenty", ValidFrom: "2025-06-01",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// EARNINGS & CARRYOVER
// =============================================================================

func TestPeriodEarnings(t *testing.T) {
	srv := newTestServer(t)

	// Rate 20.0 from June 1, then a four-hour session.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/rates", ChangeRateRequest{
		Rate: "20.0", ValidFrom: "2025-06-01",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/entries", TimeEntryRequest{
		WorkDate: "2025-06-10", Start: "09:00", End: "13:00",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet,
		srv.URL+"/api/users/alice/earnings?from=2025-06-01&to=2025-06-30", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	earnings := decode[PeriodEarningsDTO](t, resp)
	assert.Equal(t, "80.00", earnings.Total)
}

func TestGetMonthSummary(t *testing.T) {
	srv := newTestServer(t)

	// 30 hours at 20.0/h = 600.0 in June: over the 538.0 default cap.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/rates", ChangeRateRequest{
		Rate: "20.0", ValidFrom: "2025-06-01",
	})
	resp.Body.Close()
	for day := 10; day < 20; day++ {
		resp = doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/entries", TimeEntryRequest{
			WorkDate: engine.NewDate(2025, time.June, day).String(),
			Start:    "09:00", End: "12:00",
		})
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/users/alice/months/2025/6/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[SummaryDTO](t, resp)
	assert.Equal(t, "538.00", summary.ReportedEarnings)
	assert.Equal(t, "62.00", summary.CarryoverOut)
	assert.True(t, summary.OverLimit)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/users/alice/months/2025/13", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// MINIJOB SETTINGS
// =============================================================================

func TestMinijobSettingsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	// First read seeds the default.
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/minijob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	current := decode[MinijobSettingsDTO](t, resp)
	assert.Equal(t, "538.00", current.MonthlyLimit)
	assert.True(t, current.Active)

	// Raise the cap.
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/minijob", MinijobSettingsRequest{
		MonthlyLimit: "556.0", Description: "raise", ValidFrom: "2026-01-01", Active: true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[MinijobSettingsDTO](t, resp)
	assert.Equal(t, "556.00", updated.MonthlyLimit)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/minijob/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]MinijobSettingsDTO](t, resp)
	assert.Len(t, history, 2)

	// Invalid limit: 400.
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/minijob", MinijobSettingsRequest{
		MonthlyLimit: "-5", ValidFrom: "2026-01-01", Active: true,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Malformed limit: 400 from parsing, not a zero-amount validation.
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/minijob", MinijobSettingsRequest{
		MonthlyLimit: "lots", ValidFrom: "2026-01-01", Active: true,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// USER SETTINGS
// =============================================================================

func TestUserSettingsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/users/alice/settings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	settings := decode[UserSettingsDTO](t, resp)
	assert.Equal(t, "30.00", settings.HourlyRate)
	assert.Equal(t, 1, settings.BillingPeriodStartDay)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/users/alice/settings", UpdateSettingsRequest{
		BillingPeriodStartDay: 15, BillingPeriodEndDay: 14, InvoiceEmail: "alice@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[UserSettingsDTO](t, resp)
	assert.Equal(t, 15, updated.BillingPeriodStartDay)
	assert.Equal(t, "alice@example.com", updated.InvoiceEmail)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/users/alice/settings", UpdateSettingsRequest{
		BillingPeriodStartDay: 0, BillingPeriodEndDay: 14,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
