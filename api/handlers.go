/*
handlers.go - HTTP API handlers for the earnings engine

PURPOSE:
  Exposes the engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates to the domain services. User identity
  arrives as an opaque path parameter; the API never interprets it.

ENDPOINTS:
  Time entries:
    GET    /api/users/{id}/entries            List entries
    POST   /api/users/{id}/entries            Create entry
    PUT    /api/entries/{id}                  Update entry
    DELETE /api/entries/{id}                  Delete entry

  Earnings & carryover:
    GET    /api/users/{id}/earnings           Period earnings (?from=&to=)
    GET    /api/users/{id}/months/{year}/{month}          Carryover record
    GET    /api/users/{id}/months/{year}/{month}/summary  Reporting summary
    GET    /api/users/{id}/carryovers         Carryover history

  Rates & settings:
    GET    /api/users/{id}/rates              Rate history
    POST   /api/users/{id}/rates              Change rate
    GET    /api/users/{id}/settings           User settings
    PUT    /api/users/{id}/settings           Update billing period / contact

  Minijob settings:
    GET    /api/minijob                       Current cap record
    GET    /api/minijob/history               All cap records
    PUT    /api/minijob                       Update cap

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Entity not found
  - 409: Overlapping time entry
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tally/minijob-engine/engine"
	"github.com/tally/minijob-engine/minijob"
	"github.com/tally/minijob-engine/rates"
	"github.com/tally/minijob-engine/timesheet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Entries   *timesheet.Service
	Earnings  *timesheet.Calculator
	Billing   *timesheet.BillingPeriod
	Rates     *rates.Service
	Settings  *rates.SettingsService
	Limits    *minijob.LimitService
	Carryover *minijob.Engine
}

// =============================================================================
// TIME ENTRY HANDLERS
// =============================================================================

// ListEntries returns a user's entries, optionally restricted to a range.
// GET /api/users/{id}/entries?from=2025-01-01&to=2025-01-31
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	var (
		entries []engine.TimeEntry
		err     error
	)
	fromStr, toStr := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if fromStr != "" || toStr != "" {
		from, ferr := engine.ParseDate(fromStr)
		to, terr := engine.ParseDate(toStr)
		if ferr != nil || terr != nil {
			writeError(w, http.StatusBadRequest, "Invalid from/to date (use YYYY-MM-DD)", nil)
			return
		}
		entries, err = h.Entries.EntriesForPeriod(r.Context(), userID, from, to)
	} else {
		entries, err = h.Entries.EntriesForUser(r.Context(), userID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}

	dtos := make([]TimeEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toTimeEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEntry records a new work session.
// POST /api/users/{id}/entries
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	var req TimeEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := parseEntry(userID, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	created, err := h.Entries.AddEntry(r.Context(), entry)
	if err != nil {
		writeDomainError(w, err, "Failed to create entry")
		return
	}
	writeJSON(w, http.StatusCreated, toTimeEntryDTO(created))
}

// UpdateEntry rewrites an existing work session.
// PUT /api/entries/{id}
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req TimeEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := parseEntry(engine.UserID(req.UserID), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	entry.ID = id

	if err := h.Entries.UpdateEntry(r.Context(), entry); err != nil {
		writeDomainError(w, err, "Failed to update entry")
		return
	}
	writeJSON(w, http.StatusOK, toTimeEntryDTO(entry))
}

// DeleteEntry removes a work session.
// DELETE /api/entries/{id}
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Entries.DeleteEntry(r.Context(), id); err != nil {
		writeDomainError(w, err, "Failed to delete entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseEntry(userID engine.UserID, req TimeEntryRequest) (engine.TimeEntry, error) {
	workDate, err := engine.ParseDate(req.WorkDate)
	if err != nil {
		return engine.TimeEntry{}, err
	}
	start, err := engine.ParseClockTime(req.Start)
	if err != nil {
		return engine.TimeEntry{}, err
	}
	end, err := engine.ParseClockTime(req.End)
	if err != nil {
		return engine.TimeEntry{}, err
	}
	return engine.TimeEntry{UserID: userID, WorkDate: workDate, Start: start, End: end}, nil
}

// =============================================================================
// EARNINGS & CARRYOVER HANDLERS
// =============================================================================

// PeriodEarnings returns the user's total earnings for a date range.
// GET /api/users/{id}/earnings?from=2025-01-01&to=2025-01-31
func (h *Handler) PeriodEarnings(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	from, ferr := engine.ParseDate(r.URL.Query().Get("from"))
	to, terr := engine.ParseDate(r.URL.Query().Get("to"))
	if ferr != nil || terr != nil {
		// Default to the user's current billing period.
		period, err := h.Billing.CurrentPeriod(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to resolve billing period", err)
			return
		}
		from, to = period.Start, period.End
	}

	total, err := h.Earnings.TotalEarningsForPeriod(r.Context(), userID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute earnings", err)
		return
	}

	writeJSON(w, http.StatusOK, PeriodEarningsDTO{
		UserID: string(userID),
		From:   from.String(),
		To:     to.String(),
		Total:  total.String(),
	})
}

// GetMonth returns the month's carryover record, calculating or repairing
// it as needed.
// GET /api/users/{id}/months/{year}/{month}
func (h *Handler) GetMonth(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))
	year, month, ok := parseYearMonth(w, r)
	if !ok {
		return
	}

	rec, status, err := h.Carryover.GetOrCalculate(r.Context(), userID, year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve month", err)
		return
	}
	writeJSON(w, http.StatusOK, toCarryoverDTO(rec, status))
}

// GetMonthSummary returns the reporting view of a month.
// GET /api/users/{id}/months/{year}/{month}/summary
func (h *Handler) GetMonthSummary(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))
	year, month, ok := parseYearMonth(w, r)
	if !ok {
		return
	}

	summary, err := h.Carryover.EarningsSummary(r.Context(), userID, year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve summary", err)
		return
	}
	over, err := h.Carryover.IsOverLimit(r.Context(), userID, year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve summary", err)
		return
	}

	writeJSON(w, http.StatusOK, SummaryDTO{
		UserID:           string(userID),
		Year:             year,
		Month:            month,
		ReportedEarnings: summary.ReportedEarnings.String(),
		CarryoverIn:      summary.CarryoverIn.String(),
		CarryoverOut:     summary.CarryoverOut.String(),
		OverLimit:        over,
	})
}

// ListCarryovers returns the user's carryover history, newest month first.
// GET /api/users/{id}/carryovers
func (h *Handler) ListCarryovers(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	records, err := h.Carryover.History(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list carryovers", err)
		return
	}

	dtos := make([]CarryoverDTO, len(records))
	for i, rec := range records {
		dtos[i] = toCarryoverDTO(rec, minijob.RepairConsistent)
		dtos[i].RepairStatus = ""
	}
	writeJSON(w, http.StatusOK, dtos)
}

func parseYearMonth(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return 0, 0, false
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return 0, 0, false
	}
	return year, month, true
}

// =============================================================================
// RATE & SETTINGS HANDLERS
// =============================================================================

// ListRates returns the user's rate history, newest first.
// GET /api/users/{id}/rates
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	history, err := h.Rates.HistoryForUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rates", err)
		return
	}

	dtos := make([]HourlyRateDTO, len(history))
	for i, rec := range history {
		dtos[i] = toHourlyRateDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ChangeRate records a wage change effective from a date.
// POST /api/users/{id}/rates
func (h *Handler) ChangeRate(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	var req ChangeRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rate, err := parseMoney(req.Rate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate (use a decimal string)", nil)
		return
	}
	validFrom, err := engine.ParseDate(req.ValidFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid validFrom date (use YYYY-MM-DD)", err)
		return
	}

	rec, err := h.Rates.ChangeRate(r.Context(), userID, rate, validFrom)
	if err != nil {
		writeDomainError(w, err, "Failed to change rate")
		return
	}
	writeJSON(w, http.StatusCreated, toHourlyRateDTO(rec))
}

// GetSettings returns the user's settings, creating defaults when absent.
// GET /api/users/{id}/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	settings, err := h.Settings.SettingsForUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserSettingsDTO(settings))
}

// UpdateSettings updates billing period and contact fields.
// PUT /api/users/{id}/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	current, err := h.Settings.SettingsForUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	current.BillingPeriodStartDay = req.BillingPeriodStartDay
	current.BillingPeriodEndDay = req.BillingPeriodEndDay
	current.InvoiceEmail = req.InvoiceEmail

	updated, err := h.Settings.UpdateSettings(r.Context(), current)
	if err != nil {
		writeDomainError(w, err, "Failed to update settings")
		return
	}
	writeJSON(w, http.StatusOK, toUserSettingsDTO(updated))
}

// =============================================================================
// MINIJOB SETTINGS HANDLERS
// =============================================================================

// GetMinijobSettings returns the currently active cap record.
// GET /api/minijob
func (h *Handler) GetMinijobSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Limits.Current(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load minijob settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toMinijobSettingsDTO(settings))
}

// ListMinijobSettings returns all cap records, newest first.
// GET /api/minijob/history
func (h *Handler) ListMinijobSettings(w http.ResponseWriter, r *http.Request) {
	history, err := h.Limits.History(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load minijob history", err)
		return
	}

	dtos := make([]MinijobSettingsDTO, len(history))
	for i, rec := range history {
		dtos[i] = toMinijobSettingsDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpdateMinijobSettings creates or updates a cap record.
// PUT /api/minijob
func (h *Handler) UpdateMinijobSettings(w http.ResponseWriter, r *http.Request) {
	var req MinijobSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	limit, err := parseMoney(req.MonthlyLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid monthlyLimit (use a decimal string)", nil)
		return
	}
	validFrom, err := engine.ParseDate(req.ValidFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid validFrom date (use YYYY-MM-DD)", err)
		return
	}

	settings := engine.MinijobSettings{
		ID:           req.ID,
		MonthlyLimit: limit,
		Description:  req.Description,
		ValidFrom:    validFrom,
		Active:       req.Active,
	}

	updated, err := h.Limits.Update(r.Context(), settings)
	if err != nil {
		writeDomainError(w, err, "Failed to update minijob settings")
		return
	}
	writeJSON(w, http.StatusOK, toMinijobSettingsDTO(updated))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// parseMoney parses a request amount strictly: malformed input is an error,
// never silently zero.
func parseMoney(s string) (engine.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return engine.Money{}, err
	}
	return engine.MoneyFromDecimal(d), nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Error = message + ": " + err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case engine.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, fallback, err)
	}
}
