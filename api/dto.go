/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Dates travel as
  "2006-01-02" strings, clock times as "15:04", and money as decimal
  strings - never floats.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/tally/minijob-engine/engine"
	"github.com/tally/minijob-engine/minijob"
)

// =============================================================================
// TIME ENTRIES
// =============================================================================

type TimeEntryDTO struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	WorkDate string `json:"workDate"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

type TimeEntryRequest struct {
	UserID   string `json:"userId"`
	WorkDate string `json:"workDate"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

func toTimeEntryDTO(e engine.TimeEntry) TimeEntryDTO {
	return TimeEntryDTO{
		ID:       e.ID,
		UserID:   string(e.UserID),
		WorkDate: e.WorkDate.String(),
		Start:    e.Start.String(),
		End:      e.End.String(),
	}
}

// =============================================================================
// RATES & SETTINGS
// =============================================================================

type HourlyRateDTO struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	Rate      string  `json:"rate"`
	ValidFrom string  `json:"validFrom"`
	ValidTo   *string `json:"validTo,omitempty"`
}

type ChangeRateRequest struct {
	Rate      string `json:"rate"`
	ValidFrom string `json:"validFrom"`
}

func toHourlyRateDTO(r engine.HourlyRate) HourlyRateDTO {
	dto := HourlyRateDTO{
		ID:        r.ID,
		UserID:    string(r.UserID),
		Rate:      r.Rate.String(),
		ValidFrom: r.ValidFrom.String(),
	}
	if r.ValidTo != nil {
		s := r.ValidTo.String()
		dto.ValidTo = &s
	}
	return dto
}

type UserSettingsDTO struct {
	UserID                string `json:"userId"`
	HourlyRate            string `json:"hourlyRate"`
	HourlyRateValidFrom   string `json:"hourlyRateValidFrom"`
	BillingPeriodStartDay int    `json:"billingPeriodStartDay"`
	BillingPeriodEndDay   int    `json:"billingPeriodEndDay"`
	InvoiceEmail          string `json:"invoiceEmail"`
}

type UpdateSettingsRequest struct {
	BillingPeriodStartDay int    `json:"billingPeriodStartDay"`
	BillingPeriodEndDay   int    `json:"billingPeriodEndDay"`
	InvoiceEmail          string `json:"invoiceEmail"`
}

func toUserSettingsDTO(s engine.UserSettings) UserSettingsDTO {
	return UserSettingsDTO{
		UserID:                string(s.UserID),
		HourlyRate:            s.HourlyRate.String(),
		HourlyRateValidFrom:   s.HourlyRateValidFrom.String(),
		BillingPeriodStartDay: s.BillingPeriodStartDay,
		BillingPeriodEndDay:   s.BillingPeriodEndDay,
		InvoiceEmail:          s.InvoiceEmail,
	}
}

// =============================================================================
// MINIJOB SETTINGS
// =============================================================================

type MinijobSettingsDTO struct {
	ID           string  `json:"id"`
	MonthlyLimit string  `json:"monthlyLimit"`
	Description  string  `json:"description"`
	ValidFrom    string  `json:"validFrom"`
	ValidTo      *string `json:"validTo,omitempty"`
	Active       bool    `json:"active"`
}

type MinijobSettingsRequest struct {
	ID           string `json:"id,omitempty"`
	MonthlyLimit string `json:"monthlyLimit"`
	Description  string `json:"description"`
	ValidFrom    string `json:"validFrom"`
	Active       bool   `json:"active"`
}

func toMinijobSettingsDTO(s engine.MinijobSettings) MinijobSettingsDTO {
	dto := MinijobSettingsDTO{
		ID:           s.ID,
		MonthlyLimit: s.MonthlyLimit.String(),
		Description:  s.Description,
		ValidFrom:    s.ValidFrom.String(),
		Active:       s.Active,
	}
	if s.ValidTo != nil {
		v := s.ValidTo.String()
		dto.ValidTo = &v
	}
	return dto
}

// =============================================================================
// CARRYOVER & SUMMARIES
// =============================================================================

type CarryoverDTO struct {
	UserID           string `json:"userId"`
	Year             int    `json:"year"`
	Month            int    `json:"month"`
	CarryoverIn      string `json:"carryoverIn"`
	CarryoverOut     string `json:"carryoverOut"`
	TotalEarnings    string `json:"totalEarnings"`
	ReportedEarnings string `json:"reportedEarnings"`
	RepairStatus     string `json:"repairStatus,omitempty"`
}

func toCarryoverDTO(c engine.EarningsCarryover, status minijob.RepairStatus) CarryoverDTO {
	return CarryoverDTO{
		UserID:           string(c.UserID),
		Year:             c.Year,
		Month:            c.Month,
		CarryoverIn:      c.CarryoverIn.String(),
		CarryoverOut:     c.CarryoverOut.String(),
		TotalEarnings:    c.TotalEarnings.String(),
		ReportedEarnings: c.ReportedEarnings.String(),
		RepairStatus:     status.String(),
	}
}

type SummaryDTO struct {
	UserID           string `json:"userId"`
	Year             int    `json:"year"`
	Month            int    `json:"month"`
	ReportedEarnings string `json:"reportedEarnings"`
	CarryoverIn      string `json:"carryoverIn"`
	CarryoverOut     string `json:"carryoverOut"`
	OverLimit        bool   `json:"overLimit"`
}

type PeriodEarningsDTO struct {
	UserID string `json:"userId"`
	From   string `json:"from"`
	To     string `json:"to"`
	Total  string `json:"total"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
