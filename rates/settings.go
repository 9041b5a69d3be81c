package rates

import (
	"context"
	"fmt"

	"github.com/tally/minijob-engine/engine"
)

// =============================================================================
// USER SETTINGS - Per-user defaults, created lazily
// =============================================================================

// SettingsService reads and writes per-user settings. Settings are created
// lazily with system defaults on first read, matching how the rest of the
// engine treats absence as "computable", not an error.
type SettingsService struct {
	Store engine.UserSettingsStore
}

func NewSettingsService(store engine.UserSettingsStore) *SettingsService {
	return &SettingsService{Store: store}
}

func defaultSettings(userID engine.UserID) engine.UserSettings {
	return engine.UserSettings{
		UserID:                userID,
		HourlyRate:            DefaultHourlyRate,
		HourlyRateValidFrom:   engine.Today(),
		BillingPeriodStartDay: 1,
		BillingPeriodEndDay:   31,
	}
}

// SettingsForUser returns the user's settings, creating defaults when none
// exist yet.
func (s *SettingsService) SettingsForUser(ctx context.Context, userID engine.UserID) (engine.UserSettings, error) {
	settings, err := s.Store.SettingsByUser(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !engine.IsNotFound(err) {
		return engine.UserSettings{}, fmt.Errorf("load user settings: %w", err)
	}

	settings = defaultSettings(userID)
	if err := s.Store.SaveSettings(ctx, settings); err != nil {
		return engine.UserSettings{}, fmt.Errorf("save default settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings validates and persists settings changes.
// Rate changes should go through Service.ChangeRate so history stays intact;
// this method covers billing period and contact fields.
func (s *SettingsService) UpdateSettings(ctx context.Context, settings engine.UserSettings) (engine.UserSettings, error) {
	if settings.UserID == "" {
		return engine.UserSettings{}, &engine.ValidationError{Field: "userId", Message: "required"}
	}
	if settings.BillingPeriodStartDay < 1 || settings.BillingPeriodStartDay > 31 {
		return engine.UserSettings{}, &engine.ValidationError{Field: "billingPeriodStartDay", Message: "must be between 1 and 31"}
	}
	if settings.BillingPeriodEndDay < 1 || settings.BillingPeriodEndDay > 31 {
		return engine.UserSettings{}, &engine.ValidationError{Field: "billingPeriodEndDay", Message: "must be between 1 and 31"}
	}

	existing, err := s.Store.SettingsByUser(ctx, settings.UserID)
	if err != nil && !engine.IsNotFound(err) {
		return engine.UserSettings{}, fmt.Errorf("load user settings: %w", err)
	}
	if err == nil {
		// Preserve the effective date unless the rate itself changed.
		if settings.HourlyRate.Equal(existing.HourlyRate) {
			settings.HourlyRateValidFrom = existing.HourlyRateValidFrom
		}
	}
	if settings.HourlyRateValidFrom.IsZero() {
		settings.HourlyRateValidFrom = engine.Today()
	}

	if err := s.Store.SaveSettings(ctx, settings); err != nil {
		return engine.UserSettings{}, fmt.Errorf("save user settings: %w", err)
	}
	return settings, nil
}
