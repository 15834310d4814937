package model

import "time"

// DefaultCurrency is used wherever a currency code is not supplied.
const DefaultCurrency = "HKD"

// Settings holds the user-level preferences that travel with the dataset.
// UpdatedAt decides which side wins field precedence during reconciliation.
type Settings struct {
	DarkMode           bool      `json:"darkMode"`
	FontSize           string    `json:"fontSize"`
	DefaultCurrency    string    `json:"defaultCurrency"`
	DecimalPlaces      int       `json:"decimalPlaces"`
	EnableCloudSync    bool      `json:"enableCloudSync"`
	EnableBudgetAlerts bool      `json:"enableBudgetAlerts"`
	AlertThreshold     int       `json:"alertThreshold"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// DefaultSettings returns the out-of-the-box preferences.
func DefaultSettings() Settings {
	return Settings{
		FontSize:           "medium",
		DefaultCurrency:    DefaultCurrency,
		DecimalPlaces:      2,
		EnableBudgetAlerts: true,
		AlertThreshold:     80,
	}
}

// SettingsPatch is a partial update; nil fields are left unchanged.
type SettingsPatch struct {
	DarkMode           *bool
	FontSize           *string
	DefaultCurrency    *string
	DecimalPlaces      *int
	EnableCloudSync    *bool
	EnableBudgetAlerts *bool
	AlertThreshold     *int
}

// Apply merges the patch into a copy of the settings and restamps UpdatedAt.
func (s Settings) Apply(p SettingsPatch, now time.Time) Settings {
	if p.DarkMode != nil {
		s.DarkMode = *p.DarkMode
	}
	if p.FontSize != nil {
		s.FontSize = *p.FontSize
	}
	if p.DefaultCurrency != nil {
		s.DefaultCurrency = *p.DefaultCurrency
	}
	if p.DecimalPlaces != nil {
		s.DecimalPlaces = *p.DecimalPlaces
	}
	if p.EnableCloudSync != nil {
		s.EnableCloudSync = *p.EnableCloudSync
	}
	if p.EnableBudgetAlerts != nil {
		s.EnableBudgetAlerts = *p.EnableBudgetAlerts
	}
	if p.AlertThreshold != nil {
		s.AlertThreshold = *p.AlertThreshold
	}
	s.UpdatedAt = now
	return s
}
