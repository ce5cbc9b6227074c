package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidSettings is returned by Settings.Validate.
var ErrInvalidSettings = errors.New("invalid settings")

// Upper bounds for the whole-number settings.
const (
	MaxCacheTTLMinutes   = 366 * 24 * 60
	MaxEstimateValidDays = 3660
)

// Settings holds one user's business parameters.
// Percentages are whole-number percents (20 means 20%).
type Settings struct {
	LabourRatePerHour   decimal.Decimal `json:"labour_rate_gbp_per_hr"`
	VATEnabled          bool            `json:"vat_enabled"`
	VATRatePct          decimal.Decimal `json:"vat_rate_pct"`
	WastePct            decimal.Decimal `json:"metal_waste_pct"`
	OverheadPct         decimal.Decimal `json:"overhead_pct"`
	ProfitMarginPct     decimal.Decimal `json:"target_profit_margin_pct"`
	TroyOunceGrams      decimal.Decimal `json:"troy_oz_to_grams"`
	CacheTTLMinutes     int             `json:"price_cache_ttl_minutes"`
	DepositPct          decimal.Decimal `json:"commission_deposit_pct"`
	EstimateVariancePct decimal.Decimal `json:"estimate_variance_pct"`
	EstimateValidDays   int             `json:"estimate_valid_days"`
}

// DefaultSettings returns the settings a new user starts with.
func DefaultSettings() Settings {
	return Settings{
		LabourRatePerHour:   decimal.NewFromInt(35),
		VATEnabled:          true,
		VATRatePct:          decimal.NewFromInt(20),
		WastePct:            decimal.NewFromInt(5),
		OverheadPct:         decimal.NewFromInt(10),
		ProfitMarginPct:     decimal.NewFromInt(25),
		TroyOunceGrams:      decimal.RequireFromString("31.1034768"),
		CacheTTLMinutes:     60,
		DepositPct:          decimal.NewFromInt(50),
		EstimateVariancePct: decimal.NewFromInt(10),
		EstimateValidDays:   7,
	}
}

// Validate checks that every rate is non-negative and the unit basis is usable.
func (s Settings) Validate() error {
	rates := []struct {
		name  string
		value decimal.Decimal
	}{
		{"labour_rate_gbp_per_hr", s.LabourRatePerHour},
		{"vat_rate_pct", s.VATRatePct},
		{"metal_waste_pct", s.WastePct},
		{"overhead_pct", s.OverheadPct},
		{"target_profit_margin_pct", s.ProfitMarginPct},
		{"commission_deposit_pct", s.DepositPct},
		{"estimate_variance_pct", s.EstimateVariancePct},
	}
	for _, r := range rates {
		if r.value.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidSettings, r.name)
		}
	}
	if !s.TroyOunceGrams.IsPositive() {
		return fmt.Errorf("%w: troy_oz_to_grams must be positive", ErrInvalidSettings)
	}
	if s.CacheTTLMinutes < 0 || s.CacheTTLMinutes > MaxCacheTTLMinutes {
		return fmt.Errorf("%w: price_cache_ttl_minutes must be between 0 and %d", ErrInvalidSettings, MaxCacheTTLMinutes)
	}
	if s.DepositPct.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: commission_deposit_pct must be at most 100", ErrInvalidSettings)
	}
	if s.EstimateValidDays < 0 || s.EstimateValidDays > MaxEstimateValidDays {
		return fmt.Errorf("%w: estimate_valid_days must be between 0 and %d", ErrInvalidSettings, MaxEstimateValidDays)
	}
	return nil
}

// CacheTTL returns the maximum age of a cached spot price, capped at
// MaxCacheTTLMinutes.
func (s Settings) CacheTTL() time.Duration {
	return time.Duration(min(s.CacheTTLMinutes, MaxCacheTTLMinutes)) * time.Minute
}
