package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Symbol identifies a precious metal by its ISO 4217 code.
type Symbol string

const (
	XAG Symbol = "XAG" // silver
	XAU Symbol = "XAU" // gold
	XPT Symbol = "XPT" // platinum
)

// Symbols lists every metal the pricing core knows about, in display order.
var Symbols = []Symbol{XAG, XAU, XPT}

var symbolAliases = map[string]Symbol{
	"xag":      XAG,
	"silver":   XAG,
	"xau":      XAU,
	"gold":     XAU,
	"xpt":      XPT,
	"platinum": XPT,
}

// ParseSymbol resolves a metal code or common name (case-insensitive).
func ParseSymbol(s string) (Symbol, error) {
	if sym, ok := symbolAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return sym, nil
	}
	return "", fmt.Errorf("unknown metal %q (use XAG, XAU or XPT)", s)
}

// Valid reports whether s is one of the supported metals.
func (s Symbol) Valid() bool {
	switch s {
	case XAG, XAU, XPT:
		return true
	}
	return false
}

// Name returns the metal's common name.
func (s Symbol) Name() string {
	switch s {
	case XAG:
		return "Silver"
	case XAU:
		return "Gold"
	case XPT:
		return "Platinum"
	}
	return string(s)
}

// Origin records whether a price came straight from a provider or from the store.
type Origin string

const (
	OriginLive   Origin = "live"
	OriginCached Origin = "cached"
)

// SpotPrice is a normalized spot price in GBP per troy ounce.
type SpotPrice struct {
	Symbol        Symbol          `json:"symbol"`
	PricePerOzGBP decimal.Decimal `json:"price_gbp_per_oz"`
	FetchedAt     time.Time       `json:"fetched_at"`
	Origin        Origin          `json:"origin"`
	Provider      string          `json:"provider,omitempty"`
}

// PriceRecord is the persisted cache row for one symbol.
type PriceRecord struct {
	Symbol    Symbol    `json:"symbol"`
	Price     SpotPrice `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Age returns how old the record is at now.
func (r PriceRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.UpdatedAt)
}

// CacheStats reports price cache activity for the current process.
type CacheStats struct {
	Records   int64 `json:"records"`
	Hits      int64 `json:"hits"`
	Refreshes int64 `json:"refreshes"`
	Fallbacks int64 `json:"fallbacks"`
	Failures  int64 `json:"failures"`
}
