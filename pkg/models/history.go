package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies an archived pricing document.
type EntryKind string

const (
	KindQuote    EntryKind = "quote"
	KindEstimate EntryKind = "estimate"
	KindWorkshop EntryKind = "workshop"
)

// HistoryEntry is an archived quote, estimate or workshop costing.
type HistoryEntry struct {
	ID        string          `json:"id"`
	Kind      EntryKind       `json:"kind"`
	Customer  string          `json:"customer,omitempty"`
	TotalGBP  decimal.Decimal `json:"total_gbp"`
	Breakdown json.RawMessage `json:"breakdown"`
	CreatedAt time.Time       `json:"created_at"`
}
