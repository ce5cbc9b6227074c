package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hallmark-app/hallmark/pkg/models"
)

// minorUnits is the number of decimal places in GBP.
const minorUnits = 2

// RoundGBP rounds to whole pence, halves away from zero.
// It is applied only when an amount is displayed or archived.
func RoundGBP(d decimal.Decimal) decimal.Decimal {
	return d.Round(minorUnits)
}

// Round returns a display copy of q with every amount rounded to pence.
// The rounded components are not guaranteed to sum to the rounded total.
func Round(q models.Quote) models.Quote {
	out := q
	out.LineItems = make([]models.QuoteLineItem, len(q.LineItems))
	for i, li := range q.LineItems {
		li.UnitCostGBP = RoundGBP(li.UnitCostGBP)
		li.SubtotalGBP = RoundGBP(li.SubtotalGBP)
		out.LineItems[i] = li
	}
	out.MaterialSubtotal = RoundGBP(q.MaterialSubtotal)
	out.WasteAmount = RoundGBP(q.WasteAmount)
	out.LabourAmount = RoundGBP(q.LabourAmount)
	out.OverheadAmount = RoundGBP(q.OverheadAmount)
	out.ProfitAmount = RoundGBP(q.ProfitAmount)
	out.PreVATTotal = RoundGBP(q.PreVATTotal)
	out.VATAmount = RoundGBP(q.VATAmount)
	out.TotalGBP = RoundGBP(q.TotalGBP)
	return out
}

// RoundWorkshop returns a display copy of b rounded to pence.
func RoundWorkshop(b models.WorkshopBreakdown) models.WorkshopBreakdown {
	b.MetalCost = RoundGBP(b.MetalCost)
	b.WasteAmount = RoundGBP(b.WasteAmount)
	b.TutorAmount = RoundGBP(b.TutorAmount)
	b.ConsumablesTotal = RoundGBP(b.ConsumablesTotal)
	b.VenueCost = RoundGBP(b.VenueCost)
	b.OverheadAmount = RoundGBP(b.OverheadAmount)
	b.ProfitAmount = RoundGBP(b.ProfitAmount)
	b.PreVATTotal = RoundGBP(b.PreVATTotal)
	b.VATAmount = RoundGBP(b.VATAmount)
	b.TotalGBP = RoundGBP(b.TotalGBP)
	return b
}

// Payment is the deposit split of a commission total.
type Payment struct {
	DepositPct       decimal.Decimal `json:"deposit_pct"`
	DepositDue       decimal.Decimal `json:"deposit_due_gbp"`
	RemainingBalance decimal.Decimal `json:"remaining_balance_gbp"`
}

// Deposit splits total into the deposit due now and the balance.
func Deposit(total decimal.Decimal, s models.Settings) Payment {
	due := percentOf(total, s.DepositPct)
	return Payment{
		DepositPct:       s.DepositPct,
		DepositDue:       due,
		RemainingBalance: total.Sub(due),
	}
}

// Estimate is the range shown on an estimate rather than a firm quote.
type Estimate struct {
	Min         decimal.Decimal `json:"estimate_min_gbp"`
	Max         decimal.Decimal `json:"estimate_max_gbp"`
	VariancePct decimal.Decimal `json:"estimate_variance_pct"`
	ValidUntil  time.Time       `json:"estimate_valid_until"`
}

// EstimateRange widens total by the configured variance. The lower bound
// never drops below zero.
func EstimateRange(total decimal.Decimal, s models.Settings, now time.Time) Estimate {
	delta := percentOf(total, s.EstimateVariancePct)
	return Estimate{
		Min:         decimal.Max(decimal.Zero, total.Sub(delta)),
		Max:         total.Add(delta),
		VariancePct: s.EstimateVariancePct,
		ValidUntil:  now.AddDate(0, 0, s.EstimateValidDays),
	}
}
