// Package pricing turns spot prices, materials and settings into quotes.
// Every function here is pure: no I/O, no clocks, no shared state.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hallmark-app/hallmark/pkg/models"
)

// ErrInvalidInput is returned when a pricing request cannot be computed.
var ErrInvalidInput = errors.New("invalid pricing input")

var (
	one         = decimal.NewFromInt(1)
	pennyweight = decimal.NewFromInt(20)
)

// percentOf returns v × p / 100 without a lossy division.
func percentOf(v, p decimal.Decimal) decimal.Decimal {
	return v.Mul(p.Shift(-2))
}

// UnitsPerOunce returns how many of unit make up one troy ounce.
func UnitsPerOunce(unit models.Unit, s models.Settings) (decimal.Decimal, error) {
	switch unit {
	case models.UnitOunce:
		return one, nil
	case models.UnitGram:
		return s.TroyOunceGrams, nil
	case models.UnitKilogram:
		return s.TroyOunceGrams.Shift(-3), nil
	case models.UnitPennyweight:
		return pennyweight, nil
	}
	return decimal.Zero, fmt.Errorf("%w: unknown unit %q", ErrInvalidInput, unit)
}

// UnitCost converts a per-ounce spot price into the price of one unit.
func UnitCost(price models.SpotPrice, unit models.Unit, s models.Settings) (decimal.Decimal, error) {
	per, err := UnitsPerOunce(unit, s)
	if err != nil {
		return decimal.Zero, err
	}
	if !per.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: unit %q has no conversion", ErrInvalidInput, unit)
	}
	return price.PricePerOzGBP.Div(per), nil
}

func vatRate(s models.Settings) decimal.Decimal {
	if !s.VATEnabled {
		return decimal.Zero
	}
	return s.VATRatePct
}

func validSettings(s models.Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func lookupPrice(prices map[models.Symbol]models.SpotPrice, sym models.Symbol) (models.SpotPrice, error) {
	p, ok := prices[sym]
	if !ok {
		return models.SpotPrice{}, fmt.Errorf("%w: no spot price for %s", ErrInvalidInput, sym)
	}
	if !p.PricePerOzGBP.IsPositive() {
		return models.SpotPrice{}, fmt.Errorf("%w: spot price for %s is not positive", ErrInvalidInput, sym)
	}
	return p, nil
}

// ComputeCommissionQuote prices a commission. The steps run in a fixed order
// and nothing is rounded until the quote is displayed:
//
//	subtotal  = Σ price × conversion(unit) × alloy × quantity
//	waste     = subtotal × waste%
//	labour    = hours × rate
//	overhead  = (subtotal + waste + labour) × overhead%
//	profit    = (subtotal + waste + labour + overhead) × profit%
//	preVAT    = subtotal + waste + labour + overhead + profit
//	vat       = preVAT × vat%
//	total     = preVAT + vat
func ComputeCommissionQuote(materials []models.MaterialLine, labourHours decimal.Decimal, prices map[models.Symbol]models.SpotPrice, s models.Settings) (models.Quote, error) {
	if err := validSettings(s); err != nil {
		return models.Quote{}, err
	}
	if labourHours.IsNegative() {
		return models.Quote{}, fmt.Errorf("%w: labour hours must not be negative", ErrInvalidInput)
	}

	items := make([]models.QuoteLineItem, 0, len(materials))
	materialSubtotal := decimal.Zero
	for i, m := range materials {
		if !m.Quantity.IsPositive() {
			return models.Quote{}, fmt.Errorf("%w: material %d (%s) quantity must be positive", ErrInvalidInput, i+1, m.Metal)
		}
		alloy := m.Alloy()
		if !alloy.IsPositive() {
			return models.Quote{}, fmt.Errorf("%w: material %d (%s) alloy factor must be positive", ErrInvalidInput, i+1, m.Metal)
		}
		price, err := lookupPrice(prices, m.Metal)
		if err != nil {
			return models.Quote{}, err
		}
		unitCost, err := UnitCost(price, m.Unit, s)
		if err != nil {
			return models.Quote{}, err
		}
		unitCost = unitCost.Mul(alloy)
		subtotal := unitCost.Mul(m.Quantity)

		items = append(items, models.QuoteLineItem{
			Material:    m,
			Quantity:    m.Quantity,
			UnitCostGBP: unitCost,
			SubtotalGBP: subtotal,
		})
		materialSubtotal = materialSubtotal.Add(subtotal)
	}

	waste := percentOf(materialSubtotal, s.WastePct)
	labour := labourHours.Mul(s.LabourRatePerHour)
	overhead := percentOf(materialSubtotal.Add(waste).Add(labour), s.OverheadPct)
	profit := percentOf(materialSubtotal.Add(waste).Add(labour).Add(overhead), s.ProfitMarginPct)
	preVAT := materialSubtotal.Add(waste).Add(labour).Add(overhead).Add(profit)
	vat := percentOf(preVAT, vatRate(s))

	return models.Quote{
		LineItems:        items,
		MaterialSubtotal: materialSubtotal,
		WasteAmount:      waste,
		LabourHours:      labourHours,
		LabourAmount:     labour,
		OverheadAmount:   overhead,
		ProfitAmount:     profit,
		PreVATTotal:      preVAT,
		VATAmount:        vat,
		TotalGBP:         preVAT.Add(vat),
	}, nil
}
