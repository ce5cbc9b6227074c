package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hallmark-app/hallmark/pkg/models"
)

// ComputeWorkshopPricing splits an assembled workshop total across numPeople.
func ComputeWorkshopPricing(totalCost decimal.Decimal, numPeople int, s models.Settings) (models.WorkshopJob, error) {
	if numPeople < 1 {
		return models.WorkshopJob{}, fmt.Errorf("%w: workshop needs at least one person, got %d", ErrInvalidInput, numPeople)
	}
	if totalCost.IsNegative() {
		return models.WorkshopJob{}, fmt.Errorf("%w: workshop total must not be negative", ErrInvalidInput)
	}
	if err := validSettings(s); err != nil {
		return models.WorkshopJob{}, err
	}
	return models.WorkshopJob{
		TotalCostGBP:     totalCost,
		NumPeople:        numPeople,
		PerPersonCostGBP: totalCost.Div(decimal.NewFromInt(int64(numPeople))),
	}, nil
}

// AssembleWorkshopCost builds a workshop total from its aggregate inputs.
// Metal and waste are costed like a commission line; consumables, tutor
// time and venue join the base before overhead, profit and VAT are applied
// in the same order as ComputeCommissionQuote.
func AssembleWorkshopCost(c models.WorkshopCosts, prices map[models.Symbol]models.SpotPrice, s models.Settings) (models.WorkshopBreakdown, error) {
	if err := validSettings(s); err != nil {
		return models.WorkshopBreakdown{}, err
	}
	if c.Attendees < 1 {
		return models.WorkshopBreakdown{}, fmt.Errorf("%w: workshop needs at least one attendee", ErrInvalidInput)
	}
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"grams per person", c.GramsPerPerson},
		{"tutor hours", c.TutorHours},
		{"consumables per person", c.ConsumablesPerPerson},
		{"venue cost", c.VenueCost},
	} {
		if f.value.IsNegative() {
			return models.WorkshopBreakdown{}, fmt.Errorf("%w: %s must not be negative", ErrInvalidInput, f.name)
		}
	}

	attendees := decimal.NewFromInt(int64(c.Attendees))
	totalGrams := attendees.Mul(c.GramsPerPerson)

	metal := decimal.Zero
	if totalGrams.IsPositive() {
		price, err := lookupPrice(prices, c.Metal)
		if err != nil {
			return models.WorkshopBreakdown{}, err
		}
		perGram, err := UnitCost(price, models.UnitGram, s)
		if err != nil {
			return models.WorkshopBreakdown{}, err
		}
		metal = perGram.Mul(totalGrams)
	}

	waste := percentOf(metal, s.WastePct)
	tutor := c.TutorHours.Mul(s.LabourRatePerHour)
	consumables := attendees.Mul(c.ConsumablesPerPerson)
	base := metal.Add(waste).Add(tutor).Add(consumables).Add(c.VenueCost)
	overhead := percentOf(base, s.OverheadPct)
	profit := percentOf(base.Add(overhead), s.ProfitMarginPct)
	preVAT := base.Add(overhead).Add(profit)
	vat := percentOf(preVAT, vatRate(s))

	return models.WorkshopBreakdown{
		TotalGrams:       totalGrams,
		MetalCost:        metal,
		WasteAmount:      waste,
		TutorAmount:      tutor,
		ConsumablesTotal: consumables,
		VenueCost:        c.VenueCost,
		OverheadAmount:   overhead,
		ProfitAmount:     profit,
		PreVATTotal:      preVAT,
		VATAmount:        vat,
		TotalGBP:         preVAT.Add(vat),
	}, nil
}
