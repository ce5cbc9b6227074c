package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is the measurement unit of a material quantity.
type Unit string

const (
	UnitOunce       Unit = "oz"  // troy ounce
	UnitGram        Unit = "g"
	UnitKilogram    Unit = "kg"
	UnitPennyweight Unit = "dwt" // 1/20 troy ounce
)

var unitAliases = map[string]Unit{
	"oz":          UnitOunce,
	"ozt":         UnitOunce,
	"toz":         UnitOunce,
	"troy_ounce":  UnitOunce,
	"g":           UnitGram,
	"gram":        UnitGram,
	"grams":       UnitGram,
	"kg":          UnitKilogram,
	"dwt":         UnitPennyweight,
	"pennyweight": UnitPennyweight,
}

// ParseUnit resolves a unit name or abbreviation.
func ParseUnit(s string) (Unit, error) {
	if u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return u, nil
	}
	return "", fmt.Errorf("unknown unit %q (use g, oz, kg or dwt)", s)
}

// MaterialLine is one metal requirement in a commission.
// AlloyFactor scales the spot price for alloys; unset means 1.
type MaterialLine struct {
	Metal       Symbol              `json:"metal"`
	Quantity    decimal.Decimal     `json:"quantity"`
	Unit        Unit                `json:"unit"`
	AlloyFactor decimal.NullDecimal `json:"alloy_factor"`
}

// Alloy returns the alloy factor, or 1 when none was given.
func (m MaterialLine) Alloy() decimal.Decimal {
	if !m.AlloyFactor.Valid {
		return decimal.NewFromInt(1)
	}
	return m.AlloyFactor.Decimal
}

// QuoteLineItem is the costed form of a MaterialLine.
type QuoteLineItem struct {
	Material    MaterialLine    `json:"material"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCostGBP decimal.Decimal `json:"unit_cost_gbp"`
	SubtotalGBP decimal.Decimal `json:"subtotal_gbp"`
}

// Quote is the itemised price of a commission. Amounts are kept unrounded;
// use pricing.Round to get the display form.
type Quote struct {
	LineItems        []QuoteLineItem `json:"line_items"`
	MaterialSubtotal decimal.Decimal `json:"material_subtotal_gbp"`
	WasteAmount      decimal.Decimal `json:"waste_gbp"`
	LabourHours      decimal.Decimal `json:"labour_hours"`
	LabourAmount     decimal.Decimal `json:"labour_gbp"`
	OverheadAmount   decimal.Decimal `json:"overhead_gbp"`
	ProfitAmount     decimal.Decimal `json:"profit_gbp"`
	PreVATTotal      decimal.Decimal `json:"pre_vat_total_gbp"`
	VATAmount        decimal.Decimal `json:"vat_gbp"`
	TotalGBP         decimal.Decimal `json:"total_gbp"`
}

// WorkshopJob splits an aggregate cost evenly across participants.
type WorkshopJob struct {
	TotalCostGBP     decimal.Decimal `json:"total_cost_gbp"`
	NumPeople        int             `json:"num_people"`
	PerPersonCostGBP decimal.Decimal `json:"per_person_cost_gbp"`
}

// WorkshopCosts are the aggregate inputs for costing a workshop run.
type WorkshopCosts struct {
	Attendees            int             `json:"attendees"`
	Metal                Symbol          `json:"metal"`
	GramsPerPerson       decimal.Decimal `json:"grams_per_person"`
	TutorHours           decimal.Decimal `json:"tutor_hours"`
	ConsumablesPerPerson decimal.Decimal `json:"consumables_per_person_gbp"`
	VenueCost            decimal.Decimal `json:"venue_cost_gbp"`
}

// WorkshopBreakdown is the assembled cost of a workshop before it is split.
type WorkshopBreakdown struct {
	TotalGrams       decimal.Decimal `json:"total_grams"`
	MetalCost        decimal.Decimal `json:"metal_cost_gbp"`
	WasteAmount      decimal.Decimal `json:"waste_gbp"`
	TutorAmount      decimal.Decimal `json:"tutor_gbp"`
	ConsumablesTotal decimal.Decimal `json:"consumables_gbp"`
	VenueCost        decimal.Decimal `json:"venue_gbp"`
	OverheadAmount   decimal.Decimal `json:"overhead_gbp"`
	ProfitAmount     decimal.Decimal `json:"profit_gbp"`
	PreVATTotal      decimal.Decimal `json:"pre_vat_total_gbp"`
	VATAmount        decimal.Decimal `json:"vat_gbp"`
	TotalGBP         decimal.Decimal `json:"total_gbp"`
}

// ParseMaterial parses "METAL:QTY[:UNIT[:ALLOY]]", e.g. "XAU:10:g" or
// "silver:0.5:oz:0.925". The unit defaults to grams.
func ParseMaterial(s string) (MaterialLine, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return MaterialLine{}, fmt.Errorf("material %q: want METAL:QTY[:UNIT[:ALLOY]]", s)
	}

	metal, err := ParseSymbol(parts[0])
	if err != nil {
		return MaterialLine{}, err
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return MaterialLine{}, fmt.Errorf("material %q: bad quantity: %w", s, err)
	}

	line := MaterialLine{Metal: metal, Quantity: qty, Unit: UnitGram}
	if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
		if line.Unit, err = ParseUnit(parts[2]); err != nil {
			return MaterialLine{}, err
		}
	}
	if len(parts) > 3 {
		alloy, err := decimal.NewFromString(strings.TrimSpace(parts[3]))
		if err != nil {
			return MaterialLine{}, fmt.Errorf("material %q: bad alloy factor: %w", s, err)
		}
		line.AlloyFactor = decimal.NewNullDecimal(alloy)
	}
	return line, nil
}
