package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hallmark-app/hallmark/pkg/history"
	"github.com/hallmark-app/hallmark/pkg/models"
	"github.com/hallmark-app/hallmark/pkg/pricecache"
	"github.com/hallmark-app/hallmark/pkg/pricing"
)

// Tool argument structs.

type symbolsArgs struct {
	Symbols []string `json:"symbols"`
}

type materialArg struct {
	Metal       string              `json:"metal"`
	Quantity    decimal.Decimal     `json:"quantity"`
	Unit        string              `json:"unit"`
	AlloyFactor decimal.NullDecimal `json:"alloy_factor"`
}

type commissionArgs struct {
	Materials   []materialArg   `json:"materials"`
	LabourHours decimal.Decimal `json:"labour_hours"`
	Customer    string          `json:"customer"`
	Estimate    bool            `json:"estimate"`
	Save        bool            `json:"save"`
}

type workshopArgs struct {
	TotalCost            decimal.NullDecimal `json:"total_cost"`
	People               int                 `json:"people"`
	Attendees            int                 `json:"attendees"`
	Metal                string              `json:"metal"`
	GramsPerPerson       decimal.Decimal     `json:"grams_per_person"`
	TutorHours           decimal.Decimal     `json:"tutor_hours"`
	ConsumablesPerPerson decimal.Decimal     `json:"consumables_per_person"`
	VenueCost            decimal.Decimal     `json:"venue_cost"`
	Customer             string              `json:"customer"`
	Save                 bool                `json:"save"`
}

type settingsArgs struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"hallmark_spot_prices":      handleSpotPrices,
	"hallmark_refresh_prices":   handleRefreshPrices,
	"hallmark_commission_quote": handleCommissionQuote,
	"hallmark_workshop_quote":   handleWorkshopQuote,
	"hallmark_settings":         handleSettings,
	"hallmark_cache_stats":      handleCacheStats,
}

var symbolsSchema = map[string]any{
	"type":        "array",
	"items":       map[string]any{"type": "string", "enum": []string{"XAG", "XAU", "XPT"}},
	"description": "Metals to include (optional, defaults to XAG, XAU and XPT)",
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "hallmark_spot_prices",
		Description: "Show spot prices in GBP, refreshing any older than the configured cache TTL. Falls back to the last cached price with a warning when the price API is down.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"symbols": symbolsSchema},
		},
	},
	{
		Name:        "hallmark_refresh_prices",
		Description: "Fetch spot prices from the price API now, ignoring the cache TTL.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"symbols": symbolsSchema},
		},
	},
	{
		Name:        "hallmark_commission_quote",
		Description: "Price a jewellery commission from metal quantities and labour hours: materials, waste, labour, overhead, profit and VAT.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"materials"},
			"properties": map[string]any{
				"materials": map[string]any{
					"type":        "array",
					"description": "Metal lines in order",
					"items": map[string]any{
						"type":     "object",
						"required": []string{"metal", "quantity"},
						"properties": map[string]any{
							"metal":        map[string]any{"type": "string", "description": "XAG, XAU or XPT (or silver, gold, platinum)"},
							"quantity":     map[string]any{"type": "number", "description": "Amount of metal, greater than zero"},
							"unit":         map[string]any{"type": "string", "description": "g (default), oz, kg or dwt"},
							"alloy_factor": map[string]any{"type": "number", "description": "Multiplier on the spot price for alloys (optional, default 1)"},
						},
					},
				},
				"labour_hours": map[string]any{"type": "number", "description": "Bench hours (optional)"},
				"customer":     map[string]any{"type": "string", "description": "Customer name for the history log (optional)"},
				"estimate":     map[string]any{"type": "boolean", "description": "Return an estimate range instead of a fixed quote with deposit"},
				"save":         map[string]any{"type": "boolean", "description": "Save to the quote history"},
			},
		},
	},
	{
		Name:        "hallmark_workshop_quote",
		Description: "Price a workshop per person. Either split a known total_cost across people, or assemble the cost from attendees, metal, tutor hours, consumables and venue.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"total_cost":             map[string]any{"type": "number", "description": "Known total cost in GBP (use with people)"},
				"people":                 map[string]any{"type": "integer", "description": "Number of people sharing total_cost"},
				"attendees":              map[string]any{"type": "integer", "description": "Number of attendees when assembling the cost"},
				"metal":                  map[string]any{"type": "string", "description": "Metal used per attendee (optional)"},
				"grams_per_person":       map[string]any{"type": "number", "description": "Grams of metal per attendee"},
				"tutor_hours":            map[string]any{"type": "number", "description": "Tutor hours, charged at the labour rate"},
				"consumables_per_person": map[string]any{"type": "number", "description": "Consumables per attendee in GBP"},
				"venue_cost":             map[string]any{"type": "number", "description": "Venue hire in GBP"},
				"customer":               map[string]any{"type": "string", "description": "Booking name for the history log (optional)"},
				"save":                   map[string]any{"type": "boolean", "description": "Save to the quote history"},
			},
		},
	},
	{
		Name:        "hallmark_settings",
		Description: "Show pricing settings, or change one when key and value are given.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"key":   map[string]any{"type": "string", "description": "Setting to change (optional)"},
				"value": map[string]any{"type": "string", "description": "New value for key"},
			},
		},
	},
	{
		Name:        "hallmark_cache_stats",
		Description: "Show spot price cache statistics: cached records, hits, refreshes, stale fallbacks and failures.",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	},
}

func textResult(text string, structured any) ToolCallResult {
	return ToolCallResult{
		Content:           []ContentBlock{{Type: "text", Text: text}},
		StructuredContent: structured,
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func parseSymbols(in []string) ([]models.Symbol, error) {
	if len(in) == 0 {
		return models.Symbols, nil
	}
	out := make([]models.Symbol, 0, len(in))
	for _, raw := range in {
		sym, err := models.ParseSymbol(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, nil
}

func warningMessages(ws []*pricecache.StaleError) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Error()
	}
	return out
}

func unavailableMessages(m map[models.Symbol]error) map[models.Symbol]string {
	out := make(map[models.Symbol]string, len(m))
	for sym, err := range m {
		out[sym] = err.Error()
	}
	return out
}

func handleSpotPrices(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	var args symbolsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return errorResult(err.Error())
	}
	symbols, err := parseSymbols(args.Symbols)
	if err != nil {
		return errorResult(err.Error())
	}
	st, err := s.settings.Get(ctx)
	if err != nil {
		return errorResult("Error loading settings: " + err.Error())
	}

	snap, err := s.prices.Snapshot(ctx, symbols, st)
	if err != nil {
		return errorResult("Error fetching prices: " + err.Error())
	}

	prices := orderedPrices(symbols, snap.Prices)
	return textResult(formatSnapshot(prices, snap, st, s.now()), map[string]any{
		"prices":      prices,
		"warnings":    warningMessages(snap.Warnings),
		"unavailable": unavailableMessages(snap.Unavailable),
	})
}

func handleRefreshPrices(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	var args symbolsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return errorResult(err.Error())
	}
	symbols, err := parseSymbols(args.Symbols)
	if err != nil {
		return errorResult(err.Error())
	}
	st, err := s.settings.Get(ctx)
	if err != nil {
		return errorResult("Error loading settings: " + err.Error())
	}

	snap := pricecache.Snapshot{
		Prices:      make(map[models.Symbol]models.SpotPrice),
		Unavailable: make(map[models.Symbol]error),
	}
	for _, sym := range symbols {
		res, err := s.prices.Refresh(ctx, sym)
		if err != nil {
			snap.Unavailable[sym] = err
			continue
		}
		snap.Prices[sym] = res.Price
		if res.Warning != nil {
			snap.Warnings = append(snap.Warnings, res.Warning)
		}
	}

	prices := orderedPrices(symbols, snap.Prices)
	return textResult(formatSnapshot(prices, snap, st, s.now()), map[string]any{
		"prices":      prices,
		"warnings":    warningMessages(snap.Warnings),
		"unavailable": unavailableMessages(snap.Unavailable),
	})
}

func orderedPrices(symbols []models.Symbol, m map[models.Symbol]models.SpotPrice) []models.SpotPrice {
	var out []models.SpotPrice
	seen := make(map[models.Symbol]bool)
	for _, sym := range symbols {
		if p, ok := m[sym]; ok && !seen[sym] {
			out = append(out, p)
			seen[sym] = true
		}
	}
	return out
}

// pricesFor resolves every metal the lines need. It fails if any metal has
// no price at all.
func (s *Server) pricesFor(ctx context.Context, symbols []models.Symbol, st models.Settings) (pricecache.Snapshot, error) {
	snap, err := s.prices.Snapshot(ctx, symbols, st)
	if err != nil {
		return pricecache.Snapshot{}, err
	}
	if len(snap.Unavailable) > 0 {
		var msgs []string
		for _, err := range snap.Unavailable {
			msgs = append(msgs, err.Error())
		}
		sort.Strings(msgs)
		return pricecache.Snapshot{}, fmt.Errorf("cannot price: %s", strings.Join(msgs, "; "))
	}
	return snap, nil
}

func handleCommissionQuote(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	var args commissionArgs
	if err := decodeArgs(raw, &args); err != nil {
		return errorResult(err.Error())
	}
	if len(args.Materials) == 0 {
		return errorResult("materials is required")
	}

	lines := make([]models.MaterialLine, 0, len(args.Materials))
	var symbols []models.Symbol
	for i, m := range args.Materials {
		sym, err := models.ParseSymbol(m.Metal)
		if err != nil {
			return errorResult(fmt.Sprintf("materials[%d]: %v", i, err))
		}
		unit := models.UnitGram
		if m.Unit != "" {
			if unit, err = models.ParseUnit(m.Unit); err != nil {
				return errorResult(fmt.Sprintf("materials[%d]: %v", i, err))
			}
		}
		lines = append(lines, models.MaterialLine{Metal: sym, Quantity: m.Quantity, Unit: unit, AlloyFactor: m.AlloyFactor})
		symbols = append(symbols, sym)
	}

	st, err := s.settings.Get(ctx)
	if err != nil {
		return errorResult("Error loading settings: " + err.Error())
	}
	snap, err := s.pricesFor(ctx, symbols, st)
	if err != nil {
		return errorResult(err.Error())
	}

	q, err := pricing.ComputeCommissionQuote(lines, args.LabourHours, snap.Prices, st)
	if err != nil {
		return errorResult(err.Error())
	}

	out := commissionOutput{Quote: pricing.Round(q), Warnings: warningMessages(snap.Warnings)}
	kind := models.KindQuote
	if args.Estimate {
		est := pricing.EstimateRange(q.TotalGBP, st, s.now())
		est.Min, est.Max = pricing.RoundGBP(est.Min), pricing.RoundGBP(est.Max)
		out.Estimate = &est
		kind = models.KindEstimate
	} else {
		pay := pricing.Deposit(q.TotalGBP, st)
		pay.DepositDue, pay.RemainingBalance = pricing.RoundGBP(pay.DepositDue), pricing.RoundGBP(pay.RemainingBalance)
		out.Deposit = &pay
	}

	if args.Save {
		id, err := s.save(ctx, kind, args.Customer, q.TotalGBP, out)
		if err != nil {
			return errorResult(err.Error())
		}
		out.ID = id
	}

	return textResult(formatCommission(out, q, st), out)
}

type commissionOutput struct {
	ID       string            `json:"id,omitempty"`
	Quote    models.Quote      `json:"quote"`
	Deposit  *pricing.Payment  `json:"deposit,omitempty"`
	Estimate *pricing.Estimate `json:"estimate,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

type workshopOutput struct {
	ID        string                    `json:"id,omitempty"`
	Breakdown *models.WorkshopBreakdown `json:"breakdown,omitempty"`
	Job       models.WorkshopJob        `json:"job"`
	Warnings  []string                  `json:"warnings,omitempty"`
}

func handleWorkshopQuote(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	var args workshopArgs
	if err := decodeArgs(raw, &args); err != nil {
		return errorResult(err.Error())
	}
	st, err := s.settings.Get(ctx)
	if err != nil {
		return errorResult("Error loading settings: " + err.Error())
	}

	var out workshopOutput
	var breakdown models.WorkshopBreakdown
	if args.TotalCost.Valid {
		job, err := pricing.ComputeWorkshopPricing(args.TotalCost.Decimal, args.People, st)
		if err != nil {
			return errorResult(err.Error())
		}
		out.Job = job
	} else {
		costs := models.WorkshopCosts{
			Attendees:            args.Attendees,
			GramsPerPerson:       args.GramsPerPerson,
			TutorHours:           args.TutorHours,
			ConsumablesPerPerson: args.ConsumablesPerPerson,
			VenueCost:            args.VenueCost,
		}
		prices := map[models.Symbol]models.SpotPrice{}
		if args.Metal != "" {
			if costs.Metal, err = models.ParseSymbol(args.Metal); err != nil {
				return errorResult(err.Error())
			}
			if costs.GramsPerPerson.IsPositive() {
				snap, err := s.pricesFor(ctx, []models.Symbol{costs.Metal}, st)
				if err != nil {
					return errorResult(err.Error())
				}
				prices = snap.Prices
				out.Warnings = warningMessages(snap.Warnings)
			}
		}

		breakdown, err = pricing.AssembleWorkshopCost(costs, prices, st)
		if err != nil {
			return errorResult(err.Error())
		}
		job, err := pricing.ComputeWorkshopPricing(breakdown.TotalGBP, costs.Attendees, st)
		if err != nil {
			return errorResult(err.Error())
		}
		rounded := pricing.RoundWorkshop(breakdown)
		out.Breakdown = &rounded
		out.Job = job
	}
	out.Job.TotalCostGBP = pricing.RoundGBP(out.Job.TotalCostGBP)
	out.Job.PerPersonCostGBP = pricing.RoundGBP(out.Job.PerPersonCostGBP)

	if args.Save {
		id, err := s.save(ctx, models.KindWorkshop, args.Customer, out.Job.TotalCostGBP, out)
		if err != nil {
			return errorResult(err.Error())
		}
		out.ID = id
	}

	return textResult(formatWorkshop(out, breakdown, st), out)
}

func (s *Server) save(ctx context.Context, kind models.EntryKind, customer string, total decimal.Decimal, breakdown any) (string, error) {
	if s.archive == nil {
		return "", fmt.Errorf("quote history is not configured")
	}
	entry, err := history.NewEntry(kind, customer, total, breakdown)
	if err != nil {
		return "", err
	}
	saved, err := s.archive.Record(ctx, entry)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", kind, err)
	}
	return saved.ID, nil
}

func handleSettings(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	var args settingsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return errorResult(err.Error())
	}

	var (
		st  models.Settings
		err error
	)
	if args.Key != "" {
		st, err = s.settings.Set(ctx, args.Key, args.Value)
	} else {
		st, err = s.settings.Get(ctx)
	}
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(formatSettings(st), st)
}

func handleCacheStats(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	st, err := s.prices.Stats(ctx)
	if err != nil {
		return errorResult("Error getting cache stats: " + err.Error())
	}
	return textResult(formatStats(st), st)
}
