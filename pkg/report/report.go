// Package report renders prices, quotes and workshop costings as plain text.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/hallmark-app/hallmark/pkg/models"
	"github.com/hallmark-app/hallmark/pkg/pricecache"
	"github.com/hallmark-app/hallmark/pkg/pricing"
)

// GBP formats an amount as pounds with thousands separators, rounded to pence.
func GBP(d decimal.Decimal) string {
	r := pricing.RoundGBP(d)
	sign := ""
	if r.IsNegative() {
		sign = "-"
		r = r.Abs()
	}
	fixed := r.StringFixed(2)
	pence := fixed[strings.IndexByte(fixed, '.'):]
	return sign + "£" + humanize.Comma(r.IntPart()) + pence
}

// Percent formats a whole-number percentage.
func Percent(d decimal.Decimal) string {
	return d.String() + "%"
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// Prices writes one row per price with its origin and age.
func Prices(w io.Writer, prices []models.SpotPrice, s models.Settings, now time.Time) error {
	if len(prices) == 0 {
		_, err := fmt.Fprintln(w, "No spot prices cached yet.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "METAL\tGBP/OZ\tGBP/G\tORIGIN\tPROVIDER\tFETCHED")
	for _, p := range prices {
		perGram, err := pricing.UnitCost(p, models.UnitGram, s)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s (%s)\t%s\t%s\t%s\t%s\t%s\n",
			p.Symbol.Name(), p.Symbol, GBP(p.PricePerOzGBP), GBP(perGram),
			p.Origin, p.Provider, humanize.RelTime(p.FetchedAt, now, "ago", "from now"))
	}
	return tw.Flush()
}

// Quote writes an itemised commission quote, rounded for display.
func Quote(w io.Writer, q models.Quote, s models.Settings) error {
	r := pricing.Round(q)
	tw := newTable(w)

	fmt.Fprintln(tw, "MATERIAL\tQTY\tUNIT COST\tSUBTOTAL")
	for _, li := range r.LineItems {
		label := li.Material.Metal.Name()
		if alloy := li.Material.Alloy(); !alloy.Equal(decimal.NewFromInt(1)) {
			label += " ×" + alloy.String()
		}
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\n", label, li.Quantity, li.Material.Unit, GBP(li.UnitCostGBP), GBP(li.SubtotalGBP))
	}
	fmt.Fprintln(tw, "\t\t\t")
	fmt.Fprintf(tw, "Materials\t\t\t%s\n", GBP(r.MaterialSubtotal))
	fmt.Fprintf(tw, "Waste (%s)\t\t\t%s\n", Percent(s.WastePct), GBP(r.WasteAmount))
	fmt.Fprintf(tw, "Labour (%s h × %s)\t\t\t%s\n", r.LabourHours, GBP(s.LabourRatePerHour), GBP(r.LabourAmount))
	fmt.Fprintf(tw, "Overhead (%s)\t\t\t%s\n", Percent(s.OverheadPct), GBP(r.OverheadAmount))
	fmt.Fprintf(tw, "Profit (%s)\t\t\t%s\n", Percent(s.ProfitMarginPct), GBP(r.ProfitAmount))
	fmt.Fprintf(tw, "Subtotal\t\t\t%s\n", GBP(r.PreVATTotal))
	if s.VATEnabled {
		fmt.Fprintf(tw, "VAT (%s)\t\t\t%s\n", Percent(s.VATRatePct), GBP(r.VATAmount))
	} else {
		fmt.Fprintf(tw, "VAT\t\t\tnot charged\n")
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t%s\n", GBP(r.TotalGBP))
	return tw.Flush()
}

// Deposit writes the deposit split.
func Deposit(w io.Writer, p pricing.Payment) error {
	_, err := fmt.Fprintf(w, "Deposit (%s): %s, balance on completion: %s\n",
		Percent(p.DepositPct), GBP(p.DepositDue), GBP(p.RemainingBalance))
	return err
}

// Estimate writes an estimate range.
func Estimate(w io.Writer, e pricing.Estimate) error {
	_, err := fmt.Fprintf(w, "Estimate: %s to %s (±%s), valid until %s\n",
		GBP(e.Min), GBP(e.Max), Percent(e.VariancePct), e.ValidUntil.Format("2 Jan 2006"))
	return err
}

// Workshop writes an assembled workshop costing and its per-person split.
func Workshop(w io.Writer, b models.WorkshopBreakdown, job models.WorkshopJob, s models.Settings) error {
	r := pricing.RoundWorkshop(b)
	tw := newTable(w)
	if !r.TotalGrams.IsZero() {
		fmt.Fprintf(tw, "Metal (%s g)\t%s\n", r.TotalGrams, GBP(r.MetalCost))
		fmt.Fprintf(tw, "Waste (%s)\t%s\n", Percent(s.WastePct), GBP(r.WasteAmount))
	}
	fmt.Fprintf(tw, "Tutor\t%s\n", GBP(r.TutorAmount))
	fmt.Fprintf(tw, "Consumables\t%s\n", GBP(r.ConsumablesTotal))
	fmt.Fprintf(tw, "Venue\t%s\n", GBP(r.VenueCost))
	fmt.Fprintf(tw, "Overhead (%s)\t%s\n", Percent(s.OverheadPct), GBP(r.OverheadAmount))
	fmt.Fprintf(tw, "Profit (%s)\t%s\n", Percent(s.ProfitMarginPct), GBP(r.ProfitAmount))
	fmt.Fprintf(tw, "Subtotal\t%s\n", GBP(r.PreVATTotal))
	if s.VATEnabled {
		fmt.Fprintf(tw, "VAT (%s)\t%s\n", Percent(s.VATRatePct), GBP(r.VATAmount))
	}
	fmt.Fprintf(tw, "TOTAL\t%s\n", GBP(r.TotalGBP))
	if err := tw.Flush(); err != nil {
		return err
	}
	return Split(w, job)
}

// Split writes the per-person price of a workshop.
func Split(w io.Writer, job models.WorkshopJob) error {
	_, err := fmt.Fprintf(w, "%s across %d %s: %s per person\n",
		GBP(job.TotalCostGBP), job.NumPeople, plural(job.NumPeople, "person", "people"), GBP(job.PerPersonCostGBP))
	return err
}

// Warnings writes stale-price warnings, one per line.
func Warnings(w io.Writer, warnings []*pricecache.StaleError) error {
	for _, warn := range warnings {
		if _, err := fmt.Fprintln(w, "warning: "+warn.Error()); err != nil {
			return err
		}
	}
	return nil
}

// Stats writes price cache counters.
func Stats(w io.Writer, st models.CacheStats) error {
	lookups := st.Hits + st.Refreshes + st.Fallbacks + st.Failures
	hitRate := float64(0)
	if lookups > 0 {
		hitRate = float64(st.Hits) / float64(lookups) * 100
	}
	_, err := fmt.Fprintf(w, "Price Cache\n"+
		"  Records:   %d\n"+
		"  Hits:      %s\n"+
		"  Refreshes: %s\n"+
		"  Fallbacks: %s\n"+
		"  Failures:  %s\n"+
		"  Hit Rate:  %.1f%%\n",
		st.Records, humanize.Comma(st.Hits), humanize.Comma(st.Refreshes),
		humanize.Comma(st.Fallbacks), humanize.Comma(st.Failures), hitRate)
	return err
}

// History writes archived entries newest first.
func History(w io.Writer, entries []models.HistoryEntry, now time.Time) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No history yet.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tKIND\tCUSTOMER\tTOTAL\tCREATED")
	for _, e := range entries {
		customer := e.Customer
		if customer == "" {
			customer = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Kind, customer, GBP(e.TotalGBP), humanize.RelTime(e.CreatedAt, now, "ago", "from now"))
	}
	return tw.Flush()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
