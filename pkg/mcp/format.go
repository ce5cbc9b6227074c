package mcp

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hallmark-app/hallmark/pkg/models"
	"github.com/hallmark-app/hallmark/pkg/pricecache"
	"github.com/hallmark-app/hallmark/pkg/report"
	"github.com/hallmark-app/hallmark/pkg/settings"
)

// Writes to a strings.Builder never fail, so report errors are dropped here.

func formatSnapshot(prices []models.SpotPrice, snap pricecache.Snapshot, st models.Settings, now time.Time) string {
	var b strings.Builder
	_ = report.Prices(&b, prices, st, now)
	_ = report.Warnings(&b, snap.Warnings)

	syms := make([]string, 0, len(snap.Unavailable))
	for sym := range snap.Unavailable {
		syms = append(syms, string(sym))
	}
	sort.Strings(syms)
	for _, sym := range syms {
		fmt.Fprintf(&b, "unavailable: %s\n", snap.Unavailable[models.Symbol(sym)])
	}
	return b.String()
}

func formatCommission(out commissionOutput, q models.Quote, st models.Settings) string {
	var b strings.Builder
	_ = report.Quote(&b, q, st)
	switch {
	case out.Estimate != nil:
		_ = report.Estimate(&b, *out.Estimate)
	case out.Deposit != nil:
		_ = report.Deposit(&b, *out.Deposit)
	}
	for _, w := range out.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	if out.ID != "" {
		fmt.Fprintf(&b, "Saved as %s\n", out.ID)
	}
	return b.String()
}

func formatWorkshop(out workshopOutput, breakdown models.WorkshopBreakdown, st models.Settings) string {
	var b strings.Builder
	if out.Breakdown != nil {
		_ = report.Workshop(&b, breakdown, out.Job, st)
	} else {
		_ = report.Split(&b, out.Job)
	}
	for _, w := range out.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	if out.ID != "" {
		fmt.Fprintf(&b, "Saved as %s\n", out.ID)
	}
	return b.String()
}

func formatSettings(st models.Settings) string {
	values := settings.Values(st)
	var b strings.Builder
	for _, key := range settings.Keys() {
		fmt.Fprintf(&b, "%-24s %s\n", key, values[key])
	}
	return b.String()
}

func formatStats(st models.CacheStats) string {
	var b strings.Builder
	_ = report.Stats(&b, st)
	return b.String()
}
