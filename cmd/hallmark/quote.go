package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hallmark-app/hallmark/pkg/history"
	"github.com/hallmark-app/hallmark/pkg/models"
	"github.com/hallmark-app/hallmark/pkg/pricing"
	"github.com/hallmark-app/hallmark/pkg/report"
	"github.com/hallmark-app/hallmark/pkg/workspace"
)

func newQuoteCmd(g *globals) *cobra.Command {
	var (
		materials   []string
		labourHours string
		customer    string
		estimate    bool
		save        bool
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a commission from metal quantities and labour hours",
		Example: `  hallmark quote -m XAU:10:g --labour-hours 2
  hallmark quote -m silver:0.5:oz:0.925 -m XAU:1.2 --estimate --save --customer "A. Smith"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(materials) == 0 {
				return fmt.Errorf("at least one --material is required")
			}
			lines := make([]models.MaterialLine, 0, len(materials))
			symbols := make([]models.Symbol, 0, len(materials))
			for _, m := range materials {
				line, err := models.ParseMaterial(m)
				if err != nil {
					return err
				}
				lines = append(lines, line)
				symbols = append(symbols, line.Metal)
			}
			hours, err := parseDecimal("labour-hours", labourHours)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			ws, _, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			st, err := ws.Settings.Get(ctx)
			if err != nil {
				return err
			}
			prices, err := pricesFor(ctx, ws, symbols, st)
			if err != nil {
				return err
			}

			q, err := pricing.ComputeCommissionQuote(lines, hours, prices, st)
			if err != nil {
				return err
			}
			if err := report.Quote(os.Stdout, q, st); err != nil {
				return err
			}

			kind := models.KindQuote
			doc := map[string]any{"quote": pricing.Round(q)}
			if estimate {
				kind = models.KindEstimate
				est := pricing.EstimateRange(q.TotalGBP, st, time.Now())
				doc["estimate"] = est
				err = report.Estimate(os.Stdout, est)
			} else {
				pay := pricing.Deposit(q.TotalGBP, st)
				doc["deposit"] = pay
				err = report.Deposit(os.Stdout, pay)
			}
			if err != nil {
				return err
			}

			if save {
				return saveEntry(ctx, ws, kind, customer, q.TotalGBP, doc)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&materials, "material", "m", nil, "metal line as METAL:QTY[:UNIT[:ALLOY]] (repeatable)")
	cmd.Flags().StringVar(&labourHours, "labour-hours", "0", "bench hours")
	cmd.Flags().StringVar(&customer, "customer", "", "customer name for the history log")
	cmd.Flags().BoolVar(&estimate, "estimate", false, "show an estimate range instead of a deposit")
	cmd.Flags().BoolVar(&save, "save", false, "save to the quote history")
	return cmd
}

// pricesFor resolves every metal through the cache. Stale fallbacks are
// printed as warnings; a metal with no price at all is an error.
func pricesFor(ctx context.Context, ws *workspace.Workspace, symbols []models.Symbol, st models.Settings) (map[models.Symbol]models.SpotPrice, error) {
	snap, err := ws.Prices.Snapshot(ctx, symbols, st)
	if err != nil {
		return nil, err
	}
	if err := report.Warnings(os.Stderr, snap.Warnings); err != nil {
		return nil, err
	}
	if len(snap.Unavailable) > 0 {
		msgs := make([]string, 0, len(snap.Unavailable))
		for _, err := range snap.Unavailable {
			msgs = append(msgs, err.Error())
		}
		sort.Strings(msgs)
		return nil, fmt.Errorf("cannot price: %s", strings.Join(msgs, "; "))
	}
	return snap.Prices, nil
}

func saveEntry(ctx context.Context, ws *workspace.Workspace, kind models.EntryKind, customer string, total decimal.Decimal, doc any) error {
	entry, err := history.NewEntry(kind, customer, total, doc)
	if err != nil {
		return err
	}
	saved, err := ws.History.Record(ctx, entry)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s %s\n", saved.Kind, saved.ID)
	return nil
}
