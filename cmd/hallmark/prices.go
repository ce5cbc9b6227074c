package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hallmark-app/hallmark/pkg/models"
	"github.com/hallmark-app/hallmark/pkg/pricecache"
	"github.com/hallmark-app/hallmark/pkg/report"
)

func newPricesCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Show and refresh metal spot prices",
	}

	showCmd := &cobra.Command{
		Use:   "show [METAL...]",
		Short: "Show spot prices, refreshing any older than the cache TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols, err := parseSymbols(args)
			if err != nil {
				return err
			}
			ws, _, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			st, err := ws.Settings.Get(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := ws.Prices.Snapshot(cmd.Context(), symbols, st)
			if err != nil {
				return err
			}
			return printSnapshot(symbols, snap, st)
		},
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh [METAL...]",
		Short: "Fetch spot prices now, ignoring the cache TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols, err := parseSymbols(args)
			if err != nil {
				return err
			}
			ws, _, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			st, err := ws.Settings.Get(cmd.Context())
			if err != nil {
				return err
			}
			snap := pricecache.Snapshot{
				Prices:      make(map[models.Symbol]models.SpotPrice),
				Unavailable: make(map[models.Symbol]error),
			}
			for _, sym := range symbols {
				res, err := ws.Prices.Refresh(cmd.Context(), sym)
				if err != nil {
					snap.Unavailable[sym] = err
					continue
				}
				snap.Prices[sym] = res.Price
				if res.Warning != nil {
					snap.Warnings = append(snap.Warnings, res.Warning)
				}
			}
			return printSnapshot(symbols, snap, st)
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show price cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			stats, err := ws.Prices.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if err := report.Stats(os.Stdout, stats); err != nil {
				return err
			}
			fmt.Printf("  Endpoints: %v\n", ws.Provider.Endpoints())
			return nil
		},
	}

	cmd.AddCommand(showCmd, refreshCmd, statsCmd)
	return cmd
}

func parseSymbols(args []string) ([]models.Symbol, error) {
	if len(args) == 0 {
		return models.Symbols, nil
	}
	out := make([]models.Symbol, 0, len(args))
	for _, a := range args {
		sym, err := models.ParseSymbol(a)
		if err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, nil
}

// printSnapshot prints prices in the order asked for, then warnings and
// the metals that could not be priced. It fails only if nothing was priced.
func printSnapshot(symbols []models.Symbol, snap pricecache.Snapshot, st models.Settings) error {
	var prices []models.SpotPrice
	for _, sym := range symbols {
		if p, ok := snap.Prices[sym]; ok {
			prices = append(prices, p)
			delete(snap.Prices, sym)
		}
	}
	if err := report.Prices(os.Stdout, prices, st, time.Now()); err != nil {
		return err
	}
	if err := report.Warnings(os.Stderr, snap.Warnings); err != nil {
		return err
	}
	for _, sym := range symbols {
		if err, ok := snap.Unavailable[sym]; ok {
			fmt.Fprintf(os.Stderr, "unavailable: %v\n", err)
		}
	}
	if len(prices) == 0 && len(snap.Unavailable) > 0 {
		return fmt.Errorf("no spot prices available")
	}
	return nil
}
