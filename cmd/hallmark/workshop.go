package main

import (
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hallmark-app/hallmark/pkg/models"
	"github.com/hallmark-app/hallmark/pkg/pricing"
	"github.com/hallmark-app/hallmark/pkg/report"
)

func newWorkshopCmd(g *globals) *cobra.Command {
	var (
		total       string
		people      int
		attendees   int
		metal       string
		grams       string
		tutorHours  string
		consumables string
		venue       string
		customer    string
		save        bool
	)

	cmd := &cobra.Command{
		Use:   "workshop",
		Short: "Price a workshop per person",
		Long: `Split a known total across people with --total and --people, or
assemble the cost from --attendees, metal, tutor hours, consumables and venue.`,
		Example: `  hallmark workshop --total 500 --people 4
  hallmark workshop --attendees 6 --metal XAG --grams 12 --tutor-hours 3 --consumables 4.50 --venue 60`,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			var job models.WorkshopJob
			doc := map[string]any{}
			if cmd.Flags().Changed("total") {
				totalCost, err := parseDecimal("total", total)
				if err != nil {
					return err
				}
				if job, err = pricing.ComputeWorkshopPricing(totalCost, people, st); err != nil {
					return err
				}
				if err := report.Split(os.Stdout, job); err != nil {
					return err
				}
			} else {
				costs := models.WorkshopCosts{Attendees: attendees}
				for _, f := range []struct {
					flag, value string
					dst         *decimal.Decimal
				}{
					{"grams", grams, &costs.GramsPerPerson},
					{"tutor-hours", tutorHours, &costs.TutorHours},
					{"consumables", consumables, &costs.ConsumablesPerPerson},
					{"venue", venue, &costs.VenueCost},
				} {
					if *f.dst, err = parseDecimal(f.flag, f.value); err != nil {
						return err
					}
				}

				prices := map[models.Symbol]models.SpotPrice{}
				if metal != "" {
					if costs.Metal, err = models.ParseSymbol(metal); err != nil {
						return err
					}
					if costs.GramsPerPerson.IsPositive() {
						if prices, err = pricesFor(ctx, ws, []models.Symbol{costs.Metal}, st); err != nil {
							return err
						}
					}
				}

				breakdown, err := pricing.AssembleWorkshopCost(costs, prices, st)
				if err != nil {
					return err
				}
				if job, err = pricing.ComputeWorkshopPricing(breakdown.TotalGBP, attendees, st); err != nil {
					return err
				}
				doc["breakdown"] = pricing.RoundWorkshop(breakdown)
				if err := report.Workshop(os.Stdout, breakdown, job, st); err != nil {
					return err
				}
			}
			doc["job"] = job

			if save {
				return saveEntry(ctx, ws, models.KindWorkshop, customer, job.TotalCostGBP, doc)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&total, "total", "", "known total cost in GBP")
	cmd.Flags().IntVar(&people, "people", 0, "number of people sharing --total")
	cmd.Flags().IntVar(&attendees, "attendees", 0, "number of attendees")
	cmd.Flags().StringVar(&metal, "metal", "", "metal used per attendee (XAG, XAU, XPT)")
	cmd.Flags().StringVar(&grams, "grams", "0", "grams of metal per attendee")
	cmd.Flags().StringVar(&tutorHours, "tutor-hours", "0", "tutor hours, charged at the labour rate")
	cmd.Flags().StringVar(&consumables, "consumables", "0", "consumables per attendee in GBP")
	cmd.Flags().StringVar(&venue, "venue", "0", "venue hire in GBP")
	cmd.Flags().StringVar(&customer, "customer", "", "booking name for the history log")
	cmd.Flags().BoolVar(&save, "save", false, "save to the quote history")
	cmd.MarkFlagsMutuallyExclusive("total", "attendees")
	return cmd
}
