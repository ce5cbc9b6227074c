package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hallmark-app/hallmark/pkg/history"
	"github.com/hallmark-app/hallmark/pkg/models"
	"github.com/hallmark-app/hallmark/pkg/report"
)

func newHistoryCmd(g *globals) *cobra.Command {
	var (
		kind     string
		customer string
		since    time.Duration
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved quotes, estimates and workshops",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			opts := history.QueryOpts{
				Kind:     models.EntryKind(kind),
				Customer: customer,
				Limit:    limit,
			}
			if since > 0 {
				opts.Since = time.Now().UTC().Add(-since)
			}
			entries, err := ws.History.Query(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return report.History(os.Stdout, entries, time.Now())
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only show quote, estimate or workshop")
	cmd.Flags().StringVar(&customer, "customer", "", "only show this customer")
	cmd.Flags().DurationVar(&since, "since", 0, "only show entries newer than this (e.g. 720h)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries")

	showCmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print a saved entry with its full breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			e, err := ws.History.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("ID:       %s\nKind:     %s\nCustomer: %s\nTotal:    %s\nCreated:  %s\n\n",
				e.ID, e.Kind, e.Customer, report.GBP(e.TotalGBP), e.CreatedAt.Format(time.RFC1123))
			var out bytes.Buffer
			if err := json.Indent(&out, e.Breakdown, "", "  "); err != nil {
				return err
			}
			out.WriteByte('\n')
			_, err = out.WriteTo(os.Stdout)
			return err
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show entry counts and totals per kind and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			stats, err := ws.History.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Println("No history yet.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DAY\tKIND\tCOUNT\tTOTAL")
			for _, s := range stats {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.Day, s.Kind, s.Count, report.GBP(s.TotalGBP))
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(showCmd, statsCmd)
	return cmd
}
