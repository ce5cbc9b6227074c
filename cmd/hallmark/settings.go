package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hallmark-app/hallmark/pkg/models"
	"github.com/hallmark-app/hallmark/pkg/settings"
)

func newSettingsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change pricing settings",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			st, err := ws.Settings.Get(cmd.Context())
			if err != nil {
				return err
			}
			return printSettings(st)
		},
	}

	setCmd := &cobra.Command{
		Use:       "set KEY VALUE",
		Short:     "Change one setting",
		Args:      cobra.ExactArgs(2),
		ValidArgs: settings.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			st, err := ws.Settings.Set(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printSettings(st)
		},
	}

	cmd.AddCommand(showCmd, setCmd)
	return cmd
}

func printSettings(st models.Settings) error {
	values := settings.Values(st)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE")
	for _, k := range settings.Keys() {
		fmt.Fprintf(w, "%s\t%s\n", k, values[k])
	}
	return w.Flush()
}
