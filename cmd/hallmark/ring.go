package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hallmark-app/hallmark/pkg/ringsize"
)

func newRingCmd() *cobra.Command {
	var (
		shape   string
		width   float64
		height  float64
		density float64
	)

	cmd := &cobra.Command{
		Use:   "ring SIZE",
		Short: "Estimate wire length and weight for a ring shank",
		Example: `  hallmark ring L --width 3 --height 1.5
  hallmark ring "N 1/2" --shape half-round --width 4 --height 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := ringsize.ParseSize(args[0])
			if err != nil {
				return err
			}
			sh, err := ringsize.ParseShape(shape)
			if err != nil {
				return err
			}
			b, err := ringsize.Calculate(size, sh, width, height, density)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Size\t%s (%.1f mm inside)\n", b.Size.Label, b.Size.InnerCircumference)
			fmt.Fprintf(w, "Wire\t%s %.2f × %.2f mm (%.2f mm²)\n", b.Shape, width, height, b.AreaMM2)
			fmt.Fprintf(w, "Length\t%.1f mm\n", b.LengthMM)
			fmt.Fprintf(w, "Volume\t%.3f cm³\n", b.VolumeCM3)
			fmt.Fprintf(w, "Weight\t%.2f g\n", b.WeightG)
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\nTo price in silver: hallmark quote -m XAG:%.2f:g\n", b.WeightG)
			return nil
		},
	}

	sizesCmd := &cobra.Command{
		Use:   "sizes",
		Short: "List UK ring sizes and their inner circumference",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SIZE\tCIRCUMFERENCE (MM)")
			for _, s := range ringsize.Sizes() {
				fmt.Fprintf(w, "%s\t%.1f\n", s.Label, s.InnerCircumference)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&shape, "shape", "round", "wire cross-section: round, square or half-round")
	cmd.Flags().Float64Var(&width, "width", 0, "wire width in mm")
	cmd.Flags().Float64Var(&height, "height", 0, "wire height (thickness) in mm")
	cmd.Flags().Float64Var(&density, "density", ringsize.SilverDensity, "metal density in g/cm³")
	cmd.AddCommand(sizesCmd)
	return cmd
}
