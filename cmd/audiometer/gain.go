package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Lundis/go-audiometer/calibration"
)

// NewGainCommand .
func NewGainCommand() *cobra.Command {
	var (
		levels      []float64
		frequencies []float64
	)

	cmd := &cobra.Command{
		Use:   "gain",
		Short: "Print the output gain for each level and screening frequency",
		Long: `Print the output gain for each level and screening frequency.

Gains are relative to full scale at maximum system volume. Levels outside the
safe range are clamped, and clamped cells are highlighted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := loadProfile()
			if err != nil {
				return err
			}

			var sb strings.Builder
			sb.WriteString(bold("%8s", "dB HL"))
			for _, f := range frequencies {
				sb.WriteString(bold("%12s", fmt.Sprintf("%.0f Hz", f)))
			}
			sb.WriteString("\n")

			for _, l := range levels {
				sb.WriteString(fmt.Sprintf("%8.1f", l))
				for _, f := range frequencies {
					corrected := profile.Level(f, l)
					cell := fmt.Sprintf("%12.6f", calibration.GainFor(corrected))
					if calibration.Clamp(corrected) != corrected {
						cell = color.YellowString(cell)
					}
					sb.WriteString(cell)
				}
				sb.WriteString("\n")
			}
			cmd.Print(sb.String())
			return nil
		},
	}

	cmd.Flags().Float64SliceVar(&levels, "levels", []float64{-10, 0, 10, 20, 25, 40, 60, 80, 100}, "levels in dB HL")
	cmd.Flags().Float64SliceVar(&frequencies, "frequencies", calibration.ScreeningFrequencies, "frequencies in Hz")

	return cmd
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

func formatLevel(db float64) string {
	if math.IsInf(db, -1) {
		return color.New(color.Bold, color.FgRed).Sprint("silent")
	}
	return fmt.Sprintf("%.1f dB HL", db)
}
