package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Lundis/go-audiometer"
	"github.com/Lundis/go-audiometer/calibration"
	"github.com/Lundis/go-audiometer/render"
)

// NewRenderCommand .
func NewRenderCommand() *cobra.Command {
	var (
		frequency  float64
		level      float64
		earName    string
		duration   time.Duration
		sampleRate int
		bitDepth   int
		verify     bool
	)

	cmd := &cobra.Command{
		Use:   "render <output.wav>",
		Short: "Render one calibrated tone to a WAV file",
		Long:  "Render one calibrated tone to a WAV file, e.g. to check a headphone with a sound level meter.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ear, err := audiometer.ParseEar(earName)
			if err != nil {
				return err
			}
			profile, err := loadProfile()
			if err != nil {
				return err
			}

			req := render.Request{
				Frequency:  frequency,
				Level:      level,
				Ear:        ear,
				Duration:   duration,
				SampleRate: sampleRate,
				BitDepth:   bitDepth,
				Profile:    profile,
				Logger:     logger,
			}
			if err := render.File(args[0], req); err != nil {
				return err
			}
			cmd.Printf("wrote %s\n", args[0])

			if !verify {
				return nil
			}
			rep, err := render.Verify(req)
			if err != nil {
				return err
			}
			cmd.Printf("%s %.1f Hz\n", bold("frequency:"), rep.Frequency)
			cmd.Printf("%s peak %.6f, level %s\n", bold("left: "), rep.LeftPeak, formatLevel(rep.LeftLevel()))
			cmd.Printf("%s peak %.6f, level %s\n", bold("right:"), rep.RightPeak, formatLevel(rep.RightLevel()))
			return nil
		},
	}

	cmd.Flags().Float64VarP(&frequency, "frequency", "f", 1000, "tone frequency in Hz")
	cmd.Flags().Float64VarP(&level, "level", "d", calibration.DefaultScreeningLevel, "tone level in dB HL")
	cmd.Flags().StringVarP(&earName, "ear", "e", "right", "ear to present to (left, right)")
	cmd.Flags().DurationVarP(&duration, "duration", "t", 2*time.Second, "how long to hold the tone")
	cmd.Flags().IntVar(&sampleRate, "sample-rate", render.DefaultSampleRate, "output sample rate in Hz")
	cmd.Flags().IntVar(&bitDepth, "bit-depth", render.DefaultBitDepth, "output bit depth (16, 24)")
	cmd.Flags().BoolVar(&verify, "verify", false, "analyze the rendered tone and print its frequency and levels")

	return cmd
}
