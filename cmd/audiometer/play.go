package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Lundis/go-audiometer"
	"github.com/Lundis/go-audiometer/audio/otobackend"
	"github.com/Lundis/go-audiometer/calibration"
)

// NewPlayCommand .
func NewPlayCommand() *cobra.Command {
	var (
		frequency float64
		level     float64
		earName   string
		duration  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Present one tone through the system output",
		Long: `Present one tone through the system output.

Levels are relative to the maximum system volume: set the output volume to 100%
and use the headphones the profile was measured with.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ear, err := audiometer.ParseEar(earName)
			if err != nil {
				return err
			}
			profile, err := loadProfile()
			if err != nil {
				return err
			}

			e, err := audiometer.New(audiometer.Options{
				Backend: otobackend.Backend{},
				Profile: profile,
				Logger:  logger,
			})
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := e.Init(ctx); err != nil {
				if errors.Is(err, audiometer.ErrAudioUnavailable) {
					logger.Warn("no audio output, nothing was played", zap.Error(err))
				}
				return err
			}
			s, err := e.PlayTone(frequency, level, ear)
			if err != nil {
				return err
			}
			cmd.Printf("playing %.0f Hz at %.1f dB HL to the %s ear (gain %.6f)\n",
				s.Frequency(), s.Level(), s.Ear(), s.Gain())

			select {
			case <-time.After(duration):
			case <-ctx.Done():
			}
			e.StopTone()
			return waitStopped(e, audiometer.DefaultRelease+audiometer.DefaultStopGuard+time.Second)
		},
	}

	cmd.Flags().Float64VarP(&frequency, "frequency", "f", 1000, "tone frequency in Hz")
	cmd.Flags().Float64VarP(&level, "level", "d", calibration.DefaultScreeningLevel, "tone level in dB HL")
	cmd.Flags().StringVarP(&earName, "ear", "e", "right", "ear to present to (left, right)")
	cmd.Flags().DurationVarP(&duration, "duration", "t", 2*time.Second, "how long to hold the tone")

	return cmd
}

// waitStopped blocks until the released tone has been torn down, so closing
// the engine does not cut the fade short.
func waitStopped(e *audiometer.Engine, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for e.Current() != nil {
		if time.Now().After(deadline) {
			return fmt.Errorf("tone did not stop within %v", timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}
