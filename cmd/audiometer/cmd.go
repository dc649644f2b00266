package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Lundis/go-audiometer/calibration"
)

var (
	version = "dev"

	logLevel    = "info"
	profilePath string

	logger = zap.NewNop()
)

// NewCommand .
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "audiometer",
		Short:         "audiometer presents calibrated pure tones for hearing screening",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
	globalFlags.StringVarP(&profilePath, "profile", "p", "", "calibration profile (YAML) for the headphone in use")

	cmd.AddCommand(
		NewPlayCommand(),
		NewRenderCommand(),
		NewGainCommand(),
		NewVersionCommand(),
	)

	return cmd
}

// NewVersionCommand .
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s\n", version)
		},
	}
}

func setupLogger() error {
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	logger = l
	return nil
}

// loadProfile returns nil when no profile flag was given.
func loadProfile() (*calibration.Profile, error) {
	if profilePath == "" {
		return nil, nil
	}
	p, err := calibration.LoadProfileFile(profilePath)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded calibration profile",
		zap.String("name", p.Name),
		zap.Int("points", len(p.Corrections)),
	)
	return p, nil
}
