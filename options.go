package audiometer

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Lundis/go-audiometer/audio"
	"github.com/Lundis/go-audiometer/calibration"
)

const (
	DefaultSampleRate   = 48000
	DefaultBufferSize   = 20 * time.Millisecond
	DefaultAttack       = 50 * time.Millisecond
	DefaultRelease      = 50 * time.Millisecond
	DefaultStopGuard    = 50 * time.Millisecond
	DefaultReadyTimeout = 2 * time.Second
)

// Options configures an Engine. Zero fields take the defaults above.
type Options struct {
	// Backend opens the output device. Required; see audio/otobackend for the
	// system output and audio.ManualBackend for offline use.
	Backend audio.Backend

	SampleRate int

	// BufferSize is the device buffer length, which is also roughly the
	// latency between a call and the audible change.
	BufferSize time.Duration

	// Attack is the envelope rise from silence to the target gain.
	Attack time.Duration

	// Release is the envelope fall to silence on stop.
	Release time.Duration

	// StopGuard is how long after the release ends the oscillator is stopped
	// and the session torn down, so the fade is never cut short.
	StopGuard time.Duration

	// ReadyTimeout bounds how long PlayTone waits for a device that is still
	// initializing. Init takes its own context instead.
	ReadyTimeout time.Duration

	// Profile corrects levels for a specific transducer. nil means none.
	Profile *calibration.Profile

	Logger *zap.Logger

	// Registerer receives the engine's metrics. nil leaves them unregistered.
	Registerer prometheus.Registerer
}

func (o Options) withDefaults() Options {
	if o.SampleRate == 0 {
		o.SampleRate = DefaultSampleRate
	}
	if o.BufferSize == 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.Attack == 0 {
		o.Attack = DefaultAttack
	}
	if o.Release == 0 {
		o.Release = DefaultRelease
	}
	if o.StopGuard == 0 {
		o.StopGuard = DefaultStopGuard
	}
	if o.ReadyTimeout == 0 {
		o.ReadyTimeout = DefaultReadyTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func (o Options) validate() error {
	var errs []error
	if o.Backend == nil {
		errs = append(errs, errors.New("backend is required"))
	}
	if o.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("sample rate %d must be positive", o.SampleRate))
	}
	for name, d := range map[string]time.Duration{
		"buffer size":   o.BufferSize,
		"attack":        o.Attack,
		"release":       o.Release,
		"stop guard":    o.StopGuard,
		"ready timeout": o.ReadyTimeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s %v must not be negative", name, d))
		}
	}
	if o.Profile != nil {
		if err := o.Profile.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("profile: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	return nil
}
