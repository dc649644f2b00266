// Package audiometer plays calibrated pure tones for hearing screening.
//
// An [Engine] owns one output device and presents at most one tone at a time.
// Levels are given in dB HL and converted to gain by the calibration package.
// Every start and stop is enveloped with a short linear ramp so the listener
// never hears a click, and a new tone only becomes audible once the previous
// one has faded out.
//
// Calls return as soon as the change is scheduled. Ramps, oscillator stops and
// session teardown happen later on the device's own sample clock.
package audiometer

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/Lundis/go-audiometer/audio"
	"github.com/Lundis/go-audiometer/calibration"
	"github.com/Lundis/go-audiometer/internal/metrics"
)

// Engine is the tone generator behind a screening UI. Create one per running
// application and pass it to whatever needs to present tones.
//
// All methods are safe for concurrent use.
type Engine struct {
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	ctx     *audio.Context
	current *Session
	live    map[*Session]struct{}
	quietAt int64 // frame at which every released tone has faded to silence
	nextID  uint64
	closed  bool
}

// New creates an engine. The device is not opened until Init or the first
// PlayTone, because platforms may only allow audio after a user gesture.
func New(opts Options) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	opts.Profile = opts.Profile.Clone()
	return &Engine{
		opts:    opts,
		logger:  opts.Logger,
		metrics: metrics.New(opts.Registerer),
		live:    make(map[*Session]struct{}),
	}, nil
}

// Init opens the output device, or resumes it if the platform suspended it.
// Call it from a user interaction. It is idempotent.
//
// A failure wraps ErrAudioUnavailable and leaves the engine usable; the next
// Init or PlayTone tries again.
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	return e.ensureReadyLocked(ctx)
}

// IsReady reports whether the device has been opened successfully.
func (e *Engine) IsReady() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx != nil
}

func (e *Engine) ensureReadyLocked(ctx context.Context) error {
	if e.ctx == nil {
		ac, err := audio.NewContext(ctx, &audio.ContextOptions{
			SampleRate: e.opts.SampleRate,
			BufferSize: e.opts.BufferSize,
			WarmUp:     e.opts.Attack,
			Backend:    e.opts.Backend,
			Logger:     e.logger,
		})
		if err != nil {
			e.metrics.DeviceFailures.Inc()
			e.logger.Warn("audio output unavailable", zap.Error(err))
			return fmt.Errorf("%w: %w", ErrAudioUnavailable, err)
		}
		e.ctx = ac
		e.logger.Info("audio output ready", zap.Int("sampleRate", ac.SampleRate()))
	}

	if e.ctx.Suspended() {
		if err := e.ctx.Resume(); err != nil {
			e.metrics.DeviceFailures.Inc()
			e.logger.Warn("failed to resume audio output", zap.Error(err))
			return fmt.Errorf("%w: resume: %w", ErrAudioUnavailable, err)
		}
		e.logger.Info("audio output resumed")
	}
	return nil
}

// PlayTone presents a sine tone of frequency Hz at dbHL to ear.
//
// Any tone still playing is stopped first with its release ramp, and the new
// tone starts when that ramp ends, so two tones are never heard together.
// The new envelope rises from 0 to the calibrated gain over the attack time.
//
// Out-of-range levels are clamped by the calibration. A non-positive or
// non-finite frequency, a frequency at or above Nyquist, a NaN level or an
// unknown ear fail with ErrInvalidParameter. If the device cannot be opened
// the call fails with ErrAudioUnavailable and no session exists.
func (e *Engine) PlayTone(frequency, dbHL float64, ear Ear) (*Session, error) {
	if err := validateTone(frequency, dbHL, ear); err != nil {
		e.metrics.InvalidRequests.Inc()
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.ReadyTimeout)
	defer cancel()
	if err := e.ensureReadyLocked(ctx); err != nil {
		return nil, err
	}
	if nyquist := float64(e.ctx.SampleRate()) / 2; frequency >= nyquist {
		e.metrics.InvalidRequests.Inc()
		return nil, fmt.Errorf("%w: frequency %v Hz at or above Nyquist (%v Hz)", ErrInvalidParameter, frequency, nyquist)
	}

	level := e.opts.Profile.Level(frequency, dbHL)
	gain := calibration.GainFor(level)
	attack := e.ctx.Frames(e.opts.Attack)

	e.nextID++
	s := &Session{
		engine:    e,
		id:        e.nextID,
		frequency: frequency,
		level:     dbHL,
		gain:      gain,
		ear:       ear,
		voice:     audio.NewVoice(frequency, audio.WaveformSine, ear.Pan()),
	}

	var superseded *Session
	e.ctx.Update(func(g *audio.Graph) {
		now := g.Now()
		if prev := e.current; prev != nil && prev.active() {
			e.releaseLocked(g, prev)
			superseded = prev
		}

		s.start = max(now, e.quietAt)
		env := s.voice.Gain()
		env.SetValueAtTime(0, s.start)
		env.LinearRampToValueAtTime(gain, s.start+attack)
		s.voice.Start(s.start)
		g.Connect(s.voice)

		if s.start <= now {
			s.state = StatePlaying
		} else {
			s.state = StateStarting
			s.startTask = e.ctx.Schedule(s.start, func() { e.promote(s) })
		}
	})

	e.current = s
	e.live[s] = struct{}{}
	e.metrics.TonesStarted.Inc()
	e.metrics.ActiveTones.Inc()
	if superseded != nil {
		e.metrics.TonesSuperseded.Inc()
	}

	fields := []zap.Field{
		zap.Uint64("session", s.id),
		zap.Float64("frequency", frequency),
		zap.Float64("dbHL", dbHL),
		zap.Float64("gain", gain),
		zap.Stringer("ear", ear),
		zap.Int64("startFrame", s.start),
	}
	if superseded != nil {
		fields = append(fields, zap.Uint64("superseded", superseded.id))
	}
	e.logger.Debug("tone started", fields...)
	return s, nil
}

// StopTone fades the current tone out over the release time and tears it down
// once the oscillator has stopped. Without a starting or playing tone it does
// nothing, so calling it twice is harmless.
func (e *Engine) StopTone() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.ctx == nil {
		return
	}
	s := e.current
	if s == nil || !s.active() {
		return
	}
	e.ctx.Update(func(g *audio.Graph) {
		e.releaseLocked(g, s)
	})
	e.metrics.TonesStopped.Inc()
	e.logger.Debug("tone stopping", zap.Uint64("session", s.id))
}

// Current returns the most recent session until its teardown, or nil.
func (e *Engine) Current() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Playing reports whether a tone is starting or playing.
func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil && e.current.active()
}

// Close silences every tone at once, drops pending teardowns and closes the
// device. The engine cannot be used afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	ac := e.ctx
	e.ctx = nil
	for s := range e.live {
		s.state = StateStopped
	}
	clear(e.live)
	e.current = nil
	e.metrics.ActiveTones.Set(0)
	e.mu.Unlock()

	// The device may be inside a scheduled task waiting for e.mu, so it is
	// closed without holding it.
	if ac == nil {
		return nil
	}
	e.logger.Info("closing audio output")
	return ac.Close()
}

// releaseLocked moves s to Stopping: it holds the envelope where it is, ramps
// it to 0 over the release, stops the oscillator after the guard and schedules
// the teardown at that same frame. Both e.mu and the graph must be held.
func (e *Engine) releaseLocked(g *audio.Graph, s *Session) {
	now := g.Now()
	end := now + e.ctx.Frames(e.opts.Release)
	stopAt := end + e.ctx.Frames(e.opts.StopGuard)

	s.startTask.Cancel()
	s.startTask = nil

	env := s.voice.Gain()
	env.CancelAndHoldAtTime(now)
	env.LinearRampToValueAtTime(0, end)
	s.voice.Stop(stopAt)

	s.state = StateStopping
	// A session whose start frame has not been rendered yet was never heard,
	// so the next tone does not have to wait for its release.
	if s.start < now {
		e.quietAt = max(e.quietAt, end)
	}
	s.teardown = e.ctx.Schedule(stopAt, func() { e.teardown(s) })
}

// promote runs when a deferred session reaches its start frame.
func (e *Engine) promote(s *Session) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s.state == StateStarting {
		s.state = StatePlaying
		s.startTask = nil
	}
}

// teardown disconnects a released session once its oscillator has stopped.
// It runs on the device goroutine and may race with a newer PlayTone, so it
// only clears the current session if that is still s.
func (e *Engine) teardown(s *Session) {
	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.metrics.TeardownFailures.Inc()
			e.logger.Error("tone teardown failed", zap.Uint64("session", s.id), zap.Any("panic", r))
		}
	}()

	if e.closed || s.state == StateStopped {
		return
	}
	e.ctx.Update(func(g *audio.Graph) {
		g.Disconnect(s.voice)
	})
	s.state = StateStopped
	s.teardown = nil
	delete(e.live, s)
	e.metrics.ActiveTones.Dec()
	if e.current == s {
		e.current = nil
	}
	e.logger.Debug("tone stopped", zap.Uint64("session", s.id))
}

func validateTone(frequency, dbHL float64, ear Ear) error {
	if math.IsNaN(frequency) || math.IsInf(frequency, 0) || frequency <= 0 {
		return fmt.Errorf("%w: frequency %v Hz must be positive and finite", ErrInvalidParameter, frequency)
	}
	if math.IsNaN(dbHL) {
		return fmt.Errorf("%w: level is NaN", ErrInvalidParameter)
	}
	if !ear.Valid() {
		return fmt.Errorf("%w: unknown ear %v", ErrInvalidParameter, ear)
	}
	return nil
}
