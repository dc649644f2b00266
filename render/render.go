// Package render produces calibrated tones offline, for checking a headphone
// with a sound level meter or for archiving the exact stimulus of a screening.
//
// Rendering drives the same engine as live playback through a manual device,
// so the file contains exactly what the speaker would have received,
// including the attack and release ramps.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"

	"github.com/Lundis/go-audiometer"
	"github.com/Lundis/go-audiometer/analysis"
	"github.com/Lundis/go-audiometer/audio"
	"github.com/Lundis/go-audiometer/calibration"
)

const (
	DefaultSampleRate = 48000
	DefaultBitDepth   = 24
)

// Request describes one tone to render.
type Request struct {
	Frequency float64
	Level     float64 // dB HL
	Ear       audiometer.Ear

	// Duration is how long the tone is held before it is released. The
	// output also contains the release and stop guard.
	Duration time.Duration

	SampleRate int // default DefaultSampleRate
	BitDepth   int // 16 or 24, default DefaultBitDepth

	Profile *calibration.Profile
	Logger  *zap.Logger
}

func (r Request) withDefaults() Request {
	if r.SampleRate == 0 {
		r.SampleRate = DefaultSampleRate
	}
	if r.BitDepth == 0 {
		r.BitDepth = DefaultBitDepth
	}
	return r
}

func (r Request) validate() error {
	var errs []error
	if r.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration %v must be positive", r.Duration))
	}
	if r.BitDepth != 16 && r.BitDepth != 24 {
		errs = append(errs, fmt.Errorf("bit depth must be 16 or 24 but was %d", r.BitDepth))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", audiometer.ErrInvalidParameter, err)
	}
	return nil
}

// Samples renders req and returns interleaved stereo float32 frames. The
// master gain warm-up is rendered first and discarded, so the first frame is
// the first frame of the tone's attack.
func Samples(req Request) ([]float32, error) {
	req = req.withDefaults()
	if err := req.validate(); err != nil {
		return nil, err
	}

	backend := &audio.ManualBackend{}
	e, err := audiometer.New(audiometer.Options{
		Backend:    backend,
		SampleRate: req.SampleRate,
		Profile:    req.Profile,
		Logger:     req.Logger,
	})
	if err != nil {
		return nil, err
	}
	defer e.Close()

	if err := e.Init(context.Background()); err != nil {
		return nil, err
	}
	dev := backend.Device()
	dev.PullDuration(audiometer.DefaultAttack)

	if _, err := e.PlayTone(req.Frequency, req.Level, req.Ear); err != nil {
		return nil, err
	}
	out := dev.PullDuration(req.Duration)
	e.StopTone()
	out = append(out, dev.PullDuration(audiometer.DefaultRelease+audiometer.DefaultStopGuard)...)
	return out, nil
}

// Verify renders req and measures the result at the rate it was rendered at.
func Verify(req Request) (analysis.Report, error) {
	req = req.withDefaults()
	samples, err := Samples(req)
	if err != nil {
		return analysis.Report{}, err
	}
	return analysis.Analyze(samples, req.SampleRate), nil
}

// WAV renders req as PCM WAV into w.
func WAV(w io.WriteSeeker, req Request) error {
	req = req.withDefaults()
	samples, err := Samples(req)
	if err != nil {
		return err
	}

	maxVal := float64(int(1)<<(req.BitDepth-1) - 1)
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(float64(v) * maxVal)
	}
	buf := &goaudio.IntBuffer{
		Data: data,
		Format: &goaudio.Format{
			NumChannels: audio.ChannelCount,
			SampleRate:  req.SampleRate,
		},
		SourceBitDepth: req.BitDepth,
	}

	enc := wav.NewEncoder(w, req.SampleRate, req.BitDepth, audio.ChannelCount, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV: %w", err)
	}
	return nil
}

// File renders req into a new WAV file at path.
func File(path string, req Request) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := WAV(f, req); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
