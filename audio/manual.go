package audio

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrDeviceClosed = errors.New("audio: device is closed")

// ManualBackend opens devices that never pull on their own. The caller drives
// the clock with [ManualDevice.Pull], which makes rendering deterministic for
// offline rendering and tests.
type ManualBackend struct {
	mu        sync.Mutex
	openErr   error
	resumeErr error
	opened    int
	device    *ManualDevice
}

// FailOpen makes every following Open fail with err. nil clears it.
func (b *ManualBackend) FailOpen(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openErr = err
}

// FailResume makes every following Resume fail with err. nil clears it.
func (b *ManualBackend) FailResume(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resumeErr = err
}

// Opens returns how many times Open was called, including failed attempts.
func (b *ManualBackend) Opens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened
}

// Device returns the most recently opened device, or nil.
func (b *ManualBackend) Device() *ManualDevice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.device
}

func (b *ManualBackend) Open(ctx context.Context, options DeviceOptions, src Source) (Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.opened++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.device = &ManualDevice{
		backend:      b,
		src:          src,
		sampleRate:   options.SampleRate,
		channelCount: options.ChannelCount,
	}
	return b.device, nil
}

type ManualDevice struct {
	backend      *ManualBackend
	src          Source
	sampleRate   int
	channelCount int

	mu        sync.Mutex
	suspended bool
	closed    bool
}

// Pull renders frames frames from the source and returns them interleaved.
// A suspended or closed device returns nil and its clock does not move.
func (d *ManualDevice) Pull(frames int) []float32 {
	d.mu.Lock()
	idle := d.suspended || d.closed
	d.mu.Unlock()
	if idle || frames <= 0 {
		return nil
	}

	buf := make([]float32, frames*d.channelCount)
	_, _ = d.src.Read(buf)
	return buf
}

// PullDuration is Pull for a duration rounded to whole frames.
func (d *ManualDevice) PullDuration(dur time.Duration) []float32 {
	frames := int(dur.Seconds()*float64(d.sampleRate) + 0.5)
	return d.Pull(frames)
}

// Suspend simulates the platform suspending output.
func (d *ManualDevice) Suspend() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDeviceClosed
	}
	d.suspended = true
	return nil
}

func (d *ManualDevice) Resume() error {
	d.backend.mu.Lock()
	err := d.backend.resumeErr
	d.backend.mu.Unlock()
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDeviceClosed
	}
	d.suspended = false
	return nil
}

func (d *ManualDevice) Suspended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suspended
}

func (d *ManualDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *ManualDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
