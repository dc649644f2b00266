package audio

import (
	"context"
	"time"
)

// Source produces interleaved float32 frames for a device to play.
// [Context] is the Source every device pulls from.
type Source interface {
	Read(p []float32) (n int, err error)
}

// DeviceOptions describes the stream a Backend must open.
type DeviceOptions struct {
	SampleRate   int
	ChannelCount int

	// BufferSize is the device buffer length. 0 means the driver default.
	BufferSize time.Duration
}

// Backend opens the physical output. Open may block until the platform
// reports the device ready, bounded by ctx.
type Backend interface {
	Open(ctx context.Context, options DeviceOptions, src Source) (Device, error)
}

// Device is an open output that pulls from a Source on its own clock.
type Device interface {
	Suspend() error
	Resume() error
	Suspended() bool
	Close() error
}
