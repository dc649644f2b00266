// Copyright 2021 The Oto Authors
// Copyright 2025 Lundis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

const ChannelCount = 2

var ErrContextClosed = errors.New("audio: context is closed")

// ContextOptions represents options for NewContext.
type ContextOptions struct {
	// SampleRate specifies the number of samples that should be played during one second.
	// Usual numbers are 44100 or 48000.
	SampleRate int

	// BufferSize specifies a buffer size in the underlying device.
	//
	// If 0 is specified, the driver's default buffer size is used.
	// Too big buffer size increases the latency between a call and the audible change.
	// Too small buffer size can cause glitch noises due to buffer shortage.
	BufferSize time.Duration

	// WarmUp is how long the master gain takes to rise from silence to unity
	// after the device opens. 0 means the master gain is set to unity at once.
	WarmUp time.Duration

	// Backend opens the physical output. Required.
	Backend Backend

	// Logger receives device and task diagnostics. nil disables logging.
	Logger *zap.Logger
}

// Context is the handle to one audio output device. It owns the device, a
// single persistent master gain that every voice is routed through, and the
// sample clock that all scheduling is expressed in.
//
// The clock is the number of frames the device has pulled so far. It only
// advances while the device renders, which makes it the reference for gain
// automation and for scheduled tasks.
type Context struct {
	sampleRate int
	device     Device
	logger     *zap.Logger

	mu     sync.Mutex
	clock  int64
	master *Param
	voices []*Voice
	closed bool

	sched scheduler
}

// NewContext opens the device through options.Backend and returns a running
// context. The master gain starts silent and ramps to unity over options.WarmUp.
func NewContext(ctx context.Context, options *ContextOptions) (*Context, error) {
	if options.Backend == nil {
		return nil, fmt.Errorf("audio: no backend configured")
	}
	if options.SampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %d", options.SampleRate)
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Context{
		sampleRate: options.SampleRate,
		logger:     logger,
		master:     NewParam(0),
	}
	warmUp := c.Frames(options.WarmUp)
	if warmUp > 0 {
		c.master.SetValueAtTime(0, 0)
		c.master.LinearRampToValueAtTime(1, warmUp)
	} else {
		c.master.SetValueAtTime(1, 0)
	}

	device, err := options.Backend.Open(ctx, DeviceOptions{
		SampleRate:   options.SampleRate,
		ChannelCount: ChannelCount,
		BufferSize:   options.BufferSize,
	}, c)
	if err != nil {
		return nil, err
	}
	c.device = device
	return c, nil
}

func (c *Context) SampleRate() int {
	return c.sampleRate
}

// CurrentFrame returns the device clock.
func (c *Context) CurrentFrame() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clock
}

// Frames converts a duration to a whole number of frames at the context rate.
func (c *Context) Frames(d time.Duration) int64 {
	return int64(math.Round(d.Seconds() * float64(c.sampleRate)))
}

// Duration converts a frame count to a duration at the context rate.
func (c *Context) Duration(frames int64) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(c.sampleRate)
}

// Graph is the view of the node graph handed to an [Context.Update] callback.
// It is only valid for the duration of that callback.
type Graph struct {
	c *Context
}

// Now returns the device clock. It does not move while the callback runs.
func (g *Graph) Now() int64 {
	return g.c.clock
}

// Master returns the persistent gain every voice passes through.
func (g *Graph) Master() *Param {
	return g.c.master
}

// Connect routes v through the master gain to the device.
func (g *Graph) Connect(v *Voice) {
	if v.connected {
		return
	}
	v.connected = true
	g.c.voices = append(g.c.voices, v)
}

// Disconnect removes v from the graph. Disconnecting twice is a no-op.
func (g *Graph) Disconnect(v *Voice) {
	if !v.connected {
		return
	}
	v.connected = false
	for i, other := range g.c.voices {
		if other == v {
			g.c.voices = append(g.c.voices[:i], g.c.voices[i+1:]...)
			break
		}
	}
}

// Update runs fn with exclusive access to the graph. Every change to a
// connected Voice or to any Param must happen inside Update so the render
// loop never observes half of a change.
func (c *Context) Update(fn func(g *Graph)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&Graph{c: c})
}

// Schedule queues fn to run once the device clock reaches frame. fn runs on
// the goroutine that pulls audio, after the block is rendered and outside the
// graph lock, so it may call Update. A panic in fn is recovered and logged.
//
// Schedule may be called from inside Update.
func (c *Context) Schedule(frame int64, fn func()) *Task {
	return c.sched.schedule(frame, fn)
}

// PendingTasks returns the number of scheduled tasks that have not run yet.
func (c *Context) PendingTasks() int {
	return c.sched.pending()
}

// Voices returns the number of connected voices.
func (c *Context) Voices() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.voices)
}

// Connected reports whether v is currently routed to the device.
func (c *Context) Connected(v *Voice) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return v.connected
}

func (c *Context) Suspended() bool {
	return c.device.Suspended()
}

func (c *Context) Suspend() error {
	return c.device.Suspend()
}

// Resume restarts a suspended device. It is a no-op on a running one.
func (c *Context) Resume() error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrContextClosed
	}
	if !c.device.Suspended() {
		return nil
	}
	return c.device.Resume()
}

// Close drops every voice and pending task and closes the device.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for _, v := range c.voices {
		v.connected = false
	}
	c.voices = nil
	c.mu.Unlock()

	c.sched.clear()
	return c.device.Close()
}

// Read renders the next len(p)/ChannelCount frames into p and advances the
// clock. It implements Source for the device.
func (c *Context) Read(p []float32) (int, error) {
	frames := len(p) / ChannelCount
	buf := p[:frames*ChannelCount]

	c.mu.Lock()
	clear(p)
	if c.closed {
		c.mu.Unlock()
		return len(p), nil
	}
	from := c.clock
	for _, v := range c.voices {
		v.render(buf, from, c.sampleRate)
	}
	for i := 0; i < frames; i++ {
		m := c.master.ValueAt(from + int64(i))
		buf[i*ChannelCount] = limit(float64(buf[i*ChannelCount]) * m)
		buf[i*ChannelCount+1] = limit(float64(buf[i*ChannelCount+1]) * m)
	}
	c.clock += int64(frames)
	now := c.clock
	c.mu.Unlock()

	c.runDue(now)
	return len(p), nil
}

func (c *Context) runDue(now int64) {
	for _, t := range c.sched.due(now) {
		c.run(t)
	}
}

func (c *Context) run(t *Task) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("scheduled task panicked",
				zap.Int64("frame", t.frame),
				zap.Any("panic", r),
			)
		}
	}()
	t.fn()
}

// limit keeps the summed output inside full scale.
func limit(v float64) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return float32(v)
}
