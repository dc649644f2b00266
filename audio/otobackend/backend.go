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

// Package otobackend plays an [audio.Context] through the system output using oto.
package otobackend

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/Lundis/go-audiometer/audio"
)

// oto supports a single context per process. Every engine shares it and gets
// its own player.
var (
	contextCreationMutex sync.Mutex
	shared               *oto.Context
	sharedReady          chan struct{}
	sharedRate           int
	sharedErr            error
)

// Backend opens oto players. The zero value is ready to use.
type Backend struct{}

var _ audio.Backend = Backend{}

func (Backend) Open(ctx context.Context, options audio.DeviceOptions, src audio.Source) (audio.Device, error) {
	c, err := sharedContext(ctx, options)
	if err != nil {
		return nil, err
	}

	op := c.NewPlayer(&floatReader{src: src})
	if options.BufferSize > 0 {
		// The underlying driver always uses 32bit floats.
		bytesPerFrame := options.ChannelCount * 4
		bytesPerSecond := options.SampleRate * bytesPerFrame
		size := int(options.BufferSize.Seconds() * float64(bytesPerSecond))
		op.SetBufferSize(size / bytesPerFrame * bytesPerFrame)
	}
	op.Play()
	return &device{player: op, err: c.Err}, nil
}

func sharedContext(ctx context.Context, options audio.DeviceOptions) (*oto.Context, error) {
	contextCreationMutex.Lock()
	defer contextCreationMutex.Unlock()

	if sharedErr != nil {
		return nil, sharedErr
	}
	if shared == nil {
		c, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   options.SampleRate,
			ChannelCount: options.ChannelCount,
			Format:       oto.FormatFloat32LE,
			BufferSize:   options.BufferSize,
		})
		if err != nil {
			return nil, fmt.Errorf("oto: %w", err)
		}
		shared, sharedReady, sharedRate = c, ready, options.SampleRate
	}
	if sharedRate != options.SampleRate {
		return nil, fmt.Errorf("oto: context already runs at %d Hz, %d Hz requested", sharedRate, options.SampleRate)
	}

	// Initializing drivers might take some time; a cancelled wait leaves the
	// context in place for the next attempt.
	select {
	case <-sharedReady:
	case <-ctx.Done():
		return nil, fmt.Errorf("oto: waiting for device: %w", ctx.Err())
	}
	if err := shared.Err(); err != nil {
		// A failed driver stays failed; later opens report it without waiting.
		sharedErr = fmt.Errorf("oto: %w", err)
		return nil, sharedErr
	}
	return shared, nil
}

// player is the part of *oto.Player a device drives.
type player interface {
	Play()
	Pause()
	Close() error
}

// device suspends by pausing its own player. The oto context is shared by
// every engine in the process and keeps running.
type device struct {
	player player
	err    func() error

	m         sync.Mutex
	suspended bool
}

func (d *device) Suspend() error {
	d.m.Lock()
	defer d.m.Unlock()
	d.player.Pause()
	d.suspended = true
	return nil
}

func (d *device) Resume() error {
	d.m.Lock()
	defer d.m.Unlock()
	if err := d.err(); err != nil {
		return fmt.Errorf("oto: %w", err)
	}
	d.player.Play()
	d.suspended = false
	return nil
}

func (d *device) Suspended() bool {
	d.m.Lock()
	defer d.m.Unlock()
	return d.suspended
}

func (d *device) Close() error {
	return d.player.Close()
}

// floatReader encodes frames pulled from src as little-endian float32 bytes.
type floatReader struct {
	src audio.Source
	buf []float32
}

func (r *floatReader) Read(p []byte) (int, error) {
	n := len(p) / 4 / audio.ChannelCount * audio.ChannelCount
	if n == 0 {
		return 0, nil
	}
	if cap(r.buf) < n {
		r.buf = make([]float32, n)
	}
	samples := r.buf[:n]
	if _, err := r.src.Read(samples); err != nil {
		return 0, err
	}
	for i, v := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return n * 4, nil
}
