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
	"math"
)

type Waveform int

const (
	// WaveformSine is the only waveform a calibrated tone may use.
	WaveformSine Waveform = iota
)

func (w Waveform) String() string {
	switch w {
	case WaveformSine:
		return "sine"
	default:
		return "unknown"
	}
}

// sample returns the waveform value at phase, where phase is in cycles [0, 1).
func (w Waveform) sample(phase float64) float64 {
	return math.Sin(2 * math.Pi * phase)
}

const notScheduled = math.MaxInt64

// Voice is an oscillator followed by its own envelope gain and a stereo pan.
// A Voice only produces sound while connected to a Context and between its
// start and stop frames.
//
// Like Param, a Voice is not locked on its own. Change it only inside
// [Context.Update], or before it is connected.
type Voice struct {
	frequency float64
	waveform  Waveform
	pan       float64
	gain      *Param

	start     int64
	stop      int64
	phase     float64
	connected bool
}

// NewVoice creates an unconnected, unstarted voice. The envelope gain starts at 0.
func NewVoice(frequency float64, waveform Waveform, pan float64) *Voice {
	return &Voice{
		frequency: frequency,
		waveform:  waveform,
		pan:       pan,
		gain:      NewParam(0),
		start:     notScheduled,
		stop:      notScheduled,
	}
}

func (v *Voice) Frequency() float64 { return v.frequency }
func (v *Voice) Waveform() Waveform { return v.waveform }
func (v *Voice) Pan() float64       { return v.pan }
func (v *Voice) Gain() *Param       { return v.gain }
func (v *Voice) Connected() bool    { return v.connected }

// StartFrame returns the frame the oscillator starts at, and false if Start
// was never called.
func (v *Voice) StartFrame() (int64, bool) {
	return v.start, v.start != notScheduled
}

// StopFrame returns the frame the oscillator stops at, and false if Stop was
// never called.
func (v *Voice) StopFrame() (int64, bool) {
	return v.stop, v.stop != notScheduled
}

// Start schedules the oscillator to begin at frame. Only the first call counts.
func (v *Voice) Start(frame int64) {
	if v.start != notScheduled {
		return
	}
	v.start = frame
}

// Stop schedules the oscillator to end at frame. An earlier stop wins.
func (v *Voice) Stop(frame int64) {
	if frame < v.stop {
		v.stop = frame
	}
}

// render adds this voice into the interleaved stereo buf, whose first frame is
// the absolute frame from.
func (v *Voice) render(buf []float32, from int64, sampleRate int) {
	if v.start == notScheduled {
		return
	}
	left, right := panGains(v.pan)
	step := v.frequency / float64(sampleRate)
	frames := len(buf) / ChannelCount
	for i := 0; i < frames; i++ {
		f := from + int64(i)
		if f < v.start || f >= v.stop {
			continue
		}
		s := v.waveform.sample(v.phase) * v.gain.ValueAt(f)
		v.phase += step
		if v.phase >= 1 {
			v.phase -= math.Floor(v.phase)
		}
		buf[i*ChannelCount] += float32(s * left)
		buf[i*ChannelCount+1] += float32(s * right)
	}
}

// panGains maps pan in [-1, 1] to equal-power channel gains. The hard edges
// are exact so a fully panned tone never leaks into the other ear.
func panGains(pan float64) (left, right float64) {
	switch {
	case pan <= -1:
		return 1, 0
	case pan >= 1:
		return 0, 1
	}
	x := (pan + 1) / 2 * math.Pi / 2
	return math.Cos(x), math.Sin(x)
}
