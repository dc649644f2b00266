package audiometer

import "github.com/Lundis/go-audiometer/audio"

// State is a tone session's position in its lifecycle. Sessions only move
// forward: Starting, Playing, Stopping, Stopped.
type State int

const (
	// StateStarting: created, waiting for its start frame on the device clock.
	StateStarting State = iota
	// StatePlaying: the oscillator is running.
	StatePlaying
	// StateStopping: the release ramp is scheduled, teardown is pending.
	StateStopping
	// StateStopped: the voice is disconnected. Terminal.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StatePlaying:
		return "playing"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Session is one presented tone. The engine owns it; callers only read it.
type Session struct {
	engine *Engine
	id     uint64

	frequency float64
	level     float64
	gain      float64
	ear       Ear
	start     int64

	voice *audio.Voice

	// Guarded by engine.mu.
	state     State
	startTask *audio.Task
	teardown  *audio.Task
}

func (s *Session) ID() uint64 { return s.id }

// Frequency is the tone frequency in Hz.
func (s *Session) Frequency() float64 { return s.frequency }

// Level is the requested level in dB HL, before profile correction and clamping.
func (s *Session) Level() float64 { return s.level }

// Gain is the calibrated envelope target the attack ramps to.
func (s *Session) Gain() float64 { return s.gain }

func (s *Session) Ear() Ear { return s.ear }

// Pan is the stereo position the voice was created with.
func (s *Session) Pan() float64 { return s.voice.Pan() }

// StartFrame is the device frame the oscillator starts at. It is later than
// the call when the tone had to wait for a previous tone's release.
func (s *Session) StartFrame() int64 { return s.start }

func (s *Session) State() State {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	return s.state
}

func (s *Session) active() bool {
	return s.state == StateStarting || s.state == StatePlaying
}
