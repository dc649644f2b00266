package audiometer

import "errors"

var (
	// ErrAudioUnavailable means the output device could not be opened or
	// resumed. It is not fatal: the next call tries again.
	ErrAudioUnavailable = errors.New("audiometer: audio output unavailable")

	// ErrInvalidParameter means a tone request was rejected before any audio
	// was scheduled.
	ErrInvalidParameter = errors.New("audiometer: invalid parameter")

	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("audiometer: engine closed")
)
