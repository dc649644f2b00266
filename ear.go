package audiometer

import (
	"fmt"
	"strings"
)

// Ear selects the channel a tone is presented to. There is no centre
// position: a tone is always hard-panned to one side.
type Ear int

const (
	Left Ear = iota + 1
	Right
)

// ParseEar accepts "left" or "right" in any case.
func ParseEar(s string) (Ear, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return 0, fmt.Errorf("%w: ear %q, want left or right", ErrInvalidParameter, s)
}

func (e Ear) Valid() bool {
	return e == Left || e == Right
}

// Pan returns the stereo position: -1 for Left, +1 for Right.
func (e Ear) Pan() float64 {
	switch e {
	case Left:
		return -1
	case Right:
		return 1
	}
	return 0
}

func (e Ear) String() string {
	switch e {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("Ear(%d)", int(e))
}
