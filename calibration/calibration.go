// Package calibration converts clinical hearing levels into output gain.
//
// The model is relative to the device: the output at full scale (gain 1.0,
// system volume at maximum) is taken to be ReferenceDB dB HL. It is a
// simplified approximation, not a certified audiometric calibration. Use a
// [Profile] to correct it for a particular headphone.
package calibration

import "math"

const (
	// MinDB and MaxDB bound every requested level. Values outside are clamped,
	// not rejected, because threshold-seeking procedures step past the edges.
	MinDB = -10.0
	MaxDB = 100.0

	// ReferenceDB is the level that maps to full-scale gain 1.0.
	ReferenceDB = 100.0

	// DefaultScreeningLevel is the usual pass/refer level for a school screening.
	DefaultScreeningLevel = 20.0
)

// ScreeningFrequencies are the octave frequencies a screening sweeps, in Hz.
var ScreeningFrequencies = []float64{500, 1000, 2000, 4000}

// Clamp limits dbHL to [MinDB, MaxDB]. NaN is treated as the quietest level.
func Clamp(dbHL float64) float64 {
	if math.IsNaN(dbHL) {
		return MinDB
	}
	return math.Max(MinDB, math.Min(dbHL, MaxDB))
}

// GainFor returns the linear gain for dbHL: 10^((clamp(dbHL)-ReferenceDB)/20).
// The result is always in (0, 1].
func GainFor(dbHL float64) float64 {
	return math.Pow(10, (Clamp(dbHL)-ReferenceDB)/20)
}

// LevelFor is the inverse of GainFor for gains in (0, 1]. It returns the
// unclamped level, so a measured amplitude below the clamp floor reads below
// MinDB. A non-positive gain returns -Inf.
func LevelFor(gain float64) float64 {
	if gain <= 0 {
		return math.Inf(-1)
	}
	return 20*math.Log10(gain) + ReferenceDB
}
