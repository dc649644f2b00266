// Package analysis measures rendered tones: which frequency dominates, how
// loud each channel is, and what that corresponds to in dB HL.
package analysis

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"

	"github.com/Lundis/go-audiometer/calibration"
)

// Report summarizes a stereo buffer.
type Report struct {
	// Frequency is the dominant frequency of the louder channel in Hz.
	Frequency float64

	// LeftAmplitude and RightAmplitude are sine peak amplitudes derived from RMS.
	LeftAmplitude  float64
	RightAmplitude float64

	// LeftPeak and RightPeak are the largest absolute sample values.
	LeftPeak  float64
	RightPeak float64
}

// LeftLevel is the left amplitude expressed in dB HL.
func (r Report) LeftLevel() float64 {
	return calibration.LevelFor(r.LeftAmplitude)
}

// RightLevel is the right amplitude expressed in dB HL.
func (r Report) RightLevel() float64 {
	return calibration.LevelFor(r.RightAmplitude)
}

// Analyze measures interleaved stereo samples at sampleRate.
func Analyze(samples []float32, sampleRate int) Report {
	left, right := Deinterleave(samples)
	r := Report{
		LeftAmplitude:  Amplitude(left),
		RightAmplitude: Amplitude(right),
		LeftPeak:       Peak(left),
		RightPeak:      Peak(right),
	}
	if r.LeftAmplitude >= r.RightAmplitude {
		r.Frequency = DominantFrequency(left, sampleRate)
	} else {
		r.Frequency = DominantFrequency(right, sampleRate)
	}
	return r
}

// Deinterleave splits interleaved stereo into two channels.
func Deinterleave(samples []float32) (left, right []float64) {
	n := len(samples) / 2
	left = make([]float64, n)
	right = make([]float64, n)
	for i := 0; i < n; i++ {
		left[i] = float64(samples[2*i])
		right[i] = float64(samples[2*i+1])
	}
	return left, right
}

func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(x, x) / float64(len(x)))
}

// Amplitude is the peak amplitude of a sine with the same RMS as x.
func Amplitude(x []float64) float64 {
	return RMS(x) * math.Sqrt2
}

func Peak(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Norm(x, math.Inf(1))
}

// DominantFrequency returns the frequency of the strongest non-DC FFT bin of a
// Hann-windowed copy of x, refined by parabolic interpolation over the
// neighbouring bins. The resolution before refinement is sampleRate/len(x).
func DominantFrequency(x []float64, sampleRate int) float64 {
	if len(x) < 4 {
		return 0
	}
	windowed := window.Hann(append([]float64(nil), x...))

	fft := fourier.NewFFT(len(windowed))
	coeffs := fft.Coefficients(nil, windowed)

	best := 1
	mags := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mags[i] = math.Hypot(real(c), imag(c))
		if i > 0 && mags[i] > mags[best] {
			best = i
		}
	}

	offset := 0.0
	if best > 1 && best < len(mags)-1 {
		a, b, c := mags[best-1], mags[best], mags[best+1]
		if d := a - 2*b + c; d != 0 {
			offset = 0.5 * (a - c) / d
		}
	}
	return (fft.Freq(best) + offset/float64(len(windowed))) * float64(sampleRate)
}
