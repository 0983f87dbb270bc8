package analysis

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
)

const (
	// fftSize is the window length fed to the FFT. Must be a power of two.
	fftSize = 1024

	// magnitudeNorm scales raw FFT magnitudes into the byte range.
	// Tuned for full-scale [-1,1] samples.
	magnitudeNorm = 0.35
)

// BinCount is the number of frequency bins an analyzer produces per frame.
const BinCount = fftSize / 2

// Analyzer computes frequency-magnitude snapshots from a Tap. Each frame
// maps frequency bin to magnitude in [0,255], lowest frequencies first.
type Analyzer struct {
	tap    *Tap
	window []float64
}

// NewAnalyzer wires an analyzer to a tap. The tap's ring buffer must hold
// at least one FFT window of samples.
func NewAnalyzer(tap *Tap) (*Analyzer, error) {
	if tap == nil {
		return nil, fmt.Errorf("nil tap")
	}
	if tap.size < fftSize {
		return nil, fmt.Errorf("tap buffer too small: %d < %d", tap.size, fftSize)
	}
	return &Analyzer{
		tap:    tap,
		window: make([]float64, fftSize),
	}, nil
}

// FrequencyBins fills dst with one frame of byte magnitudes and returns
// the number of bins written. dst is reused in place each frame; callers
// allocate it once with BinCount entries.
func (a *Analyzer) FrequencyBins(dst []byte) int {
	a.tap.CopySamples(a.window)

	coeffs := fft.FFTReal(a.window)

	n := len(dst)
	if n > BinCount {
		n = BinCount
	}
	for i := 0; i < n; i++ {
		re := real(coeffs[i])
		im := imag(coeffs[i])
		mag := math.Sqrt(re*re + im*im)

		// Normalize intensity into a byte
		v := mag / (magnitudeNorm * fftSize)
		if v > 1 {
			v = 1
		}
		dst[i] = byte(v * 255)
	}
	return n
}
