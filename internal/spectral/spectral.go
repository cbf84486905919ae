// Package spectral performs windowed, overlap-averaged FFT analysis of
// a mono audio slab, yielding real magnitude spectra for the presence
// extractor to scan.
package spectral

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/mstead-audio/keyweave/internal/pitch"
)

const (
	// SegmentSize is the FFT length, N.
	SegmentSize = 32768

	// OverlapCoefficient controls how far consecutive FFT windows overlap.
	OverlapCoefficient = 0.661

	// Increments is how many overlapping windows are collected per anchor.
	// Must be even.
	Increments = 10
)

var (
	blackmanWindow   = buildBlackman(SegmentSize)
	overlapOffset    = computeOverlapOffset()
	segmentIncrement = computeSegmentIncrement()
	fft              = fourier.NewFFT(SegmentSize)
)

func computeOverlapOffset() int {
	v := float64(SegmentSize)/2 + (float64(SegmentSize) - float64(SegmentSize)*OverlapCoefficient)
	return int(v)
}

func computeSegmentIncrement() int {
	v := float64(SegmentSize) + (float64(SegmentSize)*OverlapCoefficient)/float64(Increments)
	return int(v)
}

func buildBlackman(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.42 -
			0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1)) +
			0.08*math.Cos(4*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// AnalyzeAt collects up to Increments overlapping, Blackman-windowed
// FFT spectra anchored at anchorSample, returning |real part| of each
// real-input FFT's N/2+1 complex bins. Segments that would fall
// partially outside mono are skipped, but the window still advances,
// so the result may be shorter than Increments (or empty near track
// ends).
func AnalyzeAt(mono []float64, anchorSample int) []pitch.Spectrum {
	segmentStart := anchorSample - overlapOffset
	out := make([]pitch.Spectrum, 0, Increments)

	windowed := make([]float64, SegmentSize)
	for i := 0; i < Increments; i++ {
		if segmentStart >= 0 && segmentStart+SegmentSize <= len(mono) {
			for j := 0; j < SegmentSize; j++ {
				windowed[j] = mono[segmentStart+j] * blackmanWindow[j]
			}
			coeffs := fft.Coefficients(nil, windowed)
			spec := make(pitch.Spectrum, len(coeffs))
			for k, c := range coeffs {
				spec[k] = math.Abs(real(c))
			}
			out = append(out, spec)
		}
		segmentStart += segmentIncrement
	}
	return out
}

// Average computes the element-wise mean across a list of same-length
// spectra. It returns nil if spectra is empty.
func Average(spectra []pitch.Spectrum) pitch.Spectrum {
	if len(spectra) == 0 {
		return nil
	}
	n := len(spectra[0])
	avg := make(pitch.Spectrum, n)
	for _, s := range spectra {
		for i := 0; i < n && i < len(s); i++ {
			avg[i] += s[i]
		}
	}
	for i := range avg {
		avg[i] /= float64(len(spectra))
	}
	return avg
}
