// Package presence scans a track's spectra for pitched peaks
// corroborated by overtones, accumulating per-pitch-class energy into
// overall, start-half, and end-half presence maps.
package presence

import (
	"github.com/mstead-audio/keyweave/internal/pitch"
	"github.com/mstead-audio/keyweave/internal/spectral"
)

// Map is an accumulator of non-negative energy per pitch class. Every
// pitch class is always present as a key (default zero) by
// construction, since it is a fixed-size array rather than an
// open-ended map.
type Map [12]float64

// Add accumulates v into pc's bucket.
func (m *Map) Add(pc pitch.PitchClass, v float64) {
	m[pc.Norm()] += v
}

// Get returns pc's accumulated energy.
func (m Map) Get(pc pitch.PitchClass) float64 {
	return m[pc.Norm()]
}

// Principal returns the largest accumulated value across all pitch
// classes.
func (m Map) Principal() float64 {
	max := 0.0
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	return max
}

// Plus returns the pitch-class-wise sum of m and o, used to verify the
// overall = start + end invariant.
func (m Map) Plus(o Map) Map {
	var out Map
	for i := range out {
		out[i] = m[i] + o[i]
	}
	return out
}

const (
	sequencingSeconds         = 0.25
	noiseGate                 = 10.0
	corroborationMinOvertones = 10
	// fundamentalMaxOctave bounds the fundamental search: only notes
	// below octave 6 have enough overtones under Nyquist to corroborate.
	fundamentalMaxOctave = 6
)

// Mono reduces a 2D [frames][channels] sample buffer to mono. With
// more than one channel, only the first two are summed; any extra
// channels are ignored.
func Mono(samples [][]float64) []float64 {
	mono := make([]float64, len(samples))
	for i, frame := range samples {
		if len(frame) > 1 {
			mono[i] = frame[0] + frame[1]
		} else if len(frame) == 1 {
			mono[i] = frame[0]
		}
	}
	return mono
}

// Result holds the three accumulated presence maps and the sample
// index that split start from end.
type Result struct {
	Overall, Start, End Map
	HalfwaySampleIndex  int
}

// Extract scans mono at quarter-second anchors, detecting pitched
// fundamentals corroborated by at least 10 valid overtones, and
// accumulates their power into overall/start/end presence maps.
func Extract(mono []float64, sampleRate int) Result {
	halfway := len(mono) / 2
	result := Result{HalfwaySampleIndex: halfway}

	if sampleRate <= 0 {
		return result
	}

	sequencingIncrement := sampleRate / 4
	if sequencingIncrement <= 0 {
		return result
	}

	duration := float64(len(mono)) / float64(sampleRate)
	numAnchors := int(duration / sequencingSeconds)

	candidates := pitch.Below(fundamentalMaxOctave)

	for i := 0; i < numAnchors; i++ {
		s := i * sequencingIncrement

		spectra := spectral.AnalyzeAt(mono, s)
		avg := spectral.Average(spectra)
		if avg == nil || len(avg) < 2 {
			continue
		}

		dc := avg[0]
		spec := avg[1:]

		maxMag := 0.0
		sum := 0.0
		for _, v := range spec {
			if v > maxMag {
				maxMag = v
			}
			sum += v
		}
		if maxMag <= noiseGate {
			continue
		}
		average := sum / float64(len(spec))

		buf := pitch.Buffer{Spectrum: spec, DCOffset: dc, SampleRate: sampleRate, SampleIndex: s}

		for _, note := range candidates {
			p := pitch.PowerIn(note, buf)
			pLo := pitch.PowerIn(pitch.Adjacent(note, -1), buf)
			pHi := pitch.PowerIn(pitch.Adjacent(note, 1), buf)
			if p <= max2(pLo, pHi) {
				continue
			}

			validOvertones := 0
			for _, ot := range pitch.Overtones(note) {
				op := pitch.PowerIn(ot, buf)
				opLo := pitch.PowerIn(pitch.Adjacent(ot, -1), buf)
				opHi := pitch.PowerIn(pitch.Adjacent(ot, 1), buf)
				m := max2(opLo, opHi)
				if op > m || (op > average && op > 0.8*m) {
					validOvertones++
				}
			}

			if validOvertones >= corroborationMinOvertones {
				result.Overall.Add(note.Class, p)
				if s < halfway {
					result.Start.Add(note.Class, p)
				} else {
					result.End.Add(note.Class, p)
				}
			}
		}
	}

	return result
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
