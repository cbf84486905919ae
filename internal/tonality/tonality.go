// Package tonality scores a pitch-class presence map against a
// weighted coefficient vector to select a tonic, decides major/minor
// mode independently of the vector, and assembles a track's start/end
// keys.
package tonality

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/mstead-audio/keyweave/internal/pitch"
	"github.com/mstead-audio/keyweave/internal/presence"
)

// Mode is the major/minor quality of a Key.
type Mode int

const (
	Minor Mode = iota
	Major
)

func (m Mode) String() string {
	if m == Major {
		return "major"
	}
	return "minor"
}

// Key is a tonic paired with a mode.
type Key struct {
	Tonic pitch.PitchClass
	Mode  Mode
}

func (k Key) String() string {
	return fmt.Sprintf("%s %s", k.Tonic, k.Mode)
}

// CoefficientVector holds the ten weights that bias tonic selection.
// A vector is built once and shared read-only across every track
// processed in a run. Self is range-validated and trained like the
// other nine but never multiplies into significance or any other
// feature; it rides along in the vector and the tuner's corpus as an
// inert tenth dimension.
type CoefficientVector struct {
	Self        float64
	Dom         float64
	DomSub      float64
	Minor       float64
	Major       float64
	Triadic     float64
	LeadingTone float64
	Tritone     float64
	Phrygian    float64
	Diatonic    float64
}

type coefficientRange struct {
	min, max float64
}

var coefficientRanges = struct {
	self, dom, domSub, minor, major, triadic, leadingTone, tritone, phrygian, diatonic coefficientRange
}{
	self:        coefficientRange{1, 2},
	dom:         coefficientRange{0.0, 0.7},
	domSub:      coefficientRange{0.5, 1.5},
	minor:       coefficientRange{0, 0.25},
	major:       coefficientRange{0, 0.25},
	triadic:     coefficientRange{1, 2},
	leadingTone: coefficientRange{0.5, 1},
	tritone:     coefficientRange{-5, 0},
	phrygian:    coefficientRange{-5, 0},
	diatonic:    coefficientRange{1, 2},
}

// OrchestralPreset is the documented hand-tuned coefficient vector.
var OrchestralPreset = CoefficientVector{
	Self:        1.98,
	Dom:         0.05,
	DomSub:      1.45,
	Minor:       0.02,
	Major:       0.19,
	Triadic:     1.44,
	LeadingTone: 0.74,
	Tritone:     -4.35,
	Phrygian:    -3.34,
	Diatonic:    1.23,
}

// NewCoefficientVector validates every field against its documented
// range and rejects non-finite values before constructing a vector.
func NewCoefficientVector(self, dom, domSub, minorW, majorW, triadic, leadingTone, tritone, phrygian, diatonic float64) (CoefficientVector, error) {
	fields := []struct {
		name string
		v    float64
		r    coefficientRange
	}{
		{"self", self, coefficientRanges.self},
		{"dom", dom, coefficientRanges.dom},
		{"domSub", domSub, coefficientRanges.domSub},
		{"minor", minorW, coefficientRanges.minor},
		{"major", majorW, coefficientRanges.major},
		{"triadic", triadic, coefficientRanges.triadic},
		{"leadingTone", leadingTone, coefficientRanges.leadingTone},
		{"tritone", tritone, coefficientRanges.tritone},
		{"phrygian", phrygian, coefficientRanges.phrygian},
		{"diatonic", diatonic, coefficientRanges.diatonic},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return CoefficientVector{}, fmt.Errorf("tonality: %s coefficient is not finite: %v", f.name, f.v)
		}
		if f.v < f.r.min || f.v > f.r.max {
			return CoefficientVector{}, fmt.Errorf("tonality: %s coefficient %v out of range [%v, %v]", f.name, f.v, f.r.min, f.r.max)
		}
	}
	return CoefficientVector{
		Self: self, Dom: dom, DomSub: domSub, Minor: minorW, Major: majorW,
		Triadic: triadic, LeadingTone: leadingTone, Tritone: tritone,
		Phrygian: phrygian, Diatonic: diatonic,
	}, nil
}

// RoundedCoefficients is the persisted, two-decimal-rounded form of a
// CoefficientVector, field-named to match the tuner document schema.
type RoundedCoefficients struct {
	SelfCoefficient        float64 `json:"selfCoefficient"`
	DomCoefficient         float64 `json:"domCoefficient"`
	DomSubCoefficient      float64 `json:"domSubCoefficient"`
	MinorCoefficient       float64 `json:"minorCoefficient"`
	MajorCoefficient       float64 `json:"majorCoefficient"`
	TriadicCoefficient     float64 `json:"triadicCoefficient"`
	LeadingToneCoefficient float64 `json:"leadingToneCoefficient"`
	TritoneCoefficient     float64 `json:"tritoneCoefficient"`
	PhrygianCoefficient    float64 `json:"phrygianCoefficient"`
	DiatonicCoefficient    float64 `json:"diatonicCoefficient"`
}

// Round produces the persisted, two-decimal representation of v.
func (v CoefficientVector) Round() RoundedCoefficients {
	r := func(x float64) float64 { return math.Round(x*100) / 100 }
	return RoundedCoefficients{
		SelfCoefficient:        r(v.Self),
		DomCoefficient:         r(v.Dom),
		DomSubCoefficient:      r(v.DomSub),
		MinorCoefficient:       r(v.Minor),
		MajorCoefficient:       r(v.Major),
		TriadicCoefficient:     r(v.Triadic),
		LeadingToneCoefficient: r(v.LeadingTone),
		TritoneCoefficient:     r(v.Tritone),
		PhrygianCoefficient:    r(v.Phrygian),
		DiatonicCoefficient:    r(v.Diatonic),
	}
}

// FromRounded reconstructs a CoefficientVector from a persisted
// document, validating ranges the same way NewCoefficientVector does.
func FromRounded(r RoundedCoefficients) (CoefficientVector, error) {
	return NewCoefficientVector(
		r.SelfCoefficient, r.DomCoefficient, r.DomSubCoefficient,
		r.MinorCoefficient, r.MajorCoefficient, r.TriadicCoefficient,
		r.LeadingToneCoefficient, r.TritoneCoefficient, r.PhrygianCoefficient,
		r.DiatonicCoefficient,
	)
}

// Random samples a fresh coefficient vector, each weight drawn
// uniformly from its documented range.
func Random(rng *rand.Rand) CoefficientVector {
	u := func(r coefficientRange) float64 { return r.min + rng.Float64()*(r.max-r.min) }
	return CoefficientVector{
		Self:        u(coefficientRanges.self),
		Dom:         u(coefficientRanges.dom),
		DomSub:      u(coefficientRanges.domSub),
		Minor:       u(coefficientRanges.minor),
		Major:       u(coefficientRanges.major),
		Triadic:     u(coefficientRanges.triadic),
		LeadingTone: u(coefficientRanges.leadingTone),
		Tritone:     u(coefficientRanges.tritone),
		Phrygian:    u(coefficientRanges.phrygian),
		Diatonic:    u(coefficientRanges.diatonic),
	}
}

// score computes a candidate tonic's total feature score at pitch
// class n against presence map p, coefficient vector k, and the map's
// principal (peak) value. Every feature is scaled relative to
// principal; significance carries no coefficient, and k.Self does not
// enter the score at all.
func score(p presence.Map, k CoefficientVector, n pitch.PitchClass, principal float64) float64 {
	at := func(delta int) float64 { return p.Get(n.Add(delta)) }

	unison := at(0)
	m2b := at(-1)
	m2a := at(1)
	M2a := at(2)
	M2b := at(-2)
	m3a := at(3)
	m3b := at(-3)
	M3b := at(-4)
	M3a := at(4)
	p4 := at(5)
	tt := at(6)
	p5 := at(7)

	significance := unison / principal
	dominant := k.Dom * (p5 / principal)
	dominantSub := k.DomSub * ((p4+p5)/2) / principal
	minorRel := k.Minor * ((m3b - m3a) / principal)
	majorRel := k.Major * ((m3a - m3b) / principal)
	triadic := k.Triadic * ((unison + m3a + M3a + p5) / 3) / principal

	var leadingTone float64
	if M2b > m2b {
		lo, hi := m2b, M2b
		if lo > hi {
			lo, hi = hi, lo
		}
		ratio := 0.0
		if hi != 0 {
			ratio = lo / hi
		}
		leadingTone = (m2b + M2b) * ratio / principal
	} else {
		leadingTone = k.LeadingTone * (m2b / principal)
	}

	tritone := k.Tritone * (tt / principal)
	phrygian := k.Phrygian * (m2a / principal)

	minorDegSum := unison + M2a + m3a + p4 + p5 + M3b + M2b
	majorDegSum := unison + M2a + M3a + p4 + p5 + m3b + m2b
	degSum := minorDegSum
	if majorDegSum > degSum {
		degSum = majorDegSum
	}
	diatonic := k.Diatonic * (degSum / 7) / principal

	return significance + dominant + dominantSub + minorRel + majorRel +
		triadic + leadingTone + tritone + phrygian + diatonic
}

// SelectTonic scores all twelve pitch classes against p with k and
// returns the argmax, with ties broken toward the lower pitch-class
// index. ok is false when p's principal value is zero (undefined
// tonic).
func SelectTonic(p presence.Map, k CoefficientVector) (pitch.PitchClass, bool) {
	principal := p.Principal()
	if principal == 0 {
		return pitch.C, false
	}

	best := pitch.C
	bestScore := math.Inf(-1)
	for n := pitch.PitchClass(0); n < 12; n++ {
		s := score(p, k, n, principal)
		if s > bestScore {
			bestScore = s
			best = n
		}
	}
	return best, true
}

// DecideMode chooses minor or major for tonic n independently of any
// coefficient vector, by comparing minor- and major-third/sixth
// presence.
func DecideMode(p presence.Map, tonic pitch.PitchClass) Mode {
	minorPower := p.Get(tonic.Add(3)) + p.Get(tonic.Add(8))
	majorPower := p.Get(tonic.Add(4)) + p.Get(tonic.Add(9))
	if minorPower > majorPower {
		return Minor
	}
	return Major
}

// AssembleKeys derives a track's start and end keys (and its short
// display label) from its overall/start/end presence maps, the
// coefficient vector, and its genre. A silent or noise-only track
// (principal == 0 in every map) degrades gracefully to (C, major) for
// both keys, with ok=false signalling the degradation.
func AssembleKeys(overall, start, end presence.Map, genre string, k CoefficientVector) (startKey, endKey Key, shortLabel string, ok bool) {
	overallTonic, overallOK := SelectTonic(overall, k)
	if !overallOK {
		degraded := Key{Tonic: pitch.C, Mode: Major}
		return degraded, degraded, degraded.Tonic.String(), false
	}
	overallMode := DecideMode(overall, overallTonic)

	startTonic, startOK := SelectTonic(start, k)
	endTonic, endOK := SelectTonic(end, k)
	if !startOK {
		startTonic = overallTonic
	}
	if !endOK {
		endTonic = overallTonic
	}

	if genre == "Pop" || startTonic == endTonic {
		key := Key{Tonic: overallTonic, Mode: overallMode}
		return key, key, overallTonic.String(), true
	}

	startKey = Key{Tonic: startTonic, Mode: DecideMode(start, startTonic)}
	endKey = Key{Tonic: endTonic, Mode: DecideMode(end, endTonic)}
	return startKey, endKey, fmt.Sprintf("%s - %s", startTonic, endTonic), true
}
