// Package pitch builds the equal-tempered note table the rest of the
// pipeline scores against, and provides overtone series and windowed
// power lookups against an averaged spectrum.
package pitch

import (
	"fmt"
	"math"
	"strings"
)

// PitchClass is one of the twelve chromatic pitch names, ordered
// cyclically starting at C. Arithmetic on it is modulo 12.
type PitchClass int

const (
	C PitchClass = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

var classNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func (p PitchClass) String() string {
	return classNames[p.Norm()]
}

// Parse resolves a pitch class name ("C", "F#", "Bb") to its PitchClass,
// accepting both "#" and "b" accidentals case-insensitively.
func Parse(name string) (PitchClass, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return 0, fmt.Errorf("pitch: empty pitch class name")
	}

	letter := strings.ToUpper(s[:1])
	base, ok := map[string]PitchClass{
		"C": C, "D": D, "E": E, "F": F, "G": G, "A": A, "B": B,
	}[letter]
	if !ok {
		return 0, fmt.Errorf("pitch: unknown pitch class name %q", name)
	}

	switch rest := s[1:]; rest {
	case "":
		return base, nil
	case "#", "s", "S", "sharp":
		return base.Add(1), nil
	case "b", "B", "flat":
		return base.Add(-1), nil
	default:
		return 0, fmt.Errorf("pitch: unknown pitch class name %q", name)
	}
}

// Norm folds an arbitrary (possibly negative) pitch-class index into
// the canonical [0,12) range.
func (p PitchClass) Norm() PitchClass {
	n := int(p) % 12
	if n < 0 {
		n += 12
	}
	return PitchClass(n)
}

// Add returns the pitch class Δ semitones away, wrapping modulo 12.
func (p PitchClass) Add(delta int) PitchClass {
	return PitchClass(delta + int(p)).Norm()
}

// Note is (pitchClass, octave, frequency). Frequency is not derivable
// from the other two alone, because overtone-tuned notes deviate from
// equal temperament (see Overtones).
type Note struct {
	Class     PitchClass
	Octave    int
	Frequency float64

	// semitone is this note's equal-tempered offset from A4, the basis
	// for Adjacent/Overtones arithmetic.
	semitone int
}

// semitonesAtoC is how many semitones A sits above C within an octave.
const semitonesAtoC = 9

// equalTempered constructs the equal-tempered note at semitone offset i
// from A4 (440Hz).
func equalTempered(i int) Note {
	classIdx := ((i+semitonesAtoC)%12 + 12) % 12
	octave := int(math.Floor(float64(i+semitonesAtoC)/12.0)) + 4
	freq := 440.0 * math.Pow(2, float64(i)/12.0)
	return Note{
		Class:     PitchClass(classIdx),
		Octave:    octave,
		Frequency: freq,
		semitone:  i,
	}
}

// Spectrum is a real-valued magnitude vector; bin i corresponds to
// frequency i*(sampleRate/N). Values are non-negative.
type Spectrum []float64

// Buffer represents one averaged spectral snapshot at a position in
// the track.
type Buffer struct {
	Spectrum    Spectrum
	DCOffset    float64
	SampleRate  int
	SampleIndex int
}

// BinSize returns sampleRate/N, the frequency resolution implied by
// this buffer's spectrum length (N/2 bins after the DC bin was popped,
// so N = 2*len(spectrum)).
func (b Buffer) BinSize() float64 {
	n := float64(len(b.Spectrum) * 2)
	return float64(b.SampleRate) / n
}

// OvertoneTable is the fixed mapping from semitone offset above a
// fundamental to cent deviation, for the first 15 overtones. It is a
// process-wide constant.
var OvertoneTable = []struct {
	Semitones int
	Cents     float64
}{
	{12, 0}, {19, 2}, {24, 0}, {28, -14}, {31, 2}, {34, -31}, {36, 0},
	{38, 2}, {40, -14}, {42, -49}, {43, 2}, {44, 41}, {46, -31},
	{47, -12}, {48, 0},
}

// Table is the process-wide, immutable pitch table: equal-tempered
// notes for every semitone index from -57 (C0) to +51 (C9) inclusive.
var Table = buildTable()

func buildTable() []Note {
	notes := make([]Note, 0, 109)
	for i := -57; i <= 51; i++ {
		notes = append(notes, equalTempered(i))
	}
	return notes
}

// Below returns every table note with octave strictly below the given
// octave, in table order.
func Below(octave int) []Note {
	out := make([]Note, 0, len(Table))
	for _, n := range Table {
		if n.Octave < octave {
			out = append(out, n)
		}
	}
	return out
}

// Adjacent returns the equal-tempered note Δ semitones away from note,
// wrapping pitch class modulo 12 and carrying the octave.
func Adjacent(note Note, delta int) Note {
	return equalTempered(note.semitone + delta)
}

// Overtones returns the 15 overtones of note. For each table entry
// whose cent deviation is non-zero, the equal-tempered frequency is
// replaced per the documented detuning rule; pitch class and octave
// remain those of the equal-tempered target.
func Overtones(note Note) []Note {
	out := make([]Note, 0, len(OvertoneTable))
	for _, ot := range OvertoneTable {
		target := equalTempered(note.semitone + ot.Semitones)
		if ot.Cents != 0 {
			sign := 1.0
			if ot.Cents < 0 {
				sign = -1.0
			}
			neighbor := equalTempered(note.semitone + ot.Semitones + int(sign))
			target.Frequency = target.Frequency + sign*math.Abs(target.Frequency-neighbor.Frequency)*(math.Abs(ot.Cents)/100.0)
		}
		out = append(out, target)
	}
	return out
}

// PowerIn aggregates buf's spectrum over the frequency window
// [note.Frequency - 50 cents, note.Frequency + 50 cents]. Window ends
// are converted to bin indices by round((threshold-1)/binSize); the -1
// compensates for the removed DC bin. The sum is inclusive of the
// lower index, exclusive of the upper.
func PowerIn(note Note, buf Buffer) float64 {
	binSize := buf.BinSize()
	lowFreq := note.Frequency * math.Pow(2, -50.0/1200.0)
	highFreq := note.Frequency * math.Pow(2, 50.0/1200.0)

	lo := int(math.Round((lowFreq - 1) / binSize))
	hi := int(math.Round((highFreq - 1) / binSize))

	if lo < 0 {
		lo = 0
	}
	if hi > len(buf.Spectrum) {
		hi = len(buf.Spectrum)
	}

	sum := 0.0
	for i := lo; i < hi; i++ {
		if i < 0 || i >= len(buf.Spectrum) {
			continue
		}
		sum += buf.Spectrum[i]
	}
	return sum
}
