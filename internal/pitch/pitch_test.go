package pitch

import (
	"math"
	"testing"
)

func TestEqualTemperedOctaveDoubling(t *testing.T) {
	for _, n := range Table {
		up := Adjacent(n, 12)
		got := up.Frequency / n.Frequency
		if math.Abs(got-2.0) > 1e-9 {
			t.Errorf("note %s%d: adjacent(+12) ratio = %v, want 2.0", n.Class, n.Octave, got)
		}
	}
}

func TestAdjacentWrapsPitchClass(t *testing.T) {
	b := equalTempered(2) // B4-ish offset, arbitrary
	up := Adjacent(b, 1)
	if up.Class != b.Class.Add(1) {
		t.Errorf("Adjacent pitch class = %v, want %v", up.Class, b.Class.Add(1))
	}
}

func TestOvertonesCountAndDeterminism(t *testing.T) {
	a3 := equalTempered(-12) // A3 is one octave below A4
	ot1 := Overtones(a3)
	ot2 := Overtones(a3)
	if len(ot1) != 15 {
		t.Fatalf("len(Overtones) = %d, want 15", len(ot1))
	}
	for i := range ot1 {
		if ot1[i] != ot2[i] {
			t.Fatalf("Overtones(A3) is not deterministic at index %d", i)
		}
	}
	// The second entry (octave+fifth, +2 cents) pulls the equal-tempered
	// 659.26Hz up toward the just third harmonic of A3 (660Hz).
	got := ot1[1].Frequency
	if math.Abs(got-660.04) > 0.01 {
		t.Errorf("Overtones(A3)[1].Frequency = %v, want ~660.04", got)
	}
}

func TestPowerInSumsWindow(t *testing.T) {
	// Construct a buffer with a single spike exactly at A4's bin.
	sampleRate := 48000
	n := 32768
	binSize := float64(sampleRate) / float64(n)
	a4 := equalTempered(0)
	bin := int(math.Round(a4.Frequency / binSize))

	spec := make(Spectrum, n/2)
	spec[bin] = 100

	buf := Buffer{Spectrum: spec, SampleRate: sampleRate}
	got := PowerIn(a4, buf)
	if got < 100 {
		t.Errorf("PowerIn(A4) = %v, want >= 100 (spike should fall inside +/-50 cent window)", got)
	}

	farNote := Adjacent(a4, 12) // an octave away, well outside the window
	if got := PowerIn(farNote, buf); got != 0 {
		t.Errorf("PowerIn(A5) = %v, want 0 (spike should be outside window)", got)
	}
}

func TestParseAccidentals(t *testing.T) {
	cases := []struct {
		in   string
		want PitchClass
	}{
		{"C", C}, {"c", C}, {"F#", FSharp}, {"Gb", FSharp},
		{"Bb", ASharp}, {"A", A}, {"  D  ", D},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseRejectsUnknownName(t *testing.T) {
	if _, err := Parse("H"); err == nil {
		t.Error("expected an error for an unknown pitch class name")
	}
	if _, err := Parse(""); err == nil {
		t.Error("expected an error for an empty pitch class name")
	}
}
