package tonality

import (
	"math/rand"
	"testing"

	"github.com/mstead-audio/keyweave/internal/pitch"
	"github.com/mstead-audio/keyweave/internal/presence"
)

func TestSelectTonicUndefinedWhenSilent(t *testing.T) {
	var p presence.Map
	_, ok := SelectTonic(p, OrchestralPreset)
	if ok {
		t.Error("SelectTonic on an all-zero presence map should report ok=false")
	}
}

func TestSelectTonicIsDeterministic(t *testing.T) {
	var p presence.Map
	p.Add(pitch.C, 100)
	p.Add(pitch.G, 60)
	p.Add(pitch.E, 40)

	tonic1, ok1 := SelectTonic(p, OrchestralPreset)
	tonic2, ok2 := SelectTonic(p, OrchestralPreset)
	if !ok1 || !ok2 {
		t.Fatal("SelectTonic should be defined for a non-silent map")
	}
	if tonic1 != tonic2 {
		t.Errorf("SelectTonic is not a pure function: got %v then %v", tonic1, tonic2)
	}
}

func TestSelectTonicFavorsDominantPresence(t *testing.T) {
	// A C-major-triad-like map (C, E, G strongly present) should select
	// C as tonic under the Orchestral preset, since the significance and
	// triadic terms reward C far more than any other candidate.
	var p presence.Map
	p.Add(pitch.C, 100)
	p.Add(pitch.E, 70)
	p.Add(pitch.G, 80)

	tonic, ok := SelectTonic(p, OrchestralPreset)
	if !ok {
		t.Fatal("expected a defined tonic")
	}
	if tonic != pitch.C {
		t.Errorf("SelectTonic = %v, want C", tonic)
	}
}

func TestDecideModeMajorWhenNoThirdPresent(t *testing.T) {
	// S1: a pure tone with no third present at all (minorPower ==
	// majorPower == 0) resolves to major via the "else" branch.
	var p presence.Map
	p.Add(pitch.A, 500)
	mode := DecideMode(p, pitch.A)
	if mode != Major {
		t.Errorf("DecideMode with no third present = %v, want major", mode)
	}
}

func TestDecideModeMinorWhenMinorThirdDominates(t *testing.T) {
	var p presence.Map
	p.Add(pitch.C, 100)
	p.Add(pitch.C.Add(3), 80) // minor third
	p.Add(pitch.C.Add(4), 5)  // major third, much weaker
	mode := DecideMode(p, pitch.C)
	if mode != Minor {
		t.Errorf("DecideMode = %v, want minor", mode)
	}
}

func TestDecideModeMonotonicity(t *testing.T) {
	var p presence.Map
	p.Add(pitch.C, 100)
	p.Add(pitch.C.Add(4), 50) // major third present, major wins initially
	if DecideMode(p, pitch.C) != Major {
		t.Fatal("expected major before boosting the minor third")
	}
	p.Add(pitch.C.Add(3), 200) // boost minor third well past major
	if DecideMode(p, pitch.C) != Minor {
		t.Error("boosting the minor third should eventually flip the mode to minor")
	}
}

func TestAssembleKeysCollapsesOnPopGenre(t *testing.T) {
	var overall, start, end presence.Map
	overall.Add(pitch.C, 100)
	overall.Add(pitch.E, 60)
	overall.Add(pitch.G, 70)
	start.Add(pitch.A, 90) // would otherwise select A as startTonic
	end.Add(pitch.C, 90)

	startKey, endKey, label, ok := AssembleKeys(overall, start, end, "Pop", OrchestralPreset)
	if !ok {
		t.Fatal("expected ok=true for a non-silent track")
	}
	if startKey != endKey {
		t.Errorf("Pop genre should collapse startKey/endKey, got %v / %v", startKey, endKey)
	}
	if label != startKey.Tonic.String() {
		t.Errorf("shortLabel = %q, want %q", label, startKey.Tonic.String())
	}
}

func TestAssembleKeysModulatingTrack(t *testing.T) {
	var overall, start, end presence.Map
	start.Add(pitch.A, 100)
	start.Add(pitch.C, 70)
	end.Add(pitch.C, 100)
	end.Add(pitch.G, 70)
	overall = start.Plus(end)

	startKey, endKey, label, ok := AssembleKeys(overall, start, end, "", OrchestralPreset)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if startKey.Tonic == endKey.Tonic {
		t.Fatal("expected distinct start/end tonics for a modulating track")
	}
	wantLabel := startKey.Tonic.String() + " - " + endKey.Tonic.String()
	if label != wantLabel {
		t.Errorf("shortLabel = %q, want %q", label, wantLabel)
	}
}

func TestAssembleKeysDegradesGracefullyOnSilence(t *testing.T) {
	var overall, start, end presence.Map
	startKey, endKey, label, ok := AssembleKeys(overall, start, end, "", OrchestralPreset)
	if ok {
		t.Error("expected ok=false for a silent track")
	}
	want := Key{Tonic: pitch.C, Mode: Major}
	if startKey != want || endKey != want {
		t.Errorf("silent track should degrade to (C, major), got start=%v end=%v", startKey, endKey)
	}
	if label != "C" {
		t.Errorf("shortLabel = %q, want %q", label, "C")
	}
}

func TestNewCoefficientVectorRejectsOutOfRange(t *testing.T) {
	_, err := NewCoefficientVector(3 /* self out of [1,2] */, 0.05, 1.45, 0.02, 0.19, 1.44, 0.74, -4.35, -3.34, 1.23)
	if err == nil {
		t.Error("expected an error for an out-of-range self coefficient")
	}
}

func TestRoundRoundTripsThroughFromRounded(t *testing.T) {
	rounded := OrchestralPreset.Round()
	v, err := FromRounded(rounded)
	if err != nil {
		t.Fatalf("FromRounded(OrchestralPreset.Round()) failed: %v", err)
	}
	if v.Self != rounded.SelfCoefficient {
		t.Errorf("Self = %v, want %v", v.Self, rounded.SelfCoefficient)
	}
}

func TestRandomStaysWithinRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		v := Random(rng)
		if _, err := NewCoefficientVector(v.Self, v.Dom, v.DomSub, v.Minor, v.Major, v.Triadic, v.LeadingTone, v.Tritone, v.Phrygian, v.Diatonic); err != nil {
			t.Fatalf("Random produced an out-of-range vector: %v", err)
		}
	}
}
