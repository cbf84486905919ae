package tuner

import (
	"testing"

	"github.com/mstead-audio/keyweave/internal/pitch"
	"github.com/mstead-audio/keyweave/internal/tonality"
	"github.com/mstead-audio/keyweave/internal/track"
)

func analyzedTrack(name string, startTonic, endTonic pitch.PitchClass) track.Track {
	return track.Track{
		Name:     name,
		StartKey: tonality.Key{Tonic: startTonic, Mode: tonality.Major},
		EndKey:   tonality.Key{Tonic: endTonic, Mode: tonality.Major},
	}
}

func TestScorePerfectMatchIs100(t *testing.T) {
	analyzed := []track.Track{
		analyzedTrack("one", pitch.C, pitch.C),
		analyzedTrack("two", pitch.G, pitch.A),
		analyzedTrack("three", pitch.E, pitch.E),
	}
	labels := map[string]Label{
		"one":   {TrackName: "one", StartingKey: pitch.C, ClosingKey: pitch.C},
		"two":   {TrackName: "two", StartingKey: pitch.G, ClosingKey: pitch.A},
		"three": {TrackName: "three", StartingKey: pitch.E, ClosingKey: pitch.E},
	}

	if got := Score(analyzed, labels); got != 100.0 {
		t.Errorf("Score with perfect matches = %v, want 100.0", got)
	}
}

func TestScoreOneFlipYieldsExpectedFraction(t *testing.T) {
	analyzed := []track.Track{
		analyzedTrack("one", pitch.C, pitch.C),
		analyzedTrack("two", pitch.G, pitch.G),
		analyzedTrack("three", pitch.E, pitch.E),
		analyzedTrack("four", pitch.D, pitch.D),
	}
	labels := map[string]Label{
		"one":   {TrackName: "one", StartingKey: pitch.C, ClosingKey: pitch.C},
		"two":   {TrackName: "two", StartingKey: pitch.G, ClosingKey: pitch.G},
		"three": {TrackName: "three", StartingKey: pitch.E, ClosingKey: pitch.E},
		// Deliberate mismatch: analyzed "four" closes on D, label expects A.
		"four": {TrackName: "four", StartingKey: pitch.D, ClosingKey: pitch.A},
	}

	got := Score(analyzed, labels)
	want := 75.0 // round(3/4, 4) * 100
	if got != want {
		t.Errorf("Score with one flipped match = %v, want %v", got, want)
	}
}

func TestScoreHonorsRelativeKeys(t *testing.T) {
	analyzed := []track.Track{analyzedTrack("one", pitch.A, pitch.C)}
	relStart := pitch.A
	labels := map[string]Label{
		"one": {
			TrackName:           "one",
			StartingKey:         pitch.C, // not A directly...
			StartingRelativeKey: &relStart,
			ClosingKey:          pitch.C,
		},
	}
	if got := Score(analyzed, labels); got != 100.0 {
		t.Errorf("Score should credit a match via the relative key, got %v", got)
	}
}

func TestScoreCountsUnlabeledTracksAsMisses(t *testing.T) {
	analyzed := []track.Track{analyzedTrack("unlabeled", pitch.C, pitch.C)}
	if got := Score(analyzed, map[string]Label{}); got != 0 {
		t.Errorf("Score with no matching labels = %v, want 0", got)
	}
}

func TestScoreDividesByFullAnalyzedCount(t *testing.T) {
	// Three analyzed tracks, but only two carry a label. The unlabeled
	// track must still count toward the denominator, so a perfect match
	// on both labeled tracks yields 2/3, not 2/2.
	analyzed := []track.Track{
		analyzedTrack("one", pitch.C, pitch.C),
		analyzedTrack("two", pitch.G, pitch.G),
		analyzedTrack("unlabeled", pitch.D, pitch.D),
	}
	labels := map[string]Label{
		"one": {TrackName: "one", StartingKey: pitch.C, ClosingKey: pitch.C},
		"two": {TrackName: "two", StartingKey: pitch.G, ClosingKey: pitch.G},
	}

	got := Score(analyzed, labels)
	want := 66.67 // round(2/3, 4) * 100
	if got != want {
		t.Errorf("Score with an unlabeled track in the batch = %v, want %v", got, want)
	}
}
