// Package track holds the analyzed-track data model and the
// per-track pipeline that ties spectral analysis, presence
// extraction, and tonality scoring together.
package track

import (
	"fmt"

	"github.com/mstead-audio/keyweave/internal/presence"
	"github.com/mstead-audio/keyweave/internal/tonality"
)

// Source identifies a track before analysis: where its audio lives,
// what to display, and which genre to analyze it under.
type Source struct {
	Path  string
	Name  string
	Genre string
}

// Track is a fully analyzed track: its presence maps, derived keys,
// and the coefficient vector used to derive them.
type Track struct {
	Path  string
	Name  string
	Genre string

	Duration           string
	HalfwaySampleIndex int

	Overall, Start, End presence.Map

	StartKey   tonality.Key
	EndKey     tonality.Key
	OverallKey tonality.Key
	ShortLabel string

	Coefficients tonality.CoefficientVector

	// Degraded is true when the track was silent or noise-only and its
	// keys were assigned the (C, major) default rather than derived.
	Degraded bool
}

// Analyze runs presence extraction and tonality scoring for one
// track's mono samples and assembles its Track record. mono and
// sampleRate come from the audio loader; src carries identity and
// genre.
func Analyze(src Source, mono []float64, sampleRate int, coeffs tonality.CoefficientVector) Track {
	result := presence.Extract(mono, sampleRate)

	overallTonic, overallOK := tonality.SelectTonic(result.Overall, coeffs)
	overallKey := tonality.Key{Tonic: overallTonic}
	if overallOK {
		overallKey.Mode = tonality.DecideMode(result.Overall, overallTonic)
	} else {
		overallKey.Mode = tonality.Major
	}

	startKey, endKey, shortLabel, ok := tonality.AssembleKeys(result.Overall, result.Start, result.End, src.Genre, coeffs)

	return Track{
		Path:               src.Path,
		Name:               src.Name,
		Genre:              src.Genre,
		Duration:           FormatTimestamp(len(mono), sampleRate),
		HalfwaySampleIndex: result.HalfwaySampleIndex,
		Overall:            result.Overall,
		Start:              result.Start,
		End:                result.End,
		StartKey:           startKey,
		EndKey:             endKey,
		OverallKey:         overallKey,
		ShortLabel:         shortLabel,
		Coefficients:       coeffs,
		Degraded:           !ok,
	}
}

// FormatTimestamp renders a sample index at the given sample rate as
// "m:ss:cc", cc being hundredths of a second.
func FormatTimestamp(sampleIndex, sampleRate int) string {
	if sampleRate <= 0 {
		return "0:00:00"
	}
	totalCentiseconds := sampleIndex * 100 / sampleRate
	minutes := totalCentiseconds / 6000
	seconds := (totalCentiseconds / 100) % 60
	centis := totalCentiseconds % 100
	return fmt.Sprintf("%d:%02d:%02d", minutes, seconds, centis)
}

// Line renders the user-visible playlist line for this track:
// "{shortLabel} ~ {trackName}".
func (t Track) Line() string {
	return fmt.Sprintf("%s ~ %s", t.ShortLabel, t.Name)
}
