package spectral

import (
	"math"
	"testing"
)

func TestAnalyzeAtShortTrackYieldsEmpty(t *testing.T) {
	mono := make([]float64, 100) // far shorter than one FFT segment
	spectra := AnalyzeAt(mono, 50)
	if len(spectra) != 0 {
		t.Errorf("AnalyzeAt on a short track = %d spectra, want 0", len(spectra))
	}
}

func TestAnalyzeAtBinCount(t *testing.T) {
	sampleRate := 48000
	mono := make([]float64, sampleRate*5)
	for i := range mono {
		mono[i] = math.Sin(2 * math.Pi * 440 * float64(i) / float64(sampleRate))
	}

	anchor := len(mono) / 2
	spectra := AnalyzeAt(mono, anchor)
	if len(spectra) == 0 {
		t.Fatal("AnalyzeAt returned no spectra for a mid-track anchor")
	}
	for _, s := range spectra {
		if len(s) != SegmentSize/2+1 {
			t.Errorf("spectrum length = %d, want %d", len(s), SegmentSize/2+1)
		}
		for _, v := range s {
			if v < 0 {
				t.Fatal("spectrum must be non-negative")
			}
		}
	}
}

func TestAveragePureTonePeaksNearFrequency(t *testing.T) {
	sampleRate := 48000
	mono := make([]float64, sampleRate*5)
	for i := range mono {
		mono[i] = math.Sin(2 * math.Pi * 440 * float64(i) / float64(sampleRate))
	}

	spectra := AnalyzeAt(mono, len(mono)/2)
	avg := Average(spectra)
	if avg == nil {
		t.Fatal("Average returned nil for non-empty input")
	}

	binSize := float64(sampleRate) / float64(SegmentSize)
	targetBin := int(math.Round(440.0 / binSize))

	maxBin, maxVal := 0, 0.0
	for i, v := range avg {
		if v > maxVal {
			maxVal = v
			maxBin = i
		}
	}
	if math.Abs(float64(maxBin-targetBin)) > 2 {
		t.Errorf("peak bin = %d, want near %d (440Hz)", maxBin, targetBin)
	}
}

func TestAverageEmpty(t *testing.T) {
	if got := Average(nil); got != nil {
		t.Errorf("Average(nil) = %v, want nil", got)
	}
}
