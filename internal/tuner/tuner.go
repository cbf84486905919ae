// Package tuner discovers a good coefficient vector by repeatedly
// sampling a fresh one at random, scoring it against a labeled corpus,
// and persisting each iteration's result.
package tuner

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/mstead-audio/keyweave/internal/corpusstore"
	"github.com/mstead-audio/keyweave/internal/loader"
	"github.com/mstead-audio/keyweave/internal/orchestrate"
	"github.com/mstead-audio/keyweave/internal/pitch"
	"github.com/mstead-audio/keyweave/internal/presence"
	"github.com/mstead-audio/keyweave/internal/tonality"
	"github.com/mstead-audio/keyweave/internal/track"
)

// Label is a ground-truth annotation for one track, used only by the
// tuner. Relative keys are optional: a track scores as correct on an
// endpoint if its tonic matches either the primary or the relative key.
type Label struct {
	TrackName           string
	StartingKey         pitch.PitchClass
	ClosingKey          pitch.PitchClass
	StartingRelativeKey *pitch.PitchClass
	ClosingRelativeKey  *pitch.PitchClass
}

// Config controls one tuning run.
type Config struct {
	Iterations int
	Genre      string
	Workers    int
}

// Run samples cfg.Iterations fresh coefficient vectors, analyzes every
// source under each vector, scores the result against labels, and
// saves each iteration's {score, genre, coefficients} via store. rng
// drives coefficient sampling; a separate generator is expected for
// any playlist-stage randomness elsewhere in the pipeline.
func Run(ctx context.Context, sources []track.Source, labels []Label, ld loader.AudioLoader, store corpusstore.ScoreStore, cfg Config, rng *rand.Rand) error {
	byName := make(map[string]Label, len(labels))
	for _, l := range labels {
		byName[l.TrackName] = l
	}

	for iter := 0; iter < cfg.Iterations; iter++ {
		coeffs := tonality.Random(rng)

		analyze := func(ctx context.Context, src track.Source) (track.Track, error) {
			samples, sampleRate, err := ld.Load(ctx, src.Path)
			if err != nil {
				return track.Track{}, fmt.Errorf("tuner: load %s: %w", src.Path, err)
			}
			mono := presence.Mono(samples)
			return track.Analyze(src, mono, sampleRate, coeffs), nil
		}

		analyzed := orchestrate.Run(ctx, sources, orchestrate.Config{Workers: cfg.Workers}, analyze)

		score := Score(analyzed, byName)

		doc := corpusstore.ScoredCoefficients{
			Score:        score,
			Genre:        cfg.Genre,
			Coefficients: coeffs.Round(),
		}
		if err := store.Save(ctx, doc); err != nil {
			log.Printf("[TUNER] iteration %d: persistence failed, continuing: %v", iter, err)
			continue
		}
		log.Printf("[TUNER] iteration %d: score=%.2f", iter, score)
	}
	return nil
}

// Score computes accuracy as round(credited/len(analyzed), 4) * 100.
// The denominator is the full analyzed-track count, not the labeled
// subset: a track with no matching label still counts toward it, it
// simply cannot be credited.
func Score(analyzed []track.Track, labels map[string]Label) float64 {
	if len(analyzed) == 0 {
		return 0
	}

	credited := 0
	for _, t := range analyzed {
		label, ok := labels[t.Name]
		if !ok {
			log.Printf("[TUNER] %s: no ground-truth label, scoring as a miss", t.Name)
			continue
		}

		startOK := t.StartKey.Tonic == label.StartingKey ||
			(label.StartingRelativeKey != nil && t.StartKey.Tonic == *label.StartingRelativeKey)
		endOK := t.EndKey.Tonic == label.ClosingKey ||
			(label.ClosingRelativeKey != nil && t.EndKey.Tonic == *label.ClosingRelativeKey)

		if startOK && endOK {
			credited++
		}
	}
	ratio := float64(credited) / float64(len(analyzed))
	return math.Round(ratio*10000) / 10000 * 100
}
