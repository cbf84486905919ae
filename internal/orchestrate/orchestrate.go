// Package orchestrate runs per-track analysis across a fixed pool of
// worker goroutines, partitioning the track list into contiguous
// chunks so results can be gathered back in their original order
// without any cross-worker coordination.
package orchestrate

import (
	"context"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/mstead-audio/keyweave/internal/track"
)

// AnalyzeFunc analyzes one track's source into a Track. An error
// means the track is omitted from the result set (decode failure,
// unsupported file, or a per-track timeout).
type AnalyzeFunc func(ctx context.Context, src track.Source) (track.Track, error)

// Config controls how a Run call partitions and bounds its work.
type Config struct {
	// Workers is the number of worker slots. Zero or negative means
	// runtime.NumCPU().
	Workers int

	// PerTrackTimeout bounds a single track's analysis. Zero means no
	// deadline is applied.
	PerTrackTimeout time.Duration
}

// Run partitions sources into ⌈len(sources)/Workers⌉-sized contiguous
// chunks, analyzes each chunk sequentially on its own goroutine, and
// returns successfully analyzed tracks gathered in the original
// source order. Workers share no mutable state.
func Run(ctx context.Context, sources []track.Source, cfg Config, analyze AnalyzeFunc) []track.Track {
	n := len(sources)
	if n == 0 {
		return nil
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	chunkSize := (n + workers - 1) / workers

	results := make([]*track.Track, n)

	log.Printf("[ORCHESTRATE] analyzing %d tracks across %d workers (chunk size %d)", n, workers, chunkSize)

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				src := sources[i]

				trackCtx := ctx
				var cancel context.CancelFunc
				if cfg.PerTrackTimeout > 0 {
					trackCtx, cancel = context.WithTimeout(ctx, cfg.PerTrackTimeout)
				}

				tr, err := analyze(trackCtx, src)

				if cancel != nil {
					cancel()
				}

				if err != nil {
					log.Printf("[ORCHESTRATE] skipping %s: %v", src.Path, err)
					continue
				}
				results[i] = &tr
			}
		}(start, end)
	}
	wg.Wait()

	out := make([]track.Track, 0, n)
	for _, tr := range results {
		if tr != nil {
			out = append(out, *tr)
		}
	}
	return out
}
