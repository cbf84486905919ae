// Package main is the entry point for the keyweave CLI.
// keyweave scans a directory of audio files, assigns each track a key,
// and orders them into a playlist whose transitions favor harmonic,
// diatonic, and neighbor-tone relationships over abrupt jumps.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mstead-audio/keyweave/internal/corpusstore"
	"github.com/mstead-audio/keyweave/internal/keyconfig"
	"github.com/mstead-audio/keyweave/internal/loader"
	"github.com/mstead-audio/keyweave/internal/orchestrate"
	"github.com/mstead-audio/keyweave/internal/pitch"
	"github.com/mstead-audio/keyweave/internal/playlist"
	"github.com/mstead-audio/keyweave/internal/presence"
	"github.com/mstead-audio/keyweave/internal/track"
	"github.com/mstead-audio/keyweave/internal/trackcache"
	"github.com/mstead-audio/keyweave/internal/tuner"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "order":
		err = runOrder(ctx, os.Args[2:])
	case "tune":
		err = runTune(ctx, os.Args[2:])
	case "version":
		fmt.Printf("keyweave version %s\n", Version)
		return
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("keyweave: %v", err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: keyweave order <dir> [flags]\n       keyweave tune <labels.json> <dir> [flags]\n")
}

func runOrder(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("order", flag.ExitOnError)
	configDir := fs.String("config", defaultConfigDir(), "configuration directory")
	genre := fs.String("genre", "", "genre tag applied to every scanned track")
	workers := fs.Int("workers", 0, "worker pool size (0 = runtime.NumCPU())")
	seed := fs.Int64("seed", time.Now().UnixNano(), "playlist random seed")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("order requires a directory argument")
	}
	dir := fs.Arg(0)

	mgr := keyconfig.NewManager(*configDir)
	if err := mgr.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := mgr.Get()
	if *genre != "" {
		cfg.Genre = *genre
	}
	if *workers != 0 {
		cfg.Workers = *workers
	}

	coeffs, err := cfg.CoefficientVector()
	if err != nil {
		return fmt.Errorf("resolve coefficient preset: %w", err)
	}

	scanner := loader.DirectoryScanner{Genre: cfg.Genre}
	sources, err := scanner.Scan(dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no supported audio files found under %s", dir)
	}

	ld, err := loader.NewFFmpegLoader()
	if err != nil {
		return fmt.Errorf("initialize audio loader: %w", err)
	}

	cache, err := trackcache.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("initialize track cache: %w", err)
	}

	analyze := func(ctx context.Context, src track.Source) (track.Track, error) {
		hash, err := trackcache.Hash(src.Path)
		if err != nil {
			return track.Track{}, fmt.Errorf("hash %s: %w", src.Path, err)
		}
		if cached, ok := cache.Lookup(src.Path, hash); ok {
			log.Printf("[CACHE] reusing analysis for %s", src.Path)
			return cached, nil
		}

		samples, sampleRate, err := ld.Load(ctx, src.Path)
		if err != nil {
			return track.Track{}, fmt.Errorf("load %s: %w", src.Path, err)
		}
		mono := presence.Mono(samples)
		analyzed := track.Analyze(src, mono, sampleRate, coeffs)

		if err := cache.Put(src.Path, hash, analyzed); err != nil {
			log.Printf("[CACHE] failed to persist %s: %v", src.Path, err)
		}
		return analyzed, nil
	}

	analyzed := orchestrate.Run(ctx, sources, orchestrate.Config{Workers: cfg.Workers}, analyze)
	if len(analyzed) == 0 {
		return fmt.Errorf("no tracks could be analyzed")
	}

	rng := rand.New(rand.NewSource(*seed))
	ordered := playlist.Build(analyzed, rng)

	for _, t := range ordered {
		fmt.Println(t.Line())
	}
	return nil
}

func runTune(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tune", flag.ExitOnError)
	configDir := fs.String("config", defaultConfigDir(), "configuration directory")
	genre := fs.String("genre", "", "genre tag applied to every scanned track")
	workers := fs.Int("workers", 0, "worker pool size (0 = runtime.NumCPU())")
	iterations := fs.Int("iterations", 100, "number of coefficient vectors to sample")
	seed := fs.Int64("seed", time.Now().UnixNano(), "coefficient sampling seed")
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("tune requires a labels file and a directory argument")
	}
	labelsPath := fs.Arg(0)
	dir := fs.Arg(1)

	mgr := keyconfig.NewManager(*configDir)
	if err := mgr.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := mgr.Get()
	if *genre != "" {
		cfg.Genre = *genre
	}
	if *workers != 0 {
		cfg.Workers = *workers
	}

	labels, err := loadLabels(labelsPath)
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}

	scanner := loader.DirectoryScanner{Genre: cfg.Genre}
	sources, err := scanner.Scan(dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no supported audio files found under %s", dir)
	}

	ld, err := loader.NewFFmpegLoader()
	if err != nil {
		return fmt.Errorf("initialize audio loader: %w", err)
	}

	store, err := corpusstore.NewJSONFileStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("initialize score store: %w", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	tunerCfg := tuner.Config{Iterations: *iterations, Genre: cfg.Genre, Workers: cfg.Workers}
	return tuner.Run(ctx, sources, labels, ld, store, tunerCfg, rng)
}

func defaultConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".keyweave"
	}
	return homeDir + "/.config/keyweave"
}

// labelsFile is the on-disk shape of a labels.json ground-truth file.
// Relative keys are optional and recorded as pitch class names; an
// empty string means "no relative key".
type labelsFile struct {
	Labels []struct {
		TrackName           string `json:"trackName"`
		StartingKey         string `json:"startingKey"`
		ClosingKey          string `json:"closingKey"`
		StartingRelativeKey string `json:"startingRelativeKey,omitempty"`
		ClosingRelativeKey  string `json:"closingRelativeKey,omitempty"`
	} `json:"labels"`
}

func loadLabels(path string) ([]tuner.Label, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var raw labelsFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	labels := make([]tuner.Label, 0, len(raw.Labels))
	for _, l := range raw.Labels {
		start, err := pitch.Parse(l.StartingKey)
		if err != nil {
			return nil, fmt.Errorf("label %q: starting key: %w", l.TrackName, err)
		}
		end, err := pitch.Parse(l.ClosingKey)
		if err != nil {
			return nil, fmt.Errorf("label %q: closing key: %w", l.TrackName, err)
		}

		label := tuner.Label{TrackName: l.TrackName, StartingKey: start, ClosingKey: end}

		if l.StartingRelativeKey != "" {
			rel, err := pitch.Parse(l.StartingRelativeKey)
			if err != nil {
				return nil, fmt.Errorf("label %q: starting relative key: %w", l.TrackName, err)
			}
			label.StartingRelativeKey = &rel
		}
		if l.ClosingRelativeKey != "" {
			rel, err := pitch.Parse(l.ClosingRelativeKey)
			if err != nil {
				return nil, fmt.Errorf("label %q: closing relative key: %w", l.TrackName, err)
			}
			label.ClosingRelativeKey = &rel
		}

		labels = append(labels, label)
	}
	return labels, nil
}
