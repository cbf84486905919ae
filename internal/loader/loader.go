// Package loader discovers audio files on disk and decodes them into
// the [frames][channels] sample buffers the analysis pipeline expects.
package loader

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mstead-audio/keyweave/internal/track"
)

// AudioLoader decodes an audio file into sample frames and the sample
// rate those frames were decoded at. Implementations are the only
// part of the pipeline that touches the filesystem or an external
// decoder process.
type AudioLoader interface {
	Load(ctx context.Context, path string) (samples [][]float64, sampleRate int, err error)
}

// DecodeSampleRate is the fixed rate every file is resampled to before
// analysis, so downstream FFT bin math does not need to special-case
// a file's native rate.
const DecodeSampleRate = 48000

// FFmpegLoader decodes audio files by shelling out to ffmpeg,
// requesting raw interleaved stereo float64 PCM at DecodeSampleRate.
type FFmpegLoader struct {
	ffmpegPath string
	channels   int
}

// NewFFmpegLoader locates ffmpeg in PATH.
func NewFFmpegLoader() (*FFmpegLoader, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("loader: ffmpeg not found in PATH: %w", err)
	}
	return &FFmpegLoader{ffmpegPath: ffmpegPath, channels: 2}, nil
}

// Load decodes path into [frames][channels] float64 samples at
// DecodeSampleRate.
func (l *FFmpegLoader) Load(ctx context.Context, path string) ([][]float64, int, error) {
	args := []string{
		"-i", path,
		"-f", "f64le",
		"-acodec", "pcm_f64le",
		"-ac", fmt.Sprintf("%d", l.channels),
		"-ar", fmt.Sprintf("%d", DecodeSampleRate),
		"-",
	}

	cmd := exec.CommandContext(ctx, l.ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, 0, fmt.Errorf("loader: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, 0, fmt.Errorf("loader: start ffmpeg: %w", err)
	}

	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
			cmd.Wait()
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, stdout); err != nil {
		return nil, 0, fmt.Errorf("loader: read ffmpeg output: %w", err)
	}
	if err := cmd.Wait(); err != nil {
		return nil, 0, fmt.Errorf("loader: ffmpeg decode failed for %s: %w", path, err)
	}

	raw := buf.Bytes()
	bytesPerSample := 8
	frameSize := bytesPerSample * l.channels
	frameCount := len(raw) / frameSize
	if frameCount == 0 {
		return nil, 0, fmt.Errorf("loader: %s decoded to zero frames", path)
	}

	samples := make([][]float64, frameCount)
	for i := 0; i < frameCount; i++ {
		frame := make([]float64, l.channels)
		for c := 0; c < l.channels; c++ {
			off := i*frameSize + c*bytesPerSample
			bits := binary.LittleEndian.Uint64(raw[off : off+8])
			frame[c] = math.Float64frombits(bits)
		}
		samples[i] = frame
	}

	return samples, DecodeSampleRate, nil
}

// supportedExtensions is the case-insensitive set of file suffixes the
// loader will attempt to decode. Anything else is skipped with a log
// line rather than failing the scan.
var supportedExtensions = map[string]bool{
	".wav": true, ".aiff": true, ".au": true, ".raw": true, ".paf": true,
	".svx": true, ".nist": true, ".voc": true, ".ircam": true, ".w64": true,
	".mat4": true, ".mat5": true, ".pvf": true, ".xi": true, ".htk": true,
	".sds": true, ".avr": true, ".wavex": true, ".sd2": true, ".flac": true,
	".caf": true, ".wve": true, ".ogg": true, ".mpc2k": true, ".rf64": true,
	".mpeg": true, ".mp3": true,
}

// DirectoryScanner walks a directory tree and produces one track
// Source per supported audio file found.
type DirectoryScanner struct {
	Genre string
}

// Scan walks root, returning a Source for every file whose extension
// is in the supported set (case-insensitive). Unsupported files are
// logged and skipped, never treated as an error.
func (s DirectoryScanner) Scan(root string) ([]track.Source, error) {
	var sources []track.Source

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !supportedExtensions[ext] {
			log.Printf("[LOADER] skipping unsupported file: %s", path)
			return nil
		}

		name := filepath.Base(path)
		sources = append(sources, track.Source{
			Path:  path,
			Name:  strings.TrimSuffix(name, filepath.Ext(name)),
			Genre: s.Genre,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loader: scanning %s: %w", root, err)
	}

	log.Printf("[LOADER] discovered %d supported audio files in %s", len(sources), root)
	return sources, nil
}
