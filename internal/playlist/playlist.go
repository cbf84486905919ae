// Package playlist greedily orders analyzed tracks into a playlist
// whose key-to-key transitions favor harmonic, diatonic, neighbor-tone,
// and historical conventions, with a random jitter term to avoid
// always picking the single best-scoring candidate.
package playlist

import (
	"math"
	"math/rand"

	"github.com/mstead-audio/keyweave/internal/pitch"
	"github.com/mstead-audio/keyweave/internal/tonality"
	"github.com/mstead-audio/keyweave/internal/track"
)

const (
	harmonicWeight   = 3.0
	diatonicWeight   = 0.5
	neighborWeight   = 2.0
	historicalWeight = 1.0
	randomHalfRange  = 2.0
)

var minorScale = []int{0, 2, 3, 5, 7, 8, 10}
var majorScale = []int{0, 2, 4, 5, 7, 9, 11}

// keyBuffer is a bounded sliding window of recently laid-down keys.
// Oldest entries fall off on insertion once capacity is reached.
type keyBuffer struct {
	capacity int
	items    []tonality.Key
}

func newKeyBuffer(capacity int) *keyBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &keyBuffer{capacity: capacity}
}

func (b *keyBuffer) push(k tonality.Key) {
	if b.capacity == 0 {
		return
	}
	b.items = append(b.items, k)
	if len(b.items) > b.capacity {
		b.items = b.items[len(b.items)-b.capacity:]
	}
}

func keyBufferCapacity(playlistSize int) int {
	if playlistSize < 50 {
		c := playlistSize / 5
		if c < 10 {
			return c
		}
	}
	return 10
}

func neighbors(a, b pitch.PitchClass) bool {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return d <= 2 || d >= 10
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Build greedily orders tracks into a playlist. rng drives the
// starting-track pick, the per-round jitter, and the remaining-track
// shuffle; a fixed seed makes the result reproducible.
func Build(tracks []track.Track, rng *rand.Rand) []track.Track {
	n := len(tracks)
	if n == 0 {
		return nil
	}

	remaining := make([]track.Track, len(tracks))
	copy(remaining, tracks)

	playlist := make([]track.Track, 0, n)
	keylist := make([]tonality.Key, 0, n*2)
	buffer := newKeyBuffer(keyBufferCapacity(n))

	pushKeys := func(t track.Track) {
		keylist = append(keylist, t.StartKey)
		buffer.push(t.StartKey)
		if t.EndKey != t.StartKey {
			keylist = append(keylist, t.EndKey)
			buffer.push(t.EndKey)
		}
	}

	start := rng.Intn(len(remaining))
	playlist = append(playlist, remaining[start])
	pushKeys(remaining[start])
	remaining = append(remaining[:start], remaining[start+1:]...)

	for i := 1; i < n && len(remaining) > 0; i++ {
		prevKey := playlist[i-1].EndKey

		var keyScores [12]float64

		// Harmonic proximity: circle-of-fifths distance from prevKey.
		keyScores[prevKey.Tonic.Norm()] += 1
		for j := 1; j <= 5; j++ {
			w := roundTo2(1.0/float64(j)) * harmonicWeight
			keyScores[prevKey.Tonic.Add(7*j)] += w
			keyScores[prevKey.Tonic.Add(-7*j)] += w
		}

		// Diatonic proximity: scale degrees of prevKey.
		scale := majorScale
		if prevKey.Mode == tonality.Minor {
			scale = minorScale
		}
		for _, o := range scale {
			keyScores[prevKey.Tonic.Add(o)] += diatonicWeight
		}

		// Neighbor proximity: bias back toward `previous` after an
		// A-B oscillation that hasn't settled into a third key.
		if len(keylist) >= 2 {
			current := keylist[len(keylist)-1]
			previous := keylist[len(keylist)-2]
			if neighbors(current.Tonic, previous.Tonic) {
				tertiaryNeighborsPrevious := false
				if len(keylist) >= 3 {
					tertiary := keylist[len(keylist)-3]
					tertiaryNeighborsPrevious = neighbors(tertiary.Tonic, previous.Tonic)
				}
				if !tertiaryNeighborsPrevious {
					keyScores[previous.Tonic.Norm()] += 1 * neighborWeight
				}
			}
		}

		// Historical proximity: recently used tonics.
		if len(buffer.items) > 0 {
			share := (1.0 / float64(len(buffer.items))) * historicalWeight
			for _, k := range buffer.items {
				keyScores[k.Tonic.Norm()] += share
			}
		}

		// Random jitter.
		for pc := range keyScores {
			keyScores[pc] += rng.Float64()*(2*randomHalfRange) - randomHalfRange
		}

		order := sortedPitchClasses(keyScores)

		rng.Shuffle(len(remaining), func(a, b int) {
			remaining[a], remaining[b] = remaining[b], remaining[a]
		})

		chosen := -1
		for _, pc := range order {
			for idx, t := range remaining {
				if t.StartKey.Tonic.Norm() == pc {
					chosen = idx
					break
				}
			}
			if chosen >= 0 {
				break
			}
		}
		if chosen < 0 {
			chosen = 0
		}

		t := remaining[chosen]
		playlist = append(playlist, t)
		pushKeys(t)
		remaining = append(remaining[:chosen], remaining[chosen+1:]...)
	}

	return playlist
}

// sortedPitchClasses returns all 12 pitch classes sorted by score
// descending, ties broken toward the lower pitch-class index.
func sortedPitchClasses(scores [12]float64) []pitch.PitchClass {
	order := make([]pitch.PitchClass, 12)
	for i := range order {
		order[i] = pitch.PitchClass(i)
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && scores[order[j]] > scores[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}
