// Package trackcache lets the CLI skip re-analyzing audio files whose
// contents have not changed since the last run. It sits entirely
// outside the C1-C6 pipeline: orchestrate/track/tonality never know it
// exists.
package trackcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/mstead-audio/keyweave/internal/track"
)

// Hash computes a change-detection fingerprint for path: size plus the
// first and last 64KB of content. Two files with the same hash are
// treated as identical without a byte-for-byte comparison.
func Hash(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("trackcache: stat %s: %w", path, err)
	}

	hasher := sha256.New()
	hasher.Write([]byte(fmt.Sprintf("%s:%d", path, info.Size())))

	f, err := os.Open(path)
	if err != nil {
		return hex.EncodeToString(hasher.Sum(nil))[:16], nil
	}
	defer f.Close()

	const window = 65536
	buf := make([]byte, window)

	n, _ := f.Read(buf)
	hasher.Write(buf[:n])

	if info.Size() > window {
		if _, err := f.Seek(-window, io.SeekEnd); err == nil {
			n, _ = f.Read(buf)
			hasher.Write(buf[:n])
		}
	}

	return hex.EncodeToString(hasher.Sum(nil))[:16], nil
}

// entry is one cached analysis keyed by source path.
type entry struct {
	Hash  string      `json:"hash"`
	Track track.Track `json:"track"`
}

// Store is a JSON-file-backed cache from source path to its
// last-analyzed hash and Track.
type Store struct {
	mu       sync.RWMutex
	dataPath string
	entries  map[string]entry
}

// NewStore loads (or initializes) a cache rooted at dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("trackcache: create data dir: %w", err)
	}

	s := &Store{
		dataPath: filepath.Join(dataDir, "track_cache.json"),
		entries:  make(map[string]entry),
	}

	data, err := os.ReadFile(s.dataPath)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("trackcache: read cache: %w", err)
	}

	var raw map[string]entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("trackcache: parse cache: %w", err)
	}
	s.entries = raw
	return s, nil
}

// Lookup returns the cached Track for path if its on-disk hash still
// matches currentHash.
func (s *Store) Lookup(path, currentHash string) (track.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[path]
	if !ok || e.Hash != currentHash {
		return track.Track{}, false
	}
	return e.Track, true
}

// Put records path's current hash and analyzed Track, then persists
// the cache to disk.
func (s *Store) Put(path, hash string, t track.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[path] = entry{Hash: hash, Track: t}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("trackcache: marshal cache: %w", err)
	}
	if err := os.WriteFile(s.dataPath, data, 0o600); err != nil {
		return fmt.Errorf("trackcache: write cache: %w", err)
	}
	return nil
}
