// Package corpusstore persists tuner iterations to disk as an
// append-only log of scored coefficient documents.
package corpusstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mstead-audio/keyweave/internal/tonality"
)

// ScoredCoefficients is one tuner iteration's result: the accuracy it
// achieved against the labeled corpus, the genre it was tuned for, and
// the coefficient vector that produced it.
type ScoredCoefficients struct {
	Score        float64                      `json:"score"`
	Genre        string                       `json:"genre"`
	Coefficients tonality.RoundedCoefficients `json:"coefficients"`
}

// ScoreStore persists scored coefficient documents.
type ScoreStore interface {
	Save(ctx context.Context, doc ScoredCoefficients) error
}

// JSONFileStore appends scored documents to a single JSON array file
// on disk, loading the existing log into memory on construction.
type JSONFileStore struct {
	mu       sync.Mutex
	dataPath string
	docs     []ScoredCoefficients
}

// NewJSONFileStore loads (or initializes) a tuner log at
// <dataDir>/tuner_scores.json.
func NewJSONFileStore(dataDir string) (*JSONFileStore, error) {
	store := &JSONFileStore{dataPath: filepath.Join(dataDir, "tuner_scores.json")}

	data, err := os.ReadFile(store.dataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("corpusstore: load %s: %w", store.dataPath, err)
	}

	if err := json.Unmarshal(data, &store.docs); err != nil {
		return nil, fmt.Errorf("corpusstore: unmarshal %s: %w", store.dataPath, err)
	}
	return store, nil
}

// Save appends doc to the log and rewrites the file. The write is
// blocking, as the tuner's per-iteration persistence is defined to be.
func (s *JSONFileStore) Save(ctx context.Context, doc ScoredCoefficients) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = append(s.docs, doc)

	data, err := json.MarshalIndent(s.docs, "", "  ")
	if err != nil {
		return fmt.Errorf("corpusstore: marshal: %w", err)
	}

	if dir := filepath.Dir(s.dataPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("corpusstore: mkdir: %w", err)
		}
	}

	if err := os.WriteFile(s.dataPath, data, 0o600); err != nil {
		return fmt.Errorf("corpusstore: write %s: %w", s.dataPath, err)
	}
	return nil
}

// Documents returns a copy of every document saved so far.
func (s *JSONFileStore) Documents() []ScoredCoefficients {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScoredCoefficients, len(s.docs))
	copy(out, s.docs)
	return out
}
