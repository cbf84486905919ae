package corpusstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mstead-audio/keyweave/internal/tonality"
)

func TestSaveAndReloadRoundTrips(t *testing.T) {
	dir := t.TempDir()

	store, err := NewJSONFileStore(dir)
	if err != nil {
		t.Fatalf("NewJSONFileStore: %v", err)
	}

	doc := ScoredCoefficients{
		Score:        87.5,
		Genre:        "Pop",
		Coefficients: tonality.OrchestralPreset.Round(),
	}
	if err := store.Save(context.Background(), doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := NewJSONFileStore(dir)
	if err != nil {
		t.Fatalf("NewJSONFileStore (reload): %v", err)
	}
	docs := reloaded.Documents()
	if len(docs) != 1 {
		t.Fatalf("reloaded store has %d docs, want 1", len(docs))
	}
	if docs[0].Score != 87.5 || docs[0].Genre != "Pop" {
		t.Errorf("reloaded doc = %+v, want score=87.5 genre=Pop", docs[0])
	}
}

func TestNewJSONFileStoreMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONFileStore(filepath.Join(dir, "nested"))
	if err != nil {
		t.Fatalf("NewJSONFileStore on a missing file should not error: %v", err)
	}
	if len(store.Documents()) != 0 {
		t.Errorf("fresh store should have no documents")
	}
}

func TestSaveAppendsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONFileStore(dir)
	if err != nil {
		t.Fatalf("NewJSONFileStore: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.Save(context.Background(), ScoredCoefficients{Score: float64(i)}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if len(store.Documents()) != 3 {
		t.Errorf("Documents() = %d, want 3", len(store.Documents()))
	}
}
