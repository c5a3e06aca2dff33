package lexicon

import (
	"path/filepath"
	"testing"
)

func TestWriterThenLoadRoundTripsEntriesByTerm(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.jsonl")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	entries := []Entry{
		{Term: "apple", DF: 2, CF: 3, Offset: 0},
		{Term: "banana", DF: 1, CF: 4, Offset: 42},
	}
	for _, e := range entries {
		if err := w.Append(e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got["apple"].DF != 2 || got["apple"].CF != 3 {
		t.Errorf("apple entry = %+v, want df=2 cf=3", got["apple"])
	}
	if got["banana"].Offset != 42 {
		t.Errorf("banana offset = %d, want 42", got["banana"].Offset)
	}
}

func TestAbortDiscardsWithoutRenamingIntoPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.jsonl")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Append(Entry{Term: "x", DF: 1, CF: 1}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	w.Abort()

	if _, err := Load(path); err == nil {
		t.Error("expected Load to fail after Abort, since the final file was never created")
	}
}
