package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeCorpusFile(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing corpus fixture: %v", err)
	}
	return path
}

func TestFileSourceSkipsMalformedLinesAndCountsThem(t *testing.T) {
	path := writeCorpusFile(t,
		`{"id":"doc-1","text":"hello world"}`,
		`not valid json`,
		`{"id":"","text":"missing id"}`,
		`{"id":"doc-2","text":""}`,
		``,
		`{"id":"doc-3","text":"final record"}`,
	)
	src, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource failed: %v", err)
	}
	defer src.Close()

	ctx := context.Background()
	var got []Record
	for {
		rec, ok, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next returned error: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, rec)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 valid records, got %d: %v", len(got), got)
	}
	if got[0].ID != "doc-1" || got[1].ID != "doc-3" {
		t.Errorf("unexpected records: %+v", got)
	}
	if src.Malformed() != 3 {
		t.Errorf("Malformed() = %d, want 3 (bad json, empty id, empty text)", src.Malformed())
	}
}

func TestFileSourceEndOfInputReturnsFalseNotError(t *testing.T) {
	path := writeCorpusFile(t, `{"id":"doc-1","text":"hello"}`)
	src, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource failed: %v", err)
	}
	defer src.Close()

	ctx := context.Background()
	if _, ok, err := src.Next(ctx); err != nil || !ok {
		t.Fatalf("expected first record, got ok=%v err=%v", ok, err)
	}
	rec, ok, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("expected nil error at end of input, got %v", err)
	}
	if ok {
		t.Errorf("expected ok=false at end of input, got record %+v", rec)
	}
}
