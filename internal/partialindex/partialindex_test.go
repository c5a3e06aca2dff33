package partialindex

import (
	"path/filepath"
	"testing"

	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/memindex"
)

func TestWriterProducesAtomicFileReadableByCursor(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 0)

	records := []memindex.TermPostings{
		{Term: "apple", Postings: memindex.PostingList{{DocID: "doc-1", TF: 2}}},
		{Term: "banana", Postings: memindex.PostingList{{DocID: "doc-2", TF: 1}, {DocID: "doc-3", TF: 5}}},
	}

	path, err := w.Write(records)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("expected file written under %s, got %s", dir, path)
	}

	cur, err := OpenCursor(0, path)
	if err != nil {
		t.Fatalf("OpenCursor failed: %v", err)
	}
	defer cur.Close()

	rec, ok := cur.Peek()
	if !ok {
		t.Fatalf("expected first record, got none: %v", cur.Err())
	}
	if rec.Term != "apple" || rec.Postings[0].TF != 2 {
		t.Errorf("unexpected first record: %+v", rec)
	}

	cur.Advance()
	rec, ok = cur.Peek()
	if !ok {
		t.Fatalf("expected second record, got none: %v", cur.Err())
	}
	if rec.Term != "banana" || len(rec.Postings) != 2 {
		t.Errorf("unexpected second record: %+v", rec)
	}

	cur.Advance()
	if _, ok := cur.Peek(); ok {
		t.Errorf("expected cursor exhausted after two records")
	}
}

func TestWriterIncrementsSequenceAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 3)

	records := []memindex.TermPostings{{Term: "a", Postings: memindex.PostingList{{DocID: "d", TF: 1}}}}
	p1, err := w.Write(records)
	if err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	p2, err := w.Write(records)
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if p1 == p2 {
		t.Errorf("expected distinct paths across successive flushes, both were %s", p1)
	}
}
