package memindex

import "testing"

func TestAddDocumentAggregatesTermCounts(t *testing.T) {
	idx := New()
	idx.AddDocument("doc-1", []string{"cat", "dog", "cat"})

	drained := idx.DrainSorted()
	if len(drained) != 2 {
		t.Fatalf("expected 2 distinct terms, got %d", len(drained))
	}
	byTerm := map[string]TermPostings{}
	for _, tp := range drained {
		byTerm[tp.Term] = tp
	}
	if tf := byTerm["cat"].Postings[0].TF; tf != 2 {
		t.Errorf("expected tf=2 for cat, got %d", tf)
	}
	if tf := byTerm["dog"].Postings[0].TF; tf != 1 {
		t.Errorf("expected tf=1 for dog, got %d", tf)
	}
}

func TestDrainSortedOrdering(t *testing.T) {
	idx := New()
	idx.AddDocument("doc-2", []string{"zebra", "apple"})
	idx.AddDocument("doc-1", []string{"apple"})

	drained := idx.DrainSorted()
	if len(drained) != 2 {
		t.Fatalf("expected 2 terms, got %d", len(drained))
	}
	if drained[0].Term != "apple" || drained[1].Term != "zebra" {
		t.Errorf("expected terms in lexicographic order, got %v then %v", drained[0].Term, drained[1].Term)
	}
	applePostings := drained[0].Postings
	if len(applePostings) != 2 || applePostings[0].DocID != "doc-1" || applePostings[1].DocID != "doc-2" {
		t.Errorf("expected postings sorted by doc_id ascending, got %+v", applePostings)
	}
}

func TestDrainSortedResetsState(t *testing.T) {
	idx := New()
	idx.AddDocument("doc-1", []string{"a"})
	idx.DrainSorted()

	if idx.MemoryEstimate() != 0 {
		t.Errorf("expected memory estimate 0 after drain, got %d", idx.MemoryEstimate())
	}
	if idx.TermCount() != 0 {
		t.Errorf("expected term count 0 after drain, got %d", idx.TermCount())
	}
}

func TestShouldFlushAtEightyPercentBudget(t *testing.T) {
	idx := New()
	budget := bytesPerPosting * 10 // room for 10 postings

	for i := 0; i < 7; i++ {
		idx.AddDocument(docID(i), []string{"term"})
	}
	if idx.ShouldFlush(budget) {
		t.Fatalf("did not expect flush at 7/10 postings against an 80%% threshold")
	}

	idx.AddDocument(docID(7), []string{"term"})
	if !idx.ShouldFlush(budget) {
		t.Fatalf("expected flush once postings reach 80%% of budget")
	}
}

func docID(i int) string {
	return string(rune('a' + i))
}
