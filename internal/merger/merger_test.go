package merger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/docindex"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/lexicon"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/memindex"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/partialindex"
)

func writePartial(t *testing.T, dir string, workerID int, records []memindex.TermPostings) string {
	t.Helper()
	w := partialindex.NewWriter(dir, workerID)
	path, err := w.Write(records)
	if err != nil {
		t.Fatalf("writing partial index: %v", err)
	}
	return path
}

func TestMergeProducesSortedTermsAndPostings(t *testing.T) {
	dir := t.TempDir()

	p1 := writePartial(t, dir, 0, []memindex.TermPostings{
		{Term: "apple", Postings: memindex.PostingList{{DocID: "doc-1", TF: 2}}},
		{Term: "cherry", Postings: memindex.PostingList{{DocID: "doc-1", TF: 1}}},
	})
	p2 := writePartial(t, dir, 1, []memindex.TermPostings{
		{Term: "apple", Postings: memindex.PostingList{{DocID: "doc-2", TF: 1}}},
		{Term: "banana", Postings: memindex.PostingList{{DocID: "doc-2", TF: 4}}},
	})

	docShard0 := filepath.Join(dir, "worker-0-docs.jsonl")
	docShard1 := filepath.Join(dir, "worker-1-docs.jsonl")
	writeDocShard(t, docShard0, []docindex.Meta{{DocID: "doc-1", Tokens: 3, Chars: 20}})
	writeDocShard(t, docShard1, []docindex.Meta{{DocID: "doc-2", Tokens: 5, Chars: 30}})

	outputs := OutputPaths(dir)
	m := New()
	numTerms, err := m.Merge([]string{p1, p2}, []string{docShard0, docShard1}, outputs)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if numTerms != 3 {
		t.Fatalf("expected 3 distinct terms, got %d", numTerms)
	}

	terms := readIndexTerms(t, outputs.IndexPath)
	want := []string{"apple", "banana", "cherry"}
	if len(terms) != len(want) {
		t.Fatalf("expected %d terms, got %d: %v", len(want), len(terms), terms)
	}
	for i, w := range want {
		if terms[i] != w {
			t.Errorf("term[%d] = %q, want %q", i, terms[i], w)
		}
	}

	raw, err := os.ReadFile(outputs.IndexPath)
	if err != nil {
		t.Fatalf("reading final index: %v", err)
	}
	firstLine, _, _ := strings.Cut(string(raw), "\n")
	if wantLine := `{"term":"apple","postings":[["doc-1",2],["doc-2",1]]}`; firstLine != wantLine {
		t.Errorf("apple record = %s, want %s", firstLine, wantLine)
	}

	lex, err := lexicon.Load(outputs.LexiconPath)
	if err != nil {
		t.Fatalf("loading lexicon: %v", err)
	}
	appleEntry, ok := lex["apple"]
	if !ok {
		t.Fatalf("expected lexicon entry for apple")
	}
	if appleEntry.DF != 2 || appleEntry.CF != 3 {
		t.Errorf("apple entry = %+v, want df=2 cf=3", appleEntry)
	}
}

func TestMergeIsIdempotentAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	p1 := writePartial(t, dir, 0, []memindex.TermPostings{
		{Term: "apple", Postings: memindex.PostingList{{DocID: "doc-1", TF: 2}}},
	})
	docShard := filepath.Join(dir, "worker-0-docs.jsonl")
	writeDocShard(t, docShard, []docindex.Meta{{DocID: "doc-1", Tokens: 1, Chars: 5}})

	outputs1 := Paths{
		IndexPath:    filepath.Join(dir, "run1_index.jsonl"),
		LexiconPath:  filepath.Join(dir, "run1_lexicon.jsonl"),
		DocIndexPath: filepath.Join(dir, "run1_docs.jsonl"),
	}
	outputs2 := Paths{
		IndexPath:    filepath.Join(dir, "run2_index.jsonl"),
		LexiconPath:  filepath.Join(dir, "run2_lexicon.jsonl"),
		DocIndexPath: filepath.Join(dir, "run2_docs.jsonl"),
	}

	m := New()
	if _, err := m.Merge([]string{p1}, []string{docShard}, outputs1); err != nil {
		t.Fatalf("first merge failed: %v", err)
	}
	if _, err := m.Merge([]string{p1}, []string{docShard}, outputs2); err != nil {
		t.Fatalf("second merge failed: %v", err)
	}

	b1, err := os.ReadFile(outputs1.IndexPath)
	if err != nil {
		t.Fatalf("reading run1 index: %v", err)
	}
	b2, err := os.ReadFile(outputs2.IndexPath)
	if err != nil {
		t.Fatalf("reading run2 index: %v", err)
	}
	if string(b1) != string(b2) {
		t.Errorf("expected byte-identical merge output across runs")
	}
}

func TestMergeDuplicateDocIDsSumsTF(t *testing.T) {
	in := memindex.PostingList{
		{DocID: "doc-1", TF: 2},
		{DocID: "doc-2", TF: 1},
		{DocID: "doc-1", TF: 3},
	}
	out := mergeDuplicateDocIDs(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 distinct doc_ids, got %d", len(out))
	}
	if out[0].DocID != "doc-1" || out[0].TF != 5 {
		t.Errorf("expected doc-1 tf summed to 5, got %+v", out[0])
	}
}

func writeDocShard(t *testing.T, path string, metas []docindex.Meta) {
	t.Helper()
	sw, err := docindex.NewShardWriter(path)
	if err != nil {
		t.Fatalf("creating doc shard: %v", err)
	}
	for _, m := range metas {
		if err := sw.Write(m); err != nil {
			t.Fatalf("writing doc shard entry: %v", err)
		}
	}
	if err := sw.Close(); err != nil {
		t.Fatalf("closing doc shard: %v", err)
	}
}

func readIndexTerms(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening index file: %v", err)
	}
	defer f.Close()
	var terms []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec struct {
			Term string `json:"term"`
		}
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("decoding index line: %v", err)
		}
		terms = append(terms, rec.Term)
	}
	return terms
}
