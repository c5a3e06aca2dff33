package benchmark

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/docindex"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/memindex"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/merger"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/partialindex"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/processor"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/scorer"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/stats"
)

// BenchmarkBM25ScoreTerm measures the cost of scoring a single term against
// posting-list sizes of increasing magnitude.
func BenchmarkBM25ScoreTerm(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, numDocs := range sizes {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			s := scorer.New(scorer.Corpus{TotalDocs: int64(numDocs * 2), AvgDocLength: 150})
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = s.ScoreTerm(scorer.BM25, "search", numDocs, (i%10)+1, 100+(i%50))
			}
		})
	}
}

// BenchmarkTFIDFScoreTerm measures TF-IDF scoring cost for comparison
// against BM25.
func BenchmarkTFIDFScoreTerm(b *testing.B) {
	s := scorer.New(scorer.Corpus{TotalDocs: 10000, AvgDocLength: 150})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.ScoreTerm(scorer.TFIDF, "search", 500, (i%10)+1, 100)
	}
}

// buildBenchIndex builds a small merged index fixture with numDocs
// documents, each containing a shared set of terms, for use by the
// end-to-end query benchmarks below.
func buildBenchIndex(b *testing.B, numDocs int) (*processor.Processor, func()) {
	b.Helper()
	dir := b.TempDir()
	idx := memindex.New()
	terms := []string{"distributed", "search", "analytics", "platform", "indexing", "query", "ranking"}
	metas := make([]docindex.Meta, numDocs)
	for i := 0; i < numDocs; i++ {
		docID := fmt.Sprintf("doc-%d", i)
		docTerms := []string{terms[i%len(terms)], terms[(i+1)%len(terms)], terms[(i+3)%len(terms)]}
		idx.AddDocument(docID, docTerms)
		metas[i] = docindex.Meta{DocID: docID, Tokens: len(docTerms), Chars: len(docTerms) * 8}
	}

	w := partialindex.NewWriter(dir, 0)
	partialPath, err := w.Write(idx.DrainSorted())
	if err != nil {
		b.Fatalf("writing partial index: %v", err)
	}

	docShardPath := filepath.Join(dir, "worker-0-docs.jsonl")
	sw, err := docindex.NewShardWriter(docShardPath)
	if err != nil {
		b.Fatalf("creating document shard: %v", err)
	}
	for _, m := range metas {
		if err := sw.Write(m); err != nil {
			b.Fatalf("writing document shard entry: %v", err)
		}
	}
	if err := sw.Close(); err != nil {
		b.Fatalf("closing document shard: %v", err)
	}

	outputs := merger.OutputPaths(dir)
	if _, err := merger.New().Merge([]string{partialPath}, []string{docShardPath}, outputs); err != nil {
		b.Fatalf("merging fixture index: %v", err)
	}

	g := stats.Merge([]stats.Worker{{DocsSeen: int64(numDocs), TokensSeen: int64(numDocs * 3)}}, 0)
	statsPath := filepath.Join(dir, "stats.json")
	if err := stats.WriteJSON(statsPath, g); err != nil {
		b.Fatalf("writing stats: %v", err)
	}

	p, err := processor.Load(outputs.IndexPath, outputs.LexiconPath, outputs.DocIndexPath, statsPath)
	if err != nil {
		b.Fatalf("loading processor: %v", err)
	}
	return p, func() { p.Close() }
}

// BenchmarkQuerySingleTerm measures end-to-end single-term query latency
// over corpora of increasing size.
func BenchmarkQuerySingleTerm(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, numDocs := range sizes {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			p, closeFn := buildBenchIndex(b, numDocs)
			defer closeFn()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := p.Query("search", scorer.BM25, 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkQueryMultiTerm measures conjunctive query latency as the number
// of query terms grows.
func BenchmarkQueryMultiTerm(b *testing.B) {
	p, closeFn := buildBenchIndex(b, 5000)
	defer closeFn()

	queries := []struct {
		name  string
		query string
	}{
		{"one_term", "search"},
		{"two_terms", "search analytics"},
		{"three_terms", "search analytics platform"},
	}
	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := p.Query(q.query, scorer.BM25, 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkQueryParallel measures concurrent query throughput against a
// shared Processor, exercising the mutex-guarded index-file read path.
func BenchmarkQueryParallel(b *testing.B) {
	p, closeFn := buildBenchIndex(b, 5000)
	defer closeFn()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := p.Query("search analytics", scorer.BM25, 10); err != nil {
				b.Fatal(err)
			}
		}
	})
}
