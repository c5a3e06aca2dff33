package scorer

import (
	"math"
	"testing"
)

func TestTFIDFScoreFormula(t *testing.T) {
	s := New(Corpus{TotalDocs: 10, AvgDocLength: 50})
	got := s.ScoreTerm(TFIDF, "cat", 2, 3, 40)
	want := (1 + math.Log(3)) * math.Log(10.0/2.0)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("ScoreTerm(TFIDF) = %v, want %v", got, want)
	}
}

func TestBM25ScoreFormula(t *testing.T) {
	s := New(Corpus{TotalDocs: 100, AvgDocLength: 20})
	df, tf, docLength := 10, 4, 30
	got := s.ScoreTerm(BM25, "dog", df, tf, docLength)

	idf := math.Log((100.0-10.0+0.5)/(10.0+0.5) + 1)
	lengthRatio := float64(docLength) / 20.0
	denom := float64(tf) + bm25K1*(1-bm25B+bm25B*lengthRatio)
	want := idf * (float64(tf) * (bm25K1 + 1)) / denom
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("ScoreTerm(BM25) = %v, want %v", got, want)
	}
}

func TestBM25UsesSpecCanonicalParameters(t *testing.T) {
	if bm25K1 != 1.5 {
		t.Errorf("expected bm25K1 = 1.5, got %v", bm25K1)
	}
	if bm25B != 0.75 {
		t.Errorf("expected bm25B = 0.75, got %v", bm25B)
	}
}

func TestIDFIsMemoizedPerRankerAndTerm(t *testing.T) {
	s := New(Corpus{TotalDocs: 50, AvgDocLength: 10})
	first := s.IDF(BM25, "fox", 5)
	s.corpus.TotalDocs = 999 // mutate corpus directly; memoized value must not change
	second := s.IDF(BM25, "fox", 5)
	if first != second {
		t.Errorf("expected memoized IDF to stay stable across corpus mutation, got %v then %v", first, second)
	}

	tfidf := s.IDF(TFIDF, "fox", 5)
	if tfidf == first {
		t.Errorf("expected distinct IDF cache entries per ranker, got same value %v for both", tfidf)
	}
}

func TestIDFGuardsNonPositiveDocFrequency(t *testing.T) {
	if v := tfidfIDF(100, 0); v != 0 {
		t.Errorf("expected tfidfIDF to guard df<=0, got %v", v)
	}
}

func TestBM25TermScoreGuardsZeroAvgDocLength(t *testing.T) {
	if v := bm25TermScore(1.0, 3, 10, 0); v != 0 {
		t.Errorf("expected bm25TermScore to guard avgDocLength==0, got %v", v)
	}
}
