// Package processor implements the query-time pipeline: eager loading of
// the lexicon, document index, and global stats, random-access reads of
// posting lists from the final index file, conjunctive candidate
// selection, and bounded top-k ranking.
package processor

import (
	"bufio"
	"container/heap"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/docindex"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/lexicon"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/memindex"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/scorer"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/stats"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/tokenizer"
)

// ScoredDoc pairs a document ID with its relevance score.
type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Result is the outcome of one query.
type Result struct {
	Query     string      `json:"query"`
	TotalHits int         `json:"total_hits"`
	Results   []ScoredDoc `json:"results"`
}

// Processor answers ranked queries against a built index. A single
// Processor may be shared across concurrent goroutines: its state is
// read-only after Load, except for the Scorer's IDF cache (mutex-guarded
// internally) and the shared index file handle, whose seek-then-read
// access is serialised by mu.
type Processor struct {
	lexicon  map[string]lexicon.Entry
	docIndex map[string]docindex.Meta
	stats    stats.Global
	indexF   *os.File
	scorer   *scorer.Scorer
	logger   *slog.Logger
	mu       sync.Mutex // serialises the Seek-then-read of indexF in readPostings
}

// Load opens and eagerly reads the lexicon, document index, and global
// stats, and opens the final index file for random access.
func Load(indexPath, lexiconPath, docIndexPath, statsPath string) (*Processor, error) {
	lex, err := lexicon.Load(lexiconPath)
	if err != nil {
		return nil, fmt.Errorf("loading lexicon: %w", err)
	}
	docs, err := docindex.LoadFinal(docIndexPath)
	if err != nil {
		return nil, fmt.Errorf("loading document index: %w", err)
	}
	g, err := stats.LoadJSON(statsPath)
	if err != nil {
		return nil, fmt.Errorf("loading stats: %w", err)
	}
	f, err := os.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("opening final index: %w", err)
	}
	return &Processor{
		lexicon:  lex,
		docIndex: docs,
		stats:    g,
		indexF:   f,
		scorer: scorer.New(scorer.Corpus{
			TotalDocs:    g.NumDocuments,
			AvgDocLength: g.AvgDocLength,
		}),
		logger: slog.Default().With("component", "processor"),
	}, nil
}

// Close releases the final index file handle.
func (p *Processor) Close() error {
	return p.indexF.Close()
}

// Query tokenises query, resolves each distinct term against the lexicon,
// computes the conjunctive candidate set (documents containing every query
// term; if any term is absent from the lexicon the candidate set is
// empty), scores every candidate, and returns the topK highest-scoring
// documents ordered by descending score, ties broken by ascending doc_id.
func (p *Processor) Query(query string, ranker scorer.Ranker, topK int) (*Result, error) {
	terms := tokenizer.Tokenize(query)
	uniqueTerms := dedupe(terms)

	postingsByTerm := make(map[string]memindex.PostingList, len(uniqueTerms))
	for _, t := range uniqueTerms {
		entry, ok := p.lexicon[t]
		if !ok {
			return &Result{Query: query, Results: []ScoredDoc{}}, nil
		}
		postings, err := p.readPostings(entry)
		if err != nil {
			return nil, fmt.Errorf("reading postings for term %q: %w", t, err)
		}
		postingsByTerm[t] = postings
	}
	if len(postingsByTerm) == 0 {
		return &Result{Query: query, Results: []ScoredDoc{}}, nil
	}

	candidates := intersect(postingsByTerm)
	scores := make(map[string]float64, len(candidates))
	for term, postings := range postingsByTerm {
		df := p.lexicon[term].DF
		for _, post := range postings {
			if _, ok := candidates[post.DocID]; !ok {
				continue
			}
			docLen := p.docIndex[post.DocID].Tokens
			scores[post.DocID] += p.scorer.ScoreTerm(ranker, term, df, post.TF, docLen)
		}
	}

	results := topK_(scores, topK)
	p.logger.Info("query processed", "query", query, "candidates", len(candidates), "results", len(results))
	return &Result{
		Query:     query,
		TotalHits: len(candidates),
		Results:   results,
	}, nil
}

// readPostings seeks to entry.Offset in the final index file and decodes
// one JSONL record.
func (p *Processor) readPostings(entry lexicon.Entry) (memindex.PostingList, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.indexF.Seek(entry.Offset, os.SEEK_SET); err != nil {
		return nil, fmt.Errorf("seeking to offset %d: %w", entry.Offset, err)
	}
	r := bufio.NewReader(p.indexF)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return nil, fmt.Errorf("reading index record at offset %d: %w", entry.Offset, err)
	}
	var rec struct {
		Term     string     `json:"term"`
		Postings [][2]any `json:"postings"`
	}
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return nil, fmt.Errorf("decoding index record at offset %d: %w", entry.Offset, err)
	}
	postings := make(memindex.PostingList, 0, len(rec.Postings))
	for _, pair := range rec.Postings {
		docID, _ := pair[0].(string)
		tf, _ := pair[1].(float64)
		postings = append(postings, memindex.Posting{DocID: docID, TF: int(tf)})
	}
	return postings, nil
}

func dedupe(terms []tokenizer.Term) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		s := string(t)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// intersect returns the set of doc_ids present in every term's posting
// list. It iterates the shortest list first to minimise lookups.
func intersect(postingsByTerm map[string]memindex.PostingList) map[string]struct{} {
	var shortestTerm string
	shortestLen := int(^uint(0) >> 1)
	for term, postings := range postingsByTerm {
		if len(postings) < shortestLen {
			shortestLen = len(postings)
			shortestTerm = term
		}
	}
	candidates := make(map[string]struct{}, shortestLen)
	for _, p := range postingsByTerm[shortestTerm] {
		candidates[p.DocID] = struct{}{}
	}
	for term, postings := range postingsByTerm {
		if term == shortestTerm {
			continue
		}
		present := make(map[string]struct{}, len(postings))
		for _, p := range postings {
			present[p.DocID] = struct{}{}
		}
		for docID := range candidates {
			if _, ok := present[docID]; !ok {
				delete(candidates, docID)
			}
		}
	}
	return candidates
}

// scoredHeap is a min-heap over ScoredDoc, used to keep only the topK
// highest-scoring documents while scanning all candidates once.
type scoredHeap []ScoredDoc

func (h scoredHeap) Len() int { return len(h) }
func (h scoredHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].DocID > h[j].DocID
}
func (h scoredHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x any)   { *h = append(*h, x.(ScoredDoc)) }
func (h *scoredHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// topK_ returns the topK highest-scoring documents in descending score
// order, ties broken by ascending doc_id.
func topK_(scores map[string]float64, k int) []ScoredDoc {
	if k <= 0 {
		k = 10
	}
	h := &scoredHeap{}
	heap.Init(h)
	for docID, score := range scores {
		heap.Push(h, ScoredDoc{DocID: docID, Score: score})
		if h.Len() > k {
			heap.Pop(h)
		}
	}
	out := make([]ScoredDoc, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(ScoredDoc)
	}
	return out
}
