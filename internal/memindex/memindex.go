package memindex

import "sort"

// Index accumulates postings for the documents handed to one worker. It is
// not safe for concurrent use: each worker owns exactly one Index and drives
// it from a single goroutine.
type Index struct {
	terms     map[string]map[string]int // term -> docID -> tf
	postCount int64
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		terms: make(map[string]map[string]int),
	}
}

// AddDocument takes a document's terms (already tokenised and normalised by
// the caller) and upserts term -> (docID, tf) entries, aggregating the occurrence count of
// each distinct term within the document in a single pass.
func (idx *Index) AddDocument(docID string, terms []string) {
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	for term, tf := range counts {
		docs, ok := idx.terms[term]
		if !ok {
			docs = make(map[string]int)
			idx.terms[term] = docs
		}
		if _, exists := docs[docID]; !exists {
			idx.postCount++
		}
		docs[docID] += tf
	}
}

// MemoryEstimate returns an approximation of the index's memory usage in
// bytes, dominated by the number of posting entries accumulated so far.
func (idx *Index) MemoryEstimate() int64 {
	return idx.postCount * bytesPerPosting
}

// ShouldFlush reports whether the index has grown to 80% of budgetBytes and
// should be drained to disk before accepting more documents.
func (idx *Index) ShouldFlush(budgetBytes int64) bool {
	if budgetBytes <= 0 {
		return false
	}
	return idx.MemoryEstimate() >= (budgetBytes*8)/10
}

// DrainSorted returns every accumulated term in ascending lexicographic
// order, each with its posting list sorted by DocID ascending, and resets
// the index to empty. After this call MemoryEstimate returns 0.
func (idx *Index) DrainSorted() []TermPostings {
	out := make([]TermPostings, 0, len(idx.terms))
	for term, docs := range idx.terms {
		postings := make(PostingList, 0, len(docs))
		for docID, tf := range docs {
			postings = append(postings, Posting{DocID: docID, TF: tf})
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		out = append(out, TermPostings{Term: term, Postings: postings})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Term < out[j].Term
	})
	idx.terms = make(map[string]map[string]int)
	idx.postCount = 0
	return out
}

// TermCount reports how many distinct terms are currently held (used in
// logging/stats only; it is not the document count).
func (idx *Index) TermCount() int {
	return len(idx.terms)
}
