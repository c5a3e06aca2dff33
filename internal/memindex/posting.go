// Package memindex implements the per-worker, memory-budgeted in-memory
// inverted index. It accumulates postings for the documents assigned to one
// worker and reports when it must be flushed to disk to stay within budget.
package memindex

// Posting records one document's occurrence of a term.
type Posting struct {
	DocID string
	TF    int
}

// PostingList is the sequence of postings for a single term, kept sorted by
// DocID ascending once drained.
type PostingList []Posting

// TermPostings pairs a term with its posting list, the unit exchanged
// between the in-memory indexer, the partial index writer, and the merger.
type TermPostings struct {
	Term     string
	Postings PostingList
}

// bytesPerPosting is the fixed per-entry memory-estimation constant: the
// empirical postings-to-unique-terms ratio in natural-language corpora
// (roughly 30:1) makes per-term map overhead negligible next to the
// postings themselves, so only posting count needs to be tracked.
const bytesPerPosting int64 = 112
