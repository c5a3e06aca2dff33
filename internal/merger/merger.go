// Package merger performs the external k-way merge that consolidates every
// worker's partial index files into the single, globally term-ordered
// final index, alongside the lexicon and document index.
package merger

import (
	"bufio"
	"container/heap"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	apperrors "github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/errors"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/resilience"

	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/docindex"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/lexicon"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/memindex"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/partialindex"
)

// Paths names the three output files the merger produces.
type Paths struct {
	IndexPath    string
	LexiconPath  string
	DocIndexPath string
}

// Merger streams a k-way merge across partial index files into a final
// index file, generalizing the bounded top-k scored-document heap this
// platform already uses at query time into an unbounded streaming-merge
// heap ordered by term instead of score.
type Merger struct {
	logger *slog.Logger
}

// New creates a Merger.
func New() *Merger {
	return &Merger{logger: slog.Default().With("component", "merger")}
}

// Merge opens every partial index file as a cursor, merges them into
// outputs.IndexPath and outputs.LexiconPath, and merges every document-index
// shard into outputs.DocIndexPath. It returns the total number of distinct
// terms written.
func (m *Merger) Merge(partialPaths []string, docShardPaths []string, outputs Paths) (int, error) {
	cursors := make([]*partialindex.Cursor, 0, len(partialPaths))
	defer func() {
		for _, c := range cursors {
			c.Close()
		}
	}()
	for i, p := range partialPaths {
		var c *partialindex.Cursor
		err := resilience.Retry(context.Background(), fmt.Sprintf("open-cursor-%d", i), resilience.RetryConfig{}, func() error {
			opened, openErr := partialindex.OpenCursor(i, p)
			if openErr != nil {
				return openErr
			}
			c = opened
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("%w: opening partial index %s: %v", apperrors.ErrIO, p, err)
		}
		cursors = append(cursors, c)
	}

	termsWritten, err := m.mergeCursors(cursors, outputs)
	if err != nil {
		return 0, err
	}

	metas, err := docindex.LoadShards(docShardPaths)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrIO, err)
	}
	if err := docindex.WriteFinal(outputs.DocIndexPath, metas); err != nil {
		return 0, fmt.Errorf("%w: writing document index: %v", apperrors.ErrIO, err)
	}
	return termsWritten, nil
}

// mergeCursors runs the min-heap merge proper, writing the index and
// lexicon files in lockstep so lexicon offsets stay consistent.
func (m *Merger) mergeCursors(cursors []*partialindex.Cursor, outputs Paths) (int, error) {
	indexTmp := outputs.IndexPath + ".tmp"
	idxFile, err := os.Create(indexTmp)
	if err != nil {
		return 0, fmt.Errorf("%w: creating index file %s: %v", apperrors.ErrIO, indexTmp, err)
	}
	idxWriter := bufio.NewWriter(idxFile)

	lexWriter, err := lexicon.NewWriter(outputs.LexiconPath)
	if err != nil {
		idxFile.Close()
		os.Remove(indexTmp)
		return 0, fmt.Errorf("%w: %v", apperrors.ErrIO, err)
	}

	h := &cursorHeap{}
	heap.Init(h)
	for _, c := range cursors {
		if rec, ok := c.Peek(); ok {
			heap.Push(h, heapItem{term: rec.Term, cursor: c})
		} else if err := c.Err(); err != nil {
			idxFile.Close()
			os.Remove(indexTmp)
			lexWriter.Abort()
			return 0, fmt.Errorf("%w: %v", apperrors.ErrIO, err)
		}
	}

	var offset int64
	termsWritten := 0
	for h.Len() > 0 {
		term := (*h)[0].term
		var merged memindex.PostingList
		for h.Len() > 0 && (*h)[0].term == term {
			item := heap.Pop(h).(heapItem)
			rec, _ := item.cursor.Peek()
			merged = append(merged, rec.Postings...)
			item.cursor.Advance()
			if next, ok := item.cursor.Peek(); ok {
				heap.Push(h, heapItem{term: next.Term, cursor: item.cursor})
			} else if err := item.cursor.Err(); err != nil {
				idxFile.Close()
				os.Remove(indexTmp)
				lexWriter.Abort()
				return 0, fmt.Errorf("%w: %v", apperrors.ErrIO, err)
			}
		}
		merged = mergeDuplicateDocIDs(merged)

		df := len(merged)
		cf := 0
		for _, p := range merged {
			cf += p.TF
		}

		line, encErr := encodeIndexLine(term, merged)
		if encErr != nil {
			idxFile.Close()
			os.Remove(indexTmp)
			lexWriter.Abort()
			return 0, fmt.Errorf("encoding index line for term %q: %w", term, encErr)
		}
		n, writeErr := idxWriter.WriteString(line)
		if writeErr != nil {
			idxFile.Close()
			os.Remove(indexTmp)
			lexWriter.Abort()
			return 0, fmt.Errorf("%w: writing index line: %v", apperrors.ErrIO, writeErr)
		}
		if err := lexWriter.Append(lexicon.Entry{Term: term, DF: df, CF: cf, Offset: offset}); err != nil {
			idxFile.Close()
			os.Remove(indexTmp)
			lexWriter.Abort()
			return 0, fmt.Errorf("%w: %v", apperrors.ErrIO, err)
		}
		offset += int64(n)
		termsWritten++
	}

	if err := idxWriter.Flush(); err != nil {
		idxFile.Close()
		os.Remove(indexTmp)
		lexWriter.Abort()
		return 0, fmt.Errorf("%w: flushing index file: %v", apperrors.ErrIO, err)
	}
	if err := idxFile.Close(); err != nil {
		os.Remove(indexTmp)
		lexWriter.Abort()
		return 0, fmt.Errorf("%w: %v", apperrors.ErrIO, err)
	}
	if err := os.Rename(indexTmp, outputs.IndexPath); err != nil {
		lexWriter.Abort()
		return 0, fmt.Errorf("%w: renaming index file into place: %v", apperrors.ErrIO, err)
	}
	if err := lexWriter.Close(); err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrIO, err)
	}
	m.logger.Info("merge complete", "terms", termsWritten, "partial_files", len(cursors))
	return termsWritten, nil
}

// mergeDuplicateDocIDs sorts by DocID and sums TF for any duplicate DocID.
// Worker doc-id partitions are disjoint in practice, so duplicates should
// never occur, but the merge defends against them rather than assuming the
// partition.
func mergeDuplicateDocIDs(postings memindex.PostingList) memindex.PostingList {
	sort.Slice(postings, func(i, j int) bool { return postings[i].DocID < postings[j].DocID })
	out := postings[:0:0]
	for _, p := range postings {
		if len(out) > 0 && out[len(out)-1].DocID == p.DocID {
			out[len(out)-1].TF += p.TF
			continue
		}
		out = append(out, p)
	}
	return out
}

// indexLine is the JSON shape of one line in the final index file.
type indexLine struct {
	Term     string         `json:"term"`
	Postings [][2]any       `json:"postings"`
}

func encodeIndexLine(term string, postings memindex.PostingList) (string, error) {
	pairs := make([][2]any, 0, len(postings))
	for _, p := range postings {
		pairs = append(pairs, [2]any{p.DocID, p.TF})
	}
	enc, err := json.Marshal(indexLine{Term: term, Postings: pairs})
	if err != nil {
		return "", err
	}
	return string(enc) + "\n", nil
}

type heapItem struct {
	term   string
	cursor *partialindex.Cursor
}

// cursorHeap orders pending cursor records by term, tie-broken by cursor ID
// for determinism when two shards hand back the same term simultaneously.
type cursorHeap []heapItem

func (h cursorHeap) Len() int { return len(h) }
func (h cursorHeap) Less(i, j int) bool {
	if h[i].term != h[j].term {
		return h[i].term < h[j].term
	}
	return h[i].cursor.ID < h[j].cursor.ID
}
func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x any)   { *h = append(*h, x.(heapItem)) }
func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// OutputPaths is a convenience helper for callers assembling a Paths value
// from an output directory.
func OutputPaths(dir string) Paths {
	return Paths{
		IndexPath:    filepath.Join(dir, "final_inverted_index.jsonl"),
		LexiconPath:  filepath.Join(dir, "lexicon.jsonl"),
		DocIndexPath: filepath.Join(dir, "document_index.jsonl"),
	}
}
