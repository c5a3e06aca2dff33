// Package partialindex writes and reads the line-delimited partial-index
// files produced by workers and consumed by the merger. Each file holds
// term records in ascending lexicographic order; the format is
// self-describing and opaque to anyone but the merger.
package partialindex

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/memindex"
)

// record is the on-disk posting-list payload for one term.
type record [][2]any // [doc_id, tf] pairs, kept untyped to mirror the JSONL wire format

// Writer persists drained in-memory index chunks as immutable partial-index
// files, one worker-sequence pair per file.
type Writer struct {
	dir      string
	workerID int
	seq      int
}

// NewWriter creates a Writer that places files for workerID under dir.
func NewWriter(dir string, workerID int) *Writer {
	return &Writer{dir: dir, workerID: workerID}
}

// Write persists records (already term-ordered) as one partial-index file
// and returns its path. The file is written to a temporary path and then
// renamed into place, so a reader never observes a partially written file.
func (w *Writer) Write(records []memindex.TermPostings) (string, error) {
	w.seq++
	name := fmt.Sprintf("worker-%d-%04d.partial", w.workerID, w.seq)
	finalPath := filepath.Join(w.dir, name)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating partial index file %s: %w", tmpPath, err)
	}
	bw := bufio.NewWriter(f)
	for _, r := range records {
		postings := make(record, 0, len(r.Postings))
		for _, p := range r.Postings {
			postings = append(postings, [2]any{p.DocID, p.TF})
		}
		encoded, err := json.Marshal(postings)
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
			return "", fmt.Errorf("encoding postings for term %q: %w", r.Term, err)
		}
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", r.Term, encoded); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return "", fmt.Errorf("writing partial index record: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("flushing partial index file %s: %w", tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("syncing partial index file %s: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing partial index file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming partial index file into place: %w", err)
	}
	return finalPath, nil
}

// Cursor reads one partial-index file's records in term order, one at a
// time, for use by the merge heap.
type Cursor struct {
	ID     int
	path   string
	file   *os.File
	sc     *bufio.Scanner
	done   bool
	cur    memindex.TermPostings
	curErr error
}

// OpenCursor opens path for sequential reading.
func OpenCursor(id int, path string) (*Cursor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening partial index file %s: %w", path, err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	c := &Cursor{ID: id, path: path, file: f, sc: sc}
	c.advance()
	return c, nil
}

// advance reads the next record into c.cur, setting c.done when exhausted.
func (c *Cursor) advance() {
	if !c.sc.Scan() {
		if err := c.sc.Err(); err != nil {
			c.curErr = fmt.Errorf("reading partial index file %s: %w", c.path, err)
		}
		c.done = true
		return
	}
	line := c.sc.Text()
	tab := strings.IndexByte(line, '\t')
	if tab < 0 {
		c.curErr = fmt.Errorf("malformed partial index record in %s: %q", c.path, line)
		c.done = true
		return
	}
	term := line[:tab]
	var raw [][2]any
	if err := json.Unmarshal([]byte(line[tab+1:]), &raw); err != nil {
		c.curErr = fmt.Errorf("decoding postings for term %q in %s: %w", term, c.path, err)
		c.done = true
		return
	}
	postings := make(memindex.PostingList, 0, len(raw))
	for _, pair := range raw {
		docID, _ := pair[0].(string)
		tf, _ := pair[1].(float64)
		postings = append(postings, memindex.Posting{DocID: docID, TF: int(tf)})
	}
	c.cur = memindex.TermPostings{Term: term, Postings: postings}
}

// Peek returns the current record and whether the cursor is exhausted.
func (c *Cursor) Peek() (memindex.TermPostings, bool) {
	return c.cur, !c.done
}

// Err returns the first error encountered while reading, if any.
func (c *Cursor) Err() error {
	return c.curErr
}

// Advance moves the cursor to its next record.
func (c *Cursor) Advance() {
	c.advance()
}

// Close releases the underlying file handle.
func (c *Cursor) Close() error {
	return c.file.Close()
}
