// Package docindex manages per-document metadata: the token and character
// counts needed for BM25 length normalisation, written once per worker as a
// shard and merged by the index merger into the single final document
// index.
package docindex

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Meta holds the metadata recorded for one document.
type Meta struct {
	DocID  string `json:"doc_id"`
	Tokens int    `json:"tokens"`
	Chars  int    `json:"chars"`
}

// ShardWriter appends Meta records for one worker's documents to a
// dedicated shard file, written incrementally as documents are indexed.
type ShardWriter struct {
	f    *os.File
	bw   *bufio.Writer
	path string
}

// NewShardWriter creates (or truncates) the shard file at path.
func NewShardWriter(path string) (*ShardWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating document index shard %s: %w", path, err)
	}
	return &ShardWriter{f: f, bw: bufio.NewWriter(f), path: path}, nil
}

// Path returns the shard file's path.
func (w *ShardWriter) Path() string { return w.path }

// Write appends one Meta record.
func (w *ShardWriter) Write(m Meta) error {
	enc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding document meta for %s: %w", m.DocID, err)
	}
	if _, err := w.bw.Write(enc); err != nil {
		return err
	}
	return w.bw.WriteByte('\n')
}

// Close flushes and closes the shard file.
func (w *ShardWriter) Close() error {
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return fmt.Errorf("flushing document index shard: %w", err)
	}
	return w.f.Close()
}

// LoadShards reads every shard file and returns all Meta records, sorted by
// DocID ascending (worker doc-id partitions are disjoint, so no merge of
// duplicate keys is required, but the sort gives a deterministic final
// file).
func LoadShards(paths []string) ([]Meta, error) {
	all := make([]Meta, 0)
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("opening document index shard %s: %w", p, err)
		}
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for sc.Scan() {
			var m Meta
			if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
				f.Close()
				return nil, fmt.Errorf("decoding document index shard %s: %w", p, err)
			}
			all = append(all, m)
		}
		if err := sc.Err(); err != nil {
			f.Close()
			return nil, fmt.Errorf("reading document index shard %s: %w", p, err)
		}
		f.Close()
	}
	sort.Slice(all, func(i, j int) bool { return all[i].DocID < all[j].DocID })
	return all, nil
}

// WriteFinal writes the merged document index to path using write-then-rename
// for crash safety.
func WriteFinal(path string, metas []Meta) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating document index %s: %w", tmp, err)
	}
	bw := bufio.NewWriter(f)
	for _, m := range metas {
		enc, err := json.Marshal(m)
		if err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("encoding document meta for %s: %w", m.DocID, err)
		}
		if _, err := bw.Write(enc); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flushing document index %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// LoadFinal loads the final document index into a map keyed by DocID, for
// the Processor's random-access lookups at query time.
func LoadFinal(path string) (map[string]Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening document index %s: %w", path, err)
	}
	defer f.Close()
	out := make(map[string]Meta)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		var m Meta
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			return nil, fmt.Errorf("decoding document index %s: %w", path, err)
		}
		out[m.DocID] = m
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading document index %s: %w", path, err)
	}
	return out, nil
}
