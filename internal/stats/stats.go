// Package stats defines the global corpus statistics produced by an
// indexing run and the per-worker counters merged into them.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
)

// Worker accumulates the counters a single worker goroutine tracks locally
// while consuming its share of the corpus.
type Worker struct {
	DocsSeen  int64
	TokensSeen int64
	Malformed int64
}

// Global is the merged, corpus-wide statistics record written as
// stats.json.
type Global struct {
	NumDocuments     int64   `json:"num_documents"`
	NumTokens        int64   `json:"num_tokens"`
	AvgDocLength     float64 `json:"avg_doc_length"`
	MalformedRecords int64   `json:"malformed_records"`
}

// Merge sums per-worker counters (plus any malformed-record count tracked
// by the reader itself) into a single Global record.
func Merge(workers []Worker, readerMalformed int64) Global {
	var g Global
	for _, w := range workers {
		g.NumDocuments += w.DocsSeen
		g.NumTokens += w.TokensSeen
		g.MalformedRecords += w.Malformed
	}
	g.MalformedRecords += readerMalformed
	if g.NumDocuments > 0 {
		g.AvgDocLength = float64(g.NumTokens) / float64(g.NumDocuments)
	}
	return g
}

// WriteJSON writes g to path using write-then-rename for crash safety.
func WriteJSON(path string, g Global) error {
	tmp := path + ".tmp"
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing stats file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming stats file into place: %w", err)
	}
	return nil
}

// LoadJSON reads a Global stats record from path.
func LoadJSON(path string) (Global, error) {
	var g Global
	data, err := os.ReadFile(path)
	if err != nil {
		return g, fmt.Errorf("reading stats file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &g); err != nil {
		return g, fmt.Errorf("decoding stats file %s: %w", path, err)
	}
	return g, nil
}
