// Package corpus provides the Document Reader side of the indexing
// pipeline: a single logical source of (doc_id, text) records fanned out to
// the worker pool over a bounded queue, plus the malformed-record policy
// shared by every concrete Source.
package corpus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Record is one corpus document as read from the source, before
// tokenisation.
type Record struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Source yields corpus records one at a time. Next returns (record, true,
// nil) for a valid record, (zero, false, nil) at end of input, and a
// non-nil error for unrecoverable I/O failures; malformed individual
// records are handled internally by incrementing Malformed and continuing.
// On a cancelled ctx, FileSource returns the context's error, while
// KafkaSource reports end of input.
type Source interface {
	Next(ctx context.Context) (Record, bool, error)
	// Malformed returns the running count of skipped malformed records.
	Malformed() int64
}

// FileSource reads line-delimited JSON records from a local file.
type FileSource struct {
	file      *os.File
	sc        *bufio.Scanner
	logger    *slog.Logger
	malformed atomic.Int64
}

// NewFileSource opens path for line-delimited JSON reading.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file %s: %w", path, err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	return &FileSource{
		file:   f,
		sc:     sc,
		logger: slog.Default().With("component", "corpus-file-source"),
	}, nil
}

// Next returns the next valid record from the file, skipping malformed
// lines.
func (s *FileSource) Next(ctx context.Context) (Record, bool, error) {
	for {
		select {
		case <-ctx.Done():
			return Record{}, false, ctx.Err()
		default:
		}
		if !s.sc.Scan() {
			if err := s.sc.Err(); err != nil {
				return Record{}, false, fmt.Errorf("reading corpus file: %w", err)
			}
			return Record{}, false, nil
		}
		line := s.sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, ok := decodeRecord(line, s.logger)
		if !ok {
			s.malformed.Add(1)
			continue
		}
		return rec, true, nil
	}
}

// Malformed returns the count of skipped malformed records.
func (s *FileSource) Malformed() int64 { return s.malformed.Load() }

// Close releases the underlying file handle.
func (s *FileSource) Close() error { return s.file.Close() }

// decodeRecord parses one JSON line into a Record, applying the
// MalformedRecord policy: missing id/text or empty text is treated as
// malformed, never fatal.
func decodeRecord(line string, logger *slog.Logger) (Record, bool) {
	var rec Record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		logger.Warn("malformed corpus record: invalid JSON", "error", err)
		return Record{}, false
	}
	if strings.TrimSpace(rec.ID) == "" || strings.TrimSpace(rec.Text) == "" {
		logger.Warn("malformed corpus record: missing id or text", "id", rec.ID)
		return Record{}, false
	}
	return rec, true
}
