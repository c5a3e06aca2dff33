package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/config"
	"github.com/segmentio/kafka-go"
)

// KafkaSource streams corpus records from a Kafka topic instead of a local
// file, for indexing runs fed by a live ingest pipeline rather than a
// batch export. It still drives exactly one logical Document Reader: one
// KafkaSource feeds one bounded work queue, the same as FileSource.
type KafkaSource struct {
	reader    *kafka.Reader
	logger    *slog.Logger
	malformed atomic.Int64
}

// NewKafkaSource creates a KafkaSource consuming topic with cfg's broker and
// consumer-group settings.
func NewKafkaSource(cfg config.KafkaConfig, topic string) *KafkaSource {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return &KafkaSource{
		reader: r,
		logger: slog.Default().With("component", "corpus-kafka-source", "topic", topic),
	}
}

// Next fetches and commits the next Kafka message, decoding it as a
// Record. Malformed payloads are skipped and counted rather than returned
// as an error.
func (s *KafkaSource) Next(ctx context.Context) (Record, bool, error) {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Record{}, false, nil
			}
			return Record{}, false, fmt.Errorf("fetching corpus message: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			s.logger.Warn("malformed corpus message: invalid JSON", "error", err)
			s.malformed.Add(1)
			s.reader.CommitMessages(ctx, msg)
			continue
		}
		if rec.ID == "" || strings.TrimSpace(rec.Text) == "" {
			s.logger.Warn("malformed corpus message: missing id or text", "id", rec.ID)
			s.malformed.Add(1)
			s.reader.CommitMessages(ctx, msg)
			continue
		}
		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			s.logger.Error("failed to commit corpus message", "error", err)
		}
		return rec, true, nil
	}
}

// Malformed returns the count of skipped malformed messages.
func (s *KafkaSource) Malformed() int64 { return s.malformed.Load() }

// Close closes the underlying Kafka reader.
func (s *KafkaSource) Close() error { return s.reader.Close() }
