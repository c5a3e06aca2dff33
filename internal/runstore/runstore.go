// Package runstore persists index-build run records to PostgreSQL: one row
// per invocation of the indexer, recording its configuration, final
// document/term counts, and outcome, so operators can audit build history
// without re-reading the stats.json file.
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/stats"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/postgres"
)

// Status values for an index_runs row.
const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Store records index-build runs in PostgreSQL.
type Store struct {
	client *postgres.Client
	logger *slog.Logger
}

// New wraps a PostgreSQL client for run persistence.
func New(client *postgres.Client) *Store {
	return &Store{client: client, logger: slog.Default().With("component", "runstore")}
}

// EnsureSchema creates the index_runs table if it does not already exist.
// Run once at indexer startup; safe to call repeatedly.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.client.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS index_runs (
			id               BIGSERIAL PRIMARY KEY,
			corpus_path      TEXT NOT NULL,
			memory_limit_mb  INT NOT NULL,
			workers          INT NOT NULL,
			status           TEXT NOT NULL,
			num_documents    BIGINT NOT NULL DEFAULT 0,
			num_terms        BIGINT NOT NULL DEFAULT 0,
			malformed_records BIGINT NOT NULL DEFAULT 0,
			started_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			finished_at      TIMESTAMPTZ,
			error_message    TEXT
		)`)
	if err != nil {
		return fmt.Errorf("ensuring index_runs schema: %w", err)
	}
	return nil
}

// Start inserts a RUNNING row for a new index build and returns its ID.
func (s *Store) Start(ctx context.Context, corpusPath string, memoryLimitMB, workers int) (int64, error) {
	var id int64
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO index_runs (corpus_path, memory_limit_mb, workers, status)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			corpusPath, memoryLimitMB, workers, StatusRunning,
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("starting index run: %w", err)
	}
	return id, nil
}

// Complete marks a run COMPLETED and records the final global stats and
// term count.
func (s *Store) Complete(ctx context.Context, runID int64, g stats.Global, numTerms int) error {
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE index_runs
			SET status = $1, num_documents = $2, num_terms = $3, malformed_records = $4, finished_at = NOW()
			WHERE id = $5`,
			StatusCompleted, g.NumDocuments, numTerms, g.MalformedRecords, runID,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("completing index run %d: %w", runID, err)
	}
	return nil
}

// Fail marks a run FAILED and records the error message.
func (s *Store) Fail(ctx context.Context, runID int64, cause error) {
	_, err := s.client.DB.ExecContext(ctx, `
		UPDATE index_runs
		SET status = $1, error_message = $2, finished_at = NOW()
		WHERE id = $3`,
		StatusFailed, cause.Error(), runID,
	)
	if err != nil {
		s.logger.Error("failed to record index run failure", "run_id", runID, "error", err)
	}
}
