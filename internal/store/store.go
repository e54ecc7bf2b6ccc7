package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scriptwalk/api/schemas"
)

// DBPool abstracts pgxpool.Pool so tests can substitute pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store persists finished runs to PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store on pool and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Connect opens a pgx pool for url and wraps it in a Store. The returned
// func closes the pool.
func Connect(ctx context.Context, url string, logger *zap.Logger) (*Store, func(), error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    url         TEXT NOT NULL,
    script      TEXT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    error       TEXT
);
CREATE TABLE IF NOT EXISTS run_captures (
    run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    variable    TEXT NOT NULL,
    ordinal     INTEGER NOT NULL,
    value_count INTEGER NOT NULL,
    PRIMARY KEY (run_id, variable)
);
CREATE TABLE IF NOT EXISTS capture_values (
    run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    variable TEXT NOT NULL,
    position INTEGER NOT NULL,
    value    TEXT NOT NULL,
    PRIMARY KEY (run_id, variable, position)
);
CREATE TABLE IF NOT EXISTS snapshots (
    run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    sequence   INTEGER NOT NULL,
    node_path  TEXT NOT NULL,
    loop_value TEXT,
    taken_at   TIMESTAMPTZ NOT NULL,
    source     TEXT NOT NULL,
    PRIMARY KEY (run_id, sequence)
);`

// EnsureSchema creates the result tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const (
	sqlInsertRun = `
        INSERT INTO runs (id, url, script, started_at, finished_at, error)
        VALUES ($1, $2, $3, $4, $5, $6)`
	sqlInsertCapture = `
        INSERT INTO run_captures (run_id, variable, ordinal, value_count)
        VALUES ($1, $2, $3, $4)`
	sqlInsertSnapshot = `
        INSERT INTO snapshots (run_id, sequence, node_path, loop_value, taken_at, source)
        VALUES ($1, $2, $3, $4, $5, $6)`
)

var captureValueColumns = []string{"run_id", "variable", "position", "value"}

// PersistRun writes a run, its captures and its snapshots in one
// transaction.
func (s *Store) PersistRun(ctx context.Context, run *schemas.RunRecord) error {
	if run == nil || run.ID == "" {
		return errors.New("run record must have an id")
	}
	result := run.Result
	if result == nil {
		result = &schemas.RunResult{}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	var runErr *string
	if run.Error != "" {
		runErr = &run.Error
	}
	if _, err := tx.Exec(ctx, sqlInsertRun,
		run.ID, run.URL, run.ScriptPath, run.StartedAt.UTC(), run.FinishedAt.UTC(), runErr,
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := s.persistCaptureValues(ctx, tx, run.ID, result.Captures); err != nil {
		return err
	}
	if err := s.persistBatch(ctx, tx, run.ID, result); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Run persisted",
		zap.String("run_id", run.ID),
		zap.Int("captures", len(result.Captures)),
		zap.Int("snapshots", len(result.Snapshots)))
	return nil
}

func (s *Store) persistCaptureValues(ctx context.Context, tx pgx.Tx, runID string, captures []schemas.Capture) error {
	var rows [][]interface{}
	for _, c := range captures {
		for pos, v := range c.Values {
			rows = append(rows, []interface{}{runID, c.Name, pos, v})
		}
	}
	if len(rows) == 0 {
		return nil
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"capture_values"}, captureValueColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy capture values: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("mismatch in copied capture values: expected %d, got %d", len(rows), n)
	}
	return nil
}

// persistBatch queues capture headers and snapshots in a single batch.
func (s *Store) persistBatch(ctx context.Context, tx pgx.Tx, runID string, result *schemas.RunResult) (err error) {
	total := len(result.Captures) + len(result.Snapshots)
	if total == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, c := range result.Captures {
		batch.Queue(sqlInsertCapture, runID, c.Name, i, len(c.Values))
	}
	for _, snap := range result.Snapshots {
		var loopValue *string
		if snap.LoopValue != "" {
			v := snap.LoopValue
			loopValue = &v
		}
		batch.Queue(sqlInsertSnapshot, runID, snap.Sequence, snap.Path, loopValue, snap.TakenAt.UTC(), snap.Source)
	}

	br := tx.SendBatch(ctx, batch)
	if br == nil {
		return fmt.Errorf("failed to send batch: batch results is nil")
	}
	defer func() {
		if cerr := br.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close batch: %w", cerr)
		}
	}()

	for i := 0; i < total; i++ {
		if _, err := br.Exec(); err != nil {
			if i < len(result.Captures) {
				return fmt.Errorf("failed to insert capture %q: %w", result.Captures[i].Name, err)
			}
			seq := result.Snapshots[i-len(result.Captures)].Sequence
			return fmt.Errorf("failed to insert snapshot %d: %w", seq, err)
		}
	}
	return nil
}
