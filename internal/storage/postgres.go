package storage

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pstitle/internal/models"
)

const (
	createRecordsTable = `CREATE TABLE IF NOT EXISTS populated_records (
	record_index  INTEGER PRIMARY KEY,
	title_number  TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	error_message TEXT,
	payload       JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

	insertRecord = `INSERT INTO populated_records (record_index, title_number, outcome, error_message, payload)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (record_index) DO NOTHING`

	// firstMissingIndex finds the smallest record_index not stored: 0 when
	// it is absent, otherwise the lowest stored index whose successor is.
	firstMissingIndex = `SELECT CASE
	WHEN NOT EXISTS (SELECT 1 FROM populated_records WHERE record_index = 0) THEN 0
	ELSE (
		SELECT MIN(p.record_index) + 1
		FROM populated_records p
		WHERE NOT EXISTS (
			SELECT 1 FROM populated_records q WHERE q.record_index = p.record_index + 1
		)
	)
END`
)

// pgExecutor is the subset of *pgxpool.Pool the sink uses.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSink stores populated records in a Postgres table.
type PostgresSink struct {
	db    pgExecutor
	close func()
}

// NewPostgresSink opens a connection pool and creates the records table if
// it does not exist.
func NewPostgresSink(ctx context.Context, dsn string, maxConns int32) (*PostgresSink, error) {
	if dsn == "" {
		return nil, errors.WithHint(errors.New("missing Postgres DSN"), "set postgres.dsn or DATABASE_DSN")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse Postgres DSN")
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect to Postgres")
	}

	s := &PostgresSink{db: pool, close: pool.Close}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createRecordsTable); err != nil {
		return errors.Wrap(err, "create populated_records table")
	}
	return nil
}

// Persist inserts the record. Records that are already stored are skipped.
func (s *PostgresSink) Persist(ctx context.Context, rec models.PopulatedRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", rec.Record)
	}
	var message *string
	if e, ok := rec.Outcome.(models.Error); ok {
		message = &e.Message
	}
	_, err = s.db.Exec(ctx, insertRecord,
		rec.Record.Index,
		models.TitleNumber(rec.Record),
		rec.Outcome.Kind(),
		message,
		payload,
	)
	if err != nil {
		return errors.Wrapf(err, "insert %s", rec.Record)
	}
	return nil
}

// FirstMissing implements Resumer.
func (s *PostgresSink) FirstMissing(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, firstMissingIndex).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "find first missing record_index")
	}
	return n, nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
