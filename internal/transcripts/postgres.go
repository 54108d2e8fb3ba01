package transcripts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

const postgresSchema = `CREATE TABLE IF NOT EXISTS transcripts (
    job_id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    srt TEXT NOT NULL,
    vtt TEXT NOT NULL,
    json TEXT NOT NULL,
    verbose_json TEXT NOT NULL,
    words_json TEXT,
    language TEXT,
    duration_seconds INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps transcripts in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and ensures the transcripts table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create transcripts table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresInsert = `INSERT INTO transcripts (job_id, text, srt, vtt, json, verbose_json, words_json, language, duration_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)`

// Save inserts rec.
func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	err := s.exec(ctx, postgresInsert, rec)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("save transcript %s: %w", rec.JobID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("save transcript %s: %w", rec.JobID, err)
	}
	return nil
}

// Replace upserts rec.
func (s *PostgresStore) Replace(ctx context.Context, rec Record) error {
	if err := s.exec(ctx, postgresInsert+upsertClause, rec); err != nil {
		return fmt.Errorf("replace transcript %s: %w", rec.JobID, err)
	}
	return nil
}

func (s *PostgresStore) exec(ctx context.Context, query string, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	var words *string
	if rec.WordsJSON != "" {
		words = &rec.WordsJSON
	}
	_, err := s.pool.Exec(ctx, query,
		rec.JobID, rec.Text, rec.SRT, rec.VTT, rec.JSON, rec.VerboseJSON, words,
		rec.Language, rec.DurationSeconds, rec.CreatedAt,
	)
	return err
}

// Get loads the record for jobID.
func (s *PostgresStore) Get(ctx context.Context, jobID string) (*Record, error) {
	var (
		rec      Record
		words    *string
		language *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT job_id, text, srt, vtt, json, verbose_json, words_json, language, duration_seconds, created_at
		FROM transcripts WHERE job_id = $1`, jobID,
	).Scan(&rec.JobID, &rec.Text, &rec.SRT, &rec.VTT, &rec.JSON, &rec.VerboseJSON,
		&words, &language, &rec.DurationSeconds, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript %s: %w", jobID, err)
	}
	if words != nil {
		rec.WordsJSON = *words
	}
	if language != nil {
		rec.Language = *language
	}
	return &rec, nil
}

// Delete removes the record for jobID.
func (s *PostgresStore) Delete(ctx context.Context, jobID string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM transcripts WHERE job_id = $1", jobID); err != nil {
		return fmt.Errorf("delete transcript %s: %w", jobID, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
