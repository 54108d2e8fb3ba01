package transcripts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS transcripts (
    job_id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    srt TEXT NOT NULL,
    vtt TEXT NOT NULL,
    json TEXT NOT NULL,
    verbose_json TEXT NOT NULL,
    words_json TEXT,
    language TEXT,
    duration_seconds INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
)`

// SQLiteStore keeps transcripts in a table of the queue database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore ensures the transcripts table exists on db.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("sqlite transcript store requires a database")
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create transcripts table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteInsert = `INSERT INTO transcripts (job_id, text, srt, vtt, json, verbose_json, words_json, language, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Save inserts rec.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	err := s.exec(ctx, sqliteInsert, rec)
	if isSQLiteConstraint(err) {
		return fmt.Errorf("save transcript %s: %w", rec.JobID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("save transcript %s: %w", rec.JobID, err)
	}
	return nil
}

// Replace upserts rec.
func (s *SQLiteStore) Replace(ctx context.Context, rec Record) error {
	if err := s.exec(ctx, sqliteInsert+upsertClause, rec); err != nil {
		return fmt.Errorf("replace transcript %s: %w", rec.JobID, err)
	}
	return nil
}

func (s *SQLiteStore) exec(ctx context.Context, query string, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, query,
		rec.JobID, rec.Text, rec.SRT, rec.VTT, rec.JSON, rec.VerboseJSON,
		nullable(rec.WordsJSON), nullable(rec.Language), rec.DurationSeconds,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Get loads the record for jobID.
func (s *SQLiteStore) Get(ctx context.Context, jobID string) (*Record, error) {
	var (
		rec       Record
		words     sql.NullString
		language  sql.NullString
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT job_id, text, srt, vtt, json, verbose_json, words_json, language, duration_seconds, created_at
		FROM transcripts WHERE job_id = ?`, jobID,
	).Scan(&rec.JobID, &rec.Text, &rec.SRT, &rec.VTT, &rec.JSON, &rec.VerboseJSON,
		&words, &language, &rec.DurationSeconds, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript %s: %w", jobID, err)
	}
	rec.WordsJSON = words.String
	rec.Language = language.String
	if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		rec.CreatedAt = ts
	}
	return &rec, nil
}

// Delete removes the record for jobID.
func (s *SQLiteStore) Delete(ctx context.Context, jobID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM transcripts WHERE job_id = ?", jobID); err != nil {
		return fmt.Errorf("delete transcript %s: %w", jobID, err)
	}
	return nil
}

// Close is a no-op; the connection belongs to the queue store.
func (s *SQLiteStore) Close() error {
	return nil
}

func isSQLiteConstraint(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		switch coder.Code() {
		case sqliteConstraintPrimaryKey, sqliteConstraintUnique:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullable(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
