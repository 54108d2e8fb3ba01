package transcripts

import (
	"context"
	"fmt"

	"scribe/internal/config"
	"scribe/internal/queue"
)

// Store persists transcripts keyed by job id.
type Store interface {
	// Save inserts a record. Returns ErrDuplicate when one already exists.
	Save(ctx context.Context, rec Record) error
	// Get returns the record for a job, or nil when none is stored.
	Get(ctx context.Context, jobID string) (*Record, error)
	// Replace stores rec, overwriting any record for the same job in a single
	// statement.
	Replace(ctx context.Context, rec Record) error
	// Delete removes the record for a job if present.
	Delete(ctx context.Context, jobID string) error
	Close() error
}

// Open selects the configured backend. The SQLite backend shares the queue
// database; closing it leaves the queue connection open.
func Open(ctx context.Context, cfg *config.Config, jobs *queue.Store) (Store, error) {
	switch cfg.Transcripts.Backend {
	case config.BackendPostgres:
		return NewPostgresStore(ctx, cfg.Transcripts.PostgresDSN)
	case config.BackendSQLite, "":
		if jobs == nil {
			return nil, fmt.Errorf("sqlite transcript backend requires the queue store")
		}
		return NewSQLiteStore(ctx, jobs.DB())
	default:
		return nil, fmt.Errorf("unsupported transcript backend %q", cfg.Transcripts.Backend)
	}
}

// upsertClause turns an insert into a replace. SQLite and PostgreSQL share the
// syntax.
const upsertClause = `
		ON CONFLICT (job_id) DO UPDATE SET
			text = excluded.text,
			srt = excluded.srt,
			vtt = excluded.vtt,
			json = excluded.json,
			verbose_json = excluded.verbose_json,
			words_json = excluded.words_json,
			language = excluded.language,
			duration_seconds = excluded.duration_seconds,
			created_at = excluded.created_at`
