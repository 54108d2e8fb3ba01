package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewJob inserts a pending job for an uploaded source.
func (s *Store) NewJob(ctx context.Context, params NewJobParams) (*Job, error) {
	if strings.TrimSpace(params.OwnerID) == "" {
		return nil, errors.New("owner id is required")
	}
	if strings.TrimSpace(params.SourceKey) == "" {
		return nil, errors.New("source key is required")
	}
	if _, err := ParseMediaType(string(params.MediaType)); err != nil {
		return nil, err
	}
	granularity, err := ParseGranularity(string(params.Granularity))
	if err != nil {
		return nil, err
	}
	lang := strings.TrimSpace(params.Language)
	if lang == "" {
		lang = "auto"
	}
	name := strings.TrimSpace(params.SourceName)
	if name == "" {
		name = params.SourceKey
	}

	id := strings.TrimSpace(params.ID)
	if id == "" {
		id = uuid.NewString()
	} else if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("invalid job id %q: %w", id, err)
	}
	now := s.timestamp()
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (id, owner_id, status, progress_percent, progress_stage, progress_message,
			language, granularity, source_key, source_name, media_type, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, params.OwnerID, string(StatusPending), "Queued", "Waiting for worker",
		lang, string(granularity), params.SourceKey, name, string(params.MediaType), now, now,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. Missing jobs return nil without error.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindByPrefix resolves a job from a unique id prefix, as printed by the CLI.
func (s *Store) FindByPrefix(ctx context.Context, prefix string) (*Job, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, errors.New("job id is required")
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+jobColumns+" FROM jobs WHERE id LIKE ? ORDER BY created_at LIMIT 2",
		strings.ReplaceAll(prefix, "%", "")+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	defer rows.Close()

	var matches []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		matches = append(matches, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	}
	return nil, fmt.Errorf("job id %q is ambiguous", prefix)
}

// List returns jobs ordered by creation time, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs"
	var args []any
	if len(statuses) > 0 {
		query += " WHERE status IN (" + makePlaceholders(len(statuses)) + ")"
		args = statusArgs(statuses)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimNextPending moves the oldest pending job to processing and returns it.
// Returns nil when nothing is waiting.
func (s *Store) ClaimNextPending(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	for {
		var id string
		err := s.db.QueryRowContext(ctx,
			"SELECT id FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1",
			string(StatusPending),
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("select pending job: %w", err)
		}

		now := s.timestamp()
		affected, err := s.execAffected(ctx,
			`UPDATE jobs SET status = ?, request_id = ?, progress_stage = ?, progress_message = ?,
				last_heartbeat = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			string(StatusProcessing), uuid.NewString(), "Starting", "Claimed by worker",
			now, now, id, string(StatusPending),
		)
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		if affected == 1 {
			return s.GetByID(ctx, id)
		}
		// Another worker won the race; look again.
	}
}

// SetAudio records the normalized audio location and its probed duration.
func (s *Store) SetAudio(ctx context.Context, id, audioKey string, durationSeconds float64) error {
	affected, err := s.execAffected(ctx,
		"UPDATE jobs SET audio_key = ?, duration_seconds = ?, updated_at = ? WHERE id = ? AND status = ?",
		nullableString(audioKey), durationSeconds, s.timestamp(), id, string(StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("set audio: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("set audio: job %s is not processing", id)
	}
	return nil
}

// Remove deletes a job that is not currently processing.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	affected, err := s.execAffected(ctx,
		"DELETE FROM jobs WHERE id = ? AND status != ?", id, string(StatusProcessing))
	if err != nil {
		return false, fmt.Errorf("remove job: %w", err)
	}
	return affected > 0, nil
}
