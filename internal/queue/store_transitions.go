package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// maxRunningPercent keeps running progress below 100; only MarkCompleted
// reports a finished job.
const maxRunningPercent = 99.9

// UpdateProgress records stage progress for a processing job. Percent never
// decreases: a stale report keeps the stored percent and label.
func (s *Store) UpdateProgress(ctx context.Context, id, stage string, percent float64, message string) error {
	if percent < 0 {
		percent = 0
	}
	if percent > maxRunningPercent {
		percent = maxRunningPercent
	}
	_, err := s.execWithRetry(ctx,
		`UPDATE jobs SET
			progress_stage = CASE WHEN ? >= progress_percent THEN ? ELSE progress_stage END,
			progress_message = CASE WHEN ? >= progress_percent THEN ? ELSE progress_message END,
			progress_percent = MAX(progress_percent, ?),
			updated_at = ?
		WHERE id = ? AND status = ?`,
		percent, stage, percent, message, percent, s.timestamp(), id, string(StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// MarkFailed moves a job to failed. The first failure wins: jobs already in a
// terminal state are left untouched and false is returned. Progress is kept.
func (s *Store) MarkFailed(ctx context.Context, id, message string) (bool, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "transcription failed"
	}
	affected, err := s.execAffected(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, progress_message = ?,
			last_heartbeat = NULL, updated_at = ?
		WHERE id = ? AND status NOT IN (?, ?)`,
		string(StatusFailed), message, message, s.timestamp(), id,
		string(StatusFailed), string(StatusCompleted),
	)
	if err != nil {
		return false, fmt.Errorf("mark failed: %w", err)
	}
	return affected > 0, nil
}

// MarkCompleted reports 100 percent and completes the job in one step.
func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	now := s.timestamp()
	affected, err := s.execAffected(ctx,
		`UPDATE jobs SET status = ?, progress_percent = 100, progress_stage = ?, progress_message = ?,
			error_message = NULL, last_heartbeat = NULL, completed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(StatusCompleted), "Completed", "Transcript ready", now, now, id, string(StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark completed: job %s is not processing", id)
	}
	return nil
}

// UpdateHeartbeat refreshes the liveness timestamp of a processing job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := s.timestamp()
	affected, err := s.execAffected(ctx,
		"UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?",
		now, now, id, string(StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update heartbeat: job %s is not processing", id)
	}
	return nil
}

// FailOrphaned fails every processing job. Called at daemon start, when the
// single-instance lock guarantees no other worker owns them.
func (s *Store) FailOrphaned(ctx context.Context) (int64, error) {
	affected, err := s.execAffected(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, progress_message = ?,
			last_heartbeat = NULL, updated_at = ?
		WHERE status = ?`,
		string(StatusFailed), WorkerStopReason, WorkerStopReason, s.timestamp(), string(StatusProcessing),
	)
	if err != nil {
		return 0, fmt.Errorf("fail orphaned jobs: %w", err)
	}
	return affected, nil
}

// FailStaleProcessing fails processing jobs whose heartbeat is older than cutoff.
func (s *Store) FailStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	affected, err := s.execAffected(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, progress_message = ?,
			last_heartbeat = NULL, updated_at = ?
		WHERE status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
		string(StatusFailed), WorkerStopReason, WorkerStopReason, s.timestamp(),
		string(StatusProcessing), cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("fail stale jobs: %w", err)
	}
	return affected, nil
}

// RetryFailed resets failed jobs to pending. With no ids every failed job is
// retried. Progress restarts from zero.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	query := `UPDATE jobs SET status = ?, progress_percent = 0, progress_stage = ?, progress_message = ?,
		error_message = NULL, audio_key = NULL, request_id = NULL, completed_at = NULL,
		last_heartbeat = NULL, updated_at = ?
	WHERE status = ?`
	args := []any{string(StatusPending), "Queued", "Waiting for worker", s.timestamp(), string(StatusFailed)}
	if len(ids) > 0 {
		query += " AND id IN (" + makePlaceholders(len(ids)) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}
	affected, err := s.execAffected(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed jobs: %w", err)
	}
	return affected, nil
}
