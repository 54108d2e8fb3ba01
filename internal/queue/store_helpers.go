package queue

import (
	"database/sql"
	"strings"
	"time"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const jobColumns = "id, owner_id, status, progress_percent, progress_stage, progress_message, error_message, language, granularity, source_key, source_name, media_type, audio_key, duration_seconds, request_id, created_at, updated_at, completed_at, last_heartbeat"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job             Job
		statusStr       string
		progressStage   sql.NullString
		progressMessage sql.NullString
		errorMessage    sql.NullString
		granularity     string
		mediaType       string
		audioKey        sql.NullString
		requestID       sql.NullString
		createdRaw      string
		updatedRaw      string
		completedRaw    sql.NullString
		heartbeatRaw    sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&job.OwnerID,
		&statusStr,
		&job.ProgressPercent,
		&progressStage,
		&progressMessage,
		&errorMessage,
		&job.Language,
		&granularity,
		&job.SourceKey,
		&job.SourceName,
		&mediaType,
		&audioKey,
		&job.DurationSeconds,
		&requestID,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	job.Status = Status(statusStr)
	job.ProgressStage = progressStage.String
	job.ProgressMessage = progressMessage.String
	job.ErrorMessage = errorMessage.String
	job.Granularity = Granularity(granularity)
	job.MediaType = MediaType(mediaType)
	job.AudioKey = audioKey.String
	job.RequestID = requestID.String
	job.CreatedAt = parseTimeString(createdRaw)
	job.UpdatedAt = parseTimeString(updatedRaw)
	job.CompletedAt = nullableTime(completedRaw)
	job.LastHeartbeat = nullableTime(heartbeatRaw)
	return &job, nil
}

func nullableString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	ts := parseTimeString(raw.String)
	if ts.IsZero() {
		return nil
	}
	return &ts
}

func parseTimeString(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}
	if ts, err := time.Parse("2006-01-02 15:04:05", raw); err == nil {
		return ts
	}
	return time.Time{}
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = string(status)
	}
	return args
}
