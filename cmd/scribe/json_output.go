package main

import (
	"encoding/json"
	"io"
	"time"

	"scribe/internal/queue"
)

// jobView is the JSON shape printed by status --json and list --json.
type jobView struct {
	ID              string     `json:"id"`
	Owner           string     `json:"owner"`
	Source          string     `json:"source"`
	MediaType       string     `json:"media_type"`
	Status          string     `json:"status"`
	ProgressPercent float64    `json:"progress_percent"`
	ProgressStage   string     `json:"progress_stage"`
	ProgressMessage string     `json:"progress_message,omitempty"`
	Error           string     `json:"error,omitempty"`
	Language        string     `json:"language"`
	Granularity     string     `json:"granularity"`
	DurationSeconds float64    `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

func newJobView(job *queue.Job) jobView {
	return jobView{
		ID:              job.ID,
		Owner:           job.OwnerID,
		Source:          job.SourceName,
		MediaType:       string(job.MediaType),
		Status:          string(job.Status),
		ProgressPercent: job.ProgressPercent,
		ProgressStage:   job.ProgressStage,
		ProgressMessage: job.ProgressMessage,
		Error:           job.ErrorMessage,
		Language:        job.Language,
		Granularity:     string(job.Granularity),
		DurationSeconds: job.DurationSeconds,
		CreatedAt:       job.CreatedAt,
		CompletedAt:     job.CompletedAt,
	}
}

// writeJSON encodes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
