package queue

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a transcription job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// WorkerStopReason is the error message recorded on jobs orphaned by a
// worker that exited mid-run.
const WorkerStopReason = "worker stopped"

var allStatuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

// ParseStatus validates a status name.
func ParseStatus(value string) (Status, error) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == candidate {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", value)
}

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// MediaType is the declared kind of the uploaded source.
type MediaType string

const (
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

// ParseMediaType validates a media type name.
func ParseMediaType(value string) (MediaType, error) {
	switch MediaType(strings.ToLower(strings.TrimSpace(value))) {
	case MediaAudio:
		return MediaAudio, nil
	case MediaVideo:
		return MediaVideo, nil
	}
	return "", fmt.Errorf("unknown media type %q (want audio or video)", value)
}

// Granularity selects which timestamps the provider is asked for.
type Granularity string

const (
	GranularitySegment Granularity = "segment"
	GranularityWord    Granularity = "word"
)

// ParseGranularity validates a granularity name. Empty means segment.
func ParseGranularity(value string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(value))) {
	case "", GranularitySegment:
		return GranularitySegment, nil
	case GranularityWord:
		return GranularityWord, nil
	}
	return "", fmt.Errorf("unknown granularity %q (want segment or word)", value)
}

// Job is one transcription request and its progress.
type Job struct {
	ID              string
	OwnerID         string
	Status          Status
	ProgressPercent float64
	ProgressStage   string
	ProgressMessage string
	ErrorMessage    string
	Language        string
	Granularity     Granularity
	SourceKey       string
	SourceName      string
	MediaType       MediaType
	AudioKey        string
	DurationSeconds float64
	RequestID       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
	LastHeartbeat   *time.Time
}

// NewJobParams describes a submission.
type NewJobParams struct {
	// ID is optional. Callers set it when the upload key embeds the job id.
	ID          string
	OwnerID     string
	SourceKey   string
	SourceName  string
	MediaType   MediaType
	Language    string
	Granularity Granularity
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Completed  int `json:"completed"`
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}
