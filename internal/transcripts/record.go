package transcripts

import (
	"errors"
	"math"
	"strings"
	"time"

	"scribe/internal/transcript"
)

// ErrDuplicate reports a second Save for a job that already has a transcript.
var ErrDuplicate = errors.New("transcript already exists")

// Record is the persisted form of a finished transcript.
type Record struct {
	JobID           string
	Text            string
	SRT             string
	VTT             string
	JSON            string
	VerboseJSON     string
	WordsJSON       string
	Language        string
	DurationSeconds int
	CreatedAt       time.Time
}

// NewRecord builds a record from a merged result and its rendered formats.
func NewRecord(jobID string, result transcript.Result, rendered transcript.Rendered, createdAt time.Time) Record {
	return Record{
		JobID:           jobID,
		Text:            rendered.Text,
		SRT:             rendered.SRT,
		VTT:             rendered.VTT,
		JSON:            rendered.JSON,
		VerboseJSON:     rendered.VerboseJSON,
		WordsJSON:       rendered.WordsJSON,
		Language:        strings.TrimSpace(result.Language),
		DurationSeconds: int(math.Round(result.Duration)),
		CreatedAt:       createdAt.UTC(),
	}
}

// Rendered returns the stored formats in encoder form.
func (r Record) Rendered() transcript.Rendered {
	return transcript.Rendered{
		Text:        r.Text,
		SRT:         r.SRT,
		VTT:         r.VTT,
		JSON:        r.JSON,
		VerboseJSON: r.VerboseJSON,
		WordsJSON:   r.WordsJSON,
	}
}

// HasWords reports whether word-level timestamps were stored.
func (r Record) HasWords() bool {
	return r.WordsJSON != ""
}

func validateRecord(rec Record) error {
	if strings.TrimSpace(rec.JobID) == "" {
		return errors.New("transcript job id is required")
	}
	return nil
}
