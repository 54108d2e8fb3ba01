package pipeline

import (
	"context"
	"errors"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/transcript"
	"scribe/internal/transcripts"
)

// FinalizeInput carries the merged transcript of one job.
type FinalizeInput struct {
	JobID  string
	Result transcript.Result
}

// Finalizer renders every output format, persists the transcript, and marks
// the job completed.
type Finalizer struct {
	deps *Deps
}

// Run finalizes in.
func (f *Finalizer) Run(ctx context.Context, in FinalizeInput) error {
	ctx = stageContext(ctx, in.JobID, StageFinalize)
	logger := logging.WithContext(ctx, f.deps.Logger)
	reporter := newReporter(f.deps.Jobs, in.JobID, logger)

	logger.Info("stage started",
		logging.Event("stage_start"),
		logging.Int("segment_count", len(in.Result.Segments)),
	)
	reporter.Progress(ctx, labelEncoding, PercentTranscribed, "Encoding transcript formats")

	rendered, err := transcript.Render(in.Result)
	if err != nil {
		return reporter.Fail(ctx, services.Wrap(services.ErrTransient, StageFinalize, "render",
			"Could not encode the transcript", err))
	}
	record := transcripts.NewRecord(in.JobID, in.Result, rendered, f.deps.Now())
	if err := f.save(ctx, record); err != nil {
		return reporter.Fail(ctx, services.Wrap(services.ErrTransient, StageFinalize, "save transcript",
			"Could not store the transcript", err))
	}
	if err := reporter.Complete(ctx); err != nil {
		return reporter.Fail(ctx, services.Wrap(services.ErrTransient, StageFinalize, "complete",
			"Could not mark the job completed", err))
	}

	logger.Info("stage completed",
		logging.Event("stage_complete"),
		logging.Int("text_chars", len(record.Text)),
		logging.Int("duration_seconds", record.DurationSeconds),
		logging.String("language", record.Language),
		logging.Bool("has_words", record.HasWords()),
	)
	return nil
}

// save replaces a transcript left behind by an earlier attempt of the same job.
func (f *Finalizer) save(ctx context.Context, record transcripts.Record) error {
	err := f.deps.Transcripts.Save(ctx, record)
	if !errors.Is(err, transcripts.ErrDuplicate) {
		return err
	}
	logging.WarnWithContext(logging.WithContext(ctx, f.deps.Logger), "replacing existing transcript", "transcript_replaced",
		logging.String(logging.FieldImpact, "previous transcript for this job is overwritten"),
	)
	return f.deps.Transcripts.Replace(ctx, record)
}
