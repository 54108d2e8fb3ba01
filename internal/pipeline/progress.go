package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"scribe/internal/logging"
	"scribe/internal/services"
)

// Stage names used in logs and dispatched task names.
const (
	StageExtract    = "extract"
	StageSplit      = "split"
	StageTranscribe = "transcribe"
	StageFinalize   = "finalize"
)

// Progress milestones.
const (
	PercentStarted        = 5
	PercentDownloaded     = 15
	PercentNormalized     = 30
	PercentUploaded       = 40
	PercentSplit          = 50
	transcribeBase        = 50
	transcribeRange       = 40
	PercentTranscribed    = transcribeBase + transcribeRange
	splitRange            = PercentSplit - PercentUploaded
	labelExtracting       = "Extracting audio"
	labelSplitting        = "Splitting audio"
	labelEncoding         = "Encoding transcript"
	transcribeLabelFormat = "Transcribing chunks (%d/%d)"
)

// TranscribeProgress is the percentage after completed of total chunks.
func TranscribeProgress(completed, total int) float64 {
	if total <= 0 {
		return transcribeBase
	}
	return transcribeBase + float64(completed)*(transcribeRange/float64(total))
}

func splitProgress(completed, total int) float64 {
	if total <= 0 {
		return PercentUploaded
	}
	return PercentUploaded + float64(completed)*(splitRange/float64(total))
}

// Reporter records a job's progress and failure through the job store.
type Reporter struct {
	jobs   JobStore
	jobID  string
	logger *slog.Logger
}

func newReporter(jobs JobStore, jobID string, logger *slog.Logger) *Reporter {
	return &Reporter{jobs: jobs, jobID: jobID, logger: logger}
}

// Progress stores a progress update. Store errors are logged, not returned;
// progress is advisory and must not fail the job.
func (r *Reporter) Progress(ctx context.Context, label string, percent float64, message string) {
	if err := r.jobs.UpdateProgress(ctx, r.jobID, label, percent, message); err != nil {
		logging.WarnWithContext(r.logger, "progress update failed", "progress_update_failed",
			logging.Float64("percent", percent),
			logging.String("progress_stage", label),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job status may lag behind"),
		)
	}
}

// Fail records err as the job's failure and returns it unchanged. Only the
// first failure of a run is stored.
func (r *Reporter) Fail(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	details := services.Details(err)
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = strings.TrimSpace(err.Error())
	}
	// A cancelled run still records its failure.
	applied, storeErr := r.jobs.MarkFailed(context.WithoutCancel(ctx), r.jobID, message)
	if storeErr != nil {
		logging.ErrorWithContext(r.logger, "failed to persist job failure", "status_update_failed",
			logging.Error(storeErr),
		)
	}
	r.logger.Error("stage failed",
		logging.Event("stage_failure"),
		logging.String("error_kind", details.Kind),
		logging.String("error_message", message),
		logging.Bool("recorded", applied),
		logging.Error(err),
	)
	return err
}

// Complete marks the job completed at 100 percent.
func (r *Reporter) Complete(ctx context.Context) error {
	return r.jobs.MarkCompleted(ctx, r.jobID)
}

func stageContext(ctx context.Context, jobID, stage string) context.Context {
	return services.WithStage(services.WithJobID(ctx, jobID), stage)
}
