package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/pipeline"
	"scribe/internal/queue"
	"scribe/internal/services"
)

func jobContext(ctx context.Context, job *queue.Job) context.Context {
	ctx = services.WithJobID(ctx, job.ID)
	if rid := strings.TrimSpace(job.RequestID); rid != "" {
		ctx = services.WithRequestID(ctx, rid)
	}
	return ctx
}

func (m *Manager) processJob(ctx context.Context, job *queue.Job) {
	ctx = jobContext(ctx, job)
	logger := logging.WithContext(ctx, m.logger)
	m.trackActive(1)
	defer m.trackActive(-1)

	started := time.Now()
	logger.Info("job started",
		logging.Event("job_start"),
		logging.String("owner_id", job.OwnerID),
		logging.String("source_name", job.SourceName),
		logging.String("media_type", string(job.MediaType)),
		logging.String("granularity", string(job.Granularity)),
	)

	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	runErr := m.runner.Run(ctx, pipeline.InputFromJob(job))
	hbCancel()
	hbWG.Wait()

	elapsed := time.Since(started)
	if runErr != nil && errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
		logger.Info("job interrupted by shutdown", logging.Event("job_interrupted"))
		return
	}
	if runErr != nil {
		m.finishFailed(ctx, job, runErr, elapsed)
		return
	}

	logger.Info("job completed",
		logging.Event("job_complete"),
		logging.Duration("job_duration", elapsed),
	)
	m.refreshLastJob(ctx, job.ID)
	if err := m.notifier.NotifyJobCompleted(ctx, notifications.Job{
		ID:       job.ID,
		Name:     job.SourceName,
		Duration: elapsed,
	}); err != nil {
		logging.WarnWithContext(logger, "completion notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no completion notification was delivered"),
		)
	}
}

// finishFailed makes sure the job is recorded as failed even when the error
// escaped the pipeline's own reporting.
func (m *Manager) finishFailed(ctx context.Context, job *queue.Job, runErr error, elapsed time.Duration) {
	logger := logging.WithContext(ctx, m.logger)
	m.setLastError(runErr)

	details := services.Details(runErr)
	if _, err := m.store.MarkFailed(context.WithoutCancel(ctx), job.ID, details.Message); err != nil {
		logging.ErrorWithContext(logger, "failed to persist job failure", "status_update_failed", logging.Error(err))
	}
	logger.Error("job failed",
		logging.Event("job_failure"),
		logging.String("error_kind", details.Kind),
		logging.Duration("job_duration", elapsed),
		logging.Error(runErr),
	)

	message := details.Message
	if current := m.refreshLastJob(ctx, job.ID); current != nil && current.ErrorMessage != "" {
		message = current.ErrorMessage
	}
	if err := m.notifier.NotifyJobFailed(ctx, notifications.Job{
		ID:    job.ID,
		Name:  job.SourceName,
		Error: message,
	}); err != nil {
		logging.WarnWithContext(logger, "failure notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no failure notification was delivered"),
		)
	}
}

func (m *Manager) refreshLastJob(ctx context.Context, id string) *queue.Job {
	current, err := m.store.GetByID(context.WithoutCancel(ctx), id)
	if err != nil {
		m.logger.Warn("failed to reload job", logging.Error(err), logging.String(logging.FieldJobID, id))
		return nil
	}
	m.setLastJob(current)
	return current
}
