package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/scratch"
	"scribe/internal/workflow"
)

// Daemon runs the workflow manager and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, recovers from a previous run, and launches
// the workflow manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scribe worker is already running")
	}

	d.recover(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("scribe worker started",
		logging.String("lock", d.lockPath),
		logging.Int("max_concurrent_jobs", d.cfg.Workflow.MaxConcurrentJobs),
		logging.Event("daemon_start"),
	)
	return nil
}

// recover fails jobs orphaned by a crashed worker and clears its scratch files.
func (d *Daemon) recover(ctx context.Context) {
	failed, err := d.store.FailOrphaned(ctx)
	if err != nil {
		logging.WarnWithContext(d.logger, "failed to fail orphaned jobs", "orphan_recovery_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.String(logging.FieldImpact, "jobs from a previous run may stay in processing until their heartbeat expires"),
		)
	} else if failed > 0 {
		logging.WarnWithContext(d.logger, "failed jobs orphaned by previous worker", "orphan_recovery",
			logging.Int64("count", failed),
			logging.String(logging.FieldErrorHint, "retry them with scribe retry"),
			logging.String(logging.FieldImpact, "jobs marked failed with "+queue.WorkerStopReason),
		)
	}

	maxAge := time.Duration(d.cfg.Workflow.HeartbeatTimeout) * time.Second
	result := scratch.CleanStale(ctx, d.cfg.Paths.ScratchDir, maxAge, d.logger)
	if len(result.Removed) > 0 {
		d.logger.Info("cleared abandoned scratch files", logging.Int("count", len(result.Removed)))
	}
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("scribe worker stopped", logging.Event("daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Status reports the daemon and workflow state.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Workflow:     d.workflow.Status(ctx),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
}
