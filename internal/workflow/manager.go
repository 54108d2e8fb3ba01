package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/pipeline"
	"scribe/internal/queue"
)

// JobRunner runs one claimed job to a terminal state.
type JobRunner interface {
	Run(ctx context.Context, in pipeline.ExtractInput) error
}

// Manager coordinates queue processing.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	runner       JobRunner
	logger       *slog.Logger
	notifier     notifications.Service
	pollInterval time.Duration
	retryDelay   time.Duration
	maxJobs      int

	heartbeat *HeartbeatMonitor

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	active  int
	lastErr error
	lastJob *queue.Job
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, runner JobRunner, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, runner, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, runner JobRunner, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "workflow-manager")
	maxJobs := cfg.Workflow.MaxConcurrentJobs
	if maxJobs <= 0 {
		maxJobs = 1
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		runner:       runner,
		logger:       logger,
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryDelay:   time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		maxJobs:      maxJobs,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}
