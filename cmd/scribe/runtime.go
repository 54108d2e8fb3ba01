package main

import (
	"context"
	"fmt"
	"log/slog"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/media/ffmpeg"
	"scribe/internal/notifications"
	"scribe/internal/pipeline"
	"scribe/internal/queue"
	"scribe/internal/scratch"
	"scribe/internal/storage"
	"scribe/internal/stt"
	"scribe/internal/transcripts"
	"scribe/internal/workflow"
)

// runtimeFactories builds the external collaborators of the worker. Tests
// replace them with fakes.
type runtimeFactories struct {
	engine   func(cfg *config.Config) pipeline.AudioEngine
	provider func(cfg *config.Config) (stt.Provider, error)
	notifier func(cfg *config.Config) notifications.Service
	logger   func(cfg *config.Config) (*slog.Logger, error)
}

func defaultFactories() runtimeFactories {
	return runtimeFactories{
		engine: func(cfg *config.Config) pipeline.AudioEngine {
			return ffmpeg.NewEngine(cfg.FFmpegBinary(), cfg.FFprobeBinary())
		},
		provider: stt.New,
		notifier: notifications.NewService,
		logger:   logging.NewFromConfig,
	}
}

// workerRuntime holds everything "scribe run" needs to process jobs.
type workerRuntime struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *queue.Store
	transcripts transcripts.Store
	dispatcher  *workflow.Dispatcher
	manager     *workflow.Manager
}

func (c *commandContext) openWorker(ctx context.Context) (*workerRuntime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.factories.logger(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}
	rt := &workerRuntime{cfg: cfg, logger: logger, store: store}

	files, err := storage.NewFSStore(cfg.Paths.StorageDir)
	if err != nil {
		rt.Close()
		return nil, err
	}
	scratchDir, err := scratch.New(cfg.Paths.ScratchDir)
	if err != nil {
		rt.Close()
		return nil, err
	}
	provider, err := c.factories.provider(cfg)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("stt provider: %w", err)
	}
	rt.transcripts, err = transcripts.Open(ctx, cfg, store)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open transcript store: %w", err)
	}

	rt.dispatcher = workflow.NewDispatcher(logger)
	p, err := pipeline.New(pipeline.Deps{
		Limits:      pipeline.LimitsFromConfig(cfg),
		Storage:     files,
		Scratch:     scratchDir,
		Engine:      c.factories.engine(cfg),
		Provider:    provider,
		Transcripts: rt.transcripts,
		Jobs:        store,
		Dispatcher:  rt.dispatcher,
		Logger:      logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.manager = workflow.NewManagerWithNotifier(cfg, store, p, logger, c.factories.notifier(cfg))
	return rt, nil
}

// Close waits for dispatched tasks and releases stores.
func (r *workerRuntime) Close() {
	if r == nil {
		return
	}
	if r.dispatcher != nil {
		r.dispatcher.Wait()
	}
	if r.transcripts != nil {
		if err := r.transcripts.Close(); err != nil {
			r.logger.Warn("close transcript store", logging.Error(err))
		}
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Warn("close queue store", logging.Error(err))
		}
	}
}

// openTranscripts opens the configured transcript store next to store.
func (c *commandContext) openTranscripts(ctx context.Context, store *queue.Store) (transcripts.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	ts, err := transcripts.Open(ctx, cfg, store)
	if err != nil {
		return nil, fmt.Errorf("open transcript store: %w", err)
	}
	return ts, nil
}
