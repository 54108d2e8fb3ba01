package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/media/ffprobe"
	"scribe/internal/scratch"
	"scribe/internal/storage"
	"scribe/internal/stt"
	"scribe/internal/transcripts"
)

// AudioEngine performs the ffmpeg work of the pipeline.
type AudioEngine interface {
	Normalize(ctx context.Context, input, output string) error
	Segment(ctx context.Context, input string, offset, duration float64, output string) error
	Probe(ctx context.Context, path string) (ffprobe.AudioSummary, error)
}

// JobStore records job progress and transitions.
type JobStore interface {
	UpdateProgress(ctx context.Context, id, stage string, percent float64, message string) error
	SetAudio(ctx context.Context, id, audioKey string, durationSeconds float64) error
	MarkFailed(ctx context.Context, id, message string) (bool, error)
	MarkCompleted(ctx context.Context, id string) error
}

// Task is one independently scheduled unit of work.
type Task func(ctx context.Context) error

// Handle awaits a submitted task.
type Handle interface {
	Wait(ctx context.Context) error
}

// Dispatcher schedules tasks.
type Dispatcher interface {
	Submit(ctx context.Context, name string, task Task) Handle
}

// Limits holds the size and fan-out settings of the pipeline.
type Limits struct {
	ChunkThresholdBytes int64
	MaxAudioBytes       int64
	MinOutputBytes      int64
	ChunkSeconds        float64
	SplitConcurrency    int
	// MaxParallelChunks bounds provider calls. Zero means unbounded.
	MaxParallelChunks int
}

// LimitsFromConfig reads Limits from the pipeline section.
func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{
		ChunkThresholdBytes: cfg.Pipeline.ChunkThresholdBytes,
		MaxAudioBytes:       cfg.Pipeline.MaxAudioBytes,
		MinOutputBytes:      cfg.Pipeline.MinOutputBytes,
		ChunkSeconds:        float64(cfg.Pipeline.ChunkSeconds),
		SplitConcurrency:    cfg.Pipeline.SplitConcurrency,
		MaxParallelChunks:   cfg.Pipeline.MaxParallelChunks,
	}
}

// Deps are the collaborators shared by every stage.
type Deps struct {
	Limits      Limits
	Storage     storage.Store
	Scratch     *scratch.Dir
	Engine      AudioEngine
	Provider    stt.Provider
	Transcripts transcripts.Store
	Jobs        JobStore
	Dispatcher  Dispatcher
	Logger      *slog.Logger
	Now         func() time.Time
}

func (d *Deps) validate() error {
	switch {
	case d.Storage == nil:
		return errors.New("pipeline: storage is required")
	case d.Scratch == nil:
		return errors.New("pipeline: scratch dir is required")
	case d.Engine == nil:
		return errors.New("pipeline: audio engine is required")
	case d.Provider == nil:
		return errors.New("pipeline: stt provider is required")
	case d.Transcripts == nil:
		return errors.New("pipeline: transcript store is required")
	case d.Jobs == nil:
		return errors.New("pipeline: job store is required")
	case d.Dispatcher == nil:
		return errors.New("pipeline: dispatcher is required")
	case d.Limits.ChunkSeconds <= 0:
		return errors.New("pipeline: chunk length must be positive")
	}
	return nil
}

// Pipeline wires the four stages together.
type Pipeline struct {
	Extractor   *Extractor
	Splitter    *Splitter
	Transcriber *Transcriber
	Finalizer   *Finalizer
	deps        *Deps
}

// New builds the stage chain over deps.
func New(deps Deps) (*Pipeline, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	d := &deps
	p := &Pipeline{deps: d}
	p.Finalizer = &Finalizer{deps: d}
	p.Transcriber = &Transcriber{deps: d, next: p.Finalizer}
	p.Splitter = &Splitter{deps: d, next: p.Transcriber}
	p.Extractor = &Extractor{deps: d, splitter: p.Splitter, transcriber: p.Transcriber}
	return p, nil
}

// Run dispatches the extractor for in and waits for the whole chain.
func (p *Pipeline) Run(ctx context.Context, in ExtractInput) error {
	return p.deps.Dispatcher.Submit(ctx, StageExtract, func(ctx context.Context) error {
		return p.Extractor.Run(ctx, in)
	}).Wait(ctx)
}

// release removes a scratch file and logs a failed removal. Later calls for
// the same handle are no-ops.
func (d *Deps) release(ctx context.Context, h *scratch.Handle) {
	if err := h.Release(); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, d.Logger), "scratch file not removed", "scratch_release_failed",
			logging.String("path", h.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check scratch_dir permissions; daemon start clears stale files"),
			logging.String(logging.FieldImpact, "scratch space is not reclaimed until cleanup"),
		)
	}
}
