package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/stt"
	"scribe/internal/transcript"
)

// TranscribeInput lists the chunks of one job.
type TranscribeInput struct {
	JobID       string
	OwnerID     string
	Chunks      []transcript.ChunkRef
	Duration    float64
	Language    string
	Granularity queue.Granularity
}

// Transcriber sends every chunk to the provider concurrently and merges the
// results in chronological order.
type Transcriber struct {
	deps *Deps
	next *Finalizer
}

// Run transcribes in, then dispatches and awaits the finalizer.
func (t *Transcriber) Run(ctx context.Context, in TranscribeInput) error {
	ctx = stageContext(ctx, in.JobID, StageTranscribe)
	logger := logging.WithContext(ctx, t.deps.Logger)
	reporter := newReporter(t.deps.Jobs, in.JobID, logger)

	logger.Info("stage started",
		logging.Event("stage_start"),
		logging.Int("chunk_count", len(in.Chunks)),
		logging.String("provider", t.deps.Provider.Name()),
		logging.String("language", in.Language),
		logging.String("granularity", string(in.Granularity)),
	)

	merged, err := t.transcribe(ctx, in, reporter)
	if err != nil {
		return reporter.Fail(ctx, err)
	}
	logger.Info("stage completed",
		logging.Event("stage_complete"),
		logging.Int("segment_count", len(merged.Segments)),
		logging.Float64("duration_seconds", merged.Duration),
		logging.String("detected_language", merged.Language),
	)

	final := FinalizeInput{JobID: in.JobID, Result: merged}
	return t.deps.Dispatcher.Submit(ctx, StageFinalize, func(ctx context.Context) error {
		return t.next.Run(ctx, final)
	}).Wait(ctx)
}

func (t *Transcriber) transcribe(ctx context.Context, in TranscribeInput, reporter *Reporter) (transcript.Result, error) {
	total := len(in.Chunks)
	if total == 0 {
		return transcript.Result{}, services.Wrap(services.ErrValidation, StageTranscribe, "plan",
			"There is no audio to transcribe", nil)
	}
	reporter.Progress(ctx, fmt.Sprintf(transcribeLabelFormat, 0, total), transcribeBase, "Sending audio to the transcription service")

	results := make([]transcript.ChunkResult, total)
	var completed atomic.Int64

	// A failing chunk does not cancel its siblings.
	var group errgroup.Group
	if n := t.deps.Limits.MaxParallelChunks; n > 0 {
		group.SetLimit(n)
	}
	for i, chunk := range in.Chunks {
		group.Go(func() error {
			chunkCtx := services.WithChunkIndex(ctx, chunk.Index)
			result, err := t.transcribeChunk(chunkCtx, in, chunk)
			if err != nil {
				logging.WithContext(chunkCtx, t.deps.Logger).Warn("chunk transcription failed",
					logging.Event("chunk_failure"),
					logging.String("chunk_key", chunk.Key),
					logging.Float64("offset_seconds", chunk.Offset),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "retry the job once the provider recovers"),
					logging.String(logging.FieldImpact, "job will fail"),
				)
				return err
			}
			results[i] = transcript.ChunkResult{Chunk: chunk, Result: result}
			done := int(completed.Add(1))
			reporter.Progress(ctx, fmt.Sprintf(transcribeLabelFormat, done, total), TranscribeProgress(done, total),
				fmt.Sprintf("Transcribed %d of %d chunks", done, total))
			logging.WithContext(chunkCtx, t.deps.Logger).Info("chunk transcribed",
				logging.Event("chunk_complete"),
				logging.Int("segments", len(result.Segments)),
				logging.Int("completed", done),
				logging.Int("total", total),
			)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return transcript.Result{}, services.Wrap(services.ErrChunkFailed, StageTranscribe, "transcribe",
			"Transcription failed for part of the recording; retry the job", err)
	}
	return transcript.Merge(results), nil
}

func (t *Transcriber) transcribeChunk(ctx context.Context, in TranscribeInput, chunk transcript.ChunkRef) (transcript.Result, error) {
	data, err := t.deps.Storage.Download(ctx, chunk.Key)
	if err != nil {
		return transcript.Result{}, fmt.Errorf("download chunk: %w", err)
	}
	file, err := t.deps.Scratch.Write(in.JobID, "transcribe", chunk.Index, "mp3", data)
	if err != nil {
		return transcript.Result{}, fmt.Errorf("stage chunk: %w", err)
	}
	defer t.deps.release(ctx, file)

	started := time.Now()
	result, err := t.deps.Provider.Transcribe(ctx, stt.Request{
		AudioPath: file.Path,
		Language:  in.Language,
		Words:     in.Granularity == queue.GranularityWord,
	})
	if err != nil {
		return transcript.Result{}, fmt.Errorf("provider %s after %s: %w", t.deps.Provider.Name(), time.Since(started).Round(time.Millisecond), err)
	}
	return result.Shift(chunk.Offset), nil
}
