package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/storage"
	"scribe/internal/transcript"
)

// coverageTolerance bounds the gap between the chunk plan and the probed duration.
const coverageTolerance = 1.0

// SplitInput identifies normalized audio to cut into chunks.
type SplitInput struct {
	JobID       string
	OwnerID     string
	AudioKey    string
	Duration    float64
	Language    string
	Granularity queue.Granularity
}

// Splitter cuts normalized audio into fixed-duration chunks.
type Splitter struct {
	deps *Deps
	next *Transcriber
}

// Run splits in, uploads every chunk, then dispatches and awaits the transcriber.
func (s *Splitter) Run(ctx context.Context, in SplitInput) error {
	ctx = stageContext(ctx, in.JobID, StageSplit)
	logger := logging.WithContext(ctx, s.deps.Logger)
	reporter := newReporter(s.deps.Jobs, in.JobID, logger)

	logger.Info("stage started",
		logging.Event("stage_start"),
		logging.String("audio_key", in.AudioKey),
		logging.Float64("duration_seconds", in.Duration),
	)

	chunks, err := s.split(ctx, in, reporter)
	if err != nil {
		return reporter.Fail(ctx, err)
	}
	reporter.Progress(ctx, labelSplitting, PercentSplit, fmt.Sprintf("Audio split into %d chunks", len(chunks)))
	logger.Info("stage completed",
		logging.Event("stage_complete"),
		logging.Int("chunk_count", len(chunks)),
	)

	next := TranscribeInput{
		JobID:       in.JobID,
		OwnerID:     in.OwnerID,
		Chunks:      chunks,
		Duration:    in.Duration,
		Language:    in.Language,
		Granularity: in.Granularity,
	}
	return s.deps.Dispatcher.Submit(ctx, StageTranscribe, func(ctx context.Context) error {
		return s.next.Run(ctx, next)
	}).Wait(ctx)
}

func (s *Splitter) split(ctx context.Context, in SplitInput, reporter *Reporter) ([]transcript.ChunkRef, error) {
	plan := transcript.PlanChunks(in.Duration, s.deps.Limits.ChunkSeconds)
	if len(plan) == 0 {
		return nil, services.Wrap(services.ErrValidation, StageSplit, "plan chunks",
			"The extracted audio has no duration", nil)
	}
	reporter.Progress(ctx, labelSplitting, PercentUploaded, fmt.Sprintf("Splitting audio into %d chunks", len(plan)))

	audio, err := s.deps.Storage.Download(ctx, in.AudioKey)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, StageSplit, "download audio",
			"Could not download the extracted audio", err)
	}
	source, err := s.deps.Scratch.Write(in.JobID, "split-source", 0, "mp3", audio)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, StageSplit, "stage audio",
			"Could not write the audio to scratch space", err)
	}
	defer s.deps.release(ctx, source)

	chunks := make([]transcript.ChunkRef, len(plan))
	var done atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	if n := s.deps.Limits.SplitConcurrency; n > 0 {
		group.SetLimit(n)
	}
	for i, chunk := range plan {
		group.Go(func() error {
			ref, err := s.cutChunk(groupCtx, in, source.Path, i, chunk)
			if err != nil {
				return err
			}
			chunks[i] = ref
			completed := int(done.Add(1))
			reporter.Progress(ctx, labelSplitting, splitProgress(completed, len(plan)),
				fmt.Sprintf("Created chunk %d of %d", completed, len(plan)))
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	chunks = transcript.SortChunks(chunks)
	if err := transcript.ValidateCoverage(chunks, in.Duration, coverageTolerance); err != nil {
		return nil, services.Wrap(services.ErrValidation, StageSplit, "validate chunks",
			"Audio chunks do not cover the full recording", err)
	}
	return chunks, nil
}

func (s *Splitter) cutChunk(ctx context.Context, in SplitInput, sourcePath string, index int, chunk transcript.ChunkRef) (transcript.ChunkRef, error) {
	out := s.deps.Scratch.Reserve(in.JobID, "chunk", index, "mp3")
	defer s.deps.release(ctx, out)

	if err := s.deps.Engine.Segment(ctx, sourcePath, chunk.Offset, chunk.Duration, out.Path); err != nil {
		return transcript.ChunkRef{}, services.Wrap(services.ErrExternalTool, StageSplit, "segment",
			"Splitting the audio failed", err)
	}
	data, err := os.ReadFile(out.Path)
	if err != nil {
		return transcript.ChunkRef{}, services.Wrap(services.ErrExternalTool, StageSplit, "segment",
			"Splitting the audio produced no output", err)
	}
	key := storage.ChunkKey(in.OwnerID, in.JobID, index)
	if err := s.deps.Storage.Upload(ctx, key, data); err != nil {
		return transcript.ChunkRef{}, services.Wrap(services.ErrTransient, StageSplit, "upload chunk",
			"Could not store an audio chunk", err)
	}
	chunk.Key = key
	return chunk, nil
}
