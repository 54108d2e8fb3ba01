package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/storage"
	"scribe/internal/transcript"
)

// ExtractInput identifies the upload to normalize.
type ExtractInput struct {
	JobID       string
	OwnerID     string
	SourceKey   string
	SourceName  string
	MediaType   queue.MediaType
	Language    string
	Granularity queue.Granularity
}

// InputFromJob builds the extractor input for a claimed job.
func InputFromJob(job *queue.Job) ExtractInput {
	return ExtractInput{
		JobID:       job.ID,
		OwnerID:     job.OwnerID,
		SourceKey:   job.SourceKey,
		SourceName:  job.SourceName,
		MediaType:   job.MediaType,
		Language:    job.Language,
		Granularity: job.Granularity,
	}
}

// Extractor normalizes an upload into mono 16 kHz MP3 and hands it on.
type Extractor struct {
	deps        *Deps
	splitter    *Splitter
	transcriber *Transcriber
}

// Run extracts audio for in, then dispatches and awaits the next stage.
func (e *Extractor) Run(ctx context.Context, in ExtractInput) error {
	ctx = stageContext(ctx, in.JobID, StageExtract)
	logger := logging.WithContext(ctx, e.deps.Logger)
	reporter := newReporter(e.deps.Jobs, in.JobID, logger)

	logger.Info("stage started",
		logging.Event("stage_start"),
		logging.String("source_key", in.SourceKey),
		logging.String("source_name", in.SourceName),
		logging.String("media_type", string(in.MediaType)),
	)

	audio, err := e.extract(ctx, in, reporter, logger)
	if err != nil {
		return reporter.Fail(ctx, err)
	}

	route := RouteForSize(audio.size, e.deps.Limits.ChunkThresholdBytes)
	logger.Info("route selected",
		logging.Event("route_decision"),
		logging.String("route", string(route)),
		logging.Int64("audio_bytes", audio.size),
		logging.Int64("threshold_bytes", e.deps.Limits.ChunkThresholdBytes),
	)
	logger.Info("stage completed",
		logging.Event("stage_complete"),
		logging.String("audio_key", audio.key),
		logging.Float64("duration_seconds", audio.duration),
	)

	if route == RouteChunked {
		split := SplitInput{
			JobID:       in.JobID,
			OwnerID:     in.OwnerID,
			AudioKey:    audio.key,
			Duration:    audio.duration,
			Language:    in.Language,
			Granularity: in.Granularity,
		}
		return e.deps.Dispatcher.Submit(ctx, StageSplit, func(ctx context.Context) error {
			return e.splitter.Run(ctx, split)
		}).Wait(ctx)
	}

	direct := TranscribeInput{
		JobID:       in.JobID,
		OwnerID:     in.OwnerID,
		Chunks:      []transcript.ChunkRef{{Index: 0, Key: audio.key, Offset: 0, Duration: audio.duration}},
		Duration:    audio.duration,
		Language:    in.Language,
		Granularity: in.Granularity,
	}
	return e.deps.Dispatcher.Submit(ctx, StageTranscribe, func(ctx context.Context) error {
		return e.transcriber.Run(ctx, direct)
	}).Wait(ctx)
}

type extractedAudio struct {
	key      string
	size     int64
	duration float64
}

func (e *Extractor) extract(ctx context.Context, in ExtractInput, reporter *Reporter, logger *slog.Logger) (extractedAudio, error) {
	limits := e.deps.Limits

	if err := CheckExtension(in.SourceName, in.MediaType); err != nil {
		return extractedAudio{}, services.Wrap(services.ErrValidation, StageExtract, "check format",
			fmt.Sprintf("Unsupported file: %v", err), err)
	}
	reporter.Progress(ctx, labelExtracting, PercentStarted, "Starting audio extraction")

	source, err := e.deps.Storage.Download(ctx, in.SourceKey)
	if err != nil {
		return extractedAudio{}, services.Wrap(services.ErrTransient, StageExtract, "download source",
			"Could not download the uploaded file", err)
	}
	if len(source) == 0 {
		return extractedAudio{}, services.Wrap(services.ErrValidation, StageExtract, "download source",
			"The uploaded file is empty", nil)
	}
	reporter.Progress(ctx, labelExtracting, PercentDownloaded, "Source downloaded")

	sourceExt := strings.TrimPrefix(filepath.Ext(in.SourceName), ".")
	input, err := e.deps.Scratch.Write(in.JobID, "source", 0, sourceExt, source)
	if err != nil {
		return extractedAudio{}, services.Wrap(services.ErrTransient, StageExtract, "stage source",
			"Could not write the upload to scratch space", err)
	}
	defer e.deps.release(ctx, input)

	output := e.deps.Scratch.Reserve(in.JobID, "audio", 0, "mp3")
	defer e.deps.release(ctx, output)

	if err := e.deps.Engine.Normalize(ctx, input.Path, output.Path); err != nil {
		return extractedAudio{}, services.Wrap(services.ErrExternalTool, StageExtract, "normalize",
			"Audio extraction failed", err)
	}
	e.deps.release(ctx, input)

	info, err := os.Stat(output.Path)
	if err != nil {
		return extractedAudio{}, services.Wrap(services.ErrExternalTool, StageExtract, "normalize",
			"Audio extraction produced no output", err)
	}
	size := info.Size()
	if size < limits.MinOutputBytes {
		return extractedAudio{}, services.Wrap(services.ErrSilentFailure, StageExtract, "normalize",
			fmt.Sprintf("Audio extraction produced only %d bytes; the file may have no audio track", size), nil)
	}

	probe, err := e.deps.Engine.Probe(ctx, output.Path)
	if err != nil {
		return extractedAudio{}, services.Wrap(services.ErrExternalTool, StageExtract, "probe",
			"Could not read the extracted audio", err)
	}
	logger.Info("audio normalized",
		logging.Float64("duration_seconds", probe.DurationSeconds),
		logging.String("format", probe.FormatName),
		logging.Int64("bit_rate", probe.BitRate),
		logging.Int("channels", probe.Channels),
		logging.Int("sample_rate", probe.SampleRate),
		logging.Int64("size_bytes", size),
	)
	if probe.DurationSeconds <= 0 {
		return extractedAudio{}, services.Wrap(services.ErrSilentFailure, StageExtract, "probe",
			"The extracted audio has no duration", nil)
	}
	reporter.Progress(ctx, labelExtracting, PercentNormalized, "Audio normalized")

	if limits.MaxAudioBytes > 0 && size > limits.MaxAudioBytes {
		return extractedAudio{}, services.Wrap(services.ErrValidation, StageExtract, "check size",
			fmt.Sprintf("Extracted audio is %s, above the %s limit; split the source into shorter files before uploading",
				formatMB(size), formatMB(limits.MaxAudioBytes)), nil)
	}

	data, err := os.ReadFile(output.Path)
	if err != nil {
		return extractedAudio{}, services.Wrap(services.ErrTransient, StageExtract, "read audio",
			"Could not read the extracted audio", err)
	}
	key := storage.AudioKey(in.OwnerID, in.JobID)
	if err := e.deps.Storage.Upload(ctx, key, data); err != nil {
		return extractedAudio{}, services.Wrap(services.ErrTransient, StageExtract, "upload audio",
			"Could not store the extracted audio", err)
	}
	if err := e.deps.Jobs.SetAudio(ctx, in.JobID, key, probe.DurationSeconds); err != nil {
		return extractedAudio{}, services.Wrap(services.ErrTransient, StageExtract, "record audio",
			"Could not record the extracted audio", err)
	}
	reporter.Progress(ctx, labelExtracting, PercentUploaded, "Audio uploaded")

	return extractedAudio{key: key, size: size, duration: probe.DurationSeconds}, nil
}

func formatMB(bytes int64) string {
	return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
}
