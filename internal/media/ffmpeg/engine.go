package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"scribe/internal/media/ffprobe"
)

const (
	sampleRate = "16000"
	channels   = "1"
	bitrate    = "128k"
	container  = "mp3"
	// stderrTailLines bounds the engine output carried in errors.
	stderrTailLines = 8
)

var errNoAudioStream = errors.New("no audio stream")

// ToolError reports a failed ffmpeg or ffprobe invocation.
type ToolError struct {
	Tool     string
	ExitCode int
	Output   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Engine runs ffmpeg and ffprobe.
type Engine struct {
	ffmpegBinary  string
	ffprobeBinary string
	runner        Runner
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunner replaces process execution.
func WithRunner(runner Runner) Option {
	return func(e *Engine) {
		if runner != nil {
			e.runner = runner
		}
	}
}

// NewEngine builds an engine for the given binaries. Blank names fall back to
// ffmpeg and ffprobe on PATH.
func NewEngine(ffmpegBinary, ffprobeBinary string, opts ...Option) *Engine {
	e := &Engine{
		ffmpegBinary:  strings.TrimSpace(ffmpegBinary),
		ffprobeBinary: strings.TrimSpace(ffprobeBinary),
		runner:        ExecRunner{},
	}
	if e.ffmpegBinary == "" {
		e.ffmpegBinary = "ffmpeg"
	}
	if e.ffprobeBinary == "" {
		e.ffprobeBinary = "ffprobe"
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Normalize converts input into mono 16 kHz 128 kbps MP3 at output, dropping
// any video stream.
func (e *Engine) Normalize(ctx context.Context, input, output string) error {
	return e.runFFmpeg(ctx, output, NormalizeArgs(input, output))
}

// Segment cuts [offset, offset+duration) seconds of input into output,
// re-encoded with the normalization settings.
func (e *Engine) Segment(ctx context.Context, input string, offset, duration float64, output string) error {
	if duration <= 0 {
		return fmt.Errorf("segment duration must be positive, got %v", duration)
	}
	return e.runFFmpeg(ctx, output, SegmentArgs(input, offset, duration, output))
}

// Probe inspects an audio file with ffprobe.
func (e *Engine) Probe(ctx context.Context, path string) (ffprobe.AudioSummary, error) {
	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
	res, err := e.runner.Run(ctx, e.ffprobeBinary, args...)
	if err != nil {
		return ffprobe.AudioSummary{}, &ToolError{Tool: "ffprobe", ExitCode: res.ExitCode, Output: tail(res.Stderr), Err: err}
	}
	parsed, err := ffprobe.Parse([]byte(res.Stdout))
	if err != nil {
		return ffprobe.AudioSummary{}, err
	}
	summary := parsed.Audio()
	if summary.AudioStreams == 0 {
		return summary, &ToolError{Tool: "ffprobe", Output: "no audio stream in " + filepath.Base(path), Err: errNoAudioStream}
	}
	return summary, nil
}

func (e *Engine) runFFmpeg(ctx context.Context, output string, args []string) error {
	res, err := e.runner.Run(ctx, e.ffmpegBinary, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &ToolError{Tool: "ffmpeg", ExitCode: res.ExitCode, Output: tail(res.Stderr), Err: err}
	}
	if _, statErr := os.Stat(output); statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			return &ToolError{Tool: "ffmpeg", Output: "completed but output file is missing", Err: statErr}
		}
		return statErr
	}
	return nil
}

// NormalizeArgs builds the ffmpeg arguments for normalization.
func NormalizeArgs(input, output string) []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", input}
	return append(args, encodeArgs(output)...)
}

// SegmentArgs builds the ffmpeg arguments for cutting one segment.
func SegmentArgs(input string, offset, duration float64, output string) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-ss", formatSeconds(offset),
		"-t", formatSeconds(duration),
		"-i", input,
	}
	return append(args, encodeArgs(output)...)
}

func encodeArgs(output string) []string {
	return []string{
		"-vn",
		"-ac", channels,
		"-ar", sampleRate,
		"-b:a", bitrate,
		"-f", container,
		output,
	}
}

func formatSeconds(value float64) string {
	if value < 0 {
		value = 0
	}
	return strconv.FormatFloat(value, 'f', 3, 64)
}

func tail(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > stderrTailLines {
		lines = lines[len(lines)-stderrTailLines:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
