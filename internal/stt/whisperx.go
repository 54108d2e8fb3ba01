package stt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"scribe/internal/language"
	"scribe/internal/transcript"
)

// WhisperX invocation constants.
const (
	DefaultWhisperXModel = "large-v3"
	CUDAIndexURL         = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL         = "https://pypi.org/simple"
	UVXCommand           = "uvx"

	whisperXBatchSize      = "4"
	whisperXChunkSize      = "15"
	whisperXVADOnset       = "0.08"
	whisperXVADOffset      = "0.07"
	whisperXBeamSize       = "10"
	whisperXBestOf         = "10"
	whisperXTemperature    = "0.0"
	whisperXPatience       = "1.0"
	whisperXSegmentRes     = "sentence"
	whisperXOutputFormat   = "json"
	whisperXVADMethod      = "silero"
	whisperXCPUDevice      = "cpu"
	whisperXCUDADevice     = "cuda"
	whisperXCPUComputeType = "float32"
)

// WhisperXConfig captures runtime settings for the local provider.
type WhisperXConfig struct {
	Model       string
	CUDAEnabled bool
	// CacheDir holds downloaded models between runs.
	CacheDir string
	Timeout  time.Duration
}

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// WhisperXProvider transcribes with WhisperX launched through uvx.
type WhisperXProvider struct {
	cfg    WhisperXConfig
	runner CommandRunner
}

// NewWhisperXProvider builds a provider for cfg.
func NewWhisperXProvider(cfg WhisperXConfig) *WhisperXProvider {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultWhisperXModel
	}
	return &WhisperXProvider{cfg: cfg, runner: execCommand}
}

// WithCommandRunner replaces process execution.
func (p *WhisperXProvider) WithCommandRunner(runner CommandRunner) *WhisperXProvider {
	if runner != nil {
		p.runner = runner
	}
	return p
}

// Name identifies the provider in logs.
func (p *WhisperXProvider) Name() string {
	return "whisperx:" + p.cfg.Model
}

// Transcribe runs WhisperX on req.AudioPath and parses its JSON output.
func (p *WhisperXProvider) Transcribe(ctx context.Context, req Request) (transcript.Result, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return transcript.Result{}, errors.New("transcribe: audio path required")
	}
	ctx, cancel := withTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	outputDir, err := os.MkdirTemp(filepath.Dir(req.AudioPath), "whisperx-")
	if err != nil {
		return transcript.Result{}, fmt.Errorf("whisperx: create output dir: %w", err)
	}
	defer os.RemoveAll(outputDir)

	if err := p.runner(ctx, UVXCommand, p.buildArgs(req.AudioPath, outputDir, req.Language)...); err != nil {
		return transcript.Result{}, fmt.Errorf("whisperx: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(req.AudioPath), filepath.Ext(req.AudioPath))
	data, err := os.ReadFile(filepath.Join(outputDir, base+".json"))
	if err != nil {
		return transcript.Result{}, fmt.Errorf("whisperx: read output: %w", err)
	}
	return parseWhisperXOutput(data, req.Words)
}

func (p *WhisperXProvider) buildArgs(source, outputDir, lang string) []string {
	args := make([]string, 0, 40)
	if p.cfg.CUDAEnabled {
		args = append(args, "--index-url", CUDAIndexURL, "--extra-index-url", PypiIndexURL)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", p.cfg.Model,
		"--batch_size", whisperXBatchSize,
		"--output_dir", outputDir,
		"--output_format", whisperXOutputFormat,
		"--segment_resolution", whisperXSegmentRes,
		"--chunk_size", whisperXChunkSize,
		"--vad_onset", whisperXVADOnset,
		"--vad_offset", whisperXVADOffset,
		"--vad_method", whisperXVADMethod,
		"--beam_size", whisperXBeamSize,
		"--best_of", whisperXBestOf,
		"--temperature", whisperXTemperature,
		"--patience", whisperXPatience,
	)
	if dir := strings.TrimSpace(p.cfg.CacheDir); dir != "" {
		args = append(args, "--model_dir", dir)
	}
	if code := language.ToISO2(requestLanguage(lang)); code != "" {
		args = append(args, "--language", code)
	}
	if p.cfg.CUDAEnabled {
		args = append(args, "--device", whisperXCUDADevice)
	} else {
		args = append(args, "--device", whisperXCPUDevice, "--compute_type", whisperXCPUComputeType)
	}
	return args
}

type whisperXWord struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

type whisperXSegment struct {
	Text  string         `json:"text"`
	Start float64        `json:"start"`
	End   float64        `json:"end"`
	Words []whisperXWord `json:"words"`
}

type whisperXPayload struct {
	Language string            `json:"language"`
	Segments []whisperXSegment `json:"segments"`
}

func parseWhisperXOutput(data []byte, wantWords bool) (transcript.Result, error) {
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return transcript.Result{}, fmt.Errorf("parse whisperx json: %w", err)
	}

	result := transcript.Result{
		Language: payload.Language,
		Segments: make([]transcript.Segment, 0, len(payload.Segments)),
	}
	for i, seg := range payload.Segments {
		result.Segments = append(result.Segments, transcript.Segment{
			ID:    i,
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		})
		if seg.End > result.Duration {
			result.Duration = seg.End
		}
		if !wantWords || seg.Words == nil {
			continue
		}
		if result.Words == nil {
			result.Words = []transcript.Word{}
		}
		for _, w := range seg.Words {
			// Alignment leaves numerals and symbols without timings.
			if w.Start == nil || w.End == nil {
				continue
			}
			result.Words = append(result.Words, transcript.Word{Word: w.Word, Start: *w.Start, End: *w.End})
		}
	}
	result.Text = joinSegmentText(result.Segments)
	return result, nil
}

func execCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
