package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"scribe/internal/transcript"
)

// OpenAIConfig configures an OpenAI-compatible transcription endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout bounds each call. Zero means no limit.
	Timeout time.Duration
}

// OpenAIProvider calls the audio transcription API with verbose output.
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIProvider builds a provider for cfg.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai provider requires an api key")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: cfg.Timeout,
	}, nil
}

// Name identifies the provider in logs.
func (p *OpenAIProvider) Name() string {
	return "openai:" + p.model
}

// Transcribe uploads req.AudioPath and converts the verbose response.
func (p *OpenAIProvider) Transcribe(ctx context.Context, req Request) (transcript.Result, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return transcript.Result{}, errors.New("transcribe: audio path required")
	}
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	granularities := []openai.TranscriptionTimestampGranularity{openai.TranscriptionTimestampGranularitySegment}
	if req.Words {
		granularities = append(granularities, openai.TranscriptionTimestampGranularityWord)
	}
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:                  p.model,
		FilePath:               req.AudioPath,
		Language:               requestLanguage(req.Language),
		Format:                 openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: granularities,
	})
	if err != nil {
		return transcript.Result{}, fmt.Errorf("openai transcription: %w", err)
	}
	return convertOpenAIResponse(resp, req.Words), nil
}

func convertOpenAIResponse(resp openai.AudioResponse, wantWords bool) transcript.Result {
	result := transcript.Result{
		Language: resp.Language,
		Duration: resp.Duration,
		Text:     strings.TrimSpace(resp.Text),
		Segments: make([]transcript.Segment, 0, len(resp.Segments)),
	}
	for _, seg := range resp.Segments {
		result.Segments = append(result.Segments, transcript.Segment{
			ID:    seg.ID,
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		})
	}
	// A response without a words field leaves Words nil so the merge drops
	// word timings for the whole job.
	if wantWords && resp.Words != nil {
		result.Words = make([]transcript.Word, 0, len(resp.Words))
		for _, w := range resp.Words {
			result.Words = append(result.Words, transcript.Word{Word: w.Word, Start: w.Start, End: w.End})
		}
	}
	if result.Text == "" {
		result.Text = joinSegmentText(result.Segments)
	}
	return result
}

// HealthCheck confirms the endpoint accepts the configured key.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai list models: %w", err)
	}
	return nil
}
