package stt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scribe/internal/config"
	"scribe/internal/transcript"
)

// Request describes one transcription call.
type Request struct {
	// AudioPath is a local file holding the audio.
	AudioPath string
	// Language is an ISO 639-1 code, or "auto"/empty for detection.
	Language string
	// Words asks for word-level timestamps in addition to segments.
	Words bool
}

// Provider transcribes a single audio file.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, req Request) (transcript.Result, error)
}

// New builds the provider selected by cfg.
func New(cfg *config.Config) (Provider, error) {
	timeout := time.Duration(cfg.STT.RequestTimeoutSeconds) * time.Second
	switch strings.ToLower(strings.TrimSpace(cfg.STT.Provider)) {
	case config.ProviderOpenAI, "":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:  cfg.STT.APIKey,
			BaseURL: cfg.STT.BaseURL,
			Model:   cfg.STT.Model,
			Timeout: timeout,
		})
	case config.ProviderWhisperX:
		return NewWhisperXProvider(WhisperXConfig{
			Model:       cfg.STT.WhisperXModel,
			CUDAEnabled: cfg.STT.WhisperXCUDAEnabled,
			CacheDir:    cfg.STT.WhisperXCacheDir,
			Timeout:     timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported stt provider %q", cfg.STT.Provider)
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func requestLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "auto" {
		return ""
	}
	return lang
}

func joinSegmentText(segments []transcript.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
