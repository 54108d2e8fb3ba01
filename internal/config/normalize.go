package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipeline()
	if err := c.normalizeSTT(); err != nil {
		return err
	}
	c.normalizeTranscripts()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StorageDir, err = expandPath(c.Paths.StorageDir); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = filepath.Join(os.TempDir(), "scribe-scratch")
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePipeline() {
	c.Pipeline.FFmpegBinary = strings.TrimSpace(c.Pipeline.FFmpegBinary)
	c.Pipeline.FFprobeBinary = strings.TrimSpace(c.Pipeline.FFprobeBinary)
	if c.Pipeline.SplitConcurrency <= 0 {
		c.Pipeline.SplitConcurrency = 1
	}
	if c.Pipeline.MaxParallelChunks < 0 {
		c.Pipeline.MaxParallelChunks = 0
	}
}

func (c *Config) normalizeSTT() error {
	c.STT.Provider = strings.ToLower(strings.TrimSpace(c.STT.Provider))
	if c.STT.Provider == "" {
		c.STT.Provider = defaultSTTProvider
	}
	c.STT.APIKey = strings.TrimSpace(c.STT.APIKey)
	if c.STT.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.STT.APIKey = strings.TrimSpace(value)
		}
	}
	c.STT.BaseURL = strings.TrimSpace(c.STT.BaseURL)
	c.STT.Model = strings.TrimSpace(c.STT.Model)
	if c.STT.Model == "" {
		c.STT.Model = defaultSTTModel
	}
	c.STT.WhisperXModel = strings.TrimSpace(c.STT.WhisperXModel)
	if c.STT.WhisperXModel == "" {
		c.STT.WhisperXModel = defaultWhisperXModel
	}
	if strings.TrimSpace(c.STT.WhisperXCacheDir) == "" {
		c.STT.WhisperXCacheDir = defaultWhisperXCacheDir
	}
	var err error
	if c.STT.WhisperXCacheDir, err = expandPath(c.STT.WhisperXCacheDir); err != nil {
		return fmt.Errorf("stt.whisperx_cache_dir: %w", err)
	}
	if c.STT.RequestTimeoutSeconds < 0 {
		c.STT.RequestTimeoutSeconds = 0
	}
	return nil
}

func (c *Config) normalizeTranscripts() {
	c.Transcripts.Backend = strings.ToLower(strings.TrimSpace(c.Transcripts.Backend))
	if c.Transcripts.Backend == "" {
		c.Transcripts.Backend = defaultTranscriptBackend
	}
	c.Transcripts.PostgresDSN = strings.TrimSpace(c.Transcripts.PostgresDSN)
	if c.Transcripts.PostgresDSN == "" {
		if value, ok := os.LookupEnv("SCRIBE_POSTGRES_DSN"); ok {
			c.Transcripts.PostgresDSN = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyRequestTimeout <= 0 {
		c.Notifications.NtfyRequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
