package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateSTT(); err != nil {
		return err
	}
	if err := c.validateTranscripts(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StorageDir) == "" {
		return errors.New("paths.storage_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.ChunkThresholdBytes <= 0 {
		return errors.New("pipeline.chunk_threshold_bytes must be positive")
	}
	if c.Pipeline.MaxAudioBytes <= c.Pipeline.ChunkThresholdBytes {
		return errors.New("pipeline.max_audio_bytes must be greater than pipeline.chunk_threshold_bytes")
	}
	if c.Pipeline.MinOutputBytes < 0 {
		return errors.New("pipeline.min_output_bytes must be >= 0")
	}
	if c.Pipeline.ChunkSeconds <= 0 {
		return errors.New("pipeline.chunk_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSTT() error {
	switch c.STT.Provider {
	case ProviderOpenAI:
		if c.STT.APIKey == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("stt.api_key is required for the openai provider. Set OPENAI_API_KEY env var or edit %s (create with 'scribe config init')", defaultPath)
		}
	case ProviderWhisperX:
	default:
		return fmt.Errorf("stt.provider: unsupported value %q (want %s or %s)", c.STT.Provider, ProviderOpenAI, ProviderWhisperX)
	}
	return nil
}

func (c *Config) validateTranscripts() error {
	switch c.Transcripts.Backend {
	case BackendSQLite:
	case BackendPostgres:
		if c.Transcripts.PostgresDSN == "" {
			return errors.New("transcripts.postgres_dsn must be set when transcripts.backend is postgres (or set SCRIBE_POSTGRES_DSN)")
		}
	default:
		return fmt.Errorf("transcripts.backend: unsupported value %q", c.Transcripts.Backend)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.max_concurrent_jobs":  c.Workflow.MaxConcurrentJobs,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
