package config

const (
	defaultConfigPath          = "~/.config/scribe/config.toml"
	defaultStorageDir          = "~/.local/share/scribe/storage"
	defaultScratchDir          = "~/.local/share/scribe/scratch"
	defaultStateDir            = "~/.local/share/scribe"
	defaultLogDir              = "~/.local/share/scribe/logs"
	defaultWhisperXCacheDir    = "~/.local/share/scribe/cache/whisperx"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultChunkThresholdBytes = 20 * 1024 * 1024
	defaultMaxAudioBytes       = 500 * 1024 * 1024
	defaultMinOutputBytes      = 1000
	defaultChunkSeconds        = 600
	defaultSplitConcurrency    = 4
	defaultSTTProvider         = ProviderOpenAI
	defaultSTTModel            = "whisper-1"
	defaultWhisperXModel       = "large-v3"
	defaultTranscriptBackend   = BackendSQLite
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultHeartbeatInterval   = 15
	defaultHeartbeatTimeout    = 120
	defaultMaxConcurrentJobs   = 2
	defaultNtfyRequestTimeout  = 10
)

// Supported speech-to-text providers.
const (
	ProviderOpenAI   = "openai"
	ProviderWhisperX = "whisperx"
)

// Supported transcript backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageDir: defaultStorageDir,
			ScratchDir: defaultScratchDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Pipeline: Pipeline{
			FFmpegBinary:        defaultFFmpegBinary,
			FFprobeBinary:       defaultFFprobeBinary,
			ChunkThresholdBytes: defaultChunkThresholdBytes,
			MaxAudioBytes:       defaultMaxAudioBytes,
			MinOutputBytes:      defaultMinOutputBytes,
			ChunkSeconds:        defaultChunkSeconds,
			SplitConcurrency:    defaultSplitConcurrency,
		},
		STT: STT{
			Provider:         defaultSTTProvider,
			Model:            defaultSTTModel,
			WhisperXModel:    defaultWhisperXModel,
			WhisperXCacheDir: defaultWhisperXCacheDir,
		},
		Transcripts: Transcripts{
			Backend: defaultTranscriptBackend,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			MaxConcurrentJobs:  defaultMaxConcurrentJobs,
		},
		Notifications: Notifications{
			NtfyRequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
