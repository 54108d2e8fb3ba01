package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"scribe/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStorage := filepath.Join(tempHome, ".local", "share", "scribe", "storage")
	if cfg.Paths.StorageDir != wantStorage {
		t.Fatalf("unexpected storage dir: got %q want %q", cfg.Paths.StorageDir, wantStorage)
	}
	if cfg.STT.APIKey != "test-key" {
		t.Fatalf("expected API key from env, got %q", cfg.STT.APIKey)
	}
	if cfg.STT.Provider != config.ProviderOpenAI {
		t.Fatalf("unexpected provider: %q", cfg.STT.Provider)
	}
	if cfg.Pipeline.ChunkThresholdBytes != 20*1024*1024 {
		t.Fatalf("unexpected chunk threshold: %d", cfg.Pipeline.ChunkThresholdBytes)
	}
	if cfg.Pipeline.MaxAudioBytes != 500*1024*1024 {
		t.Fatalf("unexpected max audio bytes: %d", cfg.Pipeline.MaxAudioBytes)
	}
	if cfg.Pipeline.ChunkSeconds != 600 {
		t.Fatalf("unexpected chunk seconds: %d", cfg.Pipeline.ChunkSeconds)
	}
	if cfg.Pipeline.MaxParallelChunks != 0 {
		t.Fatalf("expected unbounded chunk fan-out by default, got %d", cfg.Pipeline.MaxParallelChunks)
	}
	if cfg.Transcripts.Backend != config.BackendSQLite {
		t.Fatalf("unexpected backend: %q", cfg.Transcripts.Backend)
	}
	if cfg.QueueDBPath() != filepath.Join(tempHome, ".local", "share", "scribe", "queue.db") {
		t.Fatalf("unexpected queue db path: %q", cfg.QueueDBPath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StorageDir, cfg.Paths.ScratchDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "scribe.toml")

	type payload struct {
		Paths struct {
			StorageDir string `toml:"storage_dir"`
		} `toml:"paths"`
		Pipeline struct {
			MaxParallelChunks int `toml:"max_parallel_chunks"`
		} `toml:"pipeline"`
		STT struct {
			Provider string `toml:"provider"`
		} `toml:"stt"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.StorageDir = filepath.Join(tempDir, "blobs")
	custom.Pipeline.MaxParallelChunks = 3
	custom.STT.Provider = "WhisperX"
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.StorageDir != filepath.Join(tempDir, "blobs") {
		t.Fatalf("unexpected storage dir: %q", cfg.Paths.StorageDir)
	}
	if cfg.Pipeline.MaxParallelChunks != 3 {
		t.Fatalf("unexpected max parallel chunks: %d", cfg.Pipeline.MaxParallelChunks)
	}
	if cfg.STT.Provider != config.ProviderWhisperX {
		t.Fatalf("expected provider to be normalized, got %q", cfg.STT.Provider)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "scribe.toml")
	if err := os.WriteFile(configPath, []byte("[stt]\nprovider = \"whisperx\"\nbogus = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to fail parsing")
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "missing api key",
			mutate:  func(c *config.Config) { c.STT.APIKey = "" },
			wantErr: "stt.api_key",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *config.Config) { c.STT.Provider = "dictaphone" },
			wantErr: "stt.provider",
		},
		{
			name: "postgres without dsn",
			mutate: func(c *config.Config) {
				c.Transcripts.Backend = config.BackendPostgres
				c.Transcripts.PostgresDSN = ""
			},
			wantErr: "transcripts.postgres_dsn",
		},
		{
			name:    "ceiling below threshold",
			mutate:  func(c *config.Config) { c.Pipeline.MaxAudioBytes = c.Pipeline.ChunkThresholdBytes },
			wantErr: "pipeline.max_audio_bytes",
		},
		{
			name:    "zero chunk seconds",
			mutate:  func(c *config.Config) { c.Pipeline.ChunkSeconds = 0 },
			wantErr: "pipeline.chunk_seconds",
		},
		{
			name: "heartbeat timeout too small",
			mutate: func(c *config.Config) {
				c.Workflow.HeartbeatInterval = 30
				c.Workflow.HeartbeatTimeout = 30
			},
			wantErr: "workflow.heartbeat_timeout",
		},
		{
			name:    "zero concurrent jobs",
			mutate:  func(c *config.Config) { c.Workflow.MaxConcurrentJobs = 0 },
			wantErr: "workflow.max_concurrent_jobs",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.STT.APIKey = "key"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestWhisperXProviderNeedsNoAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.STT.Provider = config.ProviderWhisperX
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected whisperx config without key to validate: %v", err)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sample-key")
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Pipeline.ChunkThresholdBytes != config.Default().Pipeline.ChunkThresholdBytes {
		t.Fatalf("sample threshold drifted from defaults: %d", cfg.Pipeline.ChunkThresholdBytes)
	}
}

func TestEncodeRedactsSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.STT.APIKey = "sk-secret"
	cfg.Transcripts.PostgresDSN = "postgres://user:pw@host/db"
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	text := string(data)
	if strings.Contains(text, "sk-secret") || strings.Contains(text, "pw@host") {
		t.Fatalf("expected secrets to be redacted:\n%s", text)
	}
	if cfg.STT.APIKey != "sk-secret" {
		t.Fatal("Encode must not mutate the receiver")
	}
}
