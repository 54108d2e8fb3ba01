package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/media/ffprobe"
	"scribe/internal/notifications"
	"scribe/internal/pipeline"
	"scribe/internal/queue"
	"scribe/internal/stt"
	"scribe/internal/testsupport"
	"scribe/internal/transcript"
)

type stubEngine struct{}

func (stubEngine) Normalize(_ context.Context, _, output string) error {
	return os.WriteFile(output, bytes.Repeat([]byte{0xff}, 4096), 0o600)
}

func (stubEngine) Segment(_ context.Context, _ string, _, _ float64, output string) error {
	return os.WriteFile(output, []byte("chunk"), 0o600)
}

func (stubEngine) Probe(context.Context, string) (ffprobe.AudioSummary, error) {
	return ffprobe.AudioSummary{DurationSeconds: 42, FormatName: "mp3", Channels: 1, SampleRate: 16000}, nil
}

type stubProvider struct {
	fail bool
}

func (stubProvider) Name() string { return "stub" }

func (p stubProvider) Transcribe(_ context.Context, req stt.Request) (transcript.Result, error) {
	if p.fail {
		return transcript.Result{}, errors.New("provider unavailable")
	}
	result := transcript.Result{
		Language: "en",
		Duration: 42,
		Text:     "hello from scribe",
		Segments: []transcript.Segment{{ID: 0, Start: 0, End: 42, Text: "hello from scribe"}},
	}
	if req.Words {
		result.Words = []transcript.Word{{Word: "hello", Start: 0, End: 10}}
	}
	return result, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []notifications.Job
	failed    []notifications.Job
	tests     int
}

func (n *recordingNotifier) NotifyJobCompleted(_ context.Context, job notifications.Job) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, job)
	return nil
}

func (n *recordingNotifier) NotifyJobFailed(_ context.Context, job notifications.Job) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, job)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tests++
	return nil
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	notifier   *recordingNotifier
	provider   stubProvider
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "scribe.toml")
	env := &cliTestEnv{cfg: cfg, configPath: configPath, notifier: &recordingNotifier{}}
	env.writeConfig(t)
	return env
}

func (e *cliTestEnv) writeConfig(t *testing.T) {
	t.Helper()
	data, err := toml.Marshal(e.cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(e.configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) factories() runtimeFactories {
	return runtimeFactories{
		engine:   func(*config.Config) pipeline.AudioEngine { return stubEngine{} },
		provider: func(*config.Config) (stt.Provider, error) { return e.provider, nil },
		notifier: func(*config.Config) notifications.Service { return e.notifier },
		logger:   func(*config.Config) (*slog.Logger, error) { return logging.NewNop(), nil },
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommandWith(e.factories())
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func (e *cliTestEnv) writeUpload(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(testsupport.BaseDir(e.cfg), name)
	testsupport.WriteFile(t, path, 2048)
	return path
}

func (e *cliTestEnv) onlyJob(t *testing.T) *queue.Job {
	t.Helper()
	store := testsupport.MustOpenStore(t, e.cfg)
	jobs, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs))
	}
	return jobs[0]
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.STT.APIKey = "sk-very-secret"
	env.writeConfig(t)

	out, err := env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "sk-very-secret") {
		t.Fatalf("api key leaked: %s", out)
	}
	requireContains(t, out, "<redacted>")
}

func TestSubmitQueuesJobWithUpload(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.writeUpload(t, "interview.m4a")

	out, err := env.run(t, "submit", path, "--owner", "alice", "--language", "German", "--granularity", "word")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "Queued job")

	job := env.onlyJob(t)
	if job.OwnerID != "alice" || job.MediaType != queue.MediaAudio {
		t.Fatalf("unexpected job owner/type: %#v", job)
	}
	if job.Language != "de" || job.Granularity != queue.GranularityWord {
		t.Fatalf("unexpected language/granularity: %s %s", job.Language, job.Granularity)
	}
	if !strings.HasPrefix(job.SourceKey, "alice/"+job.ID+"/") {
		t.Fatalf("upload key %q not under job namespace", job.SourceKey)
	}
	stored := filepath.Join(env.cfg.Paths.StorageDir, filepath.FromSlash(job.SourceKey))
	if info, err := os.Stat(stored); err != nil || info.Size() != 2048 {
		t.Fatalf("expected uploaded copy at %s: %v", stored, err)
	}

	out, err = env.run(t, "status", job.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Language:    de (German)")

	out, err = env.run(t, "status", "--json")
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	requireContains(t, out, `"pending": 1`)
}

func TestSubmitRejectsBadInput(t *testing.T) {
	env := setupCLITestEnv(t)
	cases := []struct {
		name string
		args []string
	}{
		{"unknown extension", []string{env.writeUpload(t, "notes.txt")}},
		{"type mismatch", []string{env.writeUpload(t, "clip.mkv"), "--type", "audio"}},
		{"bad language", []string{env.writeUpload(t, "a.mp3"), "--language", "not a language"}},
		{"bad granularity", []string{env.writeUpload(t, "b.mp3"), "--granularity", "char"}},
		{"missing file", []string{filepath.Join(t.TempDir(), "nope.mp3")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.run(t, append([]string{"submit"}, tc.args...)...); err == nil {
				t.Fatal("expected submit to fail")
			}
		})
	}

	store := testsupport.MustOpenStore(t, env.cfg)
	jobs, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs, got %d", len(jobs))
	}
}

func TestRunOnceCompletesJobAndShowExportsFormats(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "submit", env.writeUpload(t, "talk.mp4"), "--owner", "bob", "--granularity", "word"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	out, err := env.run(t, "run", "--once", "--skip-preflight")
	if err != nil {
		t.Fatalf("run --once: %v", err)
	}
	requireContains(t, out, "completed")

	job := env.onlyJob(t)
	if job.Status != queue.StatusCompleted || job.ProgressPercent != 100 {
		t.Fatalf("expected completed at 100%%, got %s %.1f", job.Status, job.ProgressPercent)
	}
	if len(env.notifier.completed) != 1 {
		t.Fatalf("expected one completion notification, got %d", len(env.notifier.completed))
	}

	out, err = env.run(t, "show", job.ID[:8])
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if out != "hello from scribe\n" {
		t.Fatalf("unexpected text transcript %q", out)
	}

	out, err = env.run(t, "show", job.ID, "--format", "srt")
	if err != nil {
		t.Fatalf("show srt: %v", err)
	}
	requireContains(t, out, "00:00:00,000 --> 00:00:42,000")

	target := filepath.Join(t.TempDir(), "words.json")
	if _, err := env.run(t, "show", job.ID, "--format", "words", "-o", target); err != nil {
		t.Fatalf("show words: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	requireContains(t, string(data), `"hello"`)

	var copied string
	original := copyToClipboard
	copyToClipboard = func(text string) error {
		copied = text
		return nil
	}
	t.Cleanup(func() { copyToClipboard = original })
	if _, err := env.run(t, "show", job.ID, "--format", "vtt", "--copy"); err != nil {
		t.Fatalf("show --copy: %v", err)
	}
	if !strings.HasPrefix(copied, "WEBVTT") {
		t.Fatalf("expected vtt on clipboard, got %q", copied)
	}

	out, err = env.run(t, "status", job.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Status:      completed")
	requireContains(t, out, "Duration:    42.0s")
}

func TestFailedJobCanBeRetriedAndRemoved(t *testing.T) {
	env := setupCLITestEnv(t)
	env.provider = stubProvider{fail: true}
	if _, err := env.run(t, "submit", env.writeUpload(t, "memo.mp3"), "--owner", "carol"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.run(t, "run", "--once", "--skip-preflight"); err != nil {
		t.Fatalf("run --once: %v", err)
	}

	job := env.onlyJob(t)
	if job.Status != queue.StatusFailed {
		t.Fatalf("expected failed job, got %s", job.Status)
	}
	if len(env.notifier.failed) != 1 {
		t.Fatalf("expected one failure notification, got %d", len(env.notifier.failed))
	}
	if _, err := env.run(t, "show", job.ID); err == nil {
		t.Fatal("expected show to refuse a failed job")
	}

	out, err := env.run(t, "list", "--status", "failed")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, job.ID[:8])

	out, err = env.run(t, "retry", job.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	requireContains(t, out, "re-queued")
	if got := env.onlyJob(t); got.Status != queue.StatusPending || got.ProgressPercent != 0 {
		t.Fatalf("expected pending with reset progress, got %s %.1f", got.Status, got.ProgressPercent)
	}

	out, err = env.run(t, "remove", job.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	requireContains(t, out, "removed")
	namespace := filepath.Join(env.cfg.Paths.StorageDir, "carol", job.ID)
	if _, err := os.Stat(namespace); !os.IsNotExist(err) {
		t.Fatalf("expected job namespace deleted, stat err %v", err)
	}
}

func TestNotifyTestUsesConfiguredTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "notify-test")
	if err != nil {
		t.Fatalf("notify-test: %v", err)
	}
	requireContains(t, out, "Notifications disabled")

	env.cfg.Notifications.NtfyTopic = "https://ntfy.example/scribe"
	env.writeConfig(t)
	out, err = env.run(t, "notify-test")
	if err != nil {
		t.Fatalf("notify-test: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	if env.notifier.tests != 1 {
		t.Fatalf("expected one test notification, got %d", env.notifier.tests)
	}
}

func TestLogsFiltersByJob(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	content := `{"msg":"stage_start","job_id":"aaaa1111-0000"}
{"msg":"stage_start","job_id":"bbbb2222-0000"}
`
	if err := os.WriteFile(filepath.Join(env.cfg.Paths.LogDir, "scribe.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, err := env.run(t, "logs", "--job", "bbbb")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "aaaa1111") || !strings.Contains(out, "bbbb2222") {
		t.Fatalf("unexpected filtered output %q", out)
	}
}
