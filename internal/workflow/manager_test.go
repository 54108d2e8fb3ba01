package workflow_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"scribe/internal/config"
	"scribe/internal/notifications"
	"scribe/internal/pipeline"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/testsupport"
	"scribe/internal/workflow"
)

type stubNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []notifications.Job
}

func (s *stubNotifier) NotifyJobCompleted(_ context.Context, job notifications.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, job.ID)
	return nil
}

func (s *stubNotifier) NotifyJobFailed(_ context.Context, job notifications.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, job)
	return nil
}

func (s *stubNotifier) TestNotification(context.Context) error { return nil }

// stubRunner completes every job unless its source name is listed in fail.
type stubRunner struct {
	store *queue.Store
	fail  map[string]error
	delay time.Duration

	running atomic.Int32
	peak    atomic.Int32
	seen    sync.Map
}

func (r *stubRunner) Run(ctx context.Context, in pipeline.ExtractInput) error {
	now := r.running.Add(1)
	defer r.running.Add(-1)
	for {
		peak := r.peak.Load()
		if now <= peak || r.peak.CompareAndSwap(peak, now) {
			break
		}
	}
	if id, ok := services.JobIDFromContext(ctx); !ok || id != in.JobID {
		return errors.New("job id missing from context")
	}
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		return errors.New("request id missing from context")
	}
	r.seen.Store(in.JobID, in.SourceName)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if err, ok := r.fail[in.SourceName]; ok {
		return err
	}
	return r.store.MarkCompleted(ctx, in.JobID)
}

func newManagerFixture(t *testing.T, runner func(*queue.Store) *stubRunner) (*config.Config, *queue.Store, *stubRunner, *stubNotifier, *workflow.Manager) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.MaxConcurrentJobs = 2
	store := testsupport.MustOpenStore(t, cfg)
	r := runner(store)
	notifier := &stubNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, r, nil, notifier)
	return cfg, store, r, notifier, mgr
}

func TestManagerDrainCompletesPendingJobs(t *testing.T) {
	_, store, runner, notifier, mgr := newManagerFixture(t, func(s *queue.Store) *stubRunner {
		return &stubRunner{store: s, delay: 20 * time.Millisecond}
	})
	for _, name := range []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3"} {
		testsupport.NewJob(t, store, name, queue.MediaAudio)
	}

	if err := mgr.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	jobs, err := store.List(context.Background(), queue.StatusCompleted)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 4 {
		t.Fatalf("expected 4 completed jobs, got %d", len(jobs))
	}
	if peak := runner.peak.Load(); peak > 2 {
		t.Fatalf("expected at most 2 concurrent jobs, saw %d", peak)
	}
	if len(notifier.completed) != 4 {
		t.Fatalf("expected 4 completion notifications, got %d", len(notifier.completed))
	}
	status := mgr.Status(context.Background())
	if status.QueueStats[queue.StatusCompleted] != 4 || status.ActiveJobs != 0 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestManagerRecordsFailureThatEscapedPipeline(t *testing.T) {
	_, store, _, notifier, mgr := newManagerFixture(t, func(s *queue.Store) *stubRunner {
		return &stubRunner{store: s, fail: map[string]error{
			"bad.mp3": services.Wrap(services.ErrTransient, "extract", "download source", "Could not download the uploaded file", errors.New("disk gone")),
		}}
	})
	job := testsupport.NewJob(t, store, "bad.mp3", queue.MediaAudio)

	if err := mgr.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	got, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.ErrorMessage != "Could not download the uploaded file: disk gone" {
		t.Fatalf("unexpected error message %q", got.ErrorMessage)
	}
	if len(notifier.failed) != 1 || notifier.failed[0].Error != got.ErrorMessage {
		t.Fatalf("expected failure notification, got %+v", notifier.failed)
	}
	if status := mgr.Status(context.Background()); status.LastError == "" || status.LastJob == nil {
		t.Fatalf("expected last error and job in status, got %+v", status)
	}
}

func TestManagerStartProcessesJobsUntilStopped(t *testing.T) {
	_, store, runner, _, mgr := newManagerFixture(t, func(s *queue.Store) *stubRunner {
		return &stubRunner{store: s}
	})
	job := testsupport.NewJob(t, store, "live.mp3", queue.MediaAudio)

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := store.GetByID(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Status == queue.StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job not completed in time, status %s", got.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
	mgr.Stop()
	if _, ok := runner.seen.Load(job.ID); !ok {
		t.Fatal("runner never saw the job")
	}
	if mgr.Status(context.Background()).Running {
		t.Fatal("manager still running after Stop")
	}
}

func TestHeartbeatMonitorFailsStaleJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewJob(t, store, "stale.mp3", queue.MediaAudio)
	job := testsupport.MustClaim(t, store)

	monitor := workflow.NewHeartbeatMonitor(store, nil, time.Second, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if err := monitor.ReclaimStale(context.Background(), nil); err != nil {
		t.Fatalf("ReclaimStale: %v", err)
	}
	got, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusFailed || got.ErrorMessage != queue.WorkerStopReason {
		t.Fatalf("expected failed with %q, got %s %q", queue.WorkerStopReason, got.Status, got.ErrorMessage)
	}
}

func TestHeartbeatLoopRefreshesTimestamp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewJob(t, store, "beat.mp3", queue.MediaAudio)
	job := testsupport.MustClaim(t, store)
	before := *job.LastHeartbeat

	monitor := workflow.NewHeartbeatMonitor(store, nil, 10*time.Millisecond, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go monitor.StartLoop(ctx, &wg, job.ID)
	time.Sleep(50 * time.Millisecond)
	cancel()
	wg.Wait()

	got, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.LastHeartbeat == nil || !got.LastHeartbeat.After(before) {
		t.Fatalf("heartbeat not refreshed: before %v after %v", before, got.LastHeartbeat)
	}
}
