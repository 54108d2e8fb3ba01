package queue_test

import (
	"context"
	"testing"
	"time"

	"scribe/internal/queue"
	"scribe/internal/testsupport"
)

func TestNewJobDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, err := store.NewJob(ctx, queue.NewJobParams{
		OwnerID:   "alice",
		SourceKey: "alice/uploads/talk.mp4",
		MediaType: queue.MediaVideo,
	})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if job.ProgressPercent != 0 {
		t.Fatalf("expected zero progress, got %v", job.ProgressPercent)
	}
	if job.Language != "auto" || job.Granularity != queue.GranularitySegment {
		t.Fatalf("unexpected defaults: language=%q granularity=%q", job.Language, job.Granularity)
	}
	if job.SourceName != "alice/uploads/talk.mp4" {
		t.Fatalf("expected source name to fall back to key, got %q", job.SourceName)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.OwnerID != "alice" || fetched.MediaType != queue.MediaVideo {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}

	missing, err := store.GetByID(ctx, "does-not-exist")
	if err != nil {
		t.Fatalf("GetByID missing failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing job, got %#v", missing)
	}
}

func TestNewJobKeepsPreassignedID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	const id = "0b7e6a52-3f7c-4c1e-9d59-0d4f4f7c2a11"
	job, err := store.NewJob(context.Background(), queue.NewJobParams{
		ID:        id,
		OwnerID:   "alice",
		SourceKey: "alice/" + id + "/source/talk.mp3",
		MediaType: queue.MediaAudio,
	})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if job.ID != id {
		t.Fatalf("expected id %s, got %s", id, job.ID)
	}
}

func TestNewJobValidatesParams(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	cases := []struct {
		name   string
		params queue.NewJobParams
	}{
		{"missing owner", queue.NewJobParams{SourceKey: "k", MediaType: queue.MediaAudio}},
		{"missing key", queue.NewJobParams{OwnerID: "o", MediaType: queue.MediaAudio}},
		{"bad media type", queue.NewJobParams{OwnerID: "o", SourceKey: "k", MediaType: "image"}},
		{"bad granularity", queue.NewJobParams{OwnerID: "o", SourceKey: "k", MediaType: queue.MediaAudio, Granularity: "char"}},
		{"bad preassigned id", queue.NewJobParams{ID: "../escape", OwnerID: "o", SourceKey: "k", MediaType: queue.MediaAudio}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.NewJob(ctx, tc.params); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestClaimNextPendingIsFIFO(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := testsupport.NewJob(t, store, "o/first.mp3", queue.MediaAudio)
	second := testsupport.NewJob(t, store, "o/second.mp3", queue.MediaAudio)

	claimed := testsupport.MustClaim(t, store)
	if claimed.ID != first.ID {
		t.Fatalf("expected first job claimed, got %s", claimed.SourceKey)
	}
	if claimed.Status != queue.StatusProcessing {
		t.Fatalf("expected processing, got %s", claimed.Status)
	}
	if claimed.RequestID == "" || claimed.LastHeartbeat == nil {
		t.Fatalf("expected request id and heartbeat on claim: %#v", claimed)
	}

	next := testsupport.MustClaim(t, store)
	if next.ID != second.ID {
		t.Fatalf("expected second job claimed, got %s", next.SourceKey)
	}

	none, err := store.ClaimNextPending(context.Background())
	if err != nil {
		t.Fatalf("ClaimNextPending failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no pending jobs, got %#v", none)
	}
}

func TestUpdateProgressIsMonotonic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewJob(t, store, "o/a.mp3", queue.MediaAudio)
	job := testsupport.MustClaim(t, store)

	steps := []struct {
		percent float64
		stage   string
	}{
		{30, "Extracting audio"},
		{76.6, "Transcribing chunks (2/3)"},
		{90, "Transcribing chunks (3/3)"},
		{63.3, "Transcribing chunks (1/3)"},
	}
	for _, step := range steps {
		if err := store.UpdateProgress(ctx, job.ID, step.stage, step.percent, ""); err != nil {
			t.Fatalf("UpdateProgress failed: %v", err)
		}
	}

	updated, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.ProgressPercent != 90 {
		t.Fatalf("expected progress to stay at 90, got %v", updated.ProgressPercent)
	}
	if updated.ProgressStage != "Transcribing chunks (3/3)" {
		t.Fatalf("expected stale label ignored, got %q", updated.ProgressStage)
	}

	if err := store.UpdateProgress(ctx, job.ID, "Encoding", 140, ""); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	updated, _ = store.GetByID(ctx, job.ID)
	if updated.ProgressPercent >= 100 {
		t.Fatalf("running job must stay below 100, got %v", updated.ProgressPercent)
	}
}

func TestUpdateProgressIgnoresNonProcessingJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "o/a.mp3", queue.MediaAudio)
	if err := store.UpdateProgress(ctx, job.ID, "Extracting audio", 30, ""); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	fetched, _ := store.GetByID(ctx, job.ID)
	if fetched.ProgressPercent != 0 {
		t.Fatalf("pending job progress should not move, got %v", fetched.ProgressPercent)
	}
}

func TestMarkFailedFirstFailureWins(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewJob(t, store, "o/a.mp3", queue.MediaAudio)
	job := testsupport.MustClaim(t, store)
	if err := store.UpdateProgress(ctx, job.ID, "Transcribing chunks (1/3)", 63.3, ""); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	applied, err := store.MarkFailed(ctx, job.ID, "chunk 2 failed")
	if err != nil || !applied {
		t.Fatalf("expected first failure applied, applied=%v err=%v", applied, err)
	}
	applied, err = store.MarkFailed(ctx, job.ID, "chunk 3 failed")
	if err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	if applied {
		t.Fatal("expected second failure to be ignored")
	}

	failed, _ := store.GetByID(ctx, job.ID)
	if failed.Status != queue.StatusFailed || failed.ErrorMessage != "chunk 2 failed" {
		t.Fatalf("unexpected failed job: status=%s error=%q", failed.Status, failed.ErrorMessage)
	}
	if failed.ProgressPercent != 63.3 {
		t.Fatalf("failure must keep progress, got %v", failed.ProgressPercent)
	}
	if err := store.MarkCompleted(ctx, job.ID); err == nil {
		t.Fatal("expected completing a failed job to error")
	}
}

func TestMarkCompletedSetsFullProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewJob(t, store, "o/a.mp3", queue.MediaAudio)
	job := testsupport.MustClaim(t, store)
	if err := store.SetAudio(ctx, job.ID, "o/"+job.ID+"/audio.mp3", 12.5); err != nil {
		t.Fatalf("SetAudio failed: %v", err)
	}
	if err := store.MarkCompleted(ctx, job.ID); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	done, _ := store.GetByID(ctx, job.ID)
	if done.Status != queue.StatusCompleted || done.ProgressPercent != 100 {
		t.Fatalf("unexpected completed job: %#v", done)
	}
	if done.CompletedAt == nil || done.LastHeartbeat != nil {
		t.Fatalf("expected completed_at set and heartbeat cleared: %#v", done)
	}
	if done.AudioKey != "o/"+job.ID+"/audio.mp3" || done.DurationSeconds != 12.5 {
		t.Fatalf("unexpected audio fields: key=%q duration=%v", done.AudioKey, done.DurationSeconds)
	}
	if applied, _ := store.MarkFailed(ctx, job.ID, "late failure"); applied {
		t.Fatal("completed job must not be failed")
	}
}

func TestFailOrphanedAndStale(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewJob(t, store, "o/a.mp3", queue.MediaAudio)
	pending := testsupport.NewJob(t, store, "o/b.mp3", queue.MediaAudio)
	claimed, err := store.ClaimNextPending(ctx)
	if err != nil || claimed == nil {
		t.Fatalf("claim failed: %v", err)
	}

	count, err := store.FailStaleProcessing(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("FailStaleProcessing failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("fresh heartbeat should not be stale, got %d", count)
	}

	count, err = store.FailStaleProcessing(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("FailStaleProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one stale job, got %d", count)
	}
	stale, _ := store.GetByID(ctx, claimed.ID)
	if stale.Status != queue.StatusFailed || stale.ErrorMessage != queue.WorkerStopReason {
		t.Fatalf("unexpected stale job: %#v", stale)
	}

	testsupport.MustClaim(t, store)
	count, err = store.FailOrphaned(ctx)
	if err != nil {
		t.Fatalf("FailOrphaned failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one orphaned job, got %d", count)
	}
	orphan, _ := store.GetByID(ctx, pending.ID)
	if orphan.Status != queue.StatusFailed {
		t.Fatalf("expected orphan failed, got %s", orphan.Status)
	}
}

func TestRetryFailedResetsProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewJob(t, store, "o/a.mp3", queue.MediaAudio)
	job := testsupport.MustClaim(t, store)
	_ = store.UpdateProgress(ctx, job.ID, "Extracting audio", 30, "")
	if _, err := store.MarkFailed(ctx, job.ID, "boom"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	count, err := store.RetryFailed(ctx, job.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one retried job, got %d", count)
	}
	retried, _ := store.GetByID(ctx, job.ID)
	if retried.Status != queue.StatusPending || retried.ProgressPercent != 0 || retried.ErrorMessage != "" {
		t.Fatalf("unexpected retried job: %#v", retried)
	}
}

func TestListFindAndRemove(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.NewJob(t, store, "o/a.mp3", queue.MediaAudio)
	testsupport.NewJob(t, store, "o/b.mp3", queue.MediaAudio)
	testsupport.MustClaim(t, store)

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all))
	}
	pending, err := store.List(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("List pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].SourceKey != "o/b.mp3" {
		t.Fatalf("unexpected pending list: %#v", pending)
	}

	found, err := store.FindByPrefix(ctx, a.ID[:8])
	if err != nil {
		t.Fatalf("FindByPrefix failed: %v", err)
	}
	if found == nil || found.ID != a.ID {
		t.Fatalf("expected prefix lookup to find %s, got %#v", a.ID, found)
	}

	removed, err := store.Remove(ctx, a.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed {
		t.Fatal("processing job must not be removed")
	}
	removed, err = store.Remove(ctx, pending[0].ID)
	if err != nil || !removed {
		t.Fatalf("expected pending job removed, removed=%v err=%v", removed, err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 1 || health.Processing != 1 {
		t.Fatalf("unexpected health: %#v", health)
	}
	diag, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !diag.DatabaseExists || !diag.IntegrityCheck || diag.TotalJobs != 1 {
		t.Fatalf("unexpected diagnostics: %#v", diag)
	}
}

func TestParseHelpers(t *testing.T) {
	if status, err := queue.ParseStatus(" Failed "); err != nil || status != queue.StatusFailed {
		t.Fatalf("ParseStatus = %q, %v", status, err)
	}
	if _, err := queue.ParseStatus("ripping"); err == nil {
		t.Fatal("expected unknown status error")
	}
	if g, err := queue.ParseGranularity(""); err != nil || g != queue.GranularitySegment {
		t.Fatalf("ParseGranularity empty = %q, %v", g, err)
	}
	if m, err := queue.ParseMediaType("VIDEO"); err != nil || m != queue.MediaVideo {
		t.Fatalf("ParseMediaType = %q, %v", m, err)
	}
	if !queue.StatusCompleted.IsTerminal() || queue.StatusProcessing.IsTerminal() {
		t.Fatal("unexpected terminal classification")
	}
}
