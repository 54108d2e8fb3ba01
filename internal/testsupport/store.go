package testsupport

import (
	"context"
	"testing"

	"scribe/internal/config"
	"scribe/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob submits a pending job for tests using the provided store.
func NewJob(t testing.TB, store *queue.Store, sourceKey string, mediaType queue.MediaType) *queue.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), queue.NewJobParams{
		OwnerID:    "tester",
		SourceKey:  sourceKey,
		SourceName: sourceKey,
		MediaType:  mediaType,
	})
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}

// MustClaim claims the next pending job and fails the test when none is waiting.
func MustClaim(t testing.TB, store *queue.Store) *queue.Job {
	t.Helper()

	job, err := store.ClaimNextPending(context.Background())
	if err != nil {
		t.Fatalf("store.ClaimNextPending: %v", err)
	}
	if job == nil {
		t.Fatal("expected a pending job to claim")
	}
	return job
}
