package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/scratch"
)

func TestReleaseLogsScratchFileThatCannotBeRemoved(t *testing.T) {
	dir, err := scratch.New(t.TempDir())
	if err != nil {
		t.Fatalf("scratch.New: %v", err)
	}
	handle := dir.Reserve("job-1", "chunk", 0, "mp3")
	// A non-empty directory at the reserved path makes os.Remove fail.
	if err := os.MkdirAll(filepath.Join(handle.Path, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var buf bytes.Buffer
	deps := &Deps{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	deps.release(context.Background(), handle)
	deps.release(context.Background(), handle)

	logged := buf.String()
	if strings.Count(logged, "scratch_release_failed") != 1 {
		t.Fatalf("expected one release warning, got %q", logged)
	}
	if !strings.Contains(logged, handle.Path) {
		t.Fatalf("expected path in warning, got %q", logged)
	}
}

func TestReleaseRemovesScratchFileQuietly(t *testing.T) {
	dir, err := scratch.New(t.TempDir())
	if err != nil {
		t.Fatalf("scratch.New: %v", err)
	}
	handle, err := dir.Write("job-1", "source", 0, "mp4", []byte("video"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	var buf bytes.Buffer
	deps := &Deps{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	deps.release(context.Background(), handle)

	if _, err := os.Stat(handle.Path); !os.IsNotExist(err) {
		t.Fatalf("expected scratch file removed, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("unexpected log output %q", buf.String())
	}
}
