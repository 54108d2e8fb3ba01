package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestResolveReportsPathAndVersion(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := writeStub(t, dir, "ffmpeg-stub", "echo 'ffmpeg version 7.1 Copyright (c)'\necho 'built with gcc'\n")

	results := Resolve(context.Background(), []Binary{
		{Name: "FFmpeg", Command: ffmpeg, VersionArg: "-version"},
	})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	got := results[0]
	if !got.Available || got.Path != ffmpeg {
		t.Fatalf("expected stub resolved, got %#v", got)
	}
	if got.Version != "ffmpeg version 7.1 Copyright (c)" {
		t.Fatalf("unexpected version line %q", got.Version)
	}
	if got.Detail != "" {
		t.Fatalf("unexpected detail for available binary: %s", got.Detail)
	}
}

func TestResolveMissingAndUnconfigured(t *testing.T) {
	results := Resolve(context.Background(), []Binary{
		{Name: "Missing", Command: "scribe-no-such-binary"},
		{Name: "Blank", Command: "  "},
		{Name: "Extra", Command: "scribe-no-such-extra", Optional: true},
	})
	if results[0].Available || results[0].Detail == "" {
		t.Fatalf("expected missing binary reported, got %#v", results[0])
	}
	if results[1].Detail != "command not configured" || results[1].Command != "" {
		t.Fatalf("expected blank command flagged, got %#v", results[1])
	}

	missing := Missing(results)
	if len(missing) != 2 {
		t.Fatalf("expected optional binary excluded from missing, got %#v", missing)
	}
	if missing[0].Name != "Missing" || missing[1].Name != "Blank" {
		t.Fatalf("unexpected missing order: %#v", missing)
	}
}

func TestResolveSkipsVersionWithoutArg(t *testing.T) {
	dir := t.TempDir()
	uvx := writeStub(t, dir, "uvx-stub", "echo should-not-run\nexit 1\n")

	results := Resolve(context.Background(), []Binary{{Name: "uvx", Command: uvx}})
	if !results[0].Available || results[0].Version != "" {
		t.Fatalf("expected no version probe, got %#v", results[0])
	}
}
