package preflight

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/config"
	"scribe/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("scratch", dir, 1); !result.Passed {
		t.Fatalf("expected pass for 1 byte, got: %s", result.Detail)
	}
	result := CheckFreeSpace("scratch", dir, math.MaxUint64)
	if result.Passed {
		t.Fatal("expected failure for impossible free space")
	}
	if !strings.Contains(result.Detail, "need") {
		t.Fatalf("expected shortfall detail, got %q", result.Detail)
	}
}

func TestCheckFreeSpace_MissingPath(t *testing.T) {
	result := CheckFreeSpace("scratch", filepath.Join(t.TempDir(), "nope"), 1)
	if result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func newModelsServer(t *testing.T, wantKey string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+wantKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"whisper-1","object":"model"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckSTT_OK(t *testing.T) {
	srv := newModelsServer(t, "good-key")
	cfg := testsupport.NewConfig(t, testsupport.WithAPIKey("good-key"))
	cfg.STT.BaseURL = srv.URL + "/v1"

	result := CheckSTT(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckSTT_BadKey(t *testing.T) {
	srv := newModelsServer(t, "good-key")
	cfg := testsupport.NewConfig(t, testsupport.WithAPIKey("bad-key"))
	cfg.STT.BaseURL = srv.URL + "/v1"

	result := CheckSTT(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for rejected key")
	}
}

func TestCheckSTT_MissingKey(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIKey(""))
	result := CheckSTT(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for missing key")
	}
	if !strings.Contains(result.Detail, "api key") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckSTT_WhisperXSkipsNetwork(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.STT.Provider = config.ProviderWhisperX
	result := CheckSTT(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected local provider to pass, got: %s", result.Detail)
	}
}

func TestCheckSystemDeps_UVXOptionalForOpenAI(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	statuses := CheckSystemDeps(context.Background(), cfg)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	for _, s := range statuses[:2] {
		if !s.Available {
			t.Fatalf("expected stubbed %s available: %s", s.Name, s.Detail)
		}
	}
	if !statuses[2].Optional {
		t.Fatal("expected uvx optional for openai provider")
	}

	cfg.STT.Provider = config.ProviderWhisperX
	if CheckSystemDeps(context.Background(), cfg)[2].Optional {
		t.Fatal("expected uvx required for whisperx provider")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ConfiguredWorkspace(t *testing.T) {
	srv := newModelsServer(t, "test")
	cfg := testsupport.NewConfig(t)
	cfg.STT.BaseURL = srv.URL + "/v1"
	cfg.Pipeline.MaxAudioBytes = 1024
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if err := FirstFailure(results, nil); err != nil {
		t.Fatalf("FirstFailure: %v", err)
	}
}

func TestRunAll_MissingScratchSkipsFreeSpace(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIKey(""))
	results := RunAll(context.Background(), cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	err := FirstFailure(results, nil)
	if err == nil || !strings.Contains(err.Error(), "Storage directory") {
		t.Fatalf("expected storage failure, got %v", err)
	}
}
