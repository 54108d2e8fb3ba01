package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"scribe/internal/config"
	"scribe/internal/deps"
	"scribe/internal/stt"
)

// healthChecker is implemented by providers that can verify their endpoint.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckSTT verifies the configured provider can be constructed and, when it
// supports it, that the endpoint accepts the credentials. It uses a
// 30-second timeout and a single attempt.
func CheckSTT(ctx context.Context, cfg *config.Config) Result {
	name := "Speech-to-text (" + cfg.STT.Provider + ")"

	provider, err := stt.New(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	checker, ok := provider.(healthChecker)
	if !ok {
		return Result{Name: name, Passed: true, Detail: "local provider " + provider.Name()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := checker.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeSTTError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minBytes available to unprivileged users.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	available := stat.Bavail * uint64(stat.Bsize)
	if available < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s free, need %s)",
			path, humanize.IBytes(available), humanize.IBytes(minBytes))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s free)", path, humanize.IBytes(available))}
}

// CheckSystemDeps resolves the external binaries the configured pipeline
// needs. Both "scribe run" and "scribe doctor" use this list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Availability {
	return deps.Resolve(ctx, []deps.Binary{
		{
			Name:       "FFmpeg",
			Command:    cfg.FFmpegBinary(),
			Purpose:    "audio extraction and splitting",
			VersionArg: "-version",
		},
		{
			Name:       "FFprobe",
			Command:    cfg.FFprobeBinary(),
			Purpose:    "duration probing",
			VersionArg: "-version",
		},
		{
			Name:     "uvx",
			Command:  stt.UVXCommand,
			Purpose:  "WhisperX transcription",
			Optional: cfg.STT.Provider != config.ProviderWhisperX,
		},
	})
}

// summarizeSTTError produces a human-readable summary for health check failures.
func summarizeSTTError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (STT API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (STT API unreachable)"
	}
	return err.Error()
}
