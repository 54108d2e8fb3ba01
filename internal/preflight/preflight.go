package preflight

import (
	"context"
	"fmt"
	"strings"

	"scribe/internal/config"
	"scribe/internal/deps"
)

// minScratchFactor scales the audio ceiling into the free space required to normalize and split one
// recording at the configured audio ceiling.
const minScratchFactor = 3

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Storage directory", cfg.Paths.StorageDir),
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
	}
	if results[1].Passed {
		minFree := uint64(cfg.Pipeline.MaxAudioBytes) * minScratchFactor
		results = append(results, CheckFreeSpace("Scratch free space", cfg.Paths.ScratchDir, minFree))
	}
	results = append(results, CheckSTT(ctx, cfg))
	return results
}

// FirstFailure returns an error describing the first failed result or the
// first missing required dependency. It returns nil when everything passed.
func FirstFailure(results []Result, binaries []deps.Availability) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	for _, b := range deps.Missing(binaries) {
		failed = append(failed, fmt.Sprintf("%s (%s): %s", b.Name, b.Purpose, b.Detail))
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(failed, "; "))
}
