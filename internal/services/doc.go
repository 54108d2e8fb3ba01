// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     (transient infrastructure, input validation, silent tool failure,
//     partial chunk failure) and carry a user-facing message.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error reporting, observability) stays uniform across the pipeline.
package services
