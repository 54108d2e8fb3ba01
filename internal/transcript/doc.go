// Package transcript holds the transcription data model and the pure
// transformations applied to it: chunk planning, coverage validation, offset
// adjustment, chronological merge, and rendering to text, SRT, WebVTT and
// JSON.
//
// Nothing here performs I/O; the pipeline stages feed provider results in
// and persist what Render returns.
package transcript
