// Package pipeline turns an uploaded media file into a persisted transcript.
//
// Four stages run as a chain of dispatched tasks:
//
//   - Extractor normalizes the upload into mono 16 kHz MP3 and routes by size
//   - Splitter cuts large audio into fixed-duration chunks
//   - Transcriber sends every chunk to the speech-to-text provider concurrently
//     and merges the offset-adjusted results
//   - Finalizer renders every output format and persists the transcript
//
// A parent stage submits its successor through a Dispatcher and waits on the
// returned Handle, so the extractor's outcome reflects the whole chain. Every
// stage reports progress and failures through a Reporter backed by the job
// store; progress never decreases and the first recorded failure wins.
package pipeline
