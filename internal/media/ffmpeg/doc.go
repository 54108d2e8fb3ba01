// Package ffmpeg wraps the ffmpeg and ffprobe executables used by the
// pipeline.
//
// Engine normalizes any supported media file into mono 16 kHz 128 kbps MP3,
// cuts fixed-duration segments from normalized audio and probes the result.
// Process execution goes through a Runner so tests can substitute canned
// output for the real binaries.
package ffmpeg
