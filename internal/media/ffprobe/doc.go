// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Parse decodes `ffprobe -of json` output into a Result; Audio summarizes the fields the
// pipeline logs for normalized audio (duration, format, bitrate, channels).
package ffprobe
