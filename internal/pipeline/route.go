package pipeline

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"scribe/internal/queue"
)

// Route is the size-based decision taken after extraction.
type Route string

const (
	RouteDirect  Route = "direct"
	RouteChunked Route = "chunked"
)

// RouteForSize sends audio above threshold bytes to the splitter. Audio of
// exactly threshold bytes is transcribed directly.
func RouteForSize(size, threshold int64) Route {
	if size > threshold {
		return RouteChunked
	}
	return RouteDirect
}

var (
	audioExtensions = []string{"mp3", "wav", "m4a", "aac", "flac", "ogg", "opus", "webm", "wma"}
	videoExtensions = []string{"mp4", "mov", "mkv", "avi", "webm", "m4v", "mpeg", "mpg", "wmv", "flv"}
)

// SupportedExtensions lists accepted filename extensions for mediaType.
func SupportedExtensions(mediaType queue.MediaType) []string {
	switch mediaType {
	case queue.MediaAudio:
		return slices.Clone(audioExtensions)
	case queue.MediaVideo:
		return slices.Clone(videoExtensions)
	}
	return nil
}

// CheckExtension validates name against the extensions of mediaType.
func CheckExtension(name string, mediaType queue.MediaType) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(name)), "."))
	allowed := SupportedExtensions(mediaType)
	if allowed == nil {
		return fmt.Errorf("unknown media type %q", mediaType)
	}
	if ext == "" || !slices.Contains(allowed, ext) {
		return fmt.Errorf("unsupported %s format %q (supported: %s)", mediaType, ext, strings.Join(allowed, ", "))
	}
	return nil
}
