package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound reports a key with no stored object.
var ErrNotFound = errors.New("object not found")

// Store is the object storage contract used by the pipeline.
type Store interface {
	Upload(ctx context.Context, key string, data []byte) error
	Download(ctx context.Context, key string) ([]byte, error)
}

// JobKey builds "<owner>/<job>/<name...>".
func JobKey(owner, job string, name ...string) string {
	parts := append([]string{owner, job}, name...)
	return path.Join(parts...)
}

// AudioKey is the location of a job's normalized audio.
func AudioKey(owner, job string) string {
	return JobKey(owner, job, "audio.mp3")
}

// ChunkKey is the location of one chunk of a job's audio.
func ChunkKey(owner, job string, index int) string {
	return JobKey(owner, job, "chunks", fmt.Sprintf("chunk_%03d.mp3", index))
}

// UploadKey is the location of a submitted source file.
func UploadKey(owner, job, filename string) string {
	return JobKey(owner, job, "source", path.Base(strings.ReplaceAll(filename, "\\", "/")))
}

// ValidateKey rejects keys that could escape the storage namespace.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("storage key is empty")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("storage key %q must be relative and slash-separated", key)
	}
	for _, part := range strings.Split(key, "/") {
		switch part {
		case "", ".", "..":
			return fmt.Errorf("storage key %q has an invalid segment", key)
		}
	}
	return nil
}
