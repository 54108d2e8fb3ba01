package scratch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Dir allocates scratch files under a root directory.
type Dir struct {
	root string
}

// New creates the scratch root if needed.
func New(root string) (*Dir, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("scratch dir is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the scratch directory.
func (d *Dir) Root() string {
	return d.root
}

// Handle owns one scratch file until Release.
type Handle struct {
	Path string
	once sync.Once
}

// Release removes the file. Safe to call more than once and when the file
// was never created; only the first call reports a removal error.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	var err error
	h.once.Do(func() {
		if rmErr := os.Remove(h.Path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = rmErr
		}
	})
	return err
}

// Reserve returns a handle for a unique path without creating the file, for
// outputs written by an external tool.
func (d *Dir) Reserve(jobID, purpose string, n int, ext string) *Handle {
	return &Handle{Path: filepath.Join(d.root, fileName(jobID, purpose, n, ext))}
}

// Write stores data in a new uniquely named scratch file.
func (d *Dir) Write(jobID, purpose string, n int, ext string, data []byte) (*Handle, error) {
	handle := d.Reserve(jobID, purpose, n, ext)
	if err := os.WriteFile(handle.Path, data, 0o600); err != nil {
		_ = handle.Release()
		return nil, fmt.Errorf("write scratch file: %w", err)
	}
	return handle, nil
}

func fileName(jobID, purpose string, n int, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	job := sanitize(jobID)
	if job == "" {
		job = "job"
	}
	return fmt.Sprintf("%s-%s-%d-%s.%s", job, sanitize(purpose), n, uuid.NewString()[:8], ext)
}

func sanitize(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, strings.TrimSpace(value))
}
