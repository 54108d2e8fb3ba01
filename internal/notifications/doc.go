// Package notifications delivers job events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// the workflow can notify unconditionally. Only terminal job events are
// published: a finished transcript and a failed job.
package notifications
