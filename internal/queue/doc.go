// Package queue persists transcription jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages the database connection, schema initialization, job
// submission, claiming, monotonic progress updates, terminal transitions,
// heartbeat tracking and orphan recovery. Every stage reports through these
// helpers so pollers observe a consistent view of each job.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package queue
