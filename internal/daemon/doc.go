// Package daemon coordinates the long-running scribe worker.
//
// It wires configuration, the queue store, and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances.
// Holding the lock means no other worker can own a processing job, so Start
// fails every job left in processing by a previous run and clears scratch
// files it abandoned before polling begins.
package daemon
