// Package main hosts the scribe CLI entrypoint and command graph.
//
// The Cobra-based command tree submits uploads to the job queue, runs the
// transcription worker, reports job status, and exports finished transcripts.
// Every command talks to the queue database directly; there is no daemon
// socket. Configuration resolution and runtime wiring live in context.go and
// runtime.go so subcommands can focus on user experience.
package main
