// Package workflow runs transcription jobs from the queue.
//
// The Manager polls for pending jobs, claims up to the configured number at a
// time, and runs each through the pipeline while a heartbeat loop keeps the
// job's last_heartbeat fresh. Jobs whose heartbeat expires are failed so a
// crashed worker never leaves a job stuck in processing.
//
// Dispatcher is the task runner behind the pipeline's stage hand-offs: every
// stage is submitted as its own goroutine and the submitting stage awaits the
// returned handle, so a parent's result reflects the whole chain below it.
package workflow
