// Package scratch hands out temporary files scoped to a job.
//
// Every file is named "<job>-<purpose>-<n>-<rand>.<ext>" so concurrent chunk
// tasks never collide, and is released by its Handle. Callers pair each
// acquisition with `defer handle.Release()`. CleanStale removes files left
// behind by a worker that exited without releasing them.
package scratch
