// Package logs tails the worker's JSON log file for "scribe logs".
//
// Reads use bounded memory: the last N matching lines are kept in a ring and
// follow mode polls from a byte offset. A job filter keeps only records whose
// job_id attribute matches, which is how a single job's history is shown.
package logs
