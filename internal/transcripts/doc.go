// Package transcripts persists finished transcripts keyed by job id.
//
// Two backends implement Store: SQLiteStore shares the queue database and
// PostgresStore writes to an external PostgreSQL server through a pgx pool.
// Records are written exactly once; a second Save for the same job returns
// ErrDuplicate.
package transcripts
