// Package storage provides the object storage used for uploads, normalized
// audio and chunk files.
//
// Objects are addressed by slash-separated keys scoped to an owner and job,
// built with JobKey. FSStore maps keys onto a directory tree and writes
// objects atomically so readers never observe partial uploads.
package storage
