// Package preflight provides readiness checks for the speech-to-text
// provider, external binaries, and filesystem paths that scribe depends on.
//
// These checks run in two contexts:
//   - "scribe run" calls RunAll before starting the worker and refuses to
//     poll the queue while a required check fails.
//   - "scribe doctor" prints every check alongside CheckSystemDeps.
package preflight
