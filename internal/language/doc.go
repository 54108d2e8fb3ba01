// Package language normalizes requested and detected transcription languages.
//
// Jobs carry either "auto" (let the provider detect the language) or an
// ISO 639-1 code. Input may arrive as a BCP 47 tag ("en-US"), an ISO 639-2
// code ("eng") or an English word ("english"); golang.org/x/text resolves all
// of them to the two-letter base.
package language
