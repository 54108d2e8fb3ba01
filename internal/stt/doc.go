// Package stt contains the speech-to-text providers used by the transcriber.
//
// Provider implementations return verbose results (language, duration, text,
// timed segments and, when requested, timed words) for one audio file:
//
//   - OpenAIProvider calls an OpenAI-compatible transcription endpoint
//   - WhisperXProvider runs WhisperX locally through uvx
//
// New selects the implementation named by the configuration.
package stt
