// Package whisperx drives WhisperX through uvx to produce the lecture transcript.
//
// The source video's audio is first decoded with ffmpeg into a mono 16kHz WAV,
// then transcribed with the language pinned from configuration. WhisperX's JSON
// output is reduced to plain text by joining segment texts with single spaces;
// the language it reports is surfaced for logging only.
//
// Subprocesses go through a CommandRunner so tests can substitute a fake that
// writes the expected JSON.
package whisperx
