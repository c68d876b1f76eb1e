// Package ffprobe inspects input videos before frames or audio are pulled
// from them.
//
// Inspect runs ffprobe with JSON output and decodes the stream and container
// sections. Result helpers count video and audio streams and report duration
// and resolution so stages can reject inputs that cannot yield slides or a
// transcript. BinaryFor locates ffprobe next to a configured ffmpeg binary.
package ffprobe
