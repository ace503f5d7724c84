// Package ffmpeg wraps the local ffmpeg binary as blocking transcode stages.
//
// Each stage issues exactly one ffmpeg invocation with explicit input and
// output paths. A non-zero exit or a process start failure is reported as an
// error carrying ffmpeg's combined output; callers decide which failure kind
// that maps to.
//
// Stages:
//   - ExtractAudio: mono 16 kHz PCM WAV for transcription
//   - Normalize: H.264/AAC MP4 intermediate for retiming
//   - SubtitleToASS: SRT to styled ASS overlay
//   - BurnSubtitles: renders an ASS overlay into the video
package ffmpeg
