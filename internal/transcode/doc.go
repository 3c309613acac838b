// Package transcode normalizes uploaded swing clips into size-bounded H.264
// MP4 files.
//
// Clips already under the size budget get a fixed-quality re-encode so every
// stored file shares one codec and container. Larger clips are encoded at a
// bitrate derived from the budget and the clip duration. Output never exceeds
// the configured height and is never upscaled, and the moov atom is moved to
// the front for progressive playback.
package transcode
