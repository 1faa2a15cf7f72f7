package audio

import "time"

// Canonical PCM format shared by every mixed stream: 48 kHz interleaved
// stereo, 16-bit signed little-endian, no container.
const (
	SampleRate     = 48_000 // Hz
	Channels       = 2      // interleaved stereo
	BytesPerSample = 2      // 16-bit PCM

	// One mixer tick worth of audio.
	FrameDuration   = 20 * time.Millisecond
	SamplesPerFrame = 960 // samples per channel (20 ms)
	FrameBytes      = SamplesPerFrame * Channels * BytesPerSample
)

// BytesPerSecond is the canonical PCM data rate.
const BytesPerSecond = SampleRate * Channels * BytesPerSample
