// Package audio provides the canonical PCM format constants and the
// low-level sample helpers shared by the cache, transcoder and mixer layers.
package audio

import (
	"bytes"
	"encoding/binary"
	"time"
)

// PCMInt16ToLE converts int16 samples to raw little-endian bytes.
func PCMInt16ToLE(samples []int16) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

// LEToPCMInt16 converts raw little-endian bytes back to int16 samples.
// Trailing odd bytes are ignored.
func LEToPCMInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	_ = binary.Read(bytes.NewReader(b[:len(out)*2]), binary.LittleEndian, &out)
	return out
}

// SampleAt reads the little-endian 16-bit sample for frame s, channel c.
// Byte offset is s*FrameStride + c*BytesPerSample.
func SampleAt(pcm []byte, s, c int) int16 {
	off := s*Channels*BytesPerSample + c*BytesPerSample
	return int16(uint16(pcm[off]) | uint16(pcm[off+1])<<8)
}

// SilenceBytes returns the number of canonical PCM bytes covering d,
// rounded down to a whole number of samples across all channels.
func SilenceBytes(d time.Duration) int {
	n := int(int64(SampleRate) * int64(Channels) * int64(BytesPerSample) * d.Milliseconds() / 1000)
	step := Channels * BytesPerSample
	return n - n%step
}

// Silence returns d worth of canonical PCM silence.
func Silence(d time.Duration) []byte {
	return make([]byte, SilenceBytes(d))
}

// Duration reports how long n bytes of canonical PCM play for.
func Duration(n int) time.Duration {
	return time.Duration(n) * time.Second / BytesPerSecond
}
