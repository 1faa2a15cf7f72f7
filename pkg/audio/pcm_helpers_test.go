package audio_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimebot/chime/pkg/audio"
)

func TestPCMRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 12345}

	raw := audio.PCMInt16ToLE(samples)
	require.Len(t, raw, len(samples)*audio.BytesPerSample)
	assert.Equal(t, samples, audio.LEToPCMInt16(raw))
}

func TestSampleAt(t *testing.T) {
	// Frame 0: L=100 R=200, frame 1: L=-300 R=400.
	raw := audio.PCMInt16ToLE([]int16{100, 200, -300, 400})

	assert.Equal(t, int16(100), audio.SampleAt(raw, 0, 0))
	assert.Equal(t, int16(200), audio.SampleAt(raw, 0, 1))
	assert.Equal(t, int16(-300), audio.SampleAt(raw, 1, 0))
	assert.Equal(t, int16(400), audio.SampleAt(raw, 1, 1))
}

func TestSilenceDurationRoundTrip(t *testing.T) {
	b := audio.Silence(time.Second)
	assert.Len(t, b, audio.BytesPerSecond)
	assert.Equal(t, time.Second, audio.Duration(len(b)))

	assert.Len(t, audio.Silence(audio.FrameDuration), audio.FrameBytes)
}

func TestSaturateInt16(t *testing.T) {
	assert.Equal(t, int16(32767), audio.SaturateInt16(32767+32767))
	assert.Equal(t, int16(-32768), audio.SaturateInt16(-32768-32768))
	assert.Equal(t, int16(1234), audio.SaturateInt16(1234))
}

func TestClampVolume(t *testing.T) {
	assert.Equal(t, 0.0, audio.ClampVolume(-0.5))
	assert.Equal(t, 1.0, audio.ClampVolume(2.0))
	assert.Equal(t, 0.25, audio.ClampVolume(0.25))
}
