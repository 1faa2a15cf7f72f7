package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pcmfmt "github.com/chimebot/chime/pkg/audio"
)

func fullScaleFrame(value int16) []byte {
	samples := make([]int16, pcmfmt.FrameBytes/pcmfmt.BytesPerSample)
	for i := range samples {
		samples[i] = value
	}
	return pcmfmt.PCMInt16ToLE(samples)
}

func clipWithFrames(t *testing.T, volume float64, frames ...[]byte) *playingClip {
	t.Helper()
	c, _ := newPlayingClip("test", volume)
	for _, f := range frames {
		c.frames <- f
	}
	close(c.frames)
	return c
}

func TestMixSingleClipPassthrough(t *testing.T) {
	clip := clipWithFrames(t, 1.0, fullScaleFrame(1000))

	frame, finished := mixFrame([]*playingClip{clip}, 1.0)
	require.NotNil(t, frame)
	assert.Empty(t, finished)

	assert.Equal(t, int16(1000), pcmfmt.SampleAt(frame, 0, 0))
	assert.Equal(t, int16(1000), pcmfmt.SampleAt(frame, 479, 1))
}

func TestMixClampsFullScaleSum(t *testing.T) {
	// Two full-scale clips at volume 1.0 must clamp, not wrap around.
	a := clipWithFrames(t, 1.0, fullScaleFrame(32767))
	b := clipWithFrames(t, 1.0, fullScaleFrame(32767))

	frame, _ := mixFrame([]*playingClip{a, b}, 1.0)
	require.NotNil(t, frame)
	assert.Equal(t, int16(32767), pcmfmt.SampleAt(frame, 0, 0))

	c := clipWithFrames(t, 1.0, fullScaleFrame(-32768))
	d := clipWithFrames(t, 1.0, fullScaleFrame(-32768))

	frame, _ = mixFrame([]*playingClip{c, d}, 1.0)
	require.NotNil(t, frame)
	assert.Equal(t, int16(-32768), pcmfmt.SampleAt(frame, 0, 0))
}

func TestMixAppliesClipAndMasterVolume(t *testing.T) {
	clip := clipWithFrames(t, 0.5, fullScaleFrame(10000))

	frame, _ := mixFrame([]*playingClip{clip}, 0.5)
	require.NotNil(t, frame)

	// 10000 * 0.5 * 0.5 = 2500
	assert.Equal(t, int16(2500), pcmfmt.SampleAt(frame, 0, 0))
}

func TestMixRetiresEndedClips(t *testing.T) {
	active := clipWithFrames(t, 1.0, fullScaleFrame(1), fullScaleFrame(1))
	drained, _ := newPlayingClip("drained", 1.0)
	close(drained.frames)

	_, finished := mixFrame([]*playingClip{active, drained}, 1.0)
	require.Len(t, finished, 1)
	assert.Same(t, drained, finished[0])
}

func TestMixStoppedClipIsFinished(t *testing.T) {
	clip := clipWithFrames(t, 1.0, fullScaleFrame(1))
	clip.stop()

	frame, finished := mixFrame([]*playingClip{clip}, 1.0)
	assert.Nil(t, frame)
	require.Len(t, finished, 1)
}

func TestMixPartialFinalFrame(t *testing.T) {
	// A clip whose stream ends mid-frame still contributes what it has.
	short := fullScaleFrame(500)[:100]
	clip := clipWithFrames(t, 1.0, short)

	frame, finished := mixFrame([]*playingClip{clip}, 1.0)
	require.NotNil(t, frame)
	assert.Empty(t, finished)
	assert.Equal(t, int16(500), pcmfmt.SampleAt(frame, 0, 0))
	// Beyond the clip's data the mix is silence.
	assert.Equal(t, int16(0), pcmfmt.SampleAt(frame, 400, 0))

	// Next tick the clip reports done.
	_, finished = mixFrame([]*playingClip{clip}, 1.0)
	require.Len(t, finished, 1)
}
