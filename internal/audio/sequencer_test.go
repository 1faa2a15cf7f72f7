package audio_test

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimebot/chime/internal/audio"
	pcmfmt "github.com/chimebot/chime/pkg/audio"
)

func TestSequenceByteLayout(t *testing.T) {
	clipA := []byte{1, 2, 3, 4}
	clipB := []byte{9, 8, 7, 6, 5, 4, 3, 2}

	seq := audio.NewSequencer()
	r := seq.Sequence(
		[][]byte{clipA, clipB, clipA},
		[]time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 0},
	)

	data, err := io.ReadAll(r)
	require.NoError(t, err)

	wantLen := len(clipA)*2 + len(clipB) +
		pcmfmt.SilenceBytes(100*time.Millisecond) +
		pcmfmt.SilenceBytes(200*time.Millisecond)
	require.Len(t, data, wantLen)

	// Position 0: clip A then 100 ms of zeros.
	assert.Equal(t, clipA, data[:len(clipA)])
	gap := data[len(clipA) : len(clipA)+pcmfmt.SilenceBytes(100*time.Millisecond)]
	for _, b := range gap {
		require.Zero(t, b)
	}

	// Final position: clip A again with no trailing silence.
	assert.Equal(t, clipA, data[len(data)-len(clipA):])
}

func TestSequenceLenMatchesStream(t *testing.T) {
	clips := [][]byte{make([]byte, 1000), make([]byte, 52)}
	delays := []time.Duration{33 * time.Millisecond, 0}

	seq := audio.NewSequencer()
	data, err := io.ReadAll(seq.Sequence(clips, delays))
	require.NoError(t, err)

	assert.Equal(t, seq.SequenceLen(clips, delays), len(data))
}

func TestSequenceMissingTrailingDelays(t *testing.T) {
	clips := [][]byte{{1}, {2}, {3}}

	seq := audio.NewSequencer()
	data, err := io.ReadAll(seq.Sequence(clips, []time.Duration{10 * time.Millisecond}))
	require.NoError(t, err)

	assert.Len(t, data, 3+pcmfmt.SilenceBytes(10*time.Millisecond))
}

func TestSilenceBytesRoundsDownToSampleStep(t *testing.T) {
	n := pcmfmt.SilenceBytes(100 * time.Millisecond)
	assert.Equal(t, 0, n%(pcmfmt.Channels*pcmfmt.BytesPerSample))
	assert.Equal(t, pcmfmt.BytesPerSecond/10, n)
}
