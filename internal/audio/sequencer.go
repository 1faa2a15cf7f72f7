package audio

import (
	"bytes"
	"io"
	"time"

	pcmfmt "github.com/chimebot/chime/pkg/audio"
)

// Sequencer builds a single continuous PCM stream out of individual clips
// separated by silence gaps. Used for repeated playback with pauses, where
// the mix loop should see one stream instead of scheduling N clips.
type Sequencer struct{}

// NewSequencer creates a Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Sequence emits, for each position i, clips[i] followed by delays[i] worth
// of silence. Emission order follows the slice exactly, including repeated
// entries. Missing trailing delays count as zero. The clips are not copied;
// callers must not mutate them while the stream is being consumed.
func (s *Sequencer) Sequence(clips [][]byte, delays []time.Duration) io.Reader {
	readers := make([]io.Reader, 0, len(clips)*2)
	for i, clip := range clips {
		readers = append(readers, bytes.NewReader(clip))
		if i < len(delays) && delays[i] > 0 {
			readers = append(readers, newSilenceReader(pcmfmt.SilenceBytes(delays[i])))
		}
	}
	return io.MultiReader(readers...)
}

// SequenceLen reports the exact byte length Sequence will emit.
func (s *Sequencer) SequenceLen(clips [][]byte, delays []time.Duration) int {
	total := 0
	for i, clip := range clips {
		total += len(clip)
		if i < len(delays) && delays[i] > 0 {
			total += pcmfmt.SilenceBytes(delays[i])
		}
	}
	return total
}

// silenceReader yields n zero bytes without allocating them up front.
type silenceReader struct {
	remaining int
}

func newSilenceReader(n int) *silenceReader {
	return &silenceReader{remaining: n}
}

func (r *silenceReader) Read(b []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	n := len(b)
	if n > r.remaining {
		n = r.remaining
	}
	for i := 0; i < n; i++ {
		b[i] = 0
	}
	r.remaining -= n
	return n, nil
}
