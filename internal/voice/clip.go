package voice

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	pcmfmt "github.com/chimebot/chime/pkg/audio"
)

// clipChunkBuffer is how many mixer frames of PCM a clip feeder may run
// ahead of the mix loop.
const clipChunkBuffer = 16

// playingClip is one PCM stream scheduled into a session's mix. A feeder
// goroutine pulls from the source so that a slow or stalled source can
// never block the mix tick; the mixer only ever does a non-blocking channel
// receive.
type playingClip struct {
	id     string
	name   string
	frames chan []byte

	cancel context.CancelFunc

	mu       sync.Mutex
	volume   float64
	leftover []byte
	ended    bool
	stopped  bool
}

func newPlayingClip(name string, volume float64) (*playingClip, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	return &playingClip{
		id:     uuid.NewString(),
		name:   name,
		frames: make(chan []byte, clipChunkBuffer),
		cancel: cancel,
		volume: pcmfmt.ClampVolume(volume),
	}, ctx
}

// feed pumps frame-sized PCM chunks from src into the clip channel until
// the source ends or the clip is cancelled. It owns closing src.
func (c *playingClip) feed(ctx context.Context, src io.Reader, logger *zap.Logger) {
	defer close(c.frames)
	if closer, ok := src.(io.Closer); ok {
		defer closer.Close()
	}

	for {
		frame := make([]byte, pcmfmt.FrameBytes)
		n, err := io.ReadFull(src, frame)
		if n > 0 {
			select {
			case c.frames <- frame[:n]:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				logger.Warn("Clip stream ended with error",
					zap.String("clip_id", c.id),
					zap.String("name", c.name),
					zap.Error(err))
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// nextFrame returns up to pcmfmt.FrameBytes of pending PCM without blocking.
// done reports that the clip has delivered everything it ever will.
func (c *playingClip) nextFrame() (frame []byte, done bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return nil, true
	}

	out := c.leftover
	c.leftover = nil
	for len(out) < pcmfmt.FrameBytes {
		select {
		case chunk, ok := <-c.frames:
			if !ok {
				c.ended = true
				return out, len(out) == 0
			}
			out = append(out, chunk...)
		default:
			// Feeder is behind. Emit what we have; missing samples mix
			// as silence rather than stalling the tick.
			return out, false
		}
	}
	if len(out) > pcmfmt.FrameBytes {
		c.leftover = out[pcmfmt.FrameBytes:]
		out = out[:pcmfmt.FrameBytes]
	}
	return out, false
}

// stop cancels the feeder and marks the clip finished. Idempotent; racing
// with natural completion is harmless.
func (c *playingClip) stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.cancel()
}

func (c *playingClip) getVolume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}
