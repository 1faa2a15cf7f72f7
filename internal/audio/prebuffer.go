package audio

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultPrebufferBytes is how much data must accumulate before the
	// wrapped stream is handed to the consumer.
	DefaultPrebufferBytes = 128 * 1024

	// DefaultPrebufferTimeout unblocks the waiting caller even if the
	// threshold was never reached.
	DefaultPrebufferTimeout = 10 * time.Second

	// DefaultPrebufferHighWater caps the unread backlog the buffer will hold.
	// Once the backlog reaches it, draining pauses until the reader catches
	// up, so a fast source and a 20 ms-per-frame consumer cannot grow the
	// buffer past this mark.
	DefaultPrebufferHighWater = 4 * 1024 * 1024
)

// Prebuffer hides first-byte latency: it drains a source stream into a
// bounded in-memory buffer and releases a reader only once enough data has
// accumulated, the source ended, or the wait timed out. Buffering continues
// in the background after release, paced by the reader once the backlog
// reaches the high-water mark, so the consumer never observes a gap that
// the source itself did not produce.
type Prebuffer struct {
	logger    *zap.Logger
	minBytes  int
	highWater int
	timeout   time.Duration
}

// NewPrebuffer creates a Prebuffer with the default threshold, backlog cap
// and timeout.
func NewPrebuffer(logger *zap.Logger) *Prebuffer {
	return NewTunedPrebuffer(logger, DefaultPrebufferBytes, DefaultPrebufferTimeout)
}

// NewTunedPrebuffer creates a Prebuffer with an explicit release threshold
// and wait timeout. The backlog cap never drops below the threshold.
func NewTunedPrebuffer(logger *zap.Logger, minBytes int, timeout time.Duration) *Prebuffer {
	highWater := DefaultPrebufferHighWater
	if highWater < minBytes {
		highWater = minBytes
	}
	return &Prebuffer{
		logger:    logger,
		minBytes:  minBytes,
		highWater: highWater,
		timeout:   timeout,
	}
}

// Wrap starts draining src and blocks until the stream is ready for
// consumption. Cancelling ctx while waiting closes src, discards the buffer
// and returns the context error. After Wrap returns, the caller owns the
// returned stream and must Close it.
func (p *Prebuffer) Wrap(ctx context.Context, src io.ReadCloser) (io.ReadCloser, error) {
	bs := newBufferedStream(src, p.minBytes, p.highWater)
	go bs.drain()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-bs.ready:
		p.logger.Debug("Prebuffer threshold reached", zap.Int("bytes", bs.buffered()))
	case <-timer.C:
		p.logger.Debug("Prebuffer timeout, releasing early", zap.Int("bytes", bs.buffered()))
	case <-ctx.Done():
		_ = bs.Close()
		return nil, ctx.Err()
	}

	return bs, nil
}

type bufferedStream struct {
	src       io.ReadCloser
	minBytes  int
	highWater int

	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	off    int
	srcErr error
	closed bool

	ready     chan struct{}
	readyOnce sync.Once
}

func newBufferedStream(src io.ReadCloser, minBytes, highWater int) *bufferedStream {
	bs := &bufferedStream{
		src:       src,
		minBytes:  minBytes,
		highWater: highWater,
		ready:     make(chan struct{}),
	}
	bs.cond = sync.NewCond(&bs.mu)
	return bs
}

// drain copies src into the buffer until the source terminates or the
// stream is closed. Every chunk read is kept; the threshold only gates when
// the ready signal fires. When the unread backlog reaches the high-water
// mark, drain parks until the reader consumes some of it, which pushes the
// backpressure onto the source.
func (bs *bufferedStream) drain() {
	chunk := make([]byte, 32*1024)
	for {
		n, err := bs.src.Read(chunk)

		bs.mu.Lock()
		if bs.closed {
			bs.mu.Unlock()
			return
		}
		if n > 0 {
			if bs.off > 0 {
				bs.buf = append(bs.buf[:0], bs.buf[bs.off:]...)
				bs.off = 0
			}
			bs.buf = append(bs.buf, chunk[:n]...)
		}
		if err != nil {
			bs.srcErr = err
		}
		if len(bs.buf)-bs.off >= bs.minBytes || err != nil {
			bs.readyOnce.Do(func() { close(bs.ready) })
		}
		bs.cond.Broadcast()
		for err == nil && !bs.closed && len(bs.buf)-bs.off >= bs.highWater {
			bs.cond.Wait()
		}
		closed := bs.closed
		bs.mu.Unlock()

		if err != nil || closed {
			return
		}
	}
}

func (bs *bufferedStream) buffered() int {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return len(bs.buf) - bs.off
}

func (bs *bufferedStream) Read(b []byte) (int, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	for bs.off >= len(bs.buf) && bs.srcErr == nil && !bs.closed {
		bs.cond.Wait()
	}
	if bs.closed {
		return 0, io.ErrClosedPipe
	}
	if bs.off >= len(bs.buf) {
		return 0, bs.srcErr
	}

	n := copy(b, bs.buf[bs.off:])
	bs.off += n
	if bs.off == len(bs.buf) {
		bs.buf = bs.buf[:0]
		bs.off = 0
	}
	bs.cond.Broadcast()
	return n, nil
}

// Close releases the source and wakes any blocked reader or drainer. Safe
// to call more than once and safe to call while drain is mid-read.
func (bs *bufferedStream) Close() error {
	bs.mu.Lock()
	if bs.closed {
		bs.mu.Unlock()
		return nil
	}
	bs.closed = true
	bs.cond.Broadcast()
	bs.mu.Unlock()

	bs.readyOnce.Do(func() { close(bs.ready) })
	return bs.src.Close()
}
