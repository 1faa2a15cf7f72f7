package voice_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chimebot/chime/internal/voice"
	pcmfmt "github.com/chimebot/chime/pkg/audio"
)

type fakeTransport struct {
	mu       sync.Mutex
	conns    []*fakeConnection
	connErr  error
	connects int
}

func (t *fakeTransport) Connect(_ context.Context, _ discord.GuildID, channelID discord.ChannelID) (voice.Connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connects++
	if t.connErr != nil {
		return nil, t.connErr
	}
	conn := &fakeConnection{channelID: channelID}
	t.conns = append(t.conns, conn)
	return conn, nil
}

type fakeConnection struct {
	channelID discord.ChannelID

	mu        sync.Mutex
	frames    [][]byte
	writeErr  error
	destroyed bool
}

func (c *fakeConnection) WriteFrame(pcm []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	frame := make([]byte, len(pcm))
	copy(frame, pcm)
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConnection) Destroy(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = true
	return nil
}

func (c *fakeConnection) isDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

func (c *fakeConnection) audibleFrames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, f := range c.frames {
		for _, b := range f {
			if b != 0 {
				n++
				break
			}
		}
	}
	return n
}

func newTestSession(t *testing.T) (*voice.PlaybackSession, *fakeTransport) {
	t.Helper()
	transport := &fakeTransport{}
	s := voice.NewPlaybackSession(zap.NewNop(), transport, discord.GuildID(1))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Disconnect(ctx)
	})
	return s, transport
}

func tonePCM(frames int, value int16) []byte {
	samples := make([]int16, frames*pcmfmt.FrameBytes/pcmfmt.BytesPerSample)
	for i := range samples {
		samples[i] = value
	}
	return pcmfmt.PCMInt16ToLE(samples)
}

func TestSessionLifecycle(t *testing.T) {
	s, _ := newTestSession(t)
	assert.Equal(t, voice.StateDisconnected, s.State())

	require.NoError(t, s.Connect(context.Background(), discord.ChannelID(10)))
	assert.Equal(t, voice.StateConnected, s.State())
	assert.Equal(t, discord.ChannelID(10), s.ChannelID())

	require.NoError(t, s.Disconnect(context.Background()))
	assert.Equal(t, voice.StateDisconnected, s.State())
}

func TestConnectSameChannelIsNoop(t *testing.T) {
	s, transport := newTestSession(t)

	require.NoError(t, s.Connect(context.Background(), discord.ChannelID(10)))
	require.NoError(t, s.Connect(context.Background(), discord.ChannelID(10)))

	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.Equal(t, 1, transport.connects)
}

func TestConnectDifferentChannelMoves(t *testing.T) {
	s, transport := newTestSession(t)

	require.NoError(t, s.Connect(context.Background(), discord.ChannelID(10)))
	require.NoError(t, s.Connect(context.Background(), discord.ChannelID(20)))

	assert.Equal(t, discord.ChannelID(20), s.ChannelID())

	transport.mu.Lock()
	first := transport.conns[0]
	transport.mu.Unlock()
	assert.True(t, first.isDestroyed())
}

func TestPlayRequiresConnection(t *testing.T) {
	s, _ := newTestSession(t)

	_, err := s.Play("clip", bytes.NewReader(tonePCM(1, 100)), 1.0)
	assert.ErrorIs(t, err, voice.ErrSessionNotActive)
}

func TestPlayEndsNaturally(t *testing.T) {
	s, transport := newTestSession(t)
	require.NoError(t, s.Connect(context.Background(), discord.ChannelID(10)))

	id, err := s.Play("clip", bytes.NewReader(tonePCM(3, 1000)), 1.0)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, s.ActiveCount())
	assert.Contains(t, s.ActiveIDs(), id)
	assert.True(t, s.IsPlaying())

	// The clip drains without an explicit stop.
	assert.Eventually(t, func() bool { return s.ActiveCount() == 0 },
		2*time.Second, 10*time.Millisecond)
	assert.False(t, s.IsPlaying())

	transport.mu.Lock()
	conn := transport.conns[0]
	transport.mu.Unlock()
	assert.GreaterOrEqual(t, conn.audibleFrames(), 3)
}

func TestIdleSessionEmitsSilence(t *testing.T) {
	s, transport := newTestSession(t)
	require.NoError(t, s.Connect(context.Background(), discord.ChannelID(10)))

	assert.Eventually(t, func() bool {
		transport.mu.Lock()
		conn := transport.conns[0]
		transport.mu.Unlock()
		conn.mu.Lock()
		defer conn.mu.Unlock()
		return len(conn.frames) >= 3
	}, 2*time.Second, 10*time.Millisecond, "mix loop must tick while idle")

	transport.mu.Lock()
	conn := transport.conns[0]
	transport.mu.Unlock()
	assert.Zero(t, conn.audibleFrames())
}

func TestStopByIDIsIdempotent(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.Connect(context.Background(), discord.ChannelID(10)))

	// Large clip so it cannot finish on its own during the test.
	id, err := s.Play("clip", bytes.NewReader(tonePCM(500, 1000)), 1.0)
	require.NoError(t, err)

	assert.True(t, s.StopByID(id))
	assert.Eventually(t, func() bool { return s.ActiveCount() == 0 },
		2*time.Second, 10*time.Millisecond)

	// Second stop after the clip is gone: no panic, reports not found.
	assert.False(t, s.StopByID(id))
	assert.False(t, s.StopByID("no-such-id"))
}

func TestStopByIDTargetsOnlyThatClip(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.Connect(context.Background(), discord.ChannelID(10)))

	ids := make([]string, 0, 3)
	for _, name := range []string{"a", "b", "c"} {
		id, err := s.Play(name, bytes.NewReader(tonePCM(500, 100)), 1.0)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	assert.True(t, s.StopByID(ids[1]))
	assert.Eventually(t, func() bool { return s.ActiveCount() == 2 },
		2*time.Second, 10*time.Millisecond)
	assert.NotContains(t, s.ActiveIDs(), ids[1])
	assert.Contains(t, s.ActiveIDs(), ids[0])
	assert.Contains(t, s.ActiveIDs(), ids[2])
}

func TestStopAllKeepsConnection(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.Connect(context.Background(), discord.ChannelID(10)))

	_, err := s.Play("a", bytes.NewReader(tonePCM(500, 100)), 1.0)
	require.NoError(t, err)
	_, err = s.Play("b", bytes.NewReader(tonePCM(500, 200)), 1.0)
	require.NoError(t, err)
	assert.Equal(t, 2, s.ActiveCount())

	s.StopAll()
	assert.Eventually(t, func() bool { return s.ActiveCount() == 0 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, voice.StateConnected, s.State())
}

func TestConcurrentClipsMixedTogether(t *testing.T) {
	s, transport := newTestSession(t)
	require.NoError(t, s.Connect(context.Background(), discord.ChannelID(10)))

	_, err := s.Play("a", bytes.NewReader(tonePCM(5, 1000)), 1.0)
	require.NoError(t, err)
	_, err = s.Play("b", bytes.NewReader(tonePCM(5, 2000)), 1.0)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return s.ActiveCount() == 0 },
		2*time.Second, 10*time.Millisecond)

	transport.mu.Lock()
	conn := transport.conns[0]
	transport.mu.Unlock()
	conn.mu.Lock()
	defer conn.mu.Unlock()

	// At least one frame carries the sum of both clips.
	summed := false
	for _, f := range conn.frames {
		if pcmfmt.SampleAt(f, 0, 0) == 3000 {
			summed = true
			break
		}
	}
	assert.True(t, summed, "expected a frame containing both clips mixed")
}

func TestPauseSuppressesOutputWithoutDroppingClips(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.Connect(context.Background(), discord.ChannelID(10)))

	s.Pause()
	_, err := s.Play("clip", bytes.NewReader(tonePCM(3, 1000)), 1.0)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, s.ActiveCount(), "paused session must not consume clips")

	s.Resume()
	assert.Eventually(t, func() bool { return s.ActiveCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestTransportFailureDisconnectsSession(t *testing.T) {
	s, transport := newTestSession(t)
	require.NoError(t, s.Connect(context.Background(), discord.ChannelID(10)))

	transport.mu.Lock()
	conn := transport.conns[0]
	transport.mu.Unlock()
	conn.mu.Lock()
	conn.writeErr = voice.ErrTransportDestroyed
	conn.mu.Unlock()

	assert.Eventually(t, func() bool { return s.State() == voice.StateDisconnected },
		2*time.Second, 10*time.Millisecond)
	assert.True(t, conn.isDestroyed())
}

func TestSetVolumeClamps(t *testing.T) {
	s, _ := newTestSession(t)

	s.SetVolume(3.5)
	assert.Equal(t, 1.0, s.Volume())

	s.SetVolume(-1)
	assert.Equal(t, 0.0, s.Volume())
}
