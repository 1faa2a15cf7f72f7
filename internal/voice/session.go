package voice

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"go.uber.org/zap"

	pcmfmt "github.com/chimebot/chime/pkg/audio"
)

// SessionState is the connection lifecycle of a PlaybackSession.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// PlaybackSession owns one guild's voice connection and mixes every playing
// clip into the continuous frame stream the transport requires. All methods
// are safe for concurrent use.
type PlaybackSession struct {
	logger    *zap.Logger
	transport Transport
	guildID   discord.GuildID

	mu           sync.Mutex
	state        SessionState
	channelID    discord.ChannelID
	conn         Connection
	clips        map[string]*playingClip
	masterVolume float64
	paused       bool
	loopDone     chan struct{}
	loopCancel   context.CancelFunc
}

// NewPlaybackSession creates a session for one guild. It starts out
// disconnected; Connect attaches it to a channel.
func NewPlaybackSession(logger *zap.Logger, transport Transport, guildID discord.GuildID) *PlaybackSession {
	return &PlaybackSession{
		logger:       logger.With(zap.String("guild_id", guildID.String())),
		transport:    transport,
		guildID:      guildID,
		state:        StateDisconnected,
		masterVolume: 1.0,
	}
}

// Connect joins channelID and starts the mix loop. Connecting to the channel
// the session is already on is a no-op; connecting elsewhere moves the
// session, stopping whatever was playing.
func (s *PlaybackSession) Connect(ctx context.Context, channelID discord.ChannelID) error {
	s.mu.Lock()
	if s.state == StateConnected && s.channelID == channelID {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// Moving channels: tear down the old connection first.
	if err := s.Disconnect(ctx); err != nil {
		s.logger.Warn("Failed to cleanly disconnect before moving channels", zap.Error(err))
	}

	s.mu.Lock()
	s.state = StateConnecting
	s.mu.Unlock()

	conn, err := s.transport.Connect(ctx, s.guildID, channelID)
	if err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		return err
	}

	loopCtx, loopCancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.state = StateConnected
	s.channelID = channelID
	s.conn = conn
	s.loopDone = done
	s.loopCancel = loopCancel
	s.mu.Unlock()

	go s.mixLoop(loopCtx, conn, done)

	s.logger.Info("Playback session connected", zap.String("channel_id", channelID.String()))
	return nil
}

// Disconnect stops every clip, stops the mix loop and releases the
// transport connection. Calling it while already disconnected is a no-op.
func (s *PlaybackSession) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	conn := s.conn
	loopCancel := s.loopCancel
	done := s.loopDone
	clips := s.clips
	s.clips = nil
	s.conn = nil
	s.loopCancel = nil
	s.loopDone = nil
	s.paused = false
	s.state = StateDisconnected
	s.mu.Unlock()

	for _, c := range clips {
		c.stop()
	}
	if loopCancel != nil {
		loopCancel()
	}
	if done != nil {
		<-done
	}
	if conn != nil {
		return conn.Destroy(ctx)
	}
	return nil
}

// Play schedules a PCM stream into the mix and returns its clip id without
// waiting for completion. The stream must already be canonical PCM that
// never blocks on network or process pipes.
func (s *PlaybackSession) Play(name string, pcm io.Reader, volume float64) (string, error) {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return "", ErrSessionNotActive
	}

	clip, clipCtx := newPlayingClip(name, volume)
	if s.clips == nil {
		s.clips = make(map[string]*playingClip)
	}
	s.clips[clip.id] = clip
	s.mu.Unlock()

	go clip.feed(clipCtx, pcm, s.logger)

	s.logger.Debug("Clip scheduled",
		zap.String("clip_id", clip.id),
		zap.String("name", name),
		zap.Float64("volume", clip.getVolume()))

	return clip.id, nil
}

// StopByID cancels one clip. It reports whether a clip with that id was
// still active; stopping an already-finished id is a harmless no-op.
func (s *PlaybackSession) StopByID(id string) bool {
	s.mu.Lock()
	target := s.clips[id]
	s.mu.Unlock()

	if target == nil {
		return false
	}
	target.stop()
	return true
}

// StopAll cancels every active clip but keeps the connection open.
func (s *PlaybackSession) StopAll() {
	s.mu.Lock()
	clips := make([]*playingClip, 0, len(s.clips))
	for _, c := range s.clips {
		clips = append(clips, c)
	}
	s.mu.Unlock()

	for _, c := range clips {
		c.stop()
	}
}

// SetVolume sets the master volume, clamped to [0, 1].
func (s *PlaybackSession) SetVolume(v float64) {
	s.mu.Lock()
	s.masterVolume = pcmfmt.ClampVolume(v)
	s.mu.Unlock()
}

// Volume returns the master volume.
func (s *PlaybackSession) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.masterVolume
}

// Pause suspends output without destroying any clip.
func (s *PlaybackSession) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume re-enables output after Pause.
func (s *PlaybackSession) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// State returns the connection state.
func (s *PlaybackSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ChannelID returns the channel the session is connected to, if any.
func (s *PlaybackSession) ChannelID() discord.ChannelID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID
}

// IsPlaying reports whether at least one clip is active.
func (s *PlaybackSession) IsPlaying() bool {
	return s.ActiveCount() > 0
}

// ActiveCount returns the number of active clips.
func (s *PlaybackSession) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clips)
}

// ActiveIDs returns the ids of every active clip.
func (s *PlaybackSession) ActiveIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.clips))
	for id := range s.clips {
		ids = append(ids, id)
	}
	return ids
}

// mixLoop emits one frame per tick for as long as the session is connected.
// The transport requires continuous output, so idle and paused ticks send
// silence instead of skipping the write.
func (s *PlaybackSession) mixLoop(ctx context.Context, conn Connection, done chan struct{}) {
	defer close(done)

	silence := make([]byte, pcmfmt.FrameBytes)
	ticker := time.NewTicker(pcmfmt.FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		paused := s.paused
		clips := make([]*playingClip, 0, len(s.clips))
		for _, c := range s.clips {
			clips = append(clips, c)
		}
		master := s.masterVolume
		s.mu.Unlock()

		frame := silence
		if !paused {
			mixed, finished := mixFrame(clips, master)
			if len(finished) > 0 {
				s.retire(finished)
			}
			if mixed != nil {
				frame = mixed
			}
		}

		if err := conn.WriteFrame(frame); err != nil {
			s.logger.Warn("Voice transport write failed, disconnecting", zap.Error(err))
			go func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = s.Disconnect(shutdownCtx)
			}()
			return
		}
	}
}

// retire drops finished clips from the active set and releases their
// cancellation handles.
func (s *PlaybackSession) retire(finished []*playingClip) {
	s.mu.Lock()
	for _, f := range finished {
		delete(s.clips, f.id)
	}
	s.mu.Unlock()

	for _, c := range finished {
		c.cancel()
		s.logger.Debug("Clip finished",
			zap.String("clip_id", c.id),
			zap.String("name", c.name))
	}
}
