package voice

import (
	"context"
	"sync"

	"github.com/diamondburned/arikawa/v3/discord"
	"go.uber.org/zap"
)

// SessionManager maintains at most one PlaybackSession per guild.
type SessionManager interface {
	// GetOrCreate returns the guild's session, creating it on first use.
	GetOrCreate(guildID discord.GuildID) *PlaybackSession
	// Get returns the guild's session if one exists.
	Get(guildID discord.GuildID) (*PlaybackSession, error)
	// Remove disconnects and forgets the guild's session.
	Remove(ctx context.Context, guildID discord.GuildID) error
	// Shutdown disconnects every session.
	Shutdown(ctx context.Context)
}

type sessionManager struct {
	logger    *zap.Logger
	transport Transport

	mu       sync.RWMutex
	sessions map[discord.GuildID]*PlaybackSession
}

// NewSessionManager creates a SessionManager backed by the given transport.
func NewSessionManager(logger *zap.Logger, transport Transport) SessionManager {
	return &sessionManager{
		logger:    logger,
		transport: transport,
		sessions:  make(map[discord.GuildID]*PlaybackSession),
	}
}

func (m *sessionManager) GetOrCreate(guildID discord.GuildID) *PlaybackSession {
	m.mu.RLock()
	s, ok := m.sessions[guildID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[guildID]; ok {
		return s
	}

	s = NewPlaybackSession(m.logger, m.transport, guildID)
	m.sessions[guildID] = s
	m.logger.Info("Created playback session", zap.String("guild_id", guildID.String()))
	return s
}

func (m *sessionManager) Get(guildID discord.GuildID) (*PlaybackSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[guildID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *sessionManager) Remove(ctx context.Context, guildID discord.GuildID) error {
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	delete(m.sessions, guildID)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	return s.Disconnect(ctx)
}

func (m *sessionManager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*PlaybackSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[discord.GuildID]*PlaybackSession)
	m.mu.Unlock()

	for _, s := range sessions {
		if err := s.Disconnect(ctx); err != nil {
			m.logger.Warn("Failed to disconnect session during shutdown", zap.Error(err))
		}
	}
	m.logger.Info("All playback sessions shut down", zap.Int("count", len(sessions)))
}
