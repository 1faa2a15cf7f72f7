package voice

import (
	"context"
	"fmt"
	"sync"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/state"
	"github.com/diamondburned/arikawa/v3/voice"
	"github.com/diamondburned/arikawa/v3/voice/voicegateway"
	"go.uber.org/zap"
	"layeh.com/gopus"

	pcmfmt "github.com/chimebot/chime/pkg/audio"
)

// maxOpusFrameBytes is the encode buffer ceiling per 20 ms frame.
const maxOpusFrameBytes = 4000

type discordTransport struct {
	logger *zap.Logger
	state  *state.State
}

// NewDiscordTransport creates the gateway-backed voice transport.
func NewDiscordTransport(logger *zap.Logger, s *state.State) Transport {
	return &discordTransport{logger: logger, state: s}
}

func (t *discordTransport) Connect(ctx context.Context, guildID discord.GuildID, channelID discord.ChannelID) (Connection, error) {
	voiceSession, err := voice.NewSession(t.state.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to create voice session: %w", err)
	}

	// Joining muted=false, deafened=true: this bot only ever sends audio.
	if err := voiceSession.JoinChannel(ctx, channelID, false, true); err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}

	if err := voiceSession.Speaking(ctx, voicegateway.Microphone); err != nil {
		_ = voiceSession.Leave(ctx)
		return nil, fmt.Errorf("failed to set speaking mode: %w", err)
	}

	// arikawa does not fully establish the UDP socket until the first
	// Write; an empty write performs the handshake up front so the first
	// real frame is not delayed.
	_, _ = voiceSession.Write([]byte{})

	encoder, err := gopus.NewEncoder(pcmfmt.SampleRate, pcmfmt.Channels, gopus.Audio)
	if err != nil {
		_ = voiceSession.Leave(ctx)
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	t.logger.Info("Joined voice channel",
		zap.String("guild_id", guildID.String()),
		zap.String("channel_id", channelID.String()))

	return &discordConnection{
		logger:    t.logger,
		session:   voiceSession,
		encoder:   encoder,
		guildID:   guildID,
		channelID: channelID,
	}, nil
}

type discordConnection struct {
	logger    *zap.Logger
	session   *voice.Session
	encoder   *gopus.Encoder
	guildID   discord.GuildID
	channelID discord.ChannelID

	mu        sync.Mutex
	destroyed bool
}

func (c *discordConnection) WriteFrame(pcm []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrTransportDestroyed
	}

	samples := pcmfmt.LEToPCMInt16(pcm)
	opus, err := c.encoder.Encode(samples, pcmfmt.SamplesPerFrame, maxOpusFrameBytes)
	if err != nil {
		return fmt.Errorf("opus encode failed: %w", err)
	}

	if _, err := c.session.Write(opus); err != nil {
		return fmt.Errorf("voice write failed: %w", err)
	}
	return nil
}

func (c *discordConnection) Destroy(ctx context.Context) error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	c.destroyed = true
	c.mu.Unlock()

	if err := c.session.Leave(ctx); err != nil {
		c.logger.Warn("Failed to leave voice channel cleanly",
			zap.String("guild_id", c.guildID.String()),
			zap.Error(err))
		return err
	}

	c.logger.Info("Left voice channel",
		zap.String("guild_id", c.guildID.String()),
		zap.String("channel_id", c.channelID.String()))
	return nil
}
