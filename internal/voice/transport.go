package voice

import (
	"context"

	"github.com/diamondburned/arikawa/v3/discord"
)

// Transport abstracts the voice backend so the mixer and session logic can
// be exercised without a live gateway.
type Transport interface {
	// Connect joins the voice channel and returns a connection ready to
	// accept PCM frames.
	Connect(ctx context.Context, guildID discord.GuildID, channelID discord.ChannelID) (Connection, error)
}

// Connection is one live voice channel link.
type Connection interface {
	// WriteFrame encodes and sends one 20 ms canonical PCM frame.
	WriteFrame(pcm []byte) error
	// Destroy leaves the channel and releases resources. Safe to call
	// more than once.
	Destroy(ctx context.Context) error
}

// VoiceError represents a voice session level failure.
type VoiceError struct {
	Message string
}

func (e *VoiceError) Error() string {
	return "voice: " + e.Message
}

// NewVoiceError creates a new voice error.
func NewVoiceError(message string) *VoiceError {
	return &VoiceError{Message: message}
}

var (
	ErrSessionNotFound    = NewVoiceError("session not found")
	ErrSessionNotActive   = NewVoiceError("session is not connected")
	ErrClipNotFound       = NewVoiceError("no playing clip with that id")
	ErrNotInVoiceChannel  = NewVoiceError("user is not in a voice channel")
	ErrTransportDestroyed = NewVoiceError("voice connection destroyed")
)
