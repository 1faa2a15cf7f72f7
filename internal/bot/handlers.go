package bot

import (
	"context"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"go.uber.org/zap"
)

func (b *Bot) handleInteraction(ctx context.Context, e *gateway.InteractionCreateEvent) {
	data, ok := e.Data.(*discord.CommandInteraction)
	if !ok {
		b.Logger.Debug("Received unhandled interaction type", zap.Any("type", e.Data))
		return
	}

	cmd, ok := b.CmdManager.Get(data.Name)
	if !ok {
		b.Logger.Warn("Unknown command", zap.String("commandName", data.Name))
		return
	}

	b.Logger.Info("Received slash command",
		zap.String("commandName", data.Name),
		zap.Stringer("guildID", e.GuildID))

	if err := cmd.Execute(ctx, b.Session, e, data); err != nil {
		b.Logger.Error("Error executing command",
			zap.String("commandName", data.Name),
			zap.Error(err))
	}
}

// handleVoiceStateUpdate plays the configured entrance sound when a user
// joins a voice channel. Updates that do not change the channel (mute,
// deafen, stream toggles) and the bot's own transitions are ignored.
func (b *Bot) handleVoiceStateUpdate(ctx context.Context, e *gateway.VoiceStateUpdateEvent) {
	me, err := b.Session.Me()
	if err == nil && me.ID == e.UserID {
		return
	}

	b.voiceMu.Lock()
	prev := b.lastChannel[e.UserID]
	b.lastChannel[e.UserID] = e.ChannelID
	b.voiceMu.Unlock()

	if !e.ChannelID.IsValid() || e.ChannelID == prev {
		return
	}

	b.Service.PlayEntrance(ctx, e.GuildID, e.ChannelID, e.UserID)
}
